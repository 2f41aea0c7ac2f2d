// Package domain models hazard events published by an emergency warning
// feed and the alerts derived from them.
//
// # Data Source
//
// Hazard events follow the shape of Australian state emergency feeds
// (modeled on the Victorian public warning feed). The feed exposes two
// endpoints: a cheap delta endpoint returning a last-modified timestamp
// and a content hash, and a full endpoint returning a GeoJSON-like
// FeatureCollection. Each feature carries flat properties plus geometry
// that may be a Point, a Polygon, or a GeometryCollection mixing both.
//
// # Feed Conventions
//
// Feed type:
//
//	"warning"  — an active warning issued by an agency
//	"incident" — a reported incident (fire, flood, storm damage)
//
// Action text:
//
//	Warnings carry a prescribed community action as free text, e.g.
//	"Shelter In Place Now", "Leave Immediately", "Leave If Safe To Do So",
//	"Monitor Conditions". Action text drives both alert severity and
//	proximity ranking via an ordered substring classifier (see
//	ClassifyAction): shelter outranks leave-immediately outranks any
//	other leave phrasing.
//
// Timestamps:
//
//	"created" and "updated" are ISO 8601 strings. The raw "updated"
//	string doubles as the event's change fingerprint: two snapshots of
//	the same event differ iff their "updated" strings differ. It is
//	compared, never parsed, so a malformed timestamp still fingerprints
//	correctly.
//
// Geometry:
//
//	Polygon rings arrive as ordered (longitude, latitude) pairs, open or
//	closed. Closure is applied by the geometry layer, never assumed.
//	A feature may carry a point, a polygon, both, or neither; events
//	without a usable polygon are excluded from proximity ranking and
//	area sums but still participate in change detection.
//
// # Reference Region
//
// Area percentages are reported against the land area of Victoria,
// 227,444 km².
package domain
