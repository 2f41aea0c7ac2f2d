package domain

import "strings"

// Action priority tiers. Higher means more urgent.
const (
	ActionPriorityNone           = 0
	ActionPriorityLeave          = 1
	ActionPriorityLeaveImmediate = 2
	ActionPriorityShelterInPlace = 3
)

// Action tier labels used by the area reporter.
const (
	TierShelter          = "shelter"
	TierLeaveImmediately = "leave-immediately"
	TierLeaveOther       = "leave-other"
)

// actionRules is the ordered classifier for prescribed-action text,
// evaluated top-down so the highest-priority phrase wins: a text
// containing both "shelter" and "leave" classifies as shelter, and
// "leave immediately" is matched before the bare "leave" can shadow it.
var actionRules = []struct {
	phrase   string
	priority int
}{
	{"shelter", ActionPriorityShelterInPlace},
	{"leave immediately", ActionPriorityLeaveImmediate},
	{"leave", ActionPriorityLeave},
}

// ClassifyAction maps free-form prescribed-action text to a priority
// tier using case-insensitive substring matching.
func ClassifyAction(action string) int {
	lower := strings.ToLower(action)
	for _, rule := range actionRules {
		if strings.Contains(lower, rule.phrase) {
			return rule.priority
		}
	}
	return ActionPriorityNone
}

// ActionTier returns the reporter tier label for an action text, or ""
// when the text matches no tier.
func ActionTier(action string) string {
	switch ClassifyAction(action) {
	case ActionPriorityShelterInPlace:
		return TierShelter
	case ActionPriorityLeaveImmediate:
		return TierLeaveImmediately
	case ActionPriorityLeave:
		return TierLeaveOther
	default:
		return ""
	}
}
