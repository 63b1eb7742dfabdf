// Package balancer assigns new sessions to the control or treatment arm so
// the control fraction tracks the target ratio over time. Assignment is
// deterministic given the current aggregate counts; it is a closed-loop
// controller, not random allocation.
package balancer

import "github.com/personachat/backend/internal/personality"

// TargetControlRatio is the fraction of sessions the controller steers the
// control arm toward.
const TargetControlRatio = 0.5

// Assignment is the outcome for one new session. When IsControl is true,
// PersonalityOverride replaces the questionnaire-derived prompt.
type Assignment struct {
	IsControl           bool
	PersonalityOverride string
}

// Decide picks the arm for a brand-new session given a fresh read of the
// aggregate counts. The ratio is defined as 0 when no sessions exist, so the
// very first session is always control. Counts read here and the subsequent
// insert are not one transaction; concurrent creates can both read a stale
// ratio and overshoot transiently, which is tolerated and never corrected
// retroactively.
func Decide(total, control int64) Assignment {
	ratio := 0.0
	if total > 0 {
		ratio = float64(control) / float64(total)
	}
	if ratio < TargetControlRatio {
		return Assignment{
			IsControl:           true,
			PersonalityOverride: personality.NeutralPrompt,
		}
	}
	return Assignment{}
}
