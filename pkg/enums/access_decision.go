package enums

import "fmt"

// AccessDecision is the read-time outcome of evaluating an enrollment.
type AccessDecision string

const (
	AccessDecisionGranted       AccessDecision = "GRANTED"
	AccessDecisionPendingReview AccessDecision = "PENDING_REVIEW"
	AccessDecisionBlocked       AccessDecision = "BLOCKED"
	AccessDecisionExpired       AccessDecision = "EXPIRED"
)

var validAccessDecisions = []AccessDecision{
	AccessDecisionGranted,
	AccessDecisionPendingReview,
	AccessDecisionBlocked,
	AccessDecisionExpired,
}

// String implements fmt.Stringer.
func (v AccessDecision) String() string {
	return string(v)
}

// IsValid reports whether the value is a known AccessDecision.
func (v AccessDecision) IsValid() bool {
	for _, candidate := range validAccessDecisions {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAccessDecision converts raw input into an AccessDecision.
func ParseAccessDecision(value string) (AccessDecision, error) {
	for _, candidate := range validAccessDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access decision %q", value)
}
