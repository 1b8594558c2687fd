package enums

import "fmt"

// AccessStatus governs whether course content may be viewed.
type AccessStatus string

const (
	AccessStatusPending AccessStatus = "PENDING"
	AccessStatusActive  AccessStatus = "ACTIVE"
	AccessStatusBlocked AccessStatus = "BLOCKED"
)

var validAccessStatuses = []AccessStatus{
	AccessStatusPending,
	AccessStatusActive,
	AccessStatusBlocked,
}

// String implements fmt.Stringer.
func (v AccessStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known AccessStatus.
func (v AccessStatus) IsValid() bool {
	for _, candidate := range validAccessStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAccessStatus converts raw input into an AccessStatus.
func ParseAccessStatus(value string) (AccessStatus, error) {
	for _, candidate := range validAccessStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access status %q", value)
}
