package enums

import "fmt"

// UrgencyLevel ranks how quickly a blood request needs to be fulfilled.
type UrgencyLevel string

const (
	UrgencyLevelModerate UrgencyLevel = "moderate"
	UrgencyLevelUrgent   UrgencyLevel = "urgent"
	UrgencyLevelCritical UrgencyLevel = "critical"
)

var validUrgencyLevels = []UrgencyLevel{
	UrgencyLevelModerate,
	UrgencyLevelUrgent,
	UrgencyLevelCritical,
}

// String implements fmt.Stringer.
func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UrgencyLevel.
func (u UrgencyLevel) IsValid() bool {
	for _, candidate := range validUrgencyLevels {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUrgencyLevel converts raw input into an UrgencyLevel.
func ParseUrgencyLevel(value string) (UrgencyLevel, error) {
	for _, candidate := range validUrgencyLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid urgency level %q", value)
}
