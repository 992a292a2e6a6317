package enums

import "fmt"

// CommitmentStatus tracks a donor's commitment against a blood request.
type CommitmentStatus string

const (
	CommitmentStatusPending             CommitmentStatus = "pending"
	CommitmentStatusInProgress          CommitmentStatus = "in_progress"
	CommitmentStatusPendingVerification CommitmentStatus = "pending_verification"
	CommitmentStatusCompleted           CommitmentStatus = "completed"
	CommitmentStatusCancelled           CommitmentStatus = "cancelled"
	CommitmentStatusDisputed            CommitmentStatus = "disputed"
)

var validCommitmentStatuses = []CommitmentStatus{
	CommitmentStatusPending,
	CommitmentStatusInProgress,
	CommitmentStatusPendingVerification,
	CommitmentStatusCompleted,
	CommitmentStatusCancelled,
	CommitmentStatusDisputed,
}

// commitmentTransitions encodes the forward-only status graph. A donor may
// mark a donation done straight from pending when they never pressed start.
var commitmentTransitions = map[CommitmentStatus][]CommitmentStatus{
	CommitmentStatusPending: {
		CommitmentStatusInProgress,
		CommitmentStatusPendingVerification,
		CommitmentStatusCancelled,
	},
	CommitmentStatusInProgress: {
		CommitmentStatusPendingVerification,
		CommitmentStatusCancelled,
	},
	CommitmentStatusPendingVerification: {
		CommitmentStatusCompleted,
		CommitmentStatusDisputed,
	},
}

// ActiveCommitmentStatuses are the non-terminal statuses a donor can hold.
var ActiveCommitmentStatuses = []CommitmentStatus{
	CommitmentStatusPending,
	CommitmentStatusInProgress,
	CommitmentStatusPendingVerification,
}

// String implements fmt.Stringer.
func (c CommitmentStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommitmentStatus.
func (c CommitmentStatus) IsValid() bool {
	for _, candidate := range validCommitmentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are defined.
func (c CommitmentStatus) IsTerminal() bool {
	return len(commitmentTransitions[c]) == 0
}

// CanTransitionTo reports whether the status graph permits moving to target.
func (c CommitmentStatus) CanTransitionTo(target CommitmentStatus) bool {
	for _, candidate := range commitmentTransitions[c] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseCommitmentStatus converts raw input into a CommitmentStatus.
func ParseCommitmentStatus(value string) (CommitmentStatus, error) {
	for _, candidate := range validCommitmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commitment status %q", value)
}
