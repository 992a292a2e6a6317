package enums

import "fmt"

// RequestStatus tracks the lifecycle of a blood request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusAccepted,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// requestTransitions encodes the monotonic status graph. There are no
// back-edges: a request only moves forward or is cancelled while pending.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:  {RequestStatusAccepted, RequestStatusCancelled},
	RequestStatusAccepted: {RequestStatusCompleted, RequestStatusPending},
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are defined.
func (r RequestStatus) IsTerminal() bool {
	return len(requestTransitions[r]) == 0
}

// CanTransitionTo reports whether the status graph permits moving to target.
// The accepted -> pending edge exists only for the commitment-cancellation
// reopen path.
func (r RequestStatus) CanTransitionTo(target RequestStatus) bool {
	for _, candidate := range requestTransitions[r] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
