package domain

// Event statuses.
const (
	EventScheduled = "scheduled"
	EventActive    = "active"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Participant statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusWaitlist  = "waitlist"
	StatusDeclined  = "declined"
)

// eventRank orders the forward path; cancelled is a terminal side branch.
var eventRank = map[string]int{
	EventScheduled: 0,
	EventActive:    1,
	EventCompleted: 2,
}

// CanTransition reports whether an event may move from one status to another.
// The forward path is scheduled -> active -> completed, one step at a time;
// scheduled and active may also be cancelled. Nothing leaves a terminal status.
func CanTransition(from, to string) bool {
	if to == EventCancelled {
		return from == EventScheduled || from == EventActive
	}
	fr, okFrom := eventRank[from]
	tr, okTo := eventRank[to]
	return okFrom && okTo && tr == fr+1
}

// IsTerminal reports whether no further status transition is possible.
func IsTerminal(status string) bool {
	return status == EventCompleted || status == EventCancelled
}

// ValidParticipantStatus reports whether s is a known participant status.
func ValidParticipantStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitlist, StatusDeclined:
		return true
	}
	return false
}
