package entities

import (
	"slices"
	"time"

	"signupbot/internal/domain"
)

// MinActiveDuration is how long an event stays active at minimum before it
// can be archived.
const MinActiveDuration = time.Hour

type Event struct {
	ID              uint
	GuildID         string
	ChannelID       string
	MessageID       string
	ThreadID        string
	CreatorID       string
	Title           string
	Description     string
	StartTime       time.Time
	DurationMinutes int // 0 = not set
	Timezone        string
	Status          string
	MaxParticipants int            // 0 = unlimited
	RoleCapacity    map[string]int // empty = no role configuration
	RequireApproval bool
	BenchOverflow   bool
	AllowLateSignup bool
	AllowedRoles    []string      // empty = everyone
	DeadlineOffset  time.Duration // 0 = sign-ups open until start
	Voice           VoiceChannel
	ArchivedAt      time.Time
	DeletedAt       time.Time
	Participants    []Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e *Event) IsDeleted() bool {
	return !e.DeletedAt.IsZero()
}

func (e *Event) IsArchived() bool {
	return !e.ArchivedAt.IsZero()
}

// Duration returns the configured duration, or zero.
func (e *Event) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// DueForActivation reports whether a scheduled event has started.
func (e *Event) DueForActivation(now time.Time) bool {
	return e.Status == domain.EventScheduled && !now.Before(e.StartTime)
}

// ArchiveAt is the earliest instant an active event may be completed:
// max(start+1h, start+duration).
func (e *Event) ArchiveAt() time.Time {
	at := e.StartTime.Add(MinActiveDuration)
	if end := e.StartTime.Add(e.Duration()); e.DurationMinutes > 0 && end.After(at) {
		at = end
	}
	return at
}

// DueForArchive reports whether an active event should be completed.
func (e *Event) DueForArchive(now time.Time) bool {
	return e.Status == domain.EventActive && !now.Before(e.ArchiveAt())
}

// SignupDeadline returns the instant sign-ups close, if a deadline is configured.
func (e *Event) SignupDeadline() (time.Time, bool) {
	if e.DeadlineOffset <= 0 {
		return time.Time{}, false
	}
	return e.StartTime.Add(-e.DeadlineOffset), true
}

// CheckSignupsOpen returns a validation error when nobody may join at now.
func (e *Event) CheckSignupsOpen(now time.Time) error {
	switch {
	case e.Status == domain.EventScheduled:
	case e.Status == domain.EventActive && e.AllowLateSignup:
	default:
		return domain.ErrSignupsClosed
	}
	if deadline, ok := e.SignupDeadline(); ok && !now.Before(deadline) {
		return domain.ErrSignupDeadlinePassed
	}
	return nil
}

// HasRoleConfig reports whether sign-ups are split by role.
func (e *Event) HasRoleConfig() bool {
	return len(e.RoleCapacity) > 0
}

// RoleLimit returns the capacity of role, if the role has one.
func (e *Event) RoleLimit(role string) (int, bool) {
	limit, ok := e.RoleCapacity[role]
	if !ok || limit <= 0 {
		return 0, false
	}
	return limit, true
}

// ValidRole reports whether role may be used on this event.
func (e *Event) ValidRole(role string) bool {
	if !e.HasRoleConfig() {
		return true
	}
	_, ok := e.RoleCapacity[role]
	return ok
}

// RolesEligible reports whether a member holding callerRoles may sign up
// normally (not on the bench).
func (e *Event) RolesEligible(callerRoles []string) bool {
	if len(e.AllowedRoles) == 0 {
		return true
	}
	for _, r := range callerRoles {
		if slices.Contains(e.AllowedRoles, r) {
			return true
		}
	}
	return false
}

// VoiceDeleteAt is when the temporary voice channel is torn down: end of the
// event (duration, or the minimum active time) plus buffer.
func (e *Event) VoiceDeleteAt(buffer time.Duration) time.Time {
	d := e.Duration()
	if e.DurationMinutes <= 0 {
		d = MinActiveDuration
	}
	return e.StartTime.Add(d + buffer)
}

// VoiceCreateAt is when the temporary voice channel is created.
func (e *Event) VoiceCreateAt() time.Time {
	return e.StartTime.Add(-time.Duration(e.Voice.CreateBeforeMinutes) * time.Minute)
}
