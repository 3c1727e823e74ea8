package entities

import (
	"time"

	"signupbot/internal/domain"
)

// Participant represents a user's participation in an event.
// Position is set if and only if Status is waitlist.
type Participant struct {
	EventID   uint
	UserID    string
	Username  string
	Role      string
	Spec      string
	Note      string
	Status    string
	Position  *int
	JoinedAt  time.Time
	NoShow    bool
	UpdatedAt time.Time
}

func (p *Participant) IsConfirmed() bool { return p.Status == domain.StatusConfirmed }

func (p *Participant) IsWaitlisted() bool { return p.Status == domain.StatusWaitlist }

// WaitlistPosition returns the position, or 0 when not waitlisted.
func (p *Participant) WaitlistPosition() int {
	if p.Position == nil {
		return 0
	}
	return *p.Position
}

// SetWaitlisted moves the participant to the waitlist at pos.
func (p *Participant) SetWaitlisted(pos int) {
	p.Status = domain.StatusWaitlist
	p.Position = &pos
}

// SetStatus moves the participant to a non-waitlist status and clears Position.
func (p *Participant) SetStatus(status string) {
	p.Status = status
	p.Position = nil
}
