package entities

import "time"

// VoicePhase tags which variant a VoiceChannelState holds.
type VoicePhase string

const (
	VoiceNotScheduled VoicePhase = "not_scheduled"
	VoiceScheduled    VoicePhase = "scheduled"
	VoiceCreated      VoicePhase = "created"
	VoiceDeleted      VoicePhase = "deleted"
)

// VoiceChannelState is the temporary voice channel's lifecycle:
//
//	NotScheduled | Scheduled{CreateAt, DeleteAt} | Created{ExternalID, CreatedAt, DeleteAt} | Deleted{DeletedAt}
//
// Only the fields of the current phase are meaningful.
type VoiceChannelState struct {
	Phase      VoicePhase
	CreateAt   time.Time
	DeleteAt   time.Time
	ExternalID string
	CreatedAt  time.Time
	DeletedAt  time.Time
}

func VoiceStateNotScheduled() VoiceChannelState {
	return VoiceChannelState{Phase: VoiceNotScheduled}
}

func VoiceStateScheduled(createAt, deleteAt time.Time) VoiceChannelState {
	return VoiceChannelState{Phase: VoiceScheduled, CreateAt: createAt, DeleteAt: deleteAt}
}

func VoiceStateCreated(externalID string, createdAt, deleteAt time.Time) VoiceChannelState {
	return VoiceChannelState{Phase: VoiceCreated, ExternalID: externalID, CreatedAt: createdAt, DeleteAt: deleteAt}
}

func VoiceStateDeleted(deletedAt time.Time) VoiceChannelState {
	return VoiceChannelState{Phase: VoiceDeleted, DeletedAt: deletedAt}
}

// DueForCreation reports whether the channel should be created at now.
func (s VoiceChannelState) DueForCreation(now time.Time) bool {
	return s.Phase == VoiceScheduled && !now.Before(s.CreateAt)
}

// DueForDeletion reports whether a created channel has outlived DeleteAt.
func (s VoiceChannelState) DueForDeletion(now time.Time) bool {
	return s.Phase == VoiceCreated && !now.Before(s.DeleteAt)
}

// Extended returns the state with DeleteAt pushed forward by d.
// ok is false for phases that have no pending deletion.
func (s VoiceChannelState) Extended(d time.Duration) (VoiceChannelState, bool) {
	if s.Phase != VoiceScheduled && s.Phase != VoiceCreated {
		return s, false
	}
	s.DeleteAt = s.DeleteAt.Add(d)
	return s, true
}

// VoiceChannel holds the per-event voice channel settings and state.
type VoiceChannel struct {
	Enabled             bool
	Name                string
	Restricted          bool
	CreateBeforeMinutes int
	State               VoiceChannelState
}
