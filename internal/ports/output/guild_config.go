package output

// GuildSettings is the per-guild configuration consumed by the core.
type GuildSettings struct {
	Locale                      string
	ReminderIntervals           []string
	ReminderDMs                 bool
	AutoDeleteHours             int
	ApprovalChannelIDs          []string
	ArchiveChannelID            string
	DeleteThreadOnArchive       bool
	VoiceCategoryID             string
	VoiceCreateBeforeMinutes    int
	VoicePostEventBufferMinutes int
	MinEventsForRank            int
}

// GuildConfigProvider resolves settings for a guild, falling back to defaults.
type GuildConfigProvider interface {
	Guild(guildID string) GuildSettings
}
