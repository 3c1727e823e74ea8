package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"signupbot/internal/domain"
	"signupbot/internal/ports/output"
)

var _ output.GuildConfigProvider = (*GuildConfigs)(nil)

// guildFile is the on-disk layout:
//
//	[defaults]
//	locale = "fr"
//	reminder_intervals = ["24h", "1h"]
//
//	[guilds.123456789]
//	archive_channel_id = "987654321"
//
// Any key left out of a guild section inherits the defaults.
type guildFile struct {
	Defaults guildSection            `toml:"defaults"`
	Guilds   map[string]guildSection `toml:"guilds"`
}

type guildSection struct {
	Locale                      *string  `toml:"locale"`
	ReminderIntervals           []string `toml:"reminder_intervals"`
	ReminderDMs                 *bool    `toml:"reminder_dms"`
	AutoDeleteHours             *int     `toml:"auto_delete_hours"`
	ApprovalChannelIDs          []string `toml:"approval_channel_ids"`
	ArchiveChannelID            *string  `toml:"archive_channel_id"`
	DeleteThreadOnArchive       *bool    `toml:"delete_thread_on_archive"`
	VoiceCategoryID             *string  `toml:"voice_category_id"`
	VoiceCreateBeforeMinutes    *int     `toml:"voice_create_before_minutes"`
	VoicePostEventBufferMinutes *int     `toml:"voice_post_event_buffer_minutes"`
	MinEventsForRank            *int     `toml:"min_events_for_rank"`
}

// DefaultGuildSettings applies when no file or no [defaults] key is given.
func DefaultGuildSettings(locale string) output.GuildSettings {
	return output.GuildSettings{
		Locale:                      locale,
		ReminderIntervals:           []string{"24h", "1h", "15m"},
		AutoDeleteHours:             48,
		VoiceCreateBeforeMinutes:    15,
		VoicePostEventBufferMinutes: 30,
		MinEventsForRank:            3,
	}
}

// GuildConfigs resolves per-guild settings over shared defaults.
type GuildConfigs struct {
	defaults output.GuildSettings
	guilds   map[string]output.GuildSettings
}

// LoadGuildConfigs reads path. A missing file yields the built-in defaults.
func LoadGuildConfigs(path, defaultLocale string) (*GuildConfigs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &GuildConfigs{defaults: DefaultGuildSettings(defaultLocale), guilds: map[string]output.GuildSettings{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: lecture de %s: %w", path, err)
	}
	return ParseGuildConfigs(data, defaultLocale)
}

// ParseGuildConfigs decodes a TOML document and validates every section.
func ParseGuildConfigs(data []byte, defaultLocale string) (*GuildConfigs, error) {
	var f guildFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: fichier de guildes invalide: %w", err)
	}

	defaults := f.Defaults.apply(DefaultGuildSettings(defaultLocale))
	if err := validateGuild("defaults", defaults); err != nil {
		return nil, err
	}

	guilds := make(map[string]output.GuildSettings, len(f.Guilds))
	for id, section := range f.Guilds {
		s := section.apply(defaults)
		if err := validateGuild(id, s); err != nil {
			return nil, err
		}
		guilds[id] = s
	}
	return &GuildConfigs{defaults: defaults, guilds: guilds}, nil
}

func (g *GuildConfigs) Guild(guildID string) output.GuildSettings {
	if s, ok := g.guilds[guildID]; ok {
		return s
	}
	return g.defaults
}

func (s guildSection) apply(base output.GuildSettings) output.GuildSettings {
	out := base
	if s.Locale != nil {
		out.Locale = *s.Locale
	}
	if s.ReminderIntervals != nil {
		out.ReminderIntervals = s.ReminderIntervals
	}
	if s.ReminderDMs != nil {
		out.ReminderDMs = *s.ReminderDMs
	}
	if s.AutoDeleteHours != nil {
		out.AutoDeleteHours = *s.AutoDeleteHours
	}
	if s.ApprovalChannelIDs != nil {
		out.ApprovalChannelIDs = s.ApprovalChannelIDs
	}
	if s.ArchiveChannelID != nil {
		out.ArchiveChannelID = *s.ArchiveChannelID
	}
	if s.DeleteThreadOnArchive != nil {
		out.DeleteThreadOnArchive = *s.DeleteThreadOnArchive
	}
	if s.VoiceCategoryID != nil {
		out.VoiceCategoryID = *s.VoiceCategoryID
	}
	if s.VoiceCreateBeforeMinutes != nil {
		out.VoiceCreateBeforeMinutes = *s.VoiceCreateBeforeMinutes
	}
	if s.VoicePostEventBufferMinutes != nil {
		out.VoicePostEventBufferMinutes = *s.VoicePostEventBufferMinutes
	}
	if s.MinEventsForRank != nil {
		out.MinEventsForRank = *s.MinEventsForRank
	}
	return out
}

func validateGuild(name string, s output.GuildSettings) error {
	for _, iv := range s.ReminderIntervals {
		if _, err := domain.ParseReminderInterval(iv); err != nil {
			return fmt.Errorf("config: guilde %s: %w", name, err)
		}
	}
	if s.VoiceCreateBeforeMinutes < 0 || s.VoicePostEventBufferMinutes < 0 {
		return fmt.Errorf("config: guilde %s: délais du salon vocal négatifs", name)
	}
	if s.MinEventsForRank < 0 {
		return fmt.Errorf("config: guilde %s: min_events_for_rank négatif", name)
	}
	return nil
}
