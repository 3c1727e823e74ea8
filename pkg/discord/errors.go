package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"signupbot/internal/domain"
)

// IsUnknownObject reports whether Discord answered that the message,
// channel or member does not exist (anymore).
func IsUnknownObject(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Message == nil {
		return false
	}
	switch rest.Message.Code {
	case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember:
		return true
	}
	return false
}

// ErrorKey maps an error to the i18n key of its user-facing message.
func ErrorKey(err error) string {
	if err == nil {
		return ""
	}
	if code := domain.Code(err); code != "" {
		return "errors." + code
	}
	return "errors.generic"
}
