package i18n

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"signupbot/internal/ports/output"
)

//go:embed active.*.toml
var localeFS embed.FS

var _ output.Translator = (*Translator)(nil)

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             zerolog.Logger

	mu         sync.Mutex
	localizers map[string]*i18n.Localizer
}

// NewTranslator builds a Translator backed by the embedded active.*.toml
// files, using defaultLocale (e.g. "fr") as the last fallback.
func NewTranslator(defaultLocale string, log zerolog.Logger) *Translator {
	log = log.With().Str("component", "i18n").Logger()
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		log.Warn().Str("locale", defaultLocale).Msg("unknown default locale, using en")
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	loadMessageFiles(bundle, localeFS, log)

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
		log:             log,
		localizers:      map[string]*i18n.Localizer{},
	}
}

func (t *Translator) localizer(locale string) *i18n.Localizer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.localizers[locale]; ok {
		return l
	}
	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())
	l := i18n.NewLocalizer(t.bundle, languages...)
	t.localizers[locale] = l
	return l
}

// T renders the message identified by key for the given locale.
// If the key/locale is not found, it falls back to the default locale,
// then finally to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	msg, err := t.localizer(locale).Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.log.Warn().Err(err).Str("key", key).Str("locale", locale).Msg("localize failed")
		return key
	}
	return msg
}

// Languages lists the locales with loaded translations.
func (t *Translator) Languages() []language.Tag {
	return t.bundle.LanguageTags()
}

// loadMessageFiles loads every file at the root of fsys into bundle and
// returns how many loaded.
func loadMessageFiles(bundle *i18n.Bundle, fsys fs.FS, log zerolog.Logger) int {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		log.Error().Err(err).Msg("failed to list translation files")
		return 0
	}
	loaded := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(fsys, f.Name()); err != nil {
			log.Error().Err(err).Str("file", f.Name()).Msg("failed to load translations")
			continue
		}
		loaded++
	}
	return loaded
}
