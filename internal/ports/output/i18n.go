package output

// Translator renders user-facing texts (reminders, DMs, archive posts).
type Translator interface {
	// T renders key for locale with optional template data, falling back to
	// the default locale and finally to the key itself.
	T(locale, key string, data map[string]any) string
}
