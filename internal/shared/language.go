package shared

// Supported language tags.
const (
	LangRU = "ru"
	LangUZ = "uz"
)

// IsSupportedLanguage reports whether lang is one of the tags the service speaks.
func IsSupportedLanguage(lang string) bool {
	return lang == LangRU || lang == LangUZ
}
