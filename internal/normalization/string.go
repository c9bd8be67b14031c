package normalization

import (
	"strings"
)

// Normalize lowercases and trims curriculum identifiers (board, subject,
// language) so lookups and unique constraints see one canonical form.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeLanguage maps an empty language to the platform default.
func NormalizeLanguage(input string) string {
	lang := Normalize(input)
	if lang == "" {
		return "en"
	}
	return lang
}
