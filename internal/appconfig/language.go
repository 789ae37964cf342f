package appconfig

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when neither config nor environment name one.
const DefaultLanguage = "en-US"

// ResolveLanguage returns the UI language as a BCP 47 tag. An explicit
// configured value wins; otherwise the POSIX locale variables are consulted.
func ResolveLanguage(configured string) string {
	candidates := []string{configured}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		candidates = append(candidates, os.Getenv(key))
	}
	for _, candidate := range candidates {
		if tag, ok := parseLocale(candidate); ok {
			return tag
		}
	}
	return DefaultLanguage
}

func parseLocale(value string) (string, bool) {
	value = strings.TrimSpace(value)
	// "de_DE.UTF-8@euro" -> "de_DE"
	if idx := strings.IndexAny(value, ".@"); idx >= 0 {
		value = value[:idx]
	}
	if value == "" || value == "C" || value == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil || tag == language.Und {
		return "", false
	}
	return tag.String(), true
}
