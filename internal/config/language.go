package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// LanguageConfig provides language-related configuration utilities
type LanguageConfig struct {
	tag language.Tag
}

// ParseLanguage parses and validates an ISO language tag.
// Locale style input such as "bg_BG.UTF-8" is accepted.
func ParseLanguage(langTag string) (*LanguageConfig, error) {
	raw := strings.TrimSpace(langTag)
	if raw == "" {
		return nil, fmt.Errorf("language tag is empty")
	}
	raw = strings.Split(raw, ".")[0]
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, err := language.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid language tag %q: %w", langTag, err)
	}
	return &LanguageConfig{tag: tag}, nil
}

// Tag returns the underlying language tag
func (lc *LanguageConfig) Tag() language.Tag {
	return lc.tag
}

// String returns the language tag as a string (e.g., "bg", "en-GB")
func (lc *LanguageConfig) String() string {
	return lc.tag.String()
}

// Base returns the two letter base language sent to the backend (e.g., "bg")
func (lc *LanguageConfig) Base() string {
	base, _ := lc.tag.Base()
	return base.String()
}

// ResolveLanguage picks the view language: the requested tag when valid, else the fallback
func ResolveLanguage(requested, fallback string) string {
	if lc, err := ParseLanguage(requested); err == nil {
		return lc.Base()
	}
	if lc, err := ParseLanguage(fallback); err == nil {
		return lc.Base()
	}
	return defaultLanguage
}

// DetectSystemLanguage returns the base language of the process locale, if any
func DetectSystemLanguage() string {
	for _, envVar := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		if val := os.Getenv(envVar); val != "" && val != "C" && val != "POSIX" {
			if lc, err := ParseLanguage(val); err == nil {
				return lc.Base()
			}
		}
	}
	return ""
}
