// Package i18n provides internationalization support for panes.
//
// Usage:
//
//	i18n.Init("en")                                           // at startup
//	i18n.T("tui.pane.empty", "No session")                    // simple string
//	i18n.Tf("error.paneLimit", "At most %d panes per tab", n) // with fmt args
//	i18n.Tn("tui.queue", "{{.Count}} queued message", "{{.Count}} queued messages", n)
package i18n

import (
	"embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	active    string
	mu        sync.RWMutex
)

// Init initializes the i18n system with the given language tag.
// Falls back to English if the language is not available.
// Safe to call multiple times (e.g., after config reload).
func Init(lang string) {
	mu.Lock()
	defer mu.Unlock()

	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, _ := localeFS.ReadDir("locales")
	for _, e := range entries {
		_, _ = bundle.LoadMessageFileFS(localeFS, "locales/"+e.Name())
	}

	localizer = i18n.NewLocalizer(bundle, lang, "en")
	active = lang
}

// Active returns the tag passed to the last Init.
func Active() string {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Languages returns the tags of the embedded locale files.
func Languages() []string {
	entries, _ := localeFS.ReadDir("locales")
	var tags []string
	for _, e := range entries {
		if tag, ok := strings.CutSuffix(e.Name(), ".toml"); ok {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	return tags
}

// T returns the localized string for the given message ID.
// The defaultMsg is used as the English fallback.
func T(id string, defaultMsg string) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()

	if l == nil {
		return defaultMsg
	}

	s, err := l.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID:    id,
			Other: defaultMsg,
		},
	})
	if err != nil {
		return defaultMsg
	}
	return s
}

// Tf returns the localized string with fmt.Sprintf-style formatting.
func Tf(id string, defaultMsg string, args ...any) string {
	return fmt.Sprintf(T(id, defaultMsg), args...)
}

// Tn returns the localized string with pluralization.
// one/other use go template syntax with {{.Count}}.
func Tn(id string, one string, other string, count int) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()

	fallback := strings.ReplaceAll(other, "{{.Count}}", fmt.Sprint(count))
	if count == 1 {
		fallback = strings.ReplaceAll(one, "{{.Count}}", fmt.Sprint(count))
	}
	if l == nil {
		return fallback
	}

	s, err := l.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID:    id,
			One:   one,
			Other: other,
		},
		PluralCount:  count,
		TemplateData: map[string]int{"Count": count},
	})
	if err != nil {
		return fallback
	}
	return s
}

// ResolveLocale determines the active locale from env/config.
// Priority: PANES_LANG > configLang > LC_ALL > LANG > "en"
func ResolveLocale(configLang string) string {
	if v := os.Getenv("PANES_LANG"); v != "" {
		return v
	}
	if configLang != "" {
		return configLang
	}
	for _, env := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(env); v != "" && v != "C" && v != "POSIX" {
			return normalizeLocale(v)
		}
	}
	return "en"
}

// normalizeLocale converts POSIX locale format to BCP 47.
// e.g., "zh_CN.UTF-8" -> "zh-CN", "de_DE@euro" -> "de-DE"
func normalizeLocale(posix string) string {
	if i := strings.IndexAny(posix, ".@"); i >= 0 {
		posix = posix[:i]
	}
	return strings.ReplaceAll(posix, "_", "-")
}
