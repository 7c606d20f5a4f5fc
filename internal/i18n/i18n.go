// Package i18n provides localization for audit event descriptors and the
// admin query UI.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// SupportedLanguages lists the languages shipped with the service.
var SupportedLanguages = []string{"en", "ru"}

// DefaultLanguage is used when no language matches.
const DefaultLanguage = "en"

var (
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
)

// Init loads the embedded translation catalogs. Must be called before T.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	translations = make(map[string]map[string]string, len(SupportedLanguages))

	tags := make([]language.Tag, 0, len(SupportedLanguages))
	for _, lang := range SupportedLanguages {
		tags = append(tags, language.MustParse(lang))

		data, err := localesFS.ReadFile(fmt.Sprintf("locales/%s/messages.json", lang))
		if err != nil {
			return fmt.Errorf("reading locale %s: %w", lang, err)
		}
		var msgFile MessageFile
		if err := json.Unmarshal(data, &msgFile); err != nil {
			return fmt.Errorf("parsing locale %s: %w", lang, err)
		}

		catalog := make(map[string]string, len(msgFile.Messages))
		for _, msg := range msgFile.Messages {
			catalog[msg.ID] = msg.Translation
		}
		translations[lang] = catalog
	}

	matcher = language.NewMatcher(tags)
	return nil
}

// T returns the translation for key in lang, falling back to the default
// language and finally to the key itself.
func T(lang, key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if catalog, ok := translations[lang]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}
	if lang != DefaultLanguage {
		if msg, ok := translations[DefaultLanguage][key]; ok {
			return msg
		}
	}
	return key
}

// MatchLanguage picks the best supported language for an Accept-Language
// header value.
func MatchLanguage(accept string) string {
	mu.RLock()
	defer mu.RUnlock()

	if matcher == nil || accept == "" {
		return DefaultLanguage
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	return SupportedLanguages[idx]
}
