package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

//go:embed *.json
var localeFS embed.FS

var (
	mu              sync.RWMutex
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
)

// Init initializes the i18n bundle by loading the embedded message files and
// setting the default language. It is safe to call more than once.
func Init(defaultLangCode string) error {
	tag, err := language.Parse(defaultLangCode)
	if err != nil {
		zap.L().Warn("Failed to parse default language code, falling back to English",
			zap.String("code", defaultLangCode), zap.Error(err))
		tag = language.English
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, file.Name()); err != nil {
			zap.L().Warn("Failed to load message file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no message files loaded from locales")
	}

	mu.Lock()
	bundle = b
	defaultLanguage = tag
	mu.Unlock()

	zap.L().Debug("i18n bundle initialized",
		zap.Int("files", loaded), zap.String("default_language", tag.String()))
	return nil
}

// GetDefaultLanguageTag returns the configured default language tag.
func GetDefaultLanguageTag() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLanguage
}

// NewLocalizer creates a localizer for the given language preferences.
// The bundle is initialized with English on first use if Init was not called.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b == nil {
		if err := Init(DefaultLanguage); err != nil {
			zap.L().Error("Failed to initialize i18n bundle", zap.Error(err))
			b = i18n.NewBundle(language.English)
		} else {
			mu.RLock()
			b = bundle
			mu.RUnlock()
		}
	}
	return i18n.NewLocalizer(b, langPrefs...)
}

// GetMessage retrieves and formats a message by its ID using the provided localizer.
// templateData: optional template variables (e.g., map[string]interface{}{"Mode": "both"}).
// pluralCount: optional pointer for pluralization rules.
// The message ID itself is returned when no translation exists.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}, pluralCount *int) string {
	config := &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	}
	if pluralCount != nil {
		config.PluralCount = *pluralCount
	}

	localizedMsg, err := localizer.Localize(config)
	if err == nil {
		return localizedMsg
	}
	zap.L().Warn("Failed to localize message, falling back to English",
		zap.String("message_id", msgID), zap.Error(err))

	englishLocalizer := NewLocalizer(language.English.String())
	if fallbackMsg, fallbackErr := englishLocalizer.Localize(config); fallbackErr == nil {
		return fallbackMsg
	}
	return msgID
}
