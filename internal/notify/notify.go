// Package notify renders user-visible notifications in the user's
// language. Messages live in TOML files embedded in the binary, one per
// language, and are resolved through a go-i18n bundle.
package notify

import (
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message IDs.
const (
	ItemsAdded         = "ItemsAdded"
	NothingNew         = "NothingNew"
	StateRestoreFailed = "StateRestoreFailed"
	BatchRestoreFailed = "BatchRestoreFailed"
	SaveFailed         = "SaveFailed"
	SaveVerifyFailed   = "SaveVerifyFailed"
	SettingsSaved      = "SettingsSaved"
	UnknownSetting     = "UnknownSetting"
	TextApplied        = "TextApplied"
	ApplyFailed        = "ApplyFailed"
	CatalogUnavailable = "CatalogUnavailable"
	InvalidCommand     = "InvalidCommand"
)

//go:embed locales/*.toml
var locales embed.FS

// Languages lists the languages with a message file.
var Languages = []string{"en", "ko"}

// NewBundle loads every embedded message file. English is the fallback.
func NewBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, lang := range Languages {
		if _, err := bundle.LoadMessageFileFS(locales, fmt.Sprintf("locales/notify.%s.toml", lang)); err != nil {
			return nil, fmt.Errorf("load %s messages: %w", lang, err)
		}
	}
	return bundle, nil
}

// Localizer renders messages for a fixed language preference.
type Localizer struct {
	loc *i18n.Localizer
}

// NewLocalizer creates a Localizer preferring langs in order, e.g.
// "ko" or "de-CH,en". Unknown languages fall back to English.
func NewLocalizer(bundle *i18n.Bundle, langs ...string) *Localizer {
	return &Localizer{loc: i18n.NewLocalizer(bundle, langs...)}
}

// New is a shortcut for NewBundle followed by NewLocalizer.
func New(langs ...string) (*Localizer, error) {
	bundle, err := NewBundle()
	if err != nil {
		return nil, err
	}
	return NewLocalizer(bundle, langs...), nil
}

// Text renders message id with data.
func (l *Localizer) Text(id string, data map[string]any) string {
	return l.render(id, data, nil)
}

// Count renders a message that varies with count. Count is also
// available to the template as {{.Count}}.
func (l *Localizer) Count(id string, count int, data map[string]any) string {
	vars := map[string]any{"Count": count}
	for k, v := range data {
		vars[k] = v
	}
	return l.render(id, vars, count)
}

func (l *Localizer) render(id string, data map[string]any, count any) string {
	msg, err := l.loc.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		// A missing translation still yields the fallback text when one
		// exists; otherwise show the id rather than nothing.
		if msg != "" {
			return msg
		}
		return id
	}
	return msg
}
