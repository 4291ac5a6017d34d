package notify

import (
	"testing"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizer_English(t *testing.T) {
	l, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "1 text added", l.Count(ItemsAdded, 1, nil))
	assert.Equal(t, "3 texts added", l.Count(ItemsAdded, 3, nil))
	assert.Equal(t,
		"No new text selected (selected: 2, already extracted: 7)",
		l.Text(NothingNew, map[string]any{"Selected": 2, "Tracked": 7}))
	assert.Equal(t, "Could not save pluginState", l.Text(SaveFailed, map[string]any{"Key": "pluginState"}))
}

func TestLocalizer_Korean(t *testing.T) {
	l, err := New("ko")
	require.NoError(t, err)

	assert.Equal(t, "3개의 텍스트가 추가되었습니다.", l.Count(ItemsAdded, 3, nil))
	assert.Equal(t,
		"선택된 텍스트가 없습니다. (선택: 1개, 이미 추출됨: 4개)",
		l.Text(NothingNew, map[string]any{"Selected": 1, "Tracked": 4}))
}

func TestLocalizer_FallsBackToEnglish(t *testing.T) {
	l, err := New("fr-CA", "de")
	require.NoError(t, err)
	assert.Equal(t, "Text replaced", l.Text(TextApplied, nil))
}

func TestLocalizer_UnknownIDReturnsID(t *testing.T) {
	l, err := New("en")
	require.NoError(t, err)
	assert.Equal(t, "NoSuchMessage", l.Text("NoSuchMessage", nil))
}

func TestBundle_EveryMessageInEveryLanguage(t *testing.T) {
	ids := []string{
		ItemsAdded, NothingNew, StateRestoreFailed, BatchRestoreFailed, SaveFailed,
		SaveVerifyFailed, SettingsSaved, UnknownSetting, TextApplied, ApplyFailed,
		CatalogUnavailable, InvalidCommand,
	}

	bundle, err := NewBundle()
	require.NoError(t, err)

	for _, lang := range Languages {
		l := NewLocalizer(bundle, lang)
		for _, id := range ids {
			_, err := l.loc.Localize(&i18n.LocalizeConfig{MessageID: id, PluralCount: 2,
				TemplateData: map[string]any{"Count": 2}})
			assert.NoError(t, err, "%s/%s", lang, id)
		}
	}
}
