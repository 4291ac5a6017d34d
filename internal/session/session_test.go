package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host/memdoc"
	"github.com/bad33ndj3/mcp-l10n-index/internal/marker"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
	"github.com/bad33ndj3/mcp-l10n-index/internal/testutil"
)

// fixture wires a session to in-memory collaborators.
type fixture struct {
	shared  *testutil.MockStore
	private *testutil.MockStore
	doc     *memdoc.Document
	holder  *catalog.Holder
	s       *Session
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		shared:  testutil.NewMockStore(),
		private: testutil.NewMockStore(),
		doc:     testutil.SampleDocument(),
		holder:  catalog.NewHolder(testutil.SampleCatalog()),
	}
	f.s = f.session(t, opts...)
	return f
}

// session creates another session over the same collaborators, as a
// reload of the presentation layer would.
func (f *fixture) session(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(store.NewBridge(f.shared, f.private), f.doc, f.holder, opts...)
	require.NoError(t, err)
	return s
}

func (f *fixture) handle(t *testing.T, cmd command.Command) []command.Message {
	t.Helper()
	msgs, err := f.s.Handle(context.Background(), cmd)
	require.NoError(t, err)
	return msgs
}

func TestRestore_EmptyStores(t *testing.T) {
	f := newFixture(t)

	msgs, err := f.s.Restore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 0, f.s.Status().Tracked)
}

func TestRestore_AllKeys(t *testing.T) {
	f := newFixture(t)
	f.private.Values[store.KeyAPIKey] = "sk-test"
	f.private.Values[store.KeyWebhookURL] = ""
	f.shared.Values[store.KeyState] = `[{"ids":["text-save"],"text":"Save changes"},{"ids":["a","b"],"text":"x"}]`
	f.shared.Values[store.KeyBatchResults] = `[{"id":"text-save","matches":[]}]`
	f.shared.Values[store.KeyBatchContext] = "Settings screen"

	msgs, err := f.s.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, command.LoadSettings{
		Values: map[string]string{store.KeyAPIKey: "sk-test", store.KeyWebhookURL: ""},
		APIKey: "sk-test",
	}, msgs[0])
	assert.Equal(t, command.TypeRestoreState, msgs[1].Type())
	assert.Equal(t, command.TypeRestoreBatchResults, msgs[2].Type())
	assert.Equal(t, command.RestoreBatchContext{Data: "Settings screen"}, msgs[3])

	assert.Equal(t, []string{"a", "b", "text-save"}, f.s.Status().IDs)
}

func TestRestore_MalformedState(t *testing.T) {
	f := newFixture(t)
	f.shared.Values[store.KeyState] = `{"not": "a list"}`
	f.shared.Values[store.KeyBatchResults] = `{broken`

	// Start with something tracked to see the reset.
	f.s.inv.Add([]domain.TextItem{{SourceID: "stale"}})

	msgs, err := f.s.Restore(context.Background())
	require.NoError(t, err)

	notes := testutil.Notifications(msgs)
	require.Len(t, notes, 2)
	assert.True(t, notes[0].Error)
	assert.Equal(t, "The saved list could not be read and was reset", notes[0].Message)
	assert.True(t, notes[1].Error)
	assert.Empty(t, testutil.OfType(msgs, command.TypeRestoreState))
	assert.Equal(t, 0, f.s.Status().Tracked)
}

func TestAddSelection(t *testing.T) {
	f := newFixture(t)
	f.doc.SelectIDs("frame-1")

	msgs := f.handle(t, command.AddSelection{})
	require.Len(t, msgs, 2)

	added, ok := msgs[0].(command.AddItems)
	require.True(t, ok)
	assert.Equal(t, domain.Snapshot{
		{IDs: []string{"text-save"}, Text: "Save changes"},
		{IDs: []string{"text-progress"}, Text: "Completed 3/7 days"},
		{IDs: []string{"text-upload"}, Text: "Uploading file"},
	}, added.Data)
	assert.Equal(t, command.Notify{Message: "3 texts added"}, msgs[1])

	assert.Len(t, f.doc.FindByName(marker.MarkerName), 3)
	assert.Equal(t, 3, f.s.Status().Markers)

	// Same selection again: nothing new.
	msgs = f.handle(t, command.AddSelection{})
	assert.Equal(t, []command.Message{
		command.Notify{Message: "No new text selected (selected: 1, already extracted: 3)"},
	}, msgs)
	assert.Len(t, f.doc.FindByName(marker.MarkerName), 3)
}

func TestCheckTranslation(t *testing.T) {
	f := newFixture(t)

	msgs := f.handle(t, command.CheckTranslation{Text: "Save changes"})
	require.Len(t, msgs, 1)

	res, ok := msgs[0].(command.TranslationCheckResult)
	require.True(t, ok)
	assert.Equal(t, "Save changes", res.OriginalText)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "common.save", res.Data[0].Key)
	assert.Equal(t, domain.MatchExact, res.Data[0].Type)

	data, err := command.EncodeMessage(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"deValue":"Änderungen speichern"`)

	msgs = f.handle(t, command.CheckTranslation{Text: "up"})
	res = msgs[0].(command.TranslationCheckResult)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestCheckBatchTranslation_KeepsOrder(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	f := newFixture(t, WithPool(pool))

	var items []command.BatchItem
	texts := []string{"Save changes", "up", "Completed 3/7 days", "Settings", "Uploading file", "nothing here"}
	for i := 0; i < 20; i++ {
		text := texts[i%len(texts)]
		items = append(items, command.BatchItem{
			ID:    string(rune('a' + i)),
			Text:  text,
			Extra: map[string]json.RawMessage{"row": json.RawMessage(`"r"`)},
		})
	}

	msgs := f.handle(t, command.CheckBatchTranslation{Items: items})
	require.Len(t, msgs, 1)
	res := msgs[0].(command.BatchTranslationCheckResult)
	require.Len(t, res.Data, len(items))

	cat := testutil.SampleCatalog()
	for i, r := range res.Data {
		assert.Equal(t, items[i], r.Item)
		want := cat.Match(items[i].Text)
		if want == nil {
			want = []domain.MatchResult{}
		}
		assert.Equal(t, want, r.Matches, "item %d", i)
	}
}

func TestSaveState(t *testing.T) {
	f := newFixture(t)

	raw := json.RawMessage(`[ {"ids": ["n1"], "text": "Save", "checked": true}, {"ids": ["n2","n3"], "text": "x"} ]`)
	msgs := f.handle(t, command.SaveState{Data: raw})
	assert.Empty(t, msgs)

	assert.Equal(t, `[{"ids":["n1"],"text":"Save","checked":true},{"ids":["n2","n3"],"text":"x"}]`,
		f.shared.Values[store.KeyState], "stored verbatim, whitespace aside")
	assert.Empty(t, f.private.Values, "state never leaks into the private scope")
	assert.Equal(t, []string{"n1", "n2", "n3"}, f.s.Status().IDs)

	// An empty list clears membership.
	f.handle(t, command.SaveState{Data: json.RawMessage(`[]`)})
	assert.Equal(t, 0, f.s.Status().Tracked)
}

func TestSaveState_Malformed(t *testing.T) {
	f := newFixture(t)
	f.handle(t, command.SaveState{Data: json.RawMessage(`[{"ids":["n1"],"text":"a"}]`)})

	msgs := f.handle(t, command.SaveState{Data: json.RawMessage(`{"ids":"n1"}`)})
	notes := testutil.Notifications(msgs)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Error)

	assert.Equal(t, []string{"n1"}, f.s.Status().IDs, "bad input leaves state alone")
	assert.Equal(t, `[{"ids":["n1"],"text":"a"}]`, f.shared.Values[store.KeyState])
}

func TestSaveState_VerifyMismatch(t *testing.T) {
	f := newFixture(t)
	f.shared.DropWrites = true

	msgs := f.handle(t, command.SaveState{Data: json.RawMessage(`[{"ids":["n1"],"text":"a"}]`)})
	assert.Equal(t, []command.Message{
		command.Notify{Message: "pluginState did not save correctly, please try again", Error: true},
	}, msgs)

	// Processing continues: membership follows the list anyway.
	assert.Equal(t, []string{"n1"}, f.s.Status().IDs)
	msgs = f.handle(t, command.CheckTranslation{Text: "Settings"})
	assert.Len(t, msgs, 1)
}

func TestSaveBatchResultsAndContext(t *testing.T) {
	f := newFixture(t)

	f.handle(t, command.SaveBatchResults{Data: json.RawMessage(`[ {"id": "n1"} ]`)})
	f.handle(t, command.SaveBatchContext{Data: "Checkout"})
	assert.Equal(t, `[{"id":"n1"}]`, f.shared.Values[store.KeyBatchResults])
	assert.Equal(t, "Checkout", f.shared.Values[store.KeyBatchContext])

	f.handle(t, command.SaveBatchResults{})
	v, ok := f.shared.Values[store.KeyBatchResults]
	assert.True(t, ok)
	assert.Equal(t, "", v, "absent data stores the empty string")
}

func TestSaveSettings(t *testing.T) {
	f := newFixture(t)

	msgs := f.handle(t, command.SaveSettings{Values: map[string]string{
		store.KeyAPIKey:        "sk-1",
		store.KeyManualFileKey: "",
		"favorite_color":       "red",
	}})

	assert.Equal(t, map[string]string{store.KeyAPIKey: "sk-1", store.KeyManualFileKey: ""}, f.private.Values)
	assert.Empty(t, f.shared.Values)

	notes := testutil.Notifications(msgs)
	require.Len(t, notes, 2)
	assert.Equal(t, "Unknown setting favorite_color was ignored", notes[0].Message)
	assert.Equal(t, "Settings saved", notes[1].Message)
}

func TestSaveSettings_WriteFailure(t *testing.T) {
	f := newFixture(t)
	f.private.FailWrites = true

	msgs := f.handle(t, command.SaveSettings{Values: map[string]string{store.KeyAPIKey: "sk-1"}})
	assert.Equal(t, []command.Message{
		command.Notify{Message: "Could not save openai_api_key", Error: true},
	}, msgs)
}

func TestClearHighlights(t *testing.T) {
	f := newFixture(t)
	f.doc.SelectIDs("frame-1")
	f.handle(t, command.AddSelection{})

	f.handle(t, command.ClearHighlights{IDs: []string{"text-save", "unknown"}})
	assert.Len(t, f.doc.FindByName(marker.MarkerName), 2)
	assert.NotContains(t, f.s.Status().IDs, "text-save")

	f.handle(t, command.ClearHighlights{})
	assert.Empty(t, f.doc.FindByName(marker.MarkerName))
	assert.Equal(t, 0, f.s.Status().Markers)
}

func TestStatus_DropsMarkersDeletedInDocument(t *testing.T) {
	f := newFixture(t)
	f.doc.SelectIDs("frame-1")
	f.handle(t, command.AddSelection{})
	require.Equal(t, 3, f.s.Status().Markers)

	overlays := f.doc.FindByName(marker.MarkerName)
	require.NotEmpty(t, overlays)
	require.NoError(t, f.doc.Remove(overlays[0]))

	st := f.s.Status()
	assert.Equal(t, 2, st.Markers)
	assert.Equal(t, 3, st.Tracked)
}

func TestClearHighlights_AfterReload(t *testing.T) {
	f := newFixture(t)
	f.doc.SelectIDs("frame-1")
	f.handle(t, command.AddSelection{})
	f.handle(t, command.SaveState{Data: json.RawMessage(
		`[{"ids":["text-save"],"text":"Save changes"},{"ids":["text-progress"],"text":"Completed 3/7 days"},{"ids":["text-upload"],"text":"Uploading file"}]`)})

	// A new session starts cold and restores from persistence.
	f.s = f.session(t)
	_, err := f.s.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.s.Status().Tracked)
	assert.Equal(t, 3, f.s.Status().Markers)

	f.handle(t, command.ClearHighlights{IDs: []string{"text-progress"}})
	assert.Len(t, f.doc.FindByName(marker.MarkerName), 2)
	assert.Equal(t, 2, f.s.Status().Tracked)

	// Re-adding the selection only picks up the cleared source.
	msgs := f.handle(t, command.AddSelection{})
	added := testutil.OfType(msgs, command.TypeAddItems)
	require.Len(t, added, 1)
	assert.Equal(t, domain.Snapshot{{IDs: []string{"text-progress"}, Text: "Completed 3/7 days"}},
		added[0].(command.AddItems).Data)
}

func TestFocusAndUpdateSelection(t *testing.T) {
	f := newFixture(t)

	f.handle(t, command.FocusNodes{IDs: []string{"text-save", "gone", "text-upload"}})
	assert.Equal(t, []string{"text-save", "text-upload"}, f.doc.SelectedIDs())
	assert.Equal(t, []string{"text-save", "text-upload"}, f.doc.Viewport())

	// Nothing resolvable: focus is a no-op.
	f.handle(t, command.FocusNodes{IDs: []string{"gone"}})
	assert.Equal(t, []string{"text-save", "text-upload"}, f.doc.SelectedIDs())

	f.handle(t, command.UpdateSelection{IDs: []string{"text-progress"}})
	assert.Equal(t, []string{"text-progress"}, f.doc.SelectedIDs())
	assert.Equal(t, []string{"text-save", "text-upload"}, f.doc.Viewport(), "selection only, no zoom")
}

func TestApplyTranslation(t *testing.T) {
	f := newFixture(t)
	f.doc = testutil.SampleDocument(memdoc.WithMissingFonts("Brand Sans"))
	f.s = f.session(t)

	msgs := f.handle(t, command.ApplyTranslation{ID: "text-save", Text: "Änderungen speichern"})
	assert.Equal(t, []command.Message{command.Notify{Message: "Text replaced"}}, msgs)

	ref, _ := f.doc.Resolve("text-save")
	chars, _ := f.doc.Characters(ref)
	assert.Equal(t, "Änderungen speichern", chars)

	for _, id := range []string{"text-locked", "frame-1", "gone"} {
		msgs = f.handle(t, command.ApplyTranslation{ID: id, Text: "x"})
		notes := testutil.Notifications(msgs)
		require.Len(t, notes, 1, id)
		assert.True(t, notes[0].Error, id)
	}
}

func TestHandleRaw(t *testing.T) {
	f := newFixture(t)

	msgs, err := f.s.HandleRaw(context.Background(), []byte(`{"type":"check-translation","text":"Settings"}`))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, command.TypeTranslationCheckResult, msgs[0].Type())

	msgs, err = f.s.HandleRaw(context.Background(), []byte(`{"type":"self-destruct"}`))
	require.NoError(t, err)
	notes := testutil.Notifications(msgs)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Error)
	assert.Contains(t, notes[0].Message, "unknown command type")
}

func TestCatalogReloadIsPickedUp(t *testing.T) {
	f := newFixture(t)
	f.holder.Swap(catalog.New(map[string]catalog.Table{
		"en": {Groups: []catalog.Group{{Name: "nav", Pairs: []catalog.Pair{{Key: "home", Value: "Home screen"}}}}},
	}))

	msgs := f.handle(t, command.CheckTranslation{Text: "Home screen"})
	res := msgs[0].(command.TranslationCheckResult)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "nav.home", res.Data[0].Key)
	assert.Empty(t, res.Data[0].Translations)
}
