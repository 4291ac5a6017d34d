package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/session"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
	"github.com/bad33ndj3/mcp-l10n-index/internal/testutil"
)

func createTestHandlers(t *testing.T, opts ...Option) (*Handlers, *testutil.MockStore) {
	t.Helper()
	shared := testutil.NewMockStore()
	bridge := store.NewBridge(shared, testutil.NewMockStore())
	s, err := session.New(bridge, testutil.SampleDocument(), catalog.NewHolder(testutil.SampleCatalog()))
	require.NoError(t, err)
	return NewHandlers(s, nil, opts...), shared
}

// getTextFromResult extracts text content from MCP result
func getTextFromResult(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

// decodeReply parses a tool reply into its wire messages.
func decodeReply(t *testing.T, result *mcp.CallToolResult) []map[string]any {
	t.Helper()
	var msgs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(getTextFromResult(result)), &msgs))
	return msgs
}

func TestCheckTranslation_ReturnsMatches(t *testing.T) {
	h, _ := createTestHandlers(t)

	result, _, err := h.CheckTranslation(context.Background(), nil, CheckArgs{Text: "Save changes"})
	require.NoError(t, err)

	msgs := decodeReply(t, result)
	require.Len(t, msgs, 1)
	assert.Equal(t, command.TypeTranslationCheckResult, msgs[0]["type"])
	assert.Equal(t, "Save changes", msgs[0]["originalText"])

	data := msgs[0]["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "common.save", first["key"])
	assert.Equal(t, "Änderungen speichern", first["deValue"])
	assert.Equal(t, "Enregistrer", first["frValue"])
}

func TestCheckTranslation_ErrorsOnEmptyText(t *testing.T) {
	h, _ := createTestHandlers(t)

	_, _, err := h.CheckTranslation(context.Background(), nil, CheckArgs{Text: "  "})
	assert.Error(t, err)
}

func TestPluginMessage_SaveStatePersists(t *testing.T) {
	h, shared := createTestHandlers(t)

	msg := `{"type":"save-state","data":[{"ids":["text-save"],"text":"Save changes"}]}`
	result, _, err := h.PluginMessage(context.Background(), nil, MessageArgs{Message: msg})
	require.NoError(t, err)

	assert.Empty(t, decodeReply(t, result))
	assert.Equal(t, `[{"ids":["text-save"],"text":"Save changes"}]`, shared.Values[store.KeyState])
}

func TestPluginMessage_InvalidCommandIsNotified(t *testing.T) {
	h, _ := createTestHandlers(t)

	result, _, err := h.PluginMessage(context.Background(), nil, MessageArgs{Message: `{"type":"self-destruct"}`})
	require.NoError(t, err)

	msgs := decodeReply(t, result)
	require.Len(t, msgs, 1)
	assert.Equal(t, command.TypeNotify, msgs[0]["type"])
	assert.Equal(t, true, msgs[0]["error"])
}

func TestPluginMessage_ErrorsOnEmptyMessage(t *testing.T) {
	h, _ := createTestHandlers(t)

	_, _, err := h.PluginMessage(context.Background(), nil, MessageArgs{})
	assert.Error(t, err)
}

func TestAddSelection_WithIDs(t *testing.T) {
	commits := 0
	h, _ := createTestHandlers(t, WithCommit(func() error {
		commits++
		return nil
	}))

	result, _, err := h.AddSelection(context.Background(), nil, SelectionArgs{IDs: []string{"text-save"}})
	require.NoError(t, err)

	msgs := decodeReply(t, result)
	require.Len(t, msgs, 2)
	assert.Equal(t, command.TypeAddItems, msgs[0]["type"])
	assert.Equal(t, command.TypeNotify, msgs[1]["type"])
	assert.Equal(t, 1, commits)

	status := h.session.Status()
	assert.Equal(t, []string{"text-save"}, status.IDs)
	assert.Equal(t, 1, status.Markers)
}

func TestAddSelection_CommitFailure(t *testing.T) {
	h, _ := createTestHandlers(t, WithCommit(func() error {
		return errors.New("disk full")
	}))

	_, _, err := h.AddSelection(context.Background(), nil, SelectionArgs{IDs: []string{"frame-1"}})
	assert.ErrorContains(t, err, "disk full")
}

func TestClearHighlights_ReportsRemaining(t *testing.T) {
	h, _ := createTestHandlers(t)
	ctx := context.Background()

	_, _, err := h.AddSelection(ctx, nil, SelectionArgs{IDs: []string{"frame-1"}})
	require.NoError(t, err)

	result, _, err := h.ClearHighlights(ctx, nil, ClearArgs{IDs: []string{"text-save"}})
	require.NoError(t, err)
	assert.Equal(t, "Highlights cleared. 2 remaining, 2 texts tracked.", getTextFromResult(result))

	result, _, err = h.ClearHighlights(ctx, nil, ClearArgs{})
	require.NoError(t, err)
	assert.Equal(t, "Highlights cleared. 0 remaining, 2 texts tracked.", getTextFromResult(result))
}

func TestRestoreSession(t *testing.T) {
	h, shared := createTestHandlers(t)
	shared.Values[store.KeyState] = `[{"ids":["text-progress"]}]`
	shared.Values[store.KeyBatchContext] = "ctx"

	result, _, err := h.RestoreSession(context.Background(), nil, struct{}{})
	require.NoError(t, err)

	msgs := decodeReply(t, result)
	require.Len(t, msgs, 2)
	assert.Equal(t, command.TypeRestoreState, msgs[0]["type"])
	assert.Equal(t, command.TypeRestoreBatchContext, msgs[1]["type"])
	assert.Equal(t, "ctx", msgs[1]["data"])
}

func TestInventoryStatus(t *testing.T) {
	h, _ := createTestHandlers(t)

	result, _, err := h.InventoryStatus(context.Background(), nil, struct{}{})
	require.NoError(t, err)

	var status session.Status
	require.NoError(t, json.Unmarshal([]byte(getTextFromResult(result)), &status))
	assert.Equal(t, 0, status.Tracked)
	assert.Equal(t, 5, status.CatalogEntries)
	assert.Equal(t, []string{"de", "fr"}, status.Locales)
}

func TestRenderMessages_Empty(t *testing.T) {
	text, err := RenderMessages(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
}

func TestRegister(t *testing.T) {
	h, _ := createTestHandlers(t)
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v0"}, nil)

	assert.NotPanics(t, func() { h.Register(server) })
}
