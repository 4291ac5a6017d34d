package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "en": {"common": {"save": "Save changes", "uploading": "Uploading"}},
  "de": {"common": {"save": "Änderungen speichern", "uploading": "Wird hochgeladen"}}
}`

const documentYAML = `selection: [frame-1]
nodes:
  - id: frame-1
    type: FRAME
    name: Settings
    box: {x: 0, y: 0, width: 400, height: 300}
    children:
      - id: text-save
        type: TEXT
        characters: Save changes
        box: {x: 10, y: 10, width: 120, height: 20}
`

// workspace prepares a directory with a catalog and a document and
// makes it the working directory.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(catalogJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document.yaml"), []byte(documentYAML), 0o644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--catalog", "catalog.json"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMatch_PrintsBatchResults(t *testing.T) {
	workspace(t)

	out, err := run(t, "", "match", "Save changes", "nothing to see")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	assert.Equal(t, "1", results[0]["id"])
	assert.Equal(t, "Save changes", results[0]["text"])
	matches := results[0]["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "Änderungen speichern", matches[0].(map[string]any)["deValue"])

	assert.Equal(t, "2", results[1]["id"])
	assert.Empty(t, results[1]["matches"])
}

func TestMatch_RequiresText(t *testing.T) {
	workspace(t)

	_, err := run(t, "", "match")
	assert.Error(t, err)
}

func TestSend_AddSelectionPersistsDocument(t *testing.T) {
	dir := workspace(t)

	out, err := run(t, "", "send", `{"type":"add-selection"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "add-items"`)
	assert.Contains(t, out, "1 text added")

	data, err := os.ReadFile(filepath.Join(dir, "document.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "targetId")
}

func TestSend_SaveStateThenState(t *testing.T) {
	dir := workspace(t)

	_, err := run(t, `{"type":"save-state","data":[{"ids":["text-save"]}]}`, "send")
	require.NoError(t, err)
	_, err = run(t, "", "send", `{"type":"save-settings","values":{"openai_api_key":"sk-123456789"}}`)
	require.NoError(t, err)

	out, err := run(t, "", "state")
	require.NoError(t, err)

	var view stateView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.JSONEq(t, `[{"ids":["text-save"]}]`, string(mustJSON(t, view.Shared["pluginState"])))
	assert.Equal(t, "********6789", view.Private["openai_api_key"])

	_, err = os.Stat(filepath.Join(dir, ".mcp-l10n", "shared.json"))
	assert.NoError(t, err)
}

func TestSend_RequiresCommand(t *testing.T) {
	workspace(t)

	_, err := run(t, "  ", "send")
	assert.ErrorContains(t, err, "command is required")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "**cdef", mask("abcdef"))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
