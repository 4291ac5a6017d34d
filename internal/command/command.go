// Package command defines the messages exchanged with the presentation
// layer: inbound commands and outbound messages, each a closed set of
// variants tagged by a "type" field on the wire.
//
// Inbound example:
//
//	{"type": "check-translation", "text": "Save changes"}
//
// Handlers switch over the concrete variant, so adding a command means
// adding a type here and a case to every switch.
package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

// ErrUnknownCommand is returned by Decode for an unrecognized type tag.
var ErrUnknownCommand = errors.New("unknown command type")

// Wire names of the inbound commands.
const (
	TypeSaveSettings          = "save-settings"
	TypeSaveAPIKey            = "save-api-key" // legacy single-key form of save-settings
	TypeSaveState             = "save-state"
	TypeFocusNodes            = "focus-nodes"
	TypeUpdateSelection       = "update-selection"
	TypeAddSelection          = "add-selection"
	TypeCheckTranslation      = "check-translation"
	TypeCheckBatchTranslation = "check-batch-translation"
	TypeSaveBatchResults      = "save-batch-results"
	TypeSaveBatchContext      = "save-batch-context"
	TypeClearHighlights       = "clear-highlights"
	TypeApplyTranslation      = "apply-translation"
)

// Command is an inbound request. The set of implementations is closed.
type Command interface {
	Type() string
	isCommand()
}

// SaveSettings stores user settings in the private scope.
type SaveSettings struct {
	Values map[string]string `json:"values"`
}

// SaveState persists the ordered item list and resyncs membership.
// Data is kept verbatim: items may carry fields only the UI knows about.
type SaveState struct {
	Data json.RawMessage `json:"data"`
}

// FocusNodes selects and scrolls to the given sources.
type FocusNodes struct {
	IDs []string `json:"ids"`
}

// UpdateSelection selects the given sources without moving the view.
type UpdateSelection struct {
	IDs []string `json:"ids"`
}

// AddSelection extracts text from the current selection.
type AddSelection struct{}

// CheckTranslation matches one string against the catalog.
type CheckTranslation struct {
	Text string `json:"text"`
}

// CheckBatchTranslation matches many items at once.
type CheckBatchTranslation struct {
	Items []BatchItem `json:"items"`
}

// SaveBatchResults persists the last batch result, opaque to the core.
type SaveBatchResults struct {
	Data json.RawMessage `json:"data"`
}

// SaveBatchContext persists the free-form batch context string.
type SaveBatchContext struct {
	Data string `json:"data"`
}

// ClearHighlights removes markers. No ids means every marker.
type ClearHighlights struct {
	IDs []string `json:"ids,omitempty"`
}

// All reports whether the command is a full reset.
func (c ClearHighlights) All() bool {
	return len(c.IDs) == 0
}

// ApplyTranslation replaces the characters of a text source.
type ApplyTranslation struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (SaveSettings) Type() string          { return TypeSaveSettings }
func (SaveState) Type() string             { return TypeSaveState }
func (FocusNodes) Type() string            { return TypeFocusNodes }
func (UpdateSelection) Type() string       { return TypeUpdateSelection }
func (AddSelection) Type() string          { return TypeAddSelection }
func (CheckTranslation) Type() string      { return TypeCheckTranslation }
func (CheckBatchTranslation) Type() string { return TypeCheckBatchTranslation }
func (SaveBatchResults) Type() string      { return TypeSaveBatchResults }
func (SaveBatchContext) Type() string      { return TypeSaveBatchContext }
func (ClearHighlights) Type() string       { return TypeClearHighlights }
func (ApplyTranslation) Type() string      { return TypeApplyTranslation }

func (SaveSettings) isCommand()          {}
func (SaveState) isCommand()             {}
func (FocusNodes) isCommand()            {}
func (UpdateSelection) isCommand()       {}
func (AddSelection) isCommand()          {}
func (CheckTranslation) isCommand()      {}
func (CheckBatchTranslation) isCommand() {}
func (SaveBatchResults) isCommand()      {}
func (SaveBatchContext) isCommand()      {}
func (ClearHighlights) isCommand()       {}
func (ApplyTranslation) isCommand()      {}

// Decode parses one inbound command.
func Decode(data []byte) (Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}

	switch env.Type {
	case TypeSaveSettings:
		return decodeAs[SaveSettings](data)
	case TypeSaveAPIKey:
		var legacy struct {
			APIKey string `json:"apiKey"`
		}
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return SaveSettings{Values: map[string]string{store.KeyAPIKey: legacy.APIKey}}, nil
	case TypeSaveState:
		return decodeAs[SaveState](data)
	case TypeFocusNodes:
		return decodeAs[FocusNodes](data)
	case TypeUpdateSelection:
		return decodeAs[UpdateSelection](data)
	case TypeAddSelection:
		return AddSelection{}, nil
	case TypeCheckTranslation:
		return decodeAs[CheckTranslation](data)
	case TypeCheckBatchTranslation:
		return decodeAs[CheckBatchTranslation](data)
	case TypeSaveBatchResults:
		return decodeAs[SaveBatchResults](data)
	case TypeSaveBatchContext:
		return decodeAs[SaveBatchContext](data)
	case TypeClearHighlights:
		return decodeAs[ClearHighlights](data)
	case TypeApplyTranslation:
		return decodeAs[ApplyTranslation](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}

func decodeAs[T Command](data []byte) (Command, error) {
	var c T
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Type(), err)
	}
	return c, nil
}

// Encode renders a command in its wire form.
func Encode(c Command) ([]byte, error) {
	return withType(c.Type(), c)
}

// withType marshals v and adds the "type" tag.
func withType(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}
