package command

import (
	"encoding/json"
	"fmt"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
)

// Wire names of the outbound messages.
const (
	TypeLoadSettings                = "load-settings"
	TypeRestoreState                = "restore-state"
	TypeRestoreBatchResults         = "restore-batch-results"
	TypeRestoreBatchContext         = "restore-batch-context"
	TypeAddItems                    = "add-items"
	TypeTranslationCheckResult      = "translation-check-result"
	TypeBatchTranslationCheckResult = "batch-translation-check-result"
	TypeNotify                      = "notify"
)

// Message is an outbound notification to the presentation layer.
type Message interface {
	Type() string
	isMessage()
}

// LoadSettings carries the stored user settings. APIKey repeats the
// API key for older UIs that only understand a single key.
type LoadSettings struct {
	Values map[string]string `json:"values"`
	APIKey string            `json:"apiKey,omitempty"`
}

// RestoreState carries the persisted item list.
type RestoreState struct {
	Data json.RawMessage `json:"data"`
}

// RestoreBatchResults carries the persisted batch result.
type RestoreBatchResults struct {
	Data json.RawMessage `json:"data"`
}

// RestoreBatchContext carries the persisted batch context.
type RestoreBatchContext struct {
	Data string `json:"data"`
}

// AddItems announces newly tracked items.
type AddItems struct {
	Data domain.Snapshot `json:"data"`
}

// TranslationCheckResult answers a CheckTranslation.
type TranslationCheckResult struct {
	Data         []domain.MatchResult `json:"data"`
	OriginalText string               `json:"originalText"`
}

// BatchTranslationCheckResult answers a CheckBatchTranslation.
type BatchTranslationCheckResult struct {
	Data []BatchResult `json:"data"`
}

// Notify is a user-visible notification.
type Notify struct {
	Message string `json:"message"`
	Error   bool   `json:"error,omitempty"`
}

func (LoadSettings) Type() string                { return TypeLoadSettings }
func (RestoreState) Type() string                { return TypeRestoreState }
func (RestoreBatchResults) Type() string         { return TypeRestoreBatchResults }
func (RestoreBatchContext) Type() string         { return TypeRestoreBatchContext }
func (AddItems) Type() string                    { return TypeAddItems }
func (TranslationCheckResult) Type() string      { return TypeTranslationCheckResult }
func (BatchTranslationCheckResult) Type() string { return TypeBatchTranslationCheckResult }
func (Notify) Type() string                      { return TypeNotify }

func (LoadSettings) isMessage()                {}
func (RestoreState) isMessage()                {}
func (RestoreBatchResults) isMessage()         {}
func (RestoreBatchContext) isMessage()         {}
func (AddItems) isMessage()                    {}
func (TranslationCheckResult) isMessage()      {}
func (BatchTranslationCheckResult) isMessage() {}
func (Notify) isMessage()                      {}

// EncodeMessage renders an outbound message in its wire form.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := withType(m.Type(), m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return data, nil
}

// BatchItem is one entry of a batch check. Only id and text matter to
// the matcher; every other field is carried through untouched.
type BatchItem struct {
	ID    string
	Text  string
	Extra map[string]json.RawMessage
}

func (b BatchItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.fields())
}

func (b *BatchItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*b = BatchItem{}
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &b.ID); err != nil {
			return fmt.Errorf("batch item id: %w", err)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["text"]; ok {
		if err := json.Unmarshal(raw, &b.Text); err != nil {
			return fmt.Errorf("batch item text: %w", err)
		}
		delete(fields, "text")
	}
	if len(fields) > 0 {
		b.Extra = fields
	}
	return nil
}

func (b BatchItem) fields() map[string]any {
	out := make(map[string]any, len(b.Extra)+2)
	for k, v := range b.Extra {
		out[k] = v
	}
	out["id"] = b.ID
	out["text"] = b.Text
	return out
}

// BatchResult is a BatchItem with its catalog matches attached.
type BatchResult struct {
	Item    BatchItem
	Matches []domain.MatchResult
}

func (r BatchResult) MarshalJSON() ([]byte, error) {
	fields := r.Item.fields()
	matches := r.Matches
	if matches == nil {
		matches = []domain.MatchResult{}
	}
	fields["matches"] = matches
	return json.Marshal(fields)
}
