// Package mcp provides MCP tool handlers for the localization scout.
// These handlers parse MCP request arguments and delegate to the Session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/session"
)

// MessageArgs defines the arguments for the plugin_message tool.
type MessageArgs struct {
	Message string `json:"message" jsonschema_description:"JSON-encoded command, e.g. {\"type\":\"check-translation\",\"text\":\"Save\"}"`
}

// CheckArgs defines the arguments for the check_translation tool.
type CheckArgs struct {
	Text string `json:"text" jsonschema_description:"Text to look up in the resource catalog"`
}

// SelectionArgs defines the arguments for the add_selection tool.
type SelectionArgs struct {
	IDs []string `json:"ids,omitempty" jsonschema_description:"Objects to select before extracting (optional, defaults to the current selection)"`
}

// ClearArgs defines the arguments for the clear_highlights tool.
type ClearArgs struct {
	IDs []string `json:"ids,omitempty" jsonschema_description:"Text objects whose highlights to remove (omit to clear every highlight)"`
}

// Handlers wraps the session and provides MCP tool handlers.
type Handlers struct {
	session *session.Session
	logger  *slog.Logger
	commit  func() error
}

// Option configures Handlers.
type Option func(*Handlers)

// WithCommit registers fn to run after every tool call that may have
// changed the document, e.g. to write it back to disk.
func WithCommit(fn func() error) Option {
	return func(h *Handlers) {
		h.commit = fn
	}
}

// NewHandlers creates handlers over the given session and logger.
func NewHandlers(s *session.Session, logger *slog.Logger, opts ...Option) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handlers{session: s, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds every tool to server.
func (h *Handlers) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "plugin_message",
		Description: "Send one raw command of the plugin protocol (save-state, focus-nodes, apply-translation, ...) and return the messages it produced.",
	}, h.PluginMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_translation",
		Description: "Find resource keys whose English value matches the given text. Returns up to 5 ranked matches with every locale's value.",
	}, h.CheckTranslation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_selection",
		Description: "Extract the text objects of the current (or given) selection into the inventory and highlight them.",
	}, h.AddSelection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_highlights",
		Description: "Remove highlights for the given text objects, or every highlight when no ids are given.",
	}, h.ClearHighlights)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore_session",
		Description: "Reload persisted settings and state and rebuild the highlight cache. Returns the restore messages.",
	}, h.RestoreSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inventory_status",
		Description: "Show tracked text ids, highlight count and catalog size.",
	}, h.InventoryStatus)
}

// PluginMessage handles the plugin_message tool call.
func (h *Handlers) PluginMessage(ctx context.Context, req *mcp.CallToolRequest, args MessageArgs) (*mcp.CallToolResult, any, error) {
	raw := strings.TrimSpace(args.Message)
	if raw == "" {
		h.logger.Error("plugin_message: message is required")
		return nil, nil, fmt.Errorf("message is required")
	}

	msgs, err := h.session.HandleRaw(ctx, []byte(raw))
	if err != nil {
		h.logger.Error("plugin_message: failed", "error", err)
		return nil, nil, err
	}
	return h.reply("plugin_message", msgs)
}

// CheckTranslation handles the check_translation tool call.
func (h *Handlers) CheckTranslation(ctx context.Context, req *mcp.CallToolRequest, args CheckArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Text) == "" {
		h.logger.Error("check_translation: text is required")
		return nil, nil, fmt.Errorf("text is required")
	}

	msgs, err := h.session.Handle(ctx, command.CheckTranslation{Text: args.Text})
	if err != nil {
		h.logger.Error("check_translation: failed", "error", err)
		return nil, nil, err
	}

	var matches int
	for _, m := range msgs {
		if r, ok := m.(command.TranslationCheckResult); ok {
			matches = len(r.Data)
		}
	}
	h.logger.Info("check_translation: success", "text", args.Text, "matches", matches)
	return h.reply("check_translation", msgs)
}

// AddSelection handles the add_selection tool call.
func (h *Handlers) AddSelection(ctx context.Context, req *mcp.CallToolRequest, args SelectionArgs) (*mcp.CallToolResult, any, error) {
	var msgs []command.Message
	if len(args.IDs) > 0 {
		out, err := h.session.Handle(ctx, command.UpdateSelection{IDs: args.IDs})
		if err != nil {
			return nil, nil, err
		}
		msgs = append(msgs, out...)
	}

	out, err := h.session.Handle(ctx, command.AddSelection{})
	if err != nil {
		h.logger.Error("add_selection: failed", "error", err)
		return nil, nil, err
	}
	msgs = append(msgs, out...)
	return h.reply("add_selection", msgs)
}

// ClearHighlights handles the clear_highlights tool call.
func (h *Handlers) ClearHighlights(ctx context.Context, req *mcp.CallToolRequest, args ClearArgs) (*mcp.CallToolResult, any, error) {
	msgs, err := h.session.Handle(ctx, command.ClearHighlights{IDs: args.IDs})
	if err != nil {
		h.logger.Error("clear_highlights: failed", "error", err)
		return nil, nil, err
	}
	if len(msgs) == 0 {
		status := h.session.Status()
		if err := h.doCommit(); err != nil {
			return nil, nil, err
		}
		msg := fmt.Sprintf("Highlights cleared. %d remaining, %d texts tracked.", status.Markers, status.Tracked)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		}, nil, nil
	}
	return h.reply("clear_highlights", msgs)
}

// RestoreSession handles the restore_session tool call.
func (h *Handlers) RestoreSession(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
	msgs, err := h.session.Restore(ctx)
	if err != nil {
		// Store failures are partial; the messages are still useful.
		h.logger.Warn("restore_session: store errors", "error", err)
	}
	return h.reply("restore_session", msgs)
}

// InventoryStatus returns the current session state.
func (h *Handlers) InventoryStatus(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
	jsonBytes, err := json.MarshalIndent(h.session.Status(), "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, nil, nil
}

// reply commits document changes and renders msgs as a JSON array.
func (h *Handlers) reply(tool string, msgs []command.Message) (*mcp.CallToolResult, any, error) {
	if err := h.doCommit(); err != nil {
		h.logger.Error(tool+": commit failed", "error", err)
		return nil, nil, err
	}

	text, err := RenderMessages(msgs)
	if err != nil {
		h.logger.Error(tool+": encode failed", "error", err)
		return nil, nil, err
	}
	h.logger.Debug(tool+": replied", "messages", len(msgs))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func (h *Handlers) doCommit() error {
	if h.commit == nil {
		return nil
	}
	if err := h.commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	return nil
}

// RenderMessages encodes msgs as an indented JSON array of wire messages.
func RenderMessages(msgs []command.Message) (string, error) {
	encoded := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		data, err := command.EncodeMessage(m)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", m.Type(), err)
		}
		encoded = append(encoded, data)
	}
	out, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
