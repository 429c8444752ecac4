// Package preview streams generated code to the editor over a WebSocket:
// the client sends layout trees, the server answers with the module the
// exporter would produce for them.
package preview

import (
	"encoding/json"

	"github.com/matthewbaird/uibuilder/internal/codegen"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "generate", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// GenerateData is the payload for "generate" messages.
type GenerateData struct {
	Layout        json.RawMessage `json:"layout"`
	ComponentName string          `json:"componentName,omitempty"`
	// Placeholders defaults to true: the editor shows empty containers.
	Placeholders *bool `json:"placeholders,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "code", "registry", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information. LastCode is set when the client
// resumed a session that already generated a module.
type SessionData struct {
	SessionID string `json:"session_id"`
	Resumed   bool   `json:"resumed"`
	LastCode  string `json:"last_code,omitempty"`
}

// CodeData carries one generated module.
type CodeData struct {
	Code     string           `json:"code"`
	Imports  []codegen.Import `json:"imports"`
	HasForm  bool             `json:"hasForm"`
	Warnings []string         `json:"warnings,omitempty"`
	// Valid is nil when syntax verification is off.
	Valid       *bool  `json:"valid,omitempty"`
	SyntaxError string `json:"syntaxError,omitempty"`
	Elapsed     string `json:"elapsed"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
