package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/syntax"
)

// Handler manages WebSocket connections for the live preview.
type Handler struct {
	sessions     *Manager
	registry     *registry.Registry
	verifySyntax bool
	bus          *eventbus.Bus
}

// NewHandler creates a WebSocket handler. With verifySyntax set every
// generated module is parsed before it is sent.
func NewHandler(sessions *Manager, reg *registry.Registry, verifySyntax bool) *Handler {
	return &Handler{sessions: sessions, registry: reg, verifySyntax: verifySyntax}
}

// WithBus makes every connection receive a "registry" message whenever a
// component type is registered.
func (h *Handler) WithBus(bus *eventbus.Bus) *Handler {
	h.bus = bus
	return h
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A "session"
// query parameter resumes an existing session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("preview: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sess, resumed := h.session(r.URL.Query().Get("session"))
	info := SessionData{SessionID: sess.ID, Resumed: resumed}
	if resumed {
		info.LastCode, _ = sess.LastCode()
	}
	if h.bus != nil {
		unsubscribe := h.forwardRegistry(ctx, conn, sess.ID)
		defer unsubscribe()
	}
	h.send(ctx, conn, ServerMessage{Type: "session", Data: info})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("preview: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		sess.Touch(time.Now())

		switch msg.Type {
		case "generate":
			h.handleGenerate(ctx, conn, sess, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

// forwardRegistry pushes registry changes to conn until ctx is done. Events
// that arrive faster than the client reads are dropped.
func (h *Handler) forwardRegistry(ctx context.Context, conn *websocket.Conn, sessionID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan eventbus.Event, 16)
	unsubscribe := h.bus.Subscribe("preview:"+sessionID, eventbus.HandlerFunc(func(_ context.Context, evt eventbus.Event) error {
		if evt.Type != eventbus.ComponentRegistered {
			return nil
		}
		select {
		case updates <- evt:
		default:
		}
		return nil
	}))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-updates:
				h.send(ctx, conn, ServerMessage{Type: "registry", Data: evt})
			}
		}
	}()

	return func() {
		unsubscribe()
		cancel()
	}
}

func (h *Handler) session(id string) (*Session, bool) {
	if id != "" {
		if s := h.sessions.Get(id); s != nil {
			return s, true
		}
	}
	return h.sessions.Create(), false
}

func (h *Handler) handleGenerate(ctx context.Context, conn *websocket.Conn, sess *Session, msg ClientMessage) {
	start := time.Now()

	var data GenerateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid generate data")
		return
	}
	if len(data.Layout) == 0 {
		h.sendError(ctx, conn, msg.ID, "empty_layout", "layout is required")
		return
	}

	placeholders := true
	if data.Placeholders != nil {
		placeholders = *data.Placeholders
	}
	res := codegen.GenerateJSON(data.Layout, codegen.RegistryResolver(h.registry), codegen.Options{
		ComponentName: data.ComponentName,
		Placeholders:  placeholders,
	})

	out := CodeData{
		Code:     res.Code,
		Imports:  res.Imports,
		HasForm:  res.HasForm,
		Warnings: res.Warnings,
	}
	if h.verifySyntax {
		valid := true
		if err := syntax.Check(ctx, []byte(res.Code)); err != nil {
			valid = false
			out.SyntaxError = err.Error()
		}
		out.Valid = &valid
	}
	sess.Record(res.Code, time.Now())

	out.Elapsed = time.Since(start).String()
	h.send(ctx, conn, ServerMessage{Type: "code", RequestID: msg.ID, Data: out})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("preview: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
