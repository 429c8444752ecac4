package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/matthewbaird/uibuilder/internal/aigen"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/registry"
)

type aiHandler struct {
	generator ComponentGenerator
	registry  *registry.Registry
	bus       *eventbus.Bus
}

// GenerateComponent asks the model for a custom component and registers it.
// POST /api/ai/components
func (h *aiHandler) GenerateComponent(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "AI_DISABLED", "AI component generation is not configured")
		return
	}
	var req aigen.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	spec, err := h.generator.Generate(r.Context(), req)
	switch {
	case err == nil:
		entry, _ := h.registry.Lookup(spec.TypeKey)
		h.bus.Publish(eventbus.NewEvent(eventbus.ComponentRegistered, spec.TypeKey, entry))
		writeJSON(w, http.StatusCreated, spec)
	case errors.Is(err, aigen.ErrEmptyPrompt):
		writeError(w, http.StatusBadRequest, "EMPTY_PROMPT", err.Error())
	case errors.Is(err, aigen.ErrInvalidSpec):
		writeError(w, http.StatusBadGateway, "INVALID_SPEC", err.Error())
	default:
		log.Printf("ai generation failed: %v", err)
		writeError(w, http.StatusBadGateway, "GENERATION_FAILED", "component generation failed")
	}
}
