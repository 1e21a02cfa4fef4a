package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/docuflow/docuflow/internal/engine"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
)

// DefinitionsController exposes workflow definition registration and lookup.
type DefinitionsController struct {
	DefinitionRepo engine.DefinitionStore
}

func NewDefinitionsController(definitionRepo engine.DefinitionStore) *DefinitionsController {
	return &DefinitionsController{DefinitionRepo: definitionRepo}
}

func (c *DefinitionsController) handleRegisterDefinition(w http.ResponseWriter, r *http.Request) {
	var def domain.WorkflowDefinition
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := c.DefinitionRepo.Register(&def); err != nil {
		slog.ErrorContext(r.Context(), "Failed to register definition", "definition_id", def.ID, "error", err)
		writeEngineError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Registered workflow definition", "definition_id", def.ID, "steps", len(def.Steps))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(def)
}

func (c *DefinitionsController) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	def, err := c.DefinitionRepo.Get(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(def)
}

func (c *DefinitionsController) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := c.DefinitionRepo.List()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if defs == nil {
		defs = []domain.WorkflowDefinition{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(defs)
}
