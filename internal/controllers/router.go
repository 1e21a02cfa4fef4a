package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *ExecutionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/executions", c.handleStartExecution)
	mux.HandleFunc("GET /api/executions", c.handleListExecutions)
	mux.HandleFunc("GET /api/executions/{id}", c.handleGetExecution)
	mux.HandleFunc("POST /api/executions/{id}/advance", c.handleAdvanceExecution)
	mux.HandleFunc("POST /api/executions/{id}/approve", c.handleApproveStep)
	mux.HandleFunc("POST /api/executions/{id}/resume", c.handleResumeStep)
	mux.HandleFunc("POST /api/executions/{id}/cancel", c.handleCancelExecution)
}

func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/definitions", c.handleRegisterDefinition)
	mux.HandleFunc("GET /api/definitions", c.handleListDefinitions)
	mux.HandleFunc("GET /api/definitions/{id}", c.handleGetDefinition)
}
