// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
)

// Handler answers routes that have no feature handler.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is the router's fallback.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed answers a known path hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusMethodNotAllowed, "Method not allowed")
}
