// internal/app/features/validation/handler.go
package validation

import (
	"context"
	"net/http"

	apierr "github.com/dalemusser/contesthub/internal/app/features/errors"
	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Checker answers whether a username or email is already registered.
type Checker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type Handler struct {
	Accounts Checker
	Log      *zap.Logger
}

func NewHandler(accounts Checker, logger *zap.Logger) *Handler {
	return &Handler{Accounts: accounts, Log: logger}
}

// Availability responses answer 409 when taken and 404 when free, so a
// client can branch on status alone.
type usernameResponse struct {
	UsernameTaken bool `json:"usernameTaken"`
}

type emailResponse struct {
	EmailTaken bool `json:"emailTaken"`
}

func (h *Handler) ServeUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.Accounts.UsernameExists(ctx, username)
	if err != nil {
		h.Log.Error("username availability", zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, "Unable to check username")
		return
	}
	apierr.JSON(w, availabilityStatus(taken), usernameResponse{UsernameTaken: taken})
}

func (h *Handler) ServeEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.Accounts.EmailExists(ctx, email)
	if err != nil {
		h.Log.Error("email availability", zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, "Unable to check email")
		return
	}
	apierr.JSON(w, availabilityStatus(taken), emailResponse{EmailTaken: taken})
}

func availabilityStatus(taken bool) int {
	if taken {
		return http.StatusConflict
	}
	return http.StatusNotFound
}
