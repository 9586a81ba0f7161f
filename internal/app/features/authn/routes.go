// internal/app/features/authn/routes.go
package authn

import (
	"net/http"

	"github.com/dalemusser/contesthub/internal/app/system/auth"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the /auth endpoints. limit, when non-nil, guards the
// credential-checking routes.
func Routes(h *Handler, sm *auth.SessionManager, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/authenticate", h.ServeAuthenticate)
	r.Post("/register", h.ServeRegister)
	r.Post("/logout", h.ServeLogout)

	r.Group(func(pr chi.Router) {
		if limit != nil {
			pr.Use(limit)
		}
		pr.Post("/login", h.ServeLogin)
		pr.Post("/forgot", h.ServeForgot)
		pr.Post("/reset", h.ServeReset)
	})

	r.With(sm.RequireSignedIn).Get("/session", h.ServeSession)
	r.With(sm.RequireRole(models.RoleAdmin)).Delete("/delete/{uid}", h.ServeDelete)

	return r
}
