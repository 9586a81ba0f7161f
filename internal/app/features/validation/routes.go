// internal/app/features/validation/routes.go
package validation

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/username/{username}", h.ServeUsername)
	r.Get("/email/{email}", h.ServeEmail)
	return r
}
