package directory

import (
	"net/http"

	"github.com/ayush/guestbook/backend/internal/render"
)

// Handler serves the user directory.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/users?q=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), r.URL.Query().Get("q"), render.Limit(r))
	if err != nil {
		render.Error(w, "list users", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]interface{}{"users": users})
}
