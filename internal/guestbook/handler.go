package guestbook

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/render"
)

// Handler holds guestbook HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// PostOnProfile handles POST /api/comments/profile/{id}.
func (h *Handler) PostOnProfile(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, models.ProfileTarget)
}

// PostOnPost handles POST /api/comments/post/{id}.
func (h *Handler) PostOnPost(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, models.PostTarget)
}

// ListOnProfile handles GET /api/comments/profile/{id}.
func (h *Handler) ListOnProfile(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ProfileTarget)
}

// ListOnPost handles GET /api/comments/post/{id}.
func (h *Handler) ListOnPost(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.PostTarget)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, target func(int64) models.Target) {
	id, err := render.ID(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, "post comment", err)
		return
	}

	var req models.CreateCommentRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "post comment", err)
		return
	}
	c, err := h.svc.PostComment(r.Context(), target(id), req.Name, req.Text)
	if err != nil {
		render.Error(w, "post comment", err)
		return
	}
	render.OK(w, map[string]interface{}{"commentId": c.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, target func(int64) models.Target) {
	id, err := render.ID(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, "list comments", err)
		return
	}
	comments, err := h.svc.ListComments(r.Context(), target(id), render.Limit(r))
	if err != nil {
		render.Error(w, "list comments", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}
