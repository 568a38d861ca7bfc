package content

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/render"
)

// Handler holds post HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create publishes a post as the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.CreatePostRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "create post", err)
		return
	}
	post, err := h.svc.CreatePost(r.Context(), userID, req.Title, req.Body)
	if err != nil {
		render.Error(w, "create post", err)
		return
	}
	render.OK(w, map[string]interface{}{"postId": post.ID})
}

// Get returns a single post.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, "get post", err)
		return
	}
	post, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		render.Error(w, "get post", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]interface{}{"post": post})
}

// ListByUser returns a user's posts, newest first.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, "list posts", err)
		return
	}
	posts, err := h.svc.ListPosts(r.Context(), id, render.Limit(r))
	if err != nil {
		render.Error(w, "list posts", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}
