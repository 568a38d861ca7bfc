package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/render"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc      *Service
	sessions *Sessions
}

func NewHandler(svc *Service, sessions *Sessions) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Register creates a user and logs them in. The account stands even if
// the session cannot be started; the caller can log in afterwards.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "register", err)
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		render.Error(w, "register", err)
		return
	}
	if err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		log.Printf("register: session for user %d: %v", user.ID, err)
	}
	render.OK(w, map[string]interface{}{"userId": user.ID})
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "login", err)
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		render.Error(w, "login", err)
		return
	}
	if err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		render.Error(w, "login: session", err)
		return
	}
	render.OK(w, map[string]interface{}{"userId": user.ID})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		log.Printf("logout: %v", err)
	}
	render.OK(w, nil)
}

// Me returns the current user, or null for anonymous callers.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		render.JSON(w, http.StatusOK, map[string]interface{}{"user": nil})
		return
	}

	user, err := h.svc.GetByID(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		render.JSON(w, http.StatusOK, map[string]interface{}{"user": nil})
		return
	}
	if err != nil {
		render.Error(w, "me", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// DeleteMe removes the caller's account and ends all of its sessions.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		render.Error(w, "delete account", err)
		return
	}
	if err := h.sessions.EndAll(r.Context(), w, userID); err != nil {
		log.Printf("delete account %d: end sessions: %v", userID, err)
	}
	render.OK(w, nil)
}
