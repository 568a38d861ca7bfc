package profile

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/render"
)

// multipartOverhead is the allowance for multipart framing on top of
// the file itself.
const multipartOverhead = 64 << 10

// Handler holds profile HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Update overwrites the caller's display name and bio.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.UpdateProfileRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "update profile", err)
		return
	}
	if err := h.svc.UpdateProfile(r.Context(), userID, req.DisplayName, req.Bio); err != nil {
		render.Error(w, "update profile", err)
		return
	}
	render.OK(w, nil)
}

// UpdateLinks replaces the caller's social links.
func (h *Handler) UpdateLinks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.UpdateLinksRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.Error(w, "update links", err)
		return
	}
	links, err := h.svc.UpdateLinks(r.Context(), userID, req.Links)
	if err != nil {
		render.Error(w, "update links", err)
		return
	}
	render.OK(w, map[string]interface{}{"links": links})
}

// Get returns a public profile page.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, "get profile", err)
		return
	}
	p, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		render.Error(w, "get profile", err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

// UploadAvatar stores the multipart field "avatar" as the caller's avatar.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.SlotAvatar, "avatar")
}

// UploadBackground stores the multipart field "bg" as the caller's background.
func (h *Handler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.SlotBackground, "bg")
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, slot models.ImageSlot, field string) {
	userID, _ := auth.UserID(r.Context())
	op := "upload " + field
	limit := h.svc.maxUpload

	if r.ContentLength > limit+multipartOverhead {
		render.Error(w, op, fmt.Errorf("%w: image exceeds %d bytes", models.ErrPayloadTooLarge, limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			render.Error(w, op, fmt.Errorf("%w: image exceeds %d bytes", models.ErrPayloadTooLarge, limit))
			return
		}
		render.Error(w, op, fmt.Errorf("%w: no file", models.ErrBadRequest))
		return
	}
	defer file.Close()
	if header.Size > limit {
		render.Error(w, op, fmt.Errorf("%w: image exceeds %d bytes", models.ErrPayloadTooLarge, limit))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		render.Error(w, op, err)
		return
	}
	url, err := h.svc.StoreImage(r.Context(), userID, slot, data)
	if err != nil {
		render.Error(w, op, err)
		return
	}
	render.OK(w, map[string]interface{}{"url": url})
}

// ServeImage streams a stored image.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	body, contentType, size, err := h.svc.OpenImage(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		render.Error(w, "serve image", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("serve image: %v", err)
	}
}
