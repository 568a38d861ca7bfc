package profile

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ayush/guestbook/backend/internal/models"
)

// URLPrefix is the public path uploaded images are served under.
const URLPrefix = "/uploads/"

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var reImageName = regexp.MustCompile(`^[0-9]+-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(png|jpg|gif|webp)$`)

// StoreImage validates an uploaded image, stores it under a generated
// name and points the user's avatar or background at it. The content
// type is sniffed from the bytes; the client's file name is not trusted.
func (s *Service) StoreImage(ctx context.Context, userID int64, slot models.ImageSlot, data []byte) (string, error) {
	if _, ok := slot.Column(); !ok {
		return "", fmt.Errorf("%w: unknown upload slot %q", models.ErrBadRequest, slot)
	}
	if int64(len(data)) > s.maxUpload {
		return "", fmt.Errorf("%w: image exceeds %d bytes", models.ErrPayloadTooLarge, s.maxUpload)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: no file", models.ErrBadRequest)
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %s", models.ErrBadRequest, contentType)
	}

	prev, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext)
	if err := s.files.Put(ctx, name, data, contentType); err != nil {
		return "", err
	}
	url := URLPrefix + name
	if err := s.users.SetImage(ctx, userID, slot, url); err != nil {
		if rmErr := s.files.Remove(ctx, name); rmErr != nil {
			log.Printf("upload: remove orphan %s: %v", name, rmErr)
		}
		return "", err
	}

	old := prev.Avatar
	if slot == models.SlotBackground {
		old = prev.Background
	}
	if key, ok := objectKey(old); ok {
		if err := s.files.Remove(ctx, key); err != nil {
			log.Printf("upload: remove replaced %s: %v", key, err)
		}
	}
	return url, nil
}

// OpenImage returns a reader over a stored image. Names that could not
// have been generated by StoreImage are reported as not found.
func (s *Service) OpenImage(ctx context.Context, name string) (io.ReadCloser, string, int64, error) {
	if !reImageName.MatchString(name) {
		return nil, "", 0, fmt.Errorf("%w: image %s", models.ErrNotFound, name)
	}
	return s.files.Open(ctx, name)
}

// objectKey returns the storage key behind a stored image URL.
func objectKey(url *string) (string, bool) {
	if url == nil || !strings.HasPrefix(*url, URLPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(*url, URLPrefix)
	return key, reImageName.MatchString(key)
}
