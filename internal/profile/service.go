package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/sanitize"
)

// UserStore defines the user persistence the profile service needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, displayName, bio string) error
	SetImage(ctx context.Context, id int64, slot models.ImageSlot, url string) error
}

// ContentStore lists what is shown on a profile page.
type ContentStore interface {
	ListPostsByUser(ctx context.Context, userID int64, limit int) ([]models.Post, error)
	ListComments(ctx context.Context, target models.Target, limit int) ([]models.Comment, error)
}

// LinkStore defines the interface for profile link documents.
type LinkStore interface {
	GetLinks(ctx context.Context, userID int64) ([]models.Link, error)
	ReplaceLinks(ctx context.Context, userID int64, links []models.Link) error
	DeleteLinks(ctx context.Context, userID int64) error
}

// FileStore defines the interface for image object storage.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
	Remove(ctx context.Context, key string) error
}

const maxLinks = 10

// Service owns profile reads and edits, links and image uploads.
type Service struct {
	users     UserStore
	content   ContentStore
	links     LinkStore
	files     FileStore
	maxUpload int64
	now       func() time.Time
}

func NewService(users UserStore, content ContentStore, links LinkStore, files FileStore, maxUpload int64) *Service {
	return &Service{
		users:     users,
		content:   content,
		links:     links,
		files:     files,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// UpdateProfile overwrites display name and bio. Empty strings clear them.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, displayName, bio string) error {
	return s.users.UpdateProfile(ctx, userID, sanitize.Text(displayName), sanitize.Text(bio))
}

// GetProfile assembles the public page of a user: the row, newest posts,
// newest guestbook comments and links.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: profile %d", models.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""

	posts, err := s.content.ListPostsByUser(ctx, userID, models.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	comments, err := s.content.ListComments(ctx, models.ProfileTarget(userID), models.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	links, err := s.links.GetLinks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Profile{User: user, Posts: posts, Comments: comments, Links: links}, nil
}

// UpdateLinks replaces the caller's link list.
func (s *Service) UpdateLinks(ctx context.Context, userID int64, in []models.Link) ([]models.Link, error) {
	if len(in) > maxLinks {
		return nil, fmt.Errorf("%w: at most %d links", models.ErrBadRequest, maxLinks)
	}
	links := make([]models.Link, 0, len(in))
	for i, l := range in {
		label := sanitize.Text(l.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: link %d: label required", models.ErrBadRequest, i+1)
		}
		u, err := url.Parse(strings.TrimSpace(l.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: link %d: url must be http(s)", models.ErrBadRequest, i+1)
		}
		links = append(links, models.Link{Label: label, URL: u.String(), Icon: iconFor(label)})
	}
	if err := s.links.ReplaceLinks(ctx, userID, links); err != nil {
		return nil, err
	}
	return links, nil
}

// iconFor picks a brand icon from the label, falling back to a plain link.
func iconFor(label string) string {
	l := strings.ToLower(label)
	for _, brand := range []string{"twitter", "instagram", "youtube", "github"} {
		if strings.Contains(l, brand) {
			return brand
		}
	}
	return "link"
}

// CleanupAccount drops the links document and uploaded images of a
// removed user.
func (s *Service) CleanupAccount(ctx context.Context, user *models.User) error {
	errs := []error{s.links.DeleteLinks(ctx, user.ID)}
	for _, u := range []*string{user.Avatar, user.Background} {
		if key, ok := objectKey(u); ok {
			errs = append(errs, s.files.Remove(ctx, key))
		}
	}
	return errors.Join(errs...)
}
