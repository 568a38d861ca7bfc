package content

import (
	"context"
	"fmt"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/sanitize"
)

// PostStore defines the interface for post persistence.
type PostStore interface {
	CreatePost(ctx context.Context, userID int64, title, body string) (*models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPostsByUser(ctx context.Context, userID int64, limit int) ([]models.Post, error)
}

// Service publishes and lists posts.
type Service struct {
	posts PostStore
}

func NewService(posts PostStore) *Service {
	return &Service{posts: posts}
}

// CreatePost publishes a post owned by userID. The body must be
// non-empty once sanitized; the title is optional.
func (s *Service) CreatePost(ctx context.Context, userID int64, title, body string) (*models.Post, error) {
	body = sanitize.Text(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", models.ErrBadRequest)
	}
	return s.posts.CreatePost(ctx, userID, sanitize.Text(title), body)
}

func (s *Service) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts.GetPost(ctx, id)
}

// ListPosts returns a user's posts, newest first.
func (s *Service) ListPosts(ctx context.Context, userID int64, limit int) ([]models.Post, error) {
	return s.posts.ListPostsByUser(ctx, userID, models.PageLimit(limit, models.DefaultPageSize))
}
