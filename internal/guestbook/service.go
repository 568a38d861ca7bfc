package guestbook

import (
	"context"
	"fmt"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/sanitize"
)

// DefaultAuthor is stored when a visitor leaves no name.
const DefaultAuthor = "guest"

// CommentStore defines the interface for comment persistence.
type CommentStore interface {
	CreateComment(ctx context.Context, target models.Target, authorName, text string) (*models.Comment, error)
	ListComments(ctx context.Context, target models.Target, limit int) ([]models.Comment, error)
}

// Service accepts and lists guestbook comments. Posting does not
// require a session.
type Service struct {
	comments CommentStore
}

func NewService(comments CommentStore) *Service {
	return &Service{comments: comments}
}

// PostComment attaches a comment to target. A target that does not
// exist surfaces as ErrNotFound from the store.
func (s *Service) PostComment(ctx context.Context, target models.Target, authorName, text string) (*models.Comment, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: invalid comment target %s", models.ErrBadRequest, target)
	}
	text = sanitize.Text(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", models.ErrBadRequest)
	}
	return s.comments.CreateComment(ctx, target, sanitize.Default(authorName, DefaultAuthor), text)
}

// ListComments returns the comments on target, newest first.
func (s *Service) ListComments(ctx context.Context, target models.Target, limit int) ([]models.Comment, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: invalid comment target %s", models.ErrBadRequest, target)
	}
	return s.comments.ListComments(ctx, target, models.PageLimit(limit, models.DefaultPageSize))
}
