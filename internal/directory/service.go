package directory

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/sanitize"
)

// DefaultLimit is the page size when the caller gives none.
const DefaultLimit = 50

// UserLister defines the interface for the user directory query. The
// query it receives is already sanitized and lower-cased.
type UserLister interface {
	ListUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error)
}

// Service lists and searches users.
type Service struct {
	users UserLister
}

func NewService(users UserLister) *Service {
	return &Service{users: users}
}

// ListUsers returns the newest users when query is empty, otherwise
// the users whose username or display name contains query, ignoring
// case. The query goes through the same sanitizer as stored names so
// escaped characters such as & and ' compare equal.
func (s *Service) ListUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	query = sanitize.Text(query)
	if query != "" {
		// A Caser keeps state, so each call gets its own.
		query = cases.Lower(language.Und).String(query)
	}
	return s.users.ListUsers(ctx, query, models.PageLimit(limit, DefaultLimit))
}
