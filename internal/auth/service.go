package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/sanitize"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash, displayName string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// AccountCleaner releases data kept outside the relational store when an
// account is removed.
type AccountCleaner interface {
	CleanupAccount(ctx context.Context, user *models.User) error
}

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,50}$`)

	errInvalidCredentials = fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
)

const maxPasswordBytes = 72 // bcrypt input limit

// Service is the credential store: registration, login and account removal.
type Service struct {
	users    UserStore
	cost     int
	cleaners []AccountCleaner

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserStore, bcryptCost int, cleaners ...AccountCleaner) *Service {
	return &Service{users: users, cost: bcryptCost, cleaners: cleaners}
}

// Register creates a user. The display name defaults to the username.
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", models.ErrBadRequest)
	}
	if !reUsername.MatchString(username) {
		return nil, fmt.Errorf("%w: username may only contain letters, digits, '.', '_' and '-' (max 50)", models.ErrBadRequest)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password too long", models.ErrBadRequest)
	}

	// Fast path for the common duplicate; the unique constraint decides races.
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, string(hashed), sanitize.Default(displayName, username))
	if errors.Is(err, models.ErrConflict) {
		return nil, fmt.Errorf("%w: username already taken", models.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords fail identically and take comparable time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", models.ErrBadRequest)
	}
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// GetByID returns the public projection of a user.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// DeleteAccount removes the user row (posts and comments cascade) and
// then asks each cleaner to drop what lives elsewhere. Cleanup failures
// are logged; the account is already gone.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	for _, c := range s.cleaners {
		if err := c.CleanupAccount(ctx, user); err != nil {
			log.Printf("cleanup account %d: %v", userID, err)
		}
	}
	return nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}
