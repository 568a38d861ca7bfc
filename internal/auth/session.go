package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// SessionStore wraps Redis for session management.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: SessionTTL}
}

func sessionKey(sessionID string) string { return "session:" + sessionID }

// userSessionsKey indexes the live session ids of one user.
func userSessionsKey(userID int64) string { return "user_sessions:" + strconv.FormatInt(userID, 10) }

// Create stores a new session mapping sessionID -> userID and records it
// in the user's session index.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	sid := uuid.New().String()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sid), strconv.FormatInt(userID, 10), s.ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), sid)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sid, nil
}

// Get returns the userID for a session; ok is false if it is unknown or expired.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (userID int64, ok bool, err error) {
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get session: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("session %s holds %q: %w", sessionID, val, err)
	}
	return id, true, nil
}

// Delete removes a session and drops it from its user's index.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	userID, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	if ok {
		pipe.SRem(ctx, userSessionsKey(userID), sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUser removes every session of userID.
func (s *SessionStore) DeleteUser(ctx context.Context, userID int64) error {
	sids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions of user %d: %w", userID, err)
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, sessionKey(sid))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete sessions of user %d: %w", userID, err)
	}
	return nil
}

// CookieSigner wraps session ids in an HS256 token so the cookie cannot
// be forged or guessed without the server secret. The token carries only
// the session id and its expiry.
type CookieSigner struct {
	secret []byte
}

func NewCookieSigner(secret string) *CookieSigner {
	if secret == "" {
		log.Printf("SESSION_SECRET not set; using a per-process secret, sessions will not survive a restart")
		secret = uuid.NewString() + uuid.NewString()
	}
	return &CookieSigner{secret: []byte(secret)}
}

func (c *CookieSigner) Sign(sessionID string, expires time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sessionID,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	return tok.SignedString(c.secret)
}

// Verify returns the session id inside a cookie value.
func (c *CookieSigner) Verify(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errors.New("session token without id")
	}
	return claims.ID, nil
}

// Sessions ties the Redis store to the HTTP cookie.
type Sessions struct {
	store  *SessionStore
	signer *CookieSigner
	secure bool
}

func NewSessions(store *SessionStore, signer *CookieSigner, secureCookie bool) *Sessions {
	return &Sessions{store: store, signer: signer, secure: secureCookie}
}

// Start creates a session for userID and sets the cookie on w.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, userID int64) error {
	sid, err := s.store.Create(ctx, userID)
	if err != nil {
		return err
	}
	value, err := s.signer.Sign(sid, time.Now().Add(s.store.ttl))
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.store.ttl / time.Second),
	})
	return nil
}

// Resolve returns the user behind the request's session cookie. A
// missing, forged or expired cookie yields ok == false with a nil error;
// err is reserved for store failures.
func (s *Sessions) Resolve(r *http.Request) (userID int64, ok bool, err error) {
	sid, found := s.sessionID(r)
	if !found {
		return 0, false, nil
	}
	return s.store.Get(r.Context(), sid)
}

// End destroys the request's session, if any, and clears the cookie.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if sid, found := s.sessionID(r); found {
		err = s.store.Delete(ctx, sid)
	}
	s.clearCookie(w)
	return err
}

// EndAll destroys every session of userID and clears the cookie on w.
func (s *Sessions) EndAll(ctx context.Context, w http.ResponseWriter, userID int64) error {
	err := s.store.DeleteUser(ctx, userID)
	s.clearCookie(w)
	return err
}

func (s *Sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

func (s *Sessions) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sid, err := s.signer.Verify(cookie.Value)
	if err != nil {
		return "", false
	}
	return sid, true
}

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id placed by the auth middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}
