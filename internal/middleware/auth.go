package middleware

import (
	"log"
	"net/http"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/render"
)

// RequireAuth validates the session cookie and injects the user id into
// the request context. Requests without a live session get 401.
func RequireAuth(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := sessions.Resolve(r)
			if err != nil {
				render.Error(w, "require auth", err)
				return
			}
			if !ok {
				render.JSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth injects the user id when a live session exists and lets
// anonymous requests through untouched.
func OptionalAuth(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := sessions.Resolve(r)
			if err != nil {
				log.Printf("optional auth: %v", err)
			}
			if ok {
				r = r.WithContext(auth.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
