package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/content"
	"github.com/ayush/guestbook/backend/internal/directory"
	"github.com/ayush/guestbook/backend/internal/guestbook"
	"github.com/ayush/guestbook/backend/internal/middleware"
	"github.com/ayush/guestbook/backend/internal/profile"
	"github.com/ayush/guestbook/backend/internal/render"
)

// Store is the relational store the site runs on. Both the Postgres
// and the SQLite store satisfy it.
type Store interface {
	auth.UserStore
	profile.UserStore
	profile.ContentStore
	content.PostStore
	guestbook.CommentStore
	directory.UserLister
	Migrate(ctx context.Context) error
	Close() error
}

// Deps are the backends the router is built from.
type Deps struct {
	DB          Store
	Links       profile.LinkStore
	Files       profile.FileStore
	Sessions    *auth.Sessions
	BcryptCost  int
	MaxUpload   int64
	CORSOrigins []string
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(d Deps) http.Handler {
	profileSvc := profile.NewService(d.DB, d.DB, d.Links, d.Files, d.MaxUpload)
	authSvc := auth.NewService(d.DB, d.BcryptCost, profileSvc)

	authHandler := auth.NewHandler(authSvc, d.Sessions)
	profileHandler := profile.NewHandler(profileSvc)
	contentHandler := content.NewHandler(content.NewService(d.DB))
	guestbookHandler := guestbook.NewHandler(guestbook.NewService(d.DB))
	directoryHandler := directory.NewHandler(directory.NewService(d.DB))

	requireAuth := middleware.RequireAuth(d.Sessions)
	optionalAuth := middleware.OptionalAuth(d.Sessions)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/uploads/{name}", profileHandler.ServeImage)

	r.Route("/api", func(r chi.Router) {
		// Auth
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(optionalAuth).Post("/logout", authHandler.Logout)
		r.With(optionalAuth).Get("/me", authHandler.Me)
		r.With(requireAuth).Delete("/me", authHandler.DeleteMe)

		// Profile
		r.Get("/profile/{id}", profileHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/profile", profileHandler.Update)
			r.Post("/profile/links", profileHandler.UpdateLinks)
			r.Post("/upload/avatar", profileHandler.UploadAvatar)
			r.Post("/upload/bg", profileHandler.UploadBackground)
			r.Post("/posts", contentHandler.Create)
		})

		// Posts
		r.Get("/posts/{id}", contentHandler.Get)
		r.Get("/users/{id}/posts", contentHandler.ListByUser)

		// Guestbook
		r.Route("/comments", func(r chi.Router) {
			r.Post("/profile/{id}", guestbookHandler.PostOnProfile)
			r.Get("/profile/{id}", guestbookHandler.ListOnProfile)
			r.Post("/post/{id}", guestbookHandler.PostOnPost)
			r.Get("/post/{id}", guestbookHandler.ListOnPost)
		})

		// Directory
		r.Get("/users", directoryHandler.List)
	})

	return r
}
