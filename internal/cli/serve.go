package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/config"
	"github.com/ayush/guestbook/backend/internal/server"
	"github.com/ayush/guestbook/backend/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect the backends and serve HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	// ── Relational store ─────────────────────────────────────
	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.DBDriver, err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("%s migrate: %w", cfg.DBDriver, err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, mongoDB, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())
	links := store.NewMongoLinkStore(mongoDB)
	if err := links.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessions(
		auth.NewSessionStore(rdb),
		auth.NewCookieSigner(cfg.SessionSecret),
		cfg.CookieSecure,
	)

	// ── MinIO ────────────────────────────────────────────────
	files, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		return fmt.Errorf("minio connect: %w", err)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Deps{
			DB:          db,
			Links:       links,
			Files:       files,
			Sessions:    sessions,
			BcryptCost:  cfg.BcryptCost,
			MaxUpload:   cfg.MaxUploadBytes,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Guestbook listening on :%s (%s)", cfg.Port, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	quit, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-quit.Done():
	}

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
