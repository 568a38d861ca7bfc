package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/guestbook/backend/internal/models"
)

// PostgresStore handles users, posts and comments against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgresPool parses dsn and opens a pool with statement caching enabled.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 128
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(50)  UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		bio           TEXT NOT NULL DEFAULT '',
		avatar        TEXT,
		bg            TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title      TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_user_created_idx ON posts (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id              BIGSERIAL PRIMARY KEY,
		post_id         BIGINT REFERENCES posts(id) ON DELETE CASCADE,
		profile_user_id BIGINT REFERENCES users(id) ON DELETE CASCADE,
		author_name     TEXT NOT NULL DEFAULT 'guest',
		text            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT comments_one_target CHECK ((post_id IS NULL) <> (profile_user_id IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS comments_post_idx ON comments (post_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS comments_profile_idx ON comments (profile_user_id, created_at DESC)`,
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const userColumns = `id, username, display_name, bio, avatar, bg, created_at`

func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash, displayName string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, display_name)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		username, passwordHash, displayName,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Bio, &u.Avatar, &u.Background, &u.CreatedAt)
	if err != nil {
		return nil, pgError("create user", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Bio, &u.Avatar, &u.Background, &u.CreatedAt, &u.PasswordHash)
	if err != nil {
		return nil, pgError("get user by username", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Bio, &u.Avatar, &u.Background, &u.CreatedAt)
	if err != nil {
		return nil, pgError("get user", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, displayName, bio string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET display_name = $1, bio = $2 WHERE id = $3`, displayName, bio, id)
	if err != nil {
		return pgError("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) SetImage(ctx context.Context, id int64, slot models.ImageSlot, url string) error {
	col, ok := slot.Column()
	if !ok {
		return fmt.Errorf("%w: unknown image slot %q", models.ErrBadRequest, slot)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET `+col+` = $1 WHERE id = $2`, url, id)
	if err != nil {
		return pgError("set image", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return nil
}

// DeleteUser removes a user; posts and comments go with it through the
// ON DELETE CASCADE foreign keys.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return pgError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if query == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT id, username, display_name, avatar FROM users ORDER BY id DESC LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, username, display_name, avatar FROM users
			 WHERE lower(username) LIKE $1 ESCAPE '\' OR lower(display_name) LIKE $1 ESCAPE '\'
			 ORDER BY id DESC LIMIT $2`, likePattern(query), limit)
	}
	if err != nil {
		return nil, pgError("list users", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UserSummary, error) {
		var u models.UserSummary
		err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Avatar)
		return u, err
	})
	if err != nil {
		return nil, pgError("list users", err)
	}
	return users, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, userID int64, title, body string) (*models.Post, error) {
	p := models.Post{UserID: userID, Title: title, Body: body}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO posts (user_id, title, body) VALUES ($1, $2, $3) RETURNING id, created_at`,
		userID, title, body,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, pgError("create post", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, body, created_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.CreatedAt)
	if err != nil {
		return nil, pgError("get post", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPostsByUser(ctx context.Context, userID int64, limit int) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, body, created_at FROM posts
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, pgError("list posts", err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Post, error) {
		var p models.Post
		err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, pgError("list posts", err)
	}
	return posts, nil
}

func (s *PostgresStore) CreateComment(ctx context.Context, target models.Target, authorName, text string) (*models.Comment, error) {
	postID, profileID := target.Columns()
	c := models.Comment{PostID: postID, ProfileUserID: profileID, AuthorName: authorName, Text: text}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, profile_user_id, author_name, text)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		postID, profileID, authorName, text,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, pgError("create comment", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, target models.Target, limit int) ([]models.Comment, error) {
	col := "post_id"
	if target.Kind == models.TargetProfile {
		col = "profile_user_id"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, post_id, profile_user_id, author_name, text, created_at FROM comments
		 WHERE `+col+` = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, target.ID, limit)
	if err != nil {
		return nil, pgError("list comments", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Comment, error) {
		var c models.Comment
		err := row.Scan(&c.ID, &c.PostID, &c.ProfileUserID, &c.AuthorName, &c.Text, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, pgError("list comments", err)
	}
	return comments, nil
}

// pgError translates driver errors into the shared taxonomy.
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s: already exists", models.ErrConflict, op)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s: referenced row missing", models.ErrNotFound, op)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s: %s", models.ErrBadRequest, op, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
