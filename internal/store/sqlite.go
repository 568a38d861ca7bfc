package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ayush/guestbook/backend/internal/models"
)

// sqliteDriver is go-sqlite3 with a Unicode-aware unicode_lower(text)
// function on every connection. SQLite's own lower() only folds ASCII.
const sqliteDriver = "sqlite3_guestbook"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", unicodeLower, true)
		},
	})
}

// unicodeLower lower-cases s with the same rules the directory service
// applies to queries.
func unicodeLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore is the single-file relational store used for local
// development and tests. It carries the same schema and constraints as
// PostgresStore.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite database at path and applies the
// pragmas the schema relies on (foreign keys for the cascades).
func OpenSQLite(path string) (*SQLiteStore, error) {
	// Foreign keys are a per-connection setting; the DSN applies it to
	// every connection the pool opens.
	db, err := sql.Open(sqliteDriver, "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Migrate creates the tables if they don't exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) stamp() int64 {
	return s.now().UnixMilli()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, withHash bool) (*models.User, error) {
	var (
		u       models.User
		created int64
	)
	dest := []any{&u.ID, &u.Username, &u.DisplayName, &u.Bio, &u.Avatar, &u.Background, &created}
	if withHash {
		dest = append(dest, &u.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(created)
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, displayName string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, display_name, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, displayName, s.stamp())
	if err != nil {
		return nil, sqliteError("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sqliteError("create user", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = ?`, username), true)
	if err != nil {
		return nil, sqliteError("get user by username", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id), false)
	if err != nil {
		return nil, sqliteError("get user", err)
	}
	return u, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, id int64, displayName, bio string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, bio = ? WHERE id = ?`, displayName, bio, id)
	return affectedOne("update profile", id, res, err)
}

func (s *SQLiteStore) SetImage(ctx context.Context, id int64, slot models.ImageSlot, url string) error {
	col, ok := slot.Column()
	if !ok {
		return fmt.Errorf("%w: unknown image slot %q", models.ErrBadRequest, slot)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+col+` = ? WHERE id = ?`, url, id)
	return affectedOne("set image", id, res, err)
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return affectedOne("delete user", id, res, err)
}

func affectedOne(op string, id int64, res sql.Result, err error) error {
	if err != nil {
		return sqliteError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqliteError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context, query string, limit int) ([]models.UserSummary, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, username, display_name, avatar FROM users ORDER BY id DESC LIMIT ?`, limit)
	} else {
		pattern := likePattern(query)
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, username, display_name, avatar FROM users
			 WHERE unicode_lower(username) LIKE ? ESCAPE '\' OR unicode_lower(display_name) LIKE ? ESCAPE '\'
			 ORDER BY id DESC LIMIT ?`, pattern, pattern, limit)
	}
	if err != nil {
		return nil, sqliteError("list users", err)
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Avatar); err != nil {
			return nil, sqliteError("list users", err)
		}
		users = append(users, u)
	}
	return users, sqliteError("list users", rows.Err())
}

func (s *SQLiteStore) CreatePost(ctx context.Context, userID int64, title, body string) (*models.Post, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (user_id, title, body, created_at) VALUES (?, ?, ?, ?)`,
		userID, title, body, s.stamp())
	if err != nil {
		return nil, sqliteError("create post", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sqliteError("create post", err)
	}
	return s.GetPost(ctx, id)
}

func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var (
		p       models.Post
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, body, created_at FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &created)
	if err != nil {
		return nil, sqliteError("get post", err)
	}
	p.CreatedAt = time.UnixMilli(created)
	return &p, nil
}

func (s *SQLiteStore) ListPostsByUser(ctx context.Context, userID int64, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, body, created_at FROM posts
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, sqliteError("list posts", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var (
			p       models.Post
			created int64
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &created); err != nil {
			return nil, sqliteError("list posts", err)
		}
		p.CreatedAt = time.UnixMilli(created)
		posts = append(posts, p)
	}
	return posts, sqliteError("list posts", rows.Err())
}

func (s *SQLiteStore) CreateComment(ctx context.Context, target models.Target, authorName, text string) (*models.Comment, error) {
	postID, profileID := target.Columns()
	created := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (post_id, profile_user_id, author_name, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		postID, profileID, authorName, text, created)
	if err != nil {
		return nil, sqliteError("create comment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sqliteError("create comment", err)
	}
	return &models.Comment{
		ID:            id,
		PostID:        postID,
		ProfileUserID: profileID,
		AuthorName:    authorName,
		Text:          text,
		CreatedAt:     time.UnixMilli(created),
	}, nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, target models.Target, limit int) ([]models.Comment, error) {
	col := "post_id"
	if target.Kind == models.TargetProfile {
		col = "profile_user_id"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_id, profile_user_id, author_name, text, created_at FROM comments
		 WHERE `+col+` = ? ORDER BY created_at DESC, id DESC LIMIT ?`, target.ID, limit)
	if err != nil {
		return nil, sqliteError("list comments", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var (
			c       models.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.ProfileUserID, &c.AuthorName, &c.Text, &created); err != nil {
			return nil, sqliteError("list comments", err)
		}
		c.CreatedAt = time.UnixMilli(created)
		comments = append(comments, c)
	}
	return comments, sqliteError("list comments", rows.Err())
}

// sqliteError translates driver errors into the shared taxonomy. A nil
// err stays nil.
func sqliteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, op)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s: already exists", models.ErrConflict, op)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s: referenced row missing", models.ErrNotFound, op)
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %s: constraint failed", models.ErrBadRequest, op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
