package content

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/store"
)

func newTestService(t *testing.T) (*Service, *models.User) {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	u, err := db.CreateUser(context.Background(), "alice", "hash", "Alice")
	require.NoError(t, err)
	return NewService(db), u
}

func TestCreatePost_EmptyBody(t *testing.T) {
	svc, u := newTestService(t)
	ctx := context.Background()

	for _, body := range []string{"", "   ", "<p></p>"} {
		_, err := svc.CreatePost(ctx, u.ID, "title", body)
		assert.ErrorIs(t, err, models.ErrBadRequest, "body %q", body)
	}
}

func TestCreatePost_NewestFirst(t *testing.T) {
	svc, u := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, u.ID, "", "first")
	require.NoError(t, err)
	created, err := svc.CreatePost(ctx, u.ID, "Hello", "second")
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, created.ID, posts[0].ID)
	assert.Equal(t, "Hello", posts[0].Title)
}

func TestCreatePost_Sanitizes(t *testing.T) {
	svc, u := newTestService(t)

	p, err := svc.CreatePost(context.Background(), u.ID, "<h1>Title</h1>", "<script>x()</script>body")
	require.NoError(t, err)
	assert.Equal(t, "Title", p.Title)
	assert.Equal(t, "body", p.Body)
}

func TestListPosts_Limit(t *testing.T) {
	svc, u := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.CreatePost(ctx, u.ID, "", "post")
		require.NoError(t, err)
	}

	posts, err := svc.ListPosts(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestGetPost(t *testing.T) {
	svc, u := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, u.ID, "", "body")
	require.NoError(t, err)
	got, err := svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	_, err = svc.GetPost(ctx, created.ID+1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
