package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/guestbook/backend/internal/auth"
	"github.com/ayush/guestbook/backend/internal/models"
	"github.com/ayush/guestbook/backend/internal/store"
)

type memoryFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryFiles) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memoryFiles) Open(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", 0, fmt.Errorf("%w: object %s", models.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[key], int64(len(data)), nil
}

func (m *memoryFiles) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type memoryLinks struct {
	mu    sync.Mutex
	links map[int64][]models.Link
}

func (m *memoryLinks) GetLinks(_ context.Context, userID int64) ([]models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[userID]; ok {
		return l, nil
	}
	return []models.Link{}, nil
}

func (m *memoryLinks) ReplaceLinks(_ context.Context, userID int64, links []models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[userID] = links
	return nil
}

func (m *memoryLinks) DeleteLinks(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, userID)
	return nil
}

const testMaxUpload = 1024

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	srv := httptest.NewServer(NewRouter(Deps{
		DB:         db,
		Links:      &memoryLinks{links: map[int64][]models.Link{}},
		Files:      &memoryFiles{objects: map[string][]byte{}, types: map[string]string{}},
		Sessions:   auth.NewSessions(auth.NewSessionStore(rdb), auth.NewCookieSigner("test-secret"), false),
		BcryptCost: bcrypt.MinCost,
		MaxUpload:  testMaxUpload,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// client is a browser-like caller with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) (int, map[string]interface{}) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (c *client) upload(path, field string, data []byte) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "picture.txt")
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func (c *client) register(username string) int64 {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/register",
		map[string]string{"username": username, "password": "s3cret"})
	require.Equal(c.t, http.StatusOK, status, body)
	return int64(body["userId"].(float64))
}

func TestHealth(t *testing.T) {
	c := newClient(t, newTestServer(t))

	status, body := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterLoginLogout(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	id := c.register("alice")
	assert.Positive(t, id)

	status, body := c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)
	me := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "alice", me["display_name"])
	assert.NotContains(t, me, "password_hash")
	assert.NotContains(t, me, "PasswordHash")

	status, body = c.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	_, body = c.do(http.MethodGet, "/api/me", nil)
	assert.Nil(t, body["user"])

	status, body = c.do(http.MethodPost, "/api/login",
		map[string]string{"username": "alice", "password": "s3cret"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(id), body["userId"])

	_, body = c.do(http.MethodGet, "/api/me", nil)
	assert.NotNil(t, body["user"])
}

func TestRegister_Errors(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice")

	status, _ := c.do(http.MethodPost, "/api/register",
		map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, status)

	status, body := c.do(http.MethodPost, "/api/register", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestLogin_SameFailureForUnknownAndWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	newClient(t, srv).register("alice")
	c := newClient(t, srv)

	wrongStatus, wrongBody := c.do(http.MethodPost, "/api/login",
		map[string]string{"username": "alice", "password": "nope"})
	unknownStatus, unknownBody := c.do(http.MethodPost, "/api/login",
		map[string]string{"username": "nobody", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, wrongBody, unknownBody)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	c := newClient(t, newTestServer(t))

	for _, path := range []string{"/api/profile", "/api/profile/links", "/api/posts"} {
		status, body := c.do(http.MethodPost, path, map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "not authenticated", body["error"], path)
	}
	status, _ := c.upload("/api/upload/avatar", "avatar", pngBytes)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodDelete, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfilePostsAndGuestbook(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	id := alice.register("alice")

	status, _ := alice.do(http.MethodPost, "/api/profile",
		map[string]string{"display_name": "Alice A.", "bio": "<b>hi</b> there"})
	require.Equal(t, http.StatusOK, status)

	status, body := alice.do(http.MethodPost, "/api/posts", map[string]string{"body": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = alice.do(http.MethodPost, "/api/posts",
		map[string]string{"title": "First", "body": "hello world"})
	require.Equal(t, http.StatusOK, status)
	postID := int64(body["postId"].(float64))

	visitor := newClient(t, srv)
	status, _ = visitor.do(http.MethodPost, fmt.Sprintf("/api/comments/profile/%d", id),
		map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = visitor.do(http.MethodPost, fmt.Sprintf("/api/comments/profile/%d", id),
		map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, status)
	assert.Positive(t, body["commentId"])

	status, _ = visitor.do(http.MethodPost, fmt.Sprintf("/api/comments/post/%d", postID),
		map[string]string{"name": "bob", "text": "nice"})
	require.Equal(t, http.StatusOK, status)

	status, _ = visitor.do(http.MethodPost, "/api/comments/post/999", map[string]string{"text": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = visitor.do(http.MethodGet, fmt.Sprintf("/api/profile/%d", id), nil)
	require.Equal(t, http.StatusOK, status)
	prof := body["profile"].(map[string]interface{})
	assert.Equal(t, "Alice A.", prof["display_name"])
	assert.Equal(t, "hi there", prof["bio"])

	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, "First", posts[0].(map[string]interface{})["title"])

	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)
	first := comments[0].(map[string]interface{})
	assert.Equal(t, "hello", first["text"])
	assert.Equal(t, "guest", first["author_name"])

	_, body = visitor.do(http.MethodGet, fmt.Sprintf("/api/comments/post/%d", postID), nil)
	postComments := body["comments"].([]interface{})
	require.Len(t, postComments, 1)
	assert.Equal(t, "bob", postComments[0].(map[string]interface{})["author_name"])

	_, body = visitor.do(http.MethodGet, fmt.Sprintf("/api/users/%d/posts?limit=5", id), nil)
	assert.Len(t, body["posts"], 1)

	status, body = visitor.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello world", body["post"].(map[string]interface{})["body"])

	status, _ = visitor.do(http.MethodGet, "/api/profile/999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = visitor.do(http.MethodGet, "/api/profile/abc", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProfileLinks(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	id := c.register("alice")

	status, body := c.do(http.MethodPost, "/api/profile/links", map[string]interface{}{
		"links": []map[string]string{{"label": "GitHub", "url": "https://github.com/alice"}},
	})
	require.Equal(t, http.StatusOK, status, body)

	_, body = c.do(http.MethodGet, fmt.Sprintf("/api/profile/%d", id), nil)
	links := body["links"].([]interface{})
	require.Len(t, links, 1)
	assert.Equal(t, "github", links[0].(map[string]interface{})["icon"])

	status, _ = c.do(http.MethodPost, "/api/profile/links", map[string]interface{}{
		"links": []map[string]string{{"label": "x", "url": "javascript:alert(1)"}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUploadAndServeImage(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	id := c.register("alice")

	status, body := c.upload("/api/upload/avatar", "avatar", pngBytes)
	require.Equal(t, http.StatusOK, status, body)
	imageURL := body["url"].(string)
	assert.Regexp(t, `^/uploads/\d+-[0-9a-f-]{36}\.png$`, imageURL)

	resp, err := http.Get(srv.URL + imageURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, served)

	_, body = c.do(http.MethodGet, fmt.Sprintf("/api/profile/%d", id), nil)
	assert.Equal(t, imageURL, body["profile"].(map[string]interface{})["avatar"])

	status, body = c.upload("/api/upload/bg", "bg", pngBytes)
	require.Equal(t, http.StatusOK, status, body)
	_, prof := c.do(http.MethodGet, fmt.Sprintf("/api/profile/%d", id), nil)
	assert.Equal(t, body["url"], prof["profile"].(map[string]interface{})["bg"])
}

func TestUpload_Rejects(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice")

	big := append(append([]byte(nil), pngBytes...), bytes.Repeat([]byte{0}, testMaxUpload)...)
	status, _ := c.upload("/api/upload/avatar", "avatar", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	status, _ = c.upload("/api/upload/avatar", "avatar", []byte("#!/bin/sh\necho hi\n"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.upload("/api/upload/avatar", "wrong-field", pngBytes)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.do(http.MethodGet, "/uploads/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDirectory(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{"alice", "bob", "malik"} {
		newClient(t, srv).register(name)
	}
	c := newClient(t, srv)

	_, body := c.do(http.MethodGet, "/api/users", nil)
	users := body["users"].([]interface{})
	require.Len(t, users, 3)
	assert.Equal(t, "malik", users[0].(map[string]interface{})["username"])

	_, body = c.do(http.MethodGet, "/api/users?q=ALI", nil)
	users = body["users"].([]interface{})
	require.Len(t, users, 2)
	assert.Equal(t, "malik", users[0].(map[string]interface{})["username"])
	assert.Equal(t, "alice", users[1].(map[string]interface{})["username"])

	_, body = c.do(http.MethodGet, "/api/users?limit=1", nil)
	assert.Len(t, body["users"], 1)
}

func TestDeleteAccount(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	id := alice.register("alice")
	_, body := alice.do(http.MethodPost, "/api/posts", map[string]string{"body": "bye"})
	postID := int64(body["postId"].(float64))

	status, _ := alice.do(http.MethodDelete, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)

	_, body = alice.do(http.MethodGet, "/api/me", nil)
	assert.Nil(t, body["user"])

	visitor := newClient(t, srv)
	status, _ = visitor.do(http.MethodGet, fmt.Sprintf("/api/profile/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = visitor.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil)
	assert.Equal(t, http.StatusNotFound, status)

	// The username is free again.
	newClient(t, srv).register("alice")
}

func TestDeleteAccount_EndsEverySession(t *testing.T) {
	srv := newTestServer(t)
	laptop := newClient(t, srv)
	laptop.register("alice")

	phone := newClient(t, srv)
	status, _ := phone.do(http.MethodPost, "/api/login",
		map[string]string{"username": "alice", "password": "s3cret"})
	require.Equal(t, http.StatusOK, status)

	status, _ = laptop.do(http.MethodDelete, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := phone.do(http.MethodPost, "/api/posts", map[string]string{"body": "still here?"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not authenticated", body["error"])

	_, body = phone.do(http.MethodGet, "/api/me", nil)
	assert.Nil(t, body["user"])
}

func TestDirectory_MatchesStoredForm(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("tom")
	status, _ := c.do(http.MethodPost, "/api/profile",
		map[string]string{"display_name": "Tom & Jerry O'Neil"})
	require.Equal(t, http.StatusOK, status)
	c.register("elodie")
	status, _ = c.do(http.MethodPost, "/api/profile",
		map[string]string{"display_name": "Élodie Ärger"})
	require.Equal(t, http.StatusOK, status)

	for q, want := range map[string]string{
		"o'neil": "tom",
		"ÄRGER":  "elodie",
		"élodie": "elodie",
	} {
		_, body := c.do(http.MethodGet, "/api/users?q="+url.QueryEscape(q), nil)
		users := body["users"].([]interface{})
		require.Len(t, users, 1, q)
		assert.Equal(t, want, users[0].(map[string]interface{})["username"], q)
	}
}

func TestListPosts_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	id := c.register("alice")

	status, body := c.do(http.MethodGet, fmt.Sprintf("/api/users/%d/posts", id), nil)
	require.Equal(t, http.StatusOK, status)
	posts, ok := body["posts"].([]interface{})
	require.True(t, ok, "posts must be a JSON array, got %v", body["posts"])
	assert.Empty(t, posts)
}
