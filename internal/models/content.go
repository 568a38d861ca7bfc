package models

import (
	"fmt"
	"time"
)

// Post is a short entry published by its owning user.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a guestbook entry left on a post or on a profile.
type Comment struct {
	ID            int64     `json:"id"`
	PostID        *int64    `json:"post_id,omitempty"`
	ProfileUserID *int64    `json:"profile_user_id,omitempty"`
	AuthorName    string    `json:"author_name"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// TargetKind says what a comment is attached to.
type TargetKind int

const (
	TargetPost TargetKind = iota + 1
	TargetProfile
)

// Target identifies exactly one comment target. The zero value is invalid.
type Target struct {
	Kind TargetKind
	ID   int64
}

// PostTarget addresses the comments of a post.
func PostTarget(postID int64) Target { return Target{Kind: TargetPost, ID: postID} }

// ProfileTarget addresses the guestbook of a user's profile.
func ProfileTarget(userID int64) Target { return Target{Kind: TargetProfile, ID: userID} }

func (t Target) Valid() bool {
	return (t.Kind == TargetPost || t.Kind == TargetProfile) && t.ID > 0
}

func (t Target) String() string { return fmt.Sprintf("%s:%d", t.kindName(), t.ID) }

// Columns returns the (post_id, profile_user_id) pair for the target.
// Exactly one of them is non-nil.
func (t Target) Columns() (postID, profileUserID *int64) {
	id := t.ID
	switch t.Kind {
	case TargetPost:
		return &id, nil
	case TargetProfile:
		return nil, &id
	}
	return nil, nil
}

func (t Target) kindName() string {
	switch t.Kind {
	case TargetPost:
		return "post"
	case TargetProfile:
		return "profile"
	}
	return "invalid"
}

// CreatePostRequest is the JSON body for POST /api/posts.
type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateCommentRequest is the JSON body for POST /api/comments/...
type CreateCommentRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}
