package models

import "time"

// User represents a row in the users table.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialize
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	Avatar       *string   `json:"avatar"`
	Background   *string   `json:"bg"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the directory listing projection of a user.
type UserSummary struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar"`
}

// ImageSlot names the profile field an uploaded image is written to.
type ImageSlot string

const (
	SlotAvatar     ImageSlot = "avatar"
	SlotBackground ImageSlot = "bg"
)

// Column returns the users column backing the slot.
func (s ImageSlot) Column() (string, bool) {
	switch s {
	case SlotAvatar:
		return "avatar", true
	case SlotBackground:
		return "bg", true
	}
	return "", false
}

// RegisterRequest is the JSON body for POST /api/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the JSON body for POST /api/profile.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}
