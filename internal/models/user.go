package models

import "time"

const DefaultAvatar = "default-avatar.png"

// DefaultBalance is credited to every new account. No flow spends it yet.
const DefaultBalance = 100

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Balance      int64     `json:"balance"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}
