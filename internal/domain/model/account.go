package model

import (
	"time"
)

// ActiveRole gates sign-in and access to the users sheet.
const ActiveRole = "Active"

type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
	// IsActive mirrors ActiveRole membership. It is filled in by the store on read
	// and never written back.
	IsActive bool `json:"is_active"`
}

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
