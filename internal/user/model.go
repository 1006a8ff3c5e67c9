package user

import (
	"time"
)

// KeyPrefix prefixes the per-user session hash.
const KeyPrefix = "photo_user:"

// Session is an anonymous browser identity.
type Session struct {
	ID         string    `json:"id"`
	LastActive time.Time `json:"lastActive"`
}

func sessionKey(id string) string {
	return KeyPrefix + id
}
