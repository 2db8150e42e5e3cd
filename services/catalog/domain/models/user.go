package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// User is an account record. Immutable once created.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // sha256 hex; never serialized to the wire
}

// HashPassword returns the sha256 hex digest used for credential storage and
// the per-command hash check. The hash must be deterministic because clients
// resend it with every command request.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
