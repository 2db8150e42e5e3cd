package repositories

import (
	"context"

	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// UserRepository persists account records. Single-statement atomicity is
// enough here; no multi-statement transactions are involved.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrUsernameTaken when the
	// username is already registered.
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)

	// GetByUsername returns domain.ErrUserNotFound when absent.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
