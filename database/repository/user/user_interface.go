package userRepo

import (
	"context"

	"classbridge/models"
)

// UserRepository defines the user-store operations the backend relies on.
type UserRepository interface {
	// GetByEmail retrieves a user by email; (nil, nil) when no user matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// SetFirstFreeClass sets only the first_free_class flag and reports whether a user matched.
	SetFirstFreeClass(ctx context.Context, email string) (bool, error)
}
