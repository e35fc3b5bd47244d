package cache

import (
	"context"
	"time"

	"github.com/fikri221/linking-up/internal/domain"
)

// UserCache is a read-through cache for user profiles. Message listing and
// participant denormalization hit user rows hard; cached entries keep those
// joins off the database.
type UserCache interface {
	Get(ctx context.Context, key string) (*domain.User, error)
	Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(userID string) string
	Close() error
}
