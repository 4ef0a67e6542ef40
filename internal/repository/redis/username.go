package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

const usernamesKey = keyPrefix + "usernames"

// UsernameRepository implements repository.UsernameStore as a single hash of
// name to creation time.
type UsernameRepository struct {
	client *redis.Client
}

// NewUsernameRepository creates a Redis-backed username registry.
func NewUsernameRepository(client *redis.Client) *UsernameRepository {
	return &UsernameRepository{client: client}
}

// EnsureSchema stamps or checks the keyspace version.
func (r *UsernameRepository) EnsureSchema(ctx context.Context) error {
	return ensureMeta(ctx, r.client)
}

// Exists reports whether name is registered.
func (r *UsernameRepository) Exists(ctx context.Context, name string) (_ bool, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "UsernameExists", "HEXISTS")
	defer func() { end(err) }()

	ok, err := r.client.HExists(ctx, usernamesKey, name).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists username: %w", err)
	}
	return ok, nil
}

// Create claims name with HSETNX, so two racing creates cannot both succeed.
func (r *UsernameRepository) Create(ctx context.Context, u *domain.Username) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "CreateUsername", "HSETNX")
	defer func() { end(err) }()

	set, err := r.client.HSetNX(ctx, usernamesKey, u.Name, u.CreatedAt.UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return fmt.Errorf("redis hsetnx username: %w", err)
	}
	if !set {
		return apperrors.AlreadyExists("Username already exists")
	}
	return nil
}
