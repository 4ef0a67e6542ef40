package postgres

import (
	"context"
	"fmt"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// UsernameRepository implements repository.UsernameStore on the usernames
// table.
type UsernameRepository struct {
	pool database.DBTX
}

// NewUsernameRepository creates a PostgreSQL-backed username registry.
func NewUsernameRepository(pool database.DBTX) *UsernameRepository {
	return &UsernameRepository{pool: pool}
}

// EnsureSchema checks that the usernames table exists.
func (r *UsernameRepository) EnsureSchema(ctx context.Context) error {
	return ensureTable(ctx, r.pool, "usernames")
}

// Exists reports whether name is registered.
func (r *UsernameRepository) Exists(ctx context.Context, name string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM usernames WHERE username = $1)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UsernameExists", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// Create inserts the name unless it is already taken.
func (r *UsernameRepository) Create(ctx context.Context, u *domain.Username) (err error) {
	query := `
		INSERT INTO usernames (username, created_at)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "CreateUsername", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, u.Name, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("Username already exists")
		}
		return fmt.Errorf("insert username: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.AlreadyExists("Username already exists")
	}
	return nil
}
