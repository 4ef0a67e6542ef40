package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

// ensureTable fails when table has not been created by the migrations.
func ensureTable(ctx context.Context, db database.DBTX, table string) (err error) {
	const query = `SELECT to_regclass($1) IS NOT NULL`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "EnsureSchema", query)
	defer func() { end(err) }()

	var exists bool
	if err = db.QueryRow(ctx, query, "public."+table).Scan(&exists); err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("table %s does not exist; migrations have not run", table)
	}
	return nil
}

// isUniqueViolation reports a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
