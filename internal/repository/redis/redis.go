// Package redis stores the ledgers in Redis hashes: one hash per subject with
// the voter as field, so each (subject, voter) pair holds at most one value.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

const (
	keyPrefix     = "hub:"
	metaKey       = keyPrefix + "meta"
	schemaField   = "schema_version"
	schemaVersion = 1
)

// ensureMeta stamps the schema version on first use and refuses a keyspace
// written by a different layout.
func ensureMeta(ctx context.Context, client *redis.Client) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "EnsureSchema", "HSETNX "+metaKey)
	defer func() { end(err) }()

	if err = client.HSetNX(ctx, metaKey, schemaField, schemaVersion).Err(); err != nil {
		return fmt.Errorf("redis init meta: %w", err)
	}
	got, err := client.HGet(ctx, metaKey, schemaField).Result()
	if err != nil {
		return fmt.Errorf("redis read meta: %w", err)
	}
	if v, convErr := strconv.Atoi(got); convErr != nil || v != schemaVersion {
		return fmt.Errorf("redis schema version %q, want %d", got, schemaVersion)
	}
	return nil
}
