package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

// VoteRepository implements repository.VoteStore with one hash per business.
type VoteRepository struct {
	client *redis.Client
}

// NewVoteRepository creates a Redis-backed vote repository.
func NewVoteRepository(client *redis.Client) *VoteRepository {
	return &VoteRepository{client: client}
}

func voteKey(businessID string) string {
	return keyPrefix + "votes:" + businessID
}

// EnsureSchema stamps or checks the keyspace version.
func (r *VoteRepository) EnsureSchema(ctx context.Context) error {
	return ensureMeta(ctx, r.client)
}

// Get returns the voter's vote, or nil.
func (r *VoteRepository) Get(ctx context.Context, businessID, voter string) (_ *domain.Vote, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "GetVote", "HGET")
	defer func() { end(err) }()

	data, err := r.client.HGet(ctx, voteKey(businessID), voter).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget vote: %w", err)
	}

	var v domain.Vote
	if err = json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal vote: %w", err)
	}
	return &v, nil
}

// Upsert overwrites the voter's field.
func (r *VoteRepository) Upsert(ctx context.Context, vote *domain.Vote) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "UpsertVote", "HSET")
	defer func() { end(err) }()

	data, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	if err = r.client.HSet(ctx, voteKey(vote.BusinessID), vote.Voter, data).Err(); err != nil {
		return fmt.Errorf("redis hset vote: %w", err)
	}
	return nil
}

// Delete removes the voter's field.
func (r *VoteRepository) Delete(ctx context.Context, businessID, voter string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "DeleteVote", "HDEL")
	defer func() { end(err) }()

	if err = r.client.HDel(ctx, voteKey(businessID), voter).Err(); err != nil {
		return fmt.Errorf("redis hdel vote: %w", err)
	}
	return nil
}

// ListByBusiness returns every vote on a business.
func (r *VoteRepository) ListByBusiness(ctx context.Context, businessID string) (_ []domain.Vote, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "ListVotes", "HGETALL")
	defer func() { end(err) }()

	fields, err := r.client.HGetAll(ctx, voteKey(businessID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall votes: %w", err)
	}

	votes := make([]domain.Vote, 0, len(fields))
	for voter, raw := range fields {
		var v domain.Vote
		if err = json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("unmarshal vote of %s: %w", voter, err)
		}
		votes = append(votes, v)
	}
	return votes, nil
}
