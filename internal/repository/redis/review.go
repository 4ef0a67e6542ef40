package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

// ReviewRepository implements repository.ReviewStore with one hash per
// (scope, subject).
type ReviewRepository struct {
	client *redis.Client
}

// NewReviewRepository creates a Redis-backed review repository.
func NewReviewRepository(client *redis.Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

func reviewKey(scope domain.Scope, subjectID string) string {
	return keyPrefix + "reviews:" + string(scope) + ":" + subjectID
}

// EnsureSchema stamps or checks the keyspace version.
func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	return ensureMeta(ctx, r.client)
}

// reviewRow is the stored hash value. The subject comes from the key; the
// timestamp keeps full precision so reviews in the same second still order.
type reviewRow struct {
	Username   string    `json:"username"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	Timestamp  time.Time `json:"timestamp"`
}

func encodeReview(rv *domain.Review) ([]byte, error) {
	return json.Marshal(reviewRow{
		Username:   rv.Voter,
		Rating:     rv.Rating,
		ReviewText: rv.Text,
		Timestamp:  rv.Timestamp.UTC(),
	})
}

func decodeReview(scope domain.Scope, subjectID string, raw []byte) (domain.Review, error) {
	var row reviewRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.Review{}, err
	}
	return domain.Review{
		Scope:     scope,
		SubjectID: subjectID,
		Voter:     row.Username,
		Rating:    row.Rating,
		Text:      row.ReviewText,
		Timestamp: row.Timestamp,
	}, nil
}

// Get returns the voter's review, or nil.
func (r *ReviewRepository) Get(ctx context.Context, scope domain.Scope, subjectID, voter string) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "GetReview", "HGET")
	defer func() { end(err) }()

	data, err := r.client.HGet(ctx, reviewKey(scope, subjectID), voter).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget review: %w", err)
	}

	rv, err := decodeReview(scope, subjectID, data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	return &rv, nil
}

// Upsert overwrites the voter's field.
func (r *ReviewRepository) Upsert(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "UpsertReview", "HSET")
	defer func() { end(err) }()

	data, err := encodeReview(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	if err = r.client.HSet(ctx, reviewKey(review.Scope, review.SubjectID), review.Voter, data).Err(); err != nil {
		return fmt.Errorf("redis hset review: %w", err)
	}
	return nil
}

// ListBySubject returns every review of a subject.
func (r *ReviewRepository) ListBySubject(ctx context.Context, scope domain.Scope, subjectID string) (_ []domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "ListReviews", "HGETALL")
	defer func() { end(err) }()

	fields, err := r.client.HGetAll(ctx, reviewKey(scope, subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(fields))
	for voter, raw := range fields {
		rv, err := decodeReview(scope, subjectID, []byte(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal review of %s: %w", voter, err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}
