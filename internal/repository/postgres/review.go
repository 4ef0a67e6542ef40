package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

// ReviewRepository implements repository.ReviewStore on the reviews table.
// Both scopes share the table, distinguished by the scope column.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// EnsureSchema checks that the reviews table exists.
func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	return ensureTable(ctx, r.pool, "reviews")
}

// Get returns the review voter wrote for a subject, or nil.
func (r *ReviewRepository) Get(ctx context.Context, scope domain.Scope, subjectID, voter string) (_ *domain.Review, err error) {
	query := `
		SELECT scope, subject_id, username, rating, review_text, reviewed_at
		FROM reviews
		WHERE scope = $1 AND subject_id = $2 AND username = $3`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetReview", query)
	defer func() { end(err) }()

	rv, err := scanReview(r.pool.QueryRow(ctx, query, string(scope), subjectID, voter))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &rv, nil
}

// Upsert writes the review, overwriting rating, text and timestamp in place.
func (r *ReviewRepository) Upsert(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (scope, subject_id, username, rating, review_text, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scope, subject_id, username)
		DO UPDATE SET rating = EXCLUDED.rating,
		              review_text = EXCLUDED.review_text,
		              reviewed_at = EXCLUDED.reviewed_at`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UpsertReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		string(review.Scope),
		review.SubjectID,
		review.Voter,
		review.Rating,
		review.Text,
		review.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

// ListBySubject returns every review of a subject.
func (r *ReviewRepository) ListBySubject(ctx context.Context, scope domain.Scope, subjectID string) (_ []domain.Review, err error) {
	query := `
		SELECT scope, subject_id, username, rating, review_text, reviewed_at
		FROM reviews
		WHERE scope = $1 AND subject_id = $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, string(scope), subjectID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		rv    domain.Review
		scope string
	)
	if err := row.Scan(&scope, &rv.SubjectID, &rv.Voter, &rv.Rating, &rv.Text, &rv.Timestamp); err != nil {
		return domain.Review{}, err
	}
	rv.Scope = domain.Scope(scope)
	return rv, nil
}
