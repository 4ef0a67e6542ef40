package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/database"
)

// VoteRepository implements repository.VoteStore on the votes table.
type VoteRepository struct {
	pool database.DBTX
}

// NewVoteRepository creates a PostgreSQL-backed vote repository.
func NewVoteRepository(pool database.DBTX) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// EnsureSchema checks that the votes table exists.
func (r *VoteRepository) EnsureSchema(ctx context.Context) error {
	return ensureTable(ctx, r.pool, "votes")
}

// Get returns the vote cast by voter on a business, or nil.
func (r *VoteRepository) Get(ctx context.Context, businessID, voter string) (_ *domain.Vote, err error) {
	query := `
		SELECT business_id, username, vote_type, voted_at
		FROM votes
		WHERE business_id = $1 AND username = $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetVote", query)
	defer func() { end(err) }()

	v, err := scanVote(r.pool.QueryRow(ctx, query, businessID, voter))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	return &v, nil
}

// Upsert writes the vote, replacing type and timestamp of an existing row.
func (r *VoteRepository) Upsert(ctx context.Context, vote *domain.Vote) (err error) {
	query := `
		INSERT INTO votes (business_id, username, vote_type, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, username)
		DO UPDATE SET vote_type = EXCLUDED.vote_type, voted_at = EXCLUDED.voted_at`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UpsertVote", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, vote.BusinessID, vote.Voter, string(vote.Type), vote.Timestamp); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

// Delete removes the voter's row if present.
func (r *VoteRepository) Delete(ctx context.Context, businessID, voter string) (err error) {
	query := `DELETE FROM votes WHERE business_id = $1 AND username = $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "DeleteVote", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, businessID, voter); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

// ListByBusiness returns every vote on a business.
func (r *VoteRepository) ListByBusiness(ctx context.Context, businessID string) (_ []domain.Vote, err error) {
	query := `
		SELECT business_id, username, vote_type, voted_at
		FROM votes
		WHERE business_id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListVotes", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote row: %w", err)
		}
		votes = append(votes, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote rows: %w", err)
	}
	return votes, nil
}

func scanVote(row pgx.Row) (domain.Vote, error) {
	var (
		v        domain.Vote
		voteType string
	)
	if err := row.Scan(&v.BusinessID, &v.Voter, &voteType, &v.Timestamp); err != nil {
		return domain.Vote{}, err
	}
	v.Type = domain.VoteType(voteType)
	return v, nil
}
