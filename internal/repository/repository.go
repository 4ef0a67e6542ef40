package repository

import (
	"context"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
)

// Schema is implemented by every store. EnsureSchema prepares the backing
// medium and must be safe to call any number of times.
type Schema interface {
	EnsureSchema(ctx context.Context) error
}

// VoteStore persists at most one vote per (businessID, voter).
type VoteStore interface {
	Schema

	// Get returns the voter's vote, or nil when there is none.
	Get(ctx context.Context, businessID, voter string) (*domain.Vote, error)

	// Upsert inserts the vote or overwrites its type and timestamp.
	Upsert(ctx context.Context, vote *domain.Vote) error

	// Delete removes the voter's vote. Deleting a missing vote is not an error.
	Delete(ctx context.Context, businessID, voter string) error

	// ListByBusiness returns every vote on a business in no particular order.
	ListByBusiness(ctx context.Context, businessID string) ([]domain.Vote, error)
}

// ReviewStore persists at most one review per (scope, subjectID, voter).
type ReviewStore interface {
	Schema

	// Get returns the voter's review, or nil when there is none.
	Get(ctx context.Context, scope domain.Scope, subjectID, voter string) (*domain.Review, error)

	// Upsert inserts the review or overwrites rating, text and timestamp.
	Upsert(ctx context.Context, review *domain.Review) error

	// ListBySubject returns every review of a subject in no particular order.
	ListBySubject(ctx context.Context, scope domain.Scope, subjectID string) ([]domain.Review, error)
}

// UsernameStore is the registry of claimed display names.
type UsernameStore interface {
	Schema

	// Exists reports whether name is registered.
	Exists(ctx context.Context, name string) (bool, error)

	// Create registers name. It returns apperrors.ErrAlreadyExists when the
	// name is already taken.
	Create(ctx context.Context, u *domain.Username) error
}
