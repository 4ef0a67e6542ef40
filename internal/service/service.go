// Package service holds the ledger operations behind the hub actions. Every
// caller-facing failure is an *apperrors.AppError whose Message is the exact
// text clients display.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// Caller-facing messages.
const (
	MsgServerError        = "Server error"
	MsgUsernameRequired   = "Username is required"
	MsgUsernameLength     = "Username must be between 3 and 30 characters"
	MsgUsernameTaken      = "Username already exists"
	MsgBusinessIDRequired = "Business ID is required"
	MsgProductIDRequired  = "Product ID is required"
	MsgInvalidVoteType    = "Invalid vote type"
	MsgRatingOutOfRange   = "Rating must be between 1 and 5"
	MsgFailedToInitialize = "Failed to initialize"
)

// EventPublisher receives domain events after successful mutations.
type EventPublisher interface {
	PublishVoteCast(ctx context.Context, businessID, voter string, voteType domain.VoteType, counts domain.VoteCounts, at time.Time) error
	PublishReviewSubmitted(ctx context.Context, review *domain.Review) error
	PublishUsernameCreated(ctx context.Context, u *domain.Username) error
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// storageError hides a store failure behind the generic message while keeping
// the cause for logs.
func storageError(op string, err error) error {
	return apperrors.Storage(MsgServerError, fmt.Errorf("%s: %w", op, err))
}

func subjectIDMessage(scope domain.Scope) string {
	if scope == domain.ScopeBusiness {
		return MsgBusinessIDRequired
	}
	return MsgProductIDRequired
}

func trim(s string) string { return strings.TrimSpace(s) }
