package service

import (
	"context"
	"log/slog"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/validator"
)

// CastVoteInput holds the parameters of a vote action.
type CastVoteInput struct {
	BusinessID string `json:"businessId" validate:"required"`
	Voter      string `json:"username" validate:"required"`
	VoteType   string `json:"voteType" validate:"required,oneof=like dislike remove"`
}

var castVoteMessages = validator.Messages{
	"businessId": MsgBusinessIDRequired,
	"username":   MsgUsernameRequired,
	"voteType":   MsgInvalidVoteType,
}

// VoteService implements the vote ledger operations.
type VoteService struct {
	store     repository.VoteStore
	publisher EventPublisher
	logger    *slog.Logger
	now       Clock
}

// NewVoteService creates a vote service.
func NewVoteService(store repository.VoteStore, publisher EventPublisher, logger *slog.Logger) *VoteService {
	return &VoteService{store: store, publisher: publisher, logger: logger, now: utcNow}
}

// GetVotes returns the like/dislike counts of a business and, when voter is
// set, that voter's current vote.
func (s *VoteService) GetVotes(ctx context.Context, businessID, voter string) (*domain.VoteTally, error) {
	businessID = trim(businessID)
	if businessID == "" {
		return nil, apperrors.InvalidInput(MsgBusinessIDRequired)
	}
	return s.tally(ctx, businessID, trim(voter))
}

func (s *VoteService) tally(ctx context.Context, businessID, voter string) (*domain.VoteTally, error) {
	votes, err := s.store.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, storageError("list votes", err)
	}

	var userVote *domain.VoteType
	if voter != "" {
		v, err := s.store.Get(ctx, businessID, voter)
		if err != nil {
			return nil, storageError("get vote", err)
		}
		if v != nil {
			vt := v.Type
			userVote = &vt
		}
	}

	tally := domain.NewVoteTally(businessID, domain.CountVotes(votes), userVote)
	return &tally, nil
}

// CastVote records, replaces or withdraws a vote and returns the new tally.
// Inputs are checked in order: business id, username, vote type.
func (s *VoteService) CastVote(ctx context.Context, input CastVoteInput) (*domain.VoteTally, error) {
	input.BusinessID = trim(input.BusinessID)
	input.Voter = trim(input.Voter)
	if err := validator.ValidateWithMessages(input, castVoteMessages); err != nil {
		return nil, err
	}
	voteType, _ := domain.ParseVoteType(input.VoteType)

	now := s.now()
	if voteType == domain.VoteRemove {
		if err := s.store.Delete(ctx, input.BusinessID, input.Voter); err != nil {
			return nil, storageError("delete vote", err)
		}
	} else {
		vote := &domain.Vote{
			BusinessID: input.BusinessID,
			Voter:      input.Voter,
			Type:       voteType,
			Timestamp:  now,
		}
		if err := s.store.Upsert(ctx, vote); err != nil {
			return nil, storageError("upsert vote", err)
		}
	}

	tally, err := s.tally(ctx, input.BusinessID, input.Voter)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "vote recorded",
		slog.String("business_id", input.BusinessID),
		slog.String("username", input.Voter),
		slog.String("vote_type", string(voteType)),
		slog.Int("likes", tally.Likes),
		slog.Int("dislikes", tally.Dislikes),
	)

	counts := domain.VoteCounts{Likes: tally.Likes, Dislikes: tally.Dislikes}
	if err := s.publisher.PublishVoteCast(ctx, input.BusinessID, input.Voter, voteType, counts, now); err != nil {
		s.logger.WarnContext(ctx, "failed to publish vote event",
			slog.String("business_id", input.BusinessID),
			slog.String("error", err.Error()),
		)
	}

	return tally, nil
}
