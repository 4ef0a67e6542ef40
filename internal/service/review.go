package service

import (
	"context"
	"log/slog"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/validator"
)

// SubmitReviewInput holds the parameters of a review submission. A rating
// that could not be read as an integer should be passed as 0.
type SubmitReviewInput struct {
	Scope     domain.Scope `json:"-"`
	SubjectID string       `json:"subjectId" validate:"required"`
	Voter     string       `json:"username" validate:"required"`
	Rating    int          `json:"rating" validate:"gte=1,lte=5"`
	Text      string       `json:"reviewText"`
}

func submitReviewMessages(scope domain.Scope) validator.Messages {
	return validator.Messages{
		"subjectId": subjectIDMessage(scope),
		"username":  MsgUsernameRequired,
		"rating":    MsgRatingOutOfRange,
	}
}

// ReviewList is the reviews of one subject, newest first, with the
// requesting voter's review and the aggregate summary.
type ReviewList struct {
	Reviews    []domain.Review
	UserReview *domain.Review
	Summary    domain.RatingSummary
}

// ReviewService implements the review ledger operations for both scopes.
type ReviewService struct {
	store     repository.ReviewStore
	publisher EventPublisher
	logger    *slog.Logger
	now       Clock
}

// NewReviewService creates a review service.
func NewReviewService(store repository.ReviewStore, publisher EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: store, publisher: publisher, logger: logger, now: utcNow}
}

func (s *ReviewService) load(ctx context.Context, scope domain.Scope, subjectID string) ([]domain.Review, error) {
	reviews, err := s.store.ListBySubject(ctx, scope, subjectID)
	if err != nil {
		return nil, storageError("list reviews", err)
	}
	domain.SortByRecency(reviews)
	return reviews, nil
}

// ListReviews returns every review of a subject. voter may be empty.
func (s *ReviewService) ListReviews(ctx context.Context, scope domain.Scope, subjectID, voter string) (*ReviewList, error) {
	subjectID = trim(subjectID)
	if subjectID == "" {
		return nil, apperrors.InvalidInput(subjectIDMessage(scope))
	}

	reviews, err := s.load(ctx, scope, subjectID)
	if err != nil {
		return nil, err
	}

	var userReview *domain.Review
	if voter = trim(voter); voter != "" {
		userReview, err = s.store.Get(ctx, scope, subjectID, voter)
		if err != nil {
			return nil, storageError("get review", err)
		}
	}

	return &ReviewList{
		Reviews:    reviews,
		UserReview: userReview,
		Summary:    domain.Summarize(scope, subjectID, reviews),
	}, nil
}

// Summary aggregates the reviews of a subject.
func (s *ReviewService) Summary(ctx context.Context, scope domain.Scope, subjectID string) (*domain.RatingSummary, error) {
	subjectID = trim(subjectID)
	if subjectID == "" {
		return nil, apperrors.InvalidInput(subjectIDMessage(scope))
	}

	reviews, err := s.load(ctx, scope, subjectID)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(scope, subjectID, reviews)
	return &summary, nil
}

// Submit stores the voter's review, replacing an earlier one for the same
// subject. Inputs are checked in order: subject id, username, rating.
func (s *ReviewService) Submit(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	input.SubjectID = trim(input.SubjectID)
	input.Voter = trim(input.Voter)
	if err := validator.ValidateWithMessages(input, submitReviewMessages(input.Scope)); err != nil {
		return nil, err
	}

	review := &domain.Review{
		Scope:     input.Scope,
		SubjectID: input.SubjectID,
		Voter:     input.Voter,
		Rating:    input.Rating,
		Text:      input.Text,
		Timestamp: s.now(),
	}
	if err := s.store.Upsert(ctx, review); err != nil {
		return nil, storageError("upsert review", err)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("scope", string(review.Scope)),
		slog.String("subject_id", review.SubjectID),
		slog.String("username", review.Voter),
		slog.Int("rating", review.Rating),
	)

	if err := s.publisher.PublishReviewSubmitted(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review event",
			slog.String("subject_id", review.SubjectID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}
