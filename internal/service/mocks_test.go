package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
)

// --- Mock stores ---

type mockVoteStore struct {
	mock.Mock
}

func (m *mockVoteStore) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockVoteStore) Get(ctx context.Context, businessID, voter string) (*domain.Vote, error) {
	args := m.Called(ctx, businessID, voter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vote), args.Error(1)
}

func (m *mockVoteStore) Upsert(ctx context.Context, vote *domain.Vote) error {
	return m.Called(ctx, vote).Error(0)
}

func (m *mockVoteStore) Delete(ctx context.Context, businessID, voter string) error {
	return m.Called(ctx, businessID, voter).Error(0)
}

func (m *mockVoteStore) ListByBusiness(ctx context.Context, businessID string) ([]domain.Vote, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vote), args.Error(1)
}

type mockReviewStore struct {
	mock.Mock
}

func (m *mockReviewStore) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockReviewStore) Get(ctx context.Context, scope domain.Scope, subjectID, voter string) (*domain.Review, error) {
	args := m.Called(ctx, scope, subjectID, voter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewStore) Upsert(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewStore) ListBySubject(ctx context.Context, scope domain.Scope, subjectID string) ([]domain.Review, error) {
	args := m.Called(ctx, scope, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

type mockUsernameStore struct {
	mock.Mock
}

func (m *mockUsernameStore) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUsernameStore) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsernameStore) Create(ctx context.Context, u *domain.Username) error {
	return m.Called(ctx, u).Error(0)
}

// --- Mock publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishVoteCast(ctx context.Context, businessID, voter string, voteType domain.VoteType, counts domain.VoteCounts, at time.Time) error {
	return m.Called(ctx, businessID, voter, voteType, counts, at).Error(0)
}

func (m *mockPublisher) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishUsernameCreated(ctx context.Context, u *domain.Username) error {
	return m.Called(ctx, u).Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
