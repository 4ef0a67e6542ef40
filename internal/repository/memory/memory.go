// Package memory keeps the ledgers in process memory. Data is lost on
// restart; it backs development runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

type voteKey struct{ business, voter string }

// VoteStore is a map-backed repository.VoteStore.
type VoteStore struct {
	mu    sync.RWMutex
	votes map[voteKey]domain.Vote
}

// NewVoteStore returns an empty store.
func NewVoteStore() *VoteStore {
	return &VoteStore{votes: make(map[voteKey]domain.Vote)}
}

func (s *VoteStore) EnsureSchema(context.Context) error { return nil }

func (s *VoteStore) Get(_ context.Context, businessID, voter string) (*domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[voteKey{businessID, voter}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *VoteStore) Upsert(_ context.Context, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[voteKey{vote.BusinessID, vote.Voter}] = *vote
	return nil
}

func (s *VoteStore) Delete(_ context.Context, businessID, voter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.votes, voteKey{businessID, voter})
	return nil
}

func (s *VoteStore) ListByBusiness(_ context.Context, businessID string) ([]domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Vote{}
	for k, v := range s.votes {
		if k.business == businessID {
			out = append(out, v)
		}
	}
	return out, nil
}

type reviewKey struct {
	scope          domain.Scope
	subject, voter string
}

// ReviewStore is a map-backed repository.ReviewStore.
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[reviewKey]domain.Review
}

// NewReviewStore returns an empty store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[reviewKey]domain.Review)}
}

func (s *ReviewStore) EnsureSchema(context.Context) error { return nil }

func (s *ReviewStore) Get(_ context.Context, scope domain.Scope, subjectID, voter string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewKey{scope, subjectID, voter}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *ReviewStore) Upsert(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[reviewKey{review.Scope, review.SubjectID, review.Voter}] = *review
	return nil
}

func (s *ReviewStore) ListBySubject(_ context.Context, scope domain.Scope, subjectID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Review{}
	for k, r := range s.reviews {
		if k.scope == scope && k.subject == subjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

// UsernameStore is a map-backed repository.UsernameStore.
type UsernameStore struct {
	mu    sync.RWMutex
	names map[string]domain.Username
}

// NewUsernameStore returns an empty registry.
func NewUsernameStore() *UsernameStore {
	return &UsernameStore{names: make(map[string]domain.Username)}
}

func (s *UsernameStore) EnsureSchema(context.Context) error { return nil }

func (s *UsernameStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[name]
	return ok, nil
}

func (s *UsernameStore) Create(_ context.Context, u *domain.Username) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[u.Name]; ok {
		return apperrors.AlreadyExists("Username already exists")
	}
	s.names[u.Name] = *u
	return nil
}
