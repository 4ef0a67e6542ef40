// Package identity keeps the local device identity of a hub client: a
// random user id that never changes and an optional display name.
package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// Keys used in the backing KV. They match the names the web client keeps
// in localStorage.
const (
	KeyUserID   = "userId"
	KeyUsername = "username"
)

// Validation messages for SetUsername.
const (
	MsgUsernameRequired = "Username is required"
	MsgUsernameLength   = "Username must be between 3 and 30 characters"
)

// Store reads and writes the identity. Uniqueness of the display name is
// not checked here; the backend decides whether a name is taken.
type Store struct {
	mu sync.Mutex
	kv KV
}

// NewStore creates a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// GetOrCreateUserID returns the persisted user id, generating and saving a
// random UUID the first time.
func (s *Store) GetOrCreateUserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.kv.Get(KeyUserID)
	if err != nil {
		return "", fmt.Errorf("read user id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.kv.Set(KeyUserID, id); err != nil {
		return "", fmt.Errorf("save user id: %w", err)
	}
	return id, nil
}

// Username returns the stored display name, if any.
func (s *Store) Username() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok, err := s.kv.Get(KeyUsername)
	if err != nil {
		return "", false, fmt.Errorf("read username: %w", err)
	}
	return name, ok && name != "", nil
}

// ValidateUsername trims raw and checks its length, returning an
// InvalidInput error with the message the hub would answer with.
func ValidateUsername(raw string) (string, error) {
	name, err := domain.NormalizeUsername(raw)
	switch {
	case errors.Is(err, domain.ErrUsernameRequired):
		return "", apperrors.InvalidInput(MsgUsernameRequired)
	case err != nil:
		return "", apperrors.InvalidInput(MsgUsernameLength)
	}
	return name, nil
}

// SetUsername validates and stores the trimmed display name.
func (s *Store) SetUsername(raw string) (string, error) {
	name, err := ValidateUsername(raw)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(KeyUsername, name); err != nil {
		return "", fmt.Errorf("save username: %w", err)
	}
	return name, nil
}

// ClearUsername forgets the display name. The user id is kept.
func (s *Store) ClearUsername() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(KeyUsername); err != nil {
		return fmt.Errorf("clear username: %w", err)
	}
	return nil
}
