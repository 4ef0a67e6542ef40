package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/domain"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// UsernameService manages the username registry.
type UsernameService struct {
	store     repository.UsernameStore
	publisher EventPublisher
	logger    *slog.Logger
	now       Clock
}

// NewUsernameService creates a username service.
func NewUsernameService(store repository.UsernameStore, publisher EventPublisher, logger *slog.Logger) *UsernameService {
	return &UsernameService{store: store, publisher: publisher, logger: logger, now: utcNow}
}

// Exists reports whether the trimmed name is registered.
func (s *UsernameService) Exists(ctx context.Context, name string) (bool, error) {
	name = trim(name)
	if name == "" {
		return false, apperrors.InvalidInput(MsgUsernameRequired)
	}
	ok, err := s.store.Exists(ctx, name)
	if err != nil {
		return false, storageError("check username", err)
	}
	return ok, nil
}

// Create registers a name. The existence check and the insert are separate
// steps; stores that refuse duplicates atomically report the loser of a race
// as taken as well.
func (s *UsernameService) Create(ctx context.Context, raw string) (*domain.Username, error) {
	name, err := domain.NormalizeUsername(raw)
	switch {
	case errors.Is(err, domain.ErrUsernameRequired):
		return nil, apperrors.InvalidInput(MsgUsernameRequired)
	case err != nil:
		return nil, apperrors.InvalidInput(MsgUsernameLength)
	}

	taken, err := s.store.Exists(ctx, name)
	if err != nil {
		return nil, storageError("check username", err)
	}
	if taken {
		return nil, apperrors.AlreadyExists(MsgUsernameTaken)
	}

	u := &domain.Username{Name: name, CreatedAt: s.now()}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists(MsgUsernameTaken)
		}
		return nil, storageError("create username", err)
	}

	s.logger.InfoContext(ctx, "username created", slog.String("username", u.Name))

	if err := s.publisher.PublishUsernameCreated(ctx, u); err != nil {
		s.logger.WarnContext(ctx, "failed to publish username event",
			slog.String("username", u.Name),
			slog.String("error", err.Error()),
		)
	}
	return u, nil
}
