package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/internal/repository"
	apperrors "github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/errors"
)

// SchemaService runs EnsureSchema on every store until it succeeds once.
// After the first success it never touches the stores again; a failure is
// retried by the next caller.
type SchemaService struct {
	mu     sync.Mutex
	ready  bool
	stores []repository.Schema
	logger *slog.Logger
}

// NewSchemaService guards stores.
func NewSchemaService(logger *slog.Logger, stores ...repository.Schema) *SchemaService {
	return &SchemaService{stores: stores, logger: logger}
}

// Ensure prepares every store. Concurrent callers wait for one attempt.
func (s *SchemaService) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	for i, st := range s.stores {
		if err := st.EnsureSchema(ctx); err != nil {
			s.logger.ErrorContext(ctx, "schema ensure failed",
				slog.Int("store", i),
				slog.String("error", err.Error()),
			)
			return apperrors.Storage(MsgFailedToInitialize, fmt.Errorf("ensure schema: %w", err))
		}
	}

	s.ready = true
	s.logger.InfoContext(ctx, "schema ready", slog.Int("stores", len(s.stores)))
	return nil
}

// Ready reports whether Ensure has succeeded.
func (s *SchemaService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
