// Package settings holds user preferences in an explicitly constructed,
// explicitly loaded store. The source this replaces kept settings in a
// module-level singleton; here the store is built in the composition root,
// loaded from its repository, and handed to whoever needs it.
package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
)

// Listener is notified after a user's settings change. Callbacks run
// synchronously under no lock; they must not call back into the store's
// write path.
type Listener func(model.Settings)

type Store struct {
	repo         repository.SettingsRepository
	defaultModel string
	log          *zerolog.Logger

	mu        sync.RWMutex
	byUser    map[string]model.Settings
	listeners []Listener
}

func NewStore(repo repository.SettingsRepository, defaultModel string, logger *zerolog.Logger) *Store {
	return &Store{
		repo:         repo,
		defaultModel: defaultModel,
		log:          logger,
		byUser:       make(map[string]model.Settings),
	}
}

// Subscribe registers a change listener. Intended for startup wiring;
// there is no unsubscribe.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get returns the user's settings, loading from the repository on first use
// and falling back to defaults when none were ever saved.
func (s *Store) Get(ctx context.Context, userID string) (model.Settings, error) {
	s.mu.RLock()
	if cached, ok := s.byUser[userID]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	loaded, err := s.repo.Get(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.DefaultSettings(userID, s.defaultModel), nil
		}
		return model.Settings{}, err
	}

	s.mu.Lock()
	s.byUser[userID] = *loaded
	s.mu.Unlock()
	return *loaded, nil
}

// Update persists new settings and notifies listeners.
func (s *Store) Update(ctx context.Context, updated model.Settings) error {
	if updated.UserID == "" {
		return domain.ErrInvalidArgument
	}
	if updated.DefaultModel == "" {
		updated.DefaultModel = s.defaultModel
	}
	if err := s.repo.Save(ctx, repository.NoTX, &updated); err != nil {
		return err
	}

	s.mu.Lock()
	s.byUser[updated.UserID] = updated
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(updated)
	}
	s.log.Debug().Str("user_id", updated.UserID).Msg("settings updated")
	return nil
}

// Invalidate drops the cached copy, forcing a repository reload on next Get.
func (s *Store) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.byUser, userID)
	s.mu.Unlock()
}
