package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
)

type memSettingsRepo struct {
	mu sync.Mutex
	m  map[string]model.Settings
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{m: make(map[string]model.Settings)}
}

func (r *memSettingsRepo) Get(_ context.Context, _ any, userID string) (*model.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := s
	return &out, nil
}

func (r *memSettingsRepo) Save(_ context.Context, _ any, s *model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.UserID] = *s
	return nil
}

func testStore() *Store {
	logger := zerolog.Nop()
	return NewStore(newMemSettingsRepo(), "claude-sonnet-4-20250514", &logger)
}

func TestGetReturnsDefaultsForNewUser(t *testing.T) {
	s := testStore()
	got, err := s.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DefaultModel != "claude-sonnet-4-20250514" {
		t.Errorf("DefaultModel = %q", got.DefaultModel)
	}
	if !got.ExportTimestamps || !got.PreserveCodeBlocks {
		t.Error("defaults not applied")
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	s := testStore()
	in := model.DefaultSettings("u1", "m")
	in.RetentionDays = 30
	if err := s.Update(context.Background(), in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", got.RetentionDays)
	}
}

func TestUpdateNotifiesListeners(t *testing.T) {
	s := testStore()
	var notified []string
	s.Subscribe(func(st model.Settings) {
		notified = append(notified, st.UserID)
	})
	if err := s.Update(context.Background(), model.DefaultSettings("u1", "m")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(notified) != 1 || notified[0] != "u1" {
		t.Errorf("listeners saw %v", notified)
	}
}

func TestUpdateRejectsMissingUser(t *testing.T) {
	s := testStore()
	err := s.Update(context.Background(), model.Settings{})
	if err != domain.ErrInvalidArgument {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	repo := newMemSettingsRepo()
	logger := zerolog.Nop()
	s := NewStore(repo, "m", &logger)

	in := model.DefaultSettings("u1", "m")
	if err := s.Update(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	// mutate behind the store's back, then invalidate
	in.RetentionDays = 7
	_ = repo.Save(context.Background(), nil, &in)
	s.Invalidate("u1")

	got, _ := s.Get(context.Background(), "u1")
	if got.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7 after invalidate", got.RetentionDays)
	}
}
