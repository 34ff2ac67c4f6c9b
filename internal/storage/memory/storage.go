package memory

import (
	"context"
	"sync"

	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/storage"
)

// Storage keeps everything in process. Contents are lost on exit.
type Storage struct {
	mu sync.RWMutex

	banList  *string
	settings *model.Settings
	banSaves int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{}
}

var _ storage.Storage = (*Storage)(nil)

func (s *Storage) GetBanList(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.banList == nil {
		return "", model.ErrBanListNotFound
	}
	return *s.banList, nil
}

func (s *Storage) SaveBanList(ctx context.Context, blob string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banList = &blob
	s.banSaves++
	return nil
}

// BanListSaves returns how many times the ban list has been written
func (s *Storage) BanListSaves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banSaves
}

func (s *Storage) GetSettings(ctx context.Context) (*model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, model.ErrSettingsNotFound
	}
	settings := *s.settings
	return &settings, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *settings
	s.settings = &stored
	return nil
}
