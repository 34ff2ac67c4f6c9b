package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hostguard/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Ban list tests

func (s *StorageSuite) TestGetBanListNotFound() {
	_, err := s.storage.GetBanList(s.ctx)
	s.ErrorIs(err, model.ErrBanListNotFound)
}

func (s *StorageSuite) TestSaveAndGetBanList() {
	blob := "76561¤¤Alice¤¤2024-01-01 12:00:00¤¤Manual"
	s.Require().NoError(s.storage.SaveBanList(s.ctx, blob))

	retrieved, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	s.Equal(blob, retrieved)
}

func (s *StorageSuite) TestBanListUsesPrefixedKey() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "blob"))

	value, err := s.mini.Get("hostguard:banlist")
	s.Require().NoError(err)
	s.Equal("blob", value)
}

func (s *StorageSuite) TestCustomPrefixIsolatesHosts() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.KeyPrefix = "other"
	other := NewWithClient(client, cfg)
	defer func() { _ = other.Close() }()

	s.Require().NoError(s.storage.SaveBanList(s.ctx, "mine"))

	_, err := other.GetBanList(s.ctx)
	s.ErrorIs(err, model.ErrBanListNotFound)
}

// Settings tests

func (s *StorageSuite) TestGetSettingsNotFound() {
	_, err := s.storage.GetSettings(s.ctx)
	s.ErrorIs(err, model.ErrSettingsNotFound)
}

func (s *StorageSuite) TestSaveAndGetSettings() {
	settings := model.DefaultSettings()
	settings.AutoBanInvalidRank = true
	settings.OffensiveNames = "foo,bar"

	s.Require().NoError(s.storage.SaveSettings(s.ctx, &settings))

	retrieved, err := s.storage.GetSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(settings, *retrieved)
}

func (s *StorageSuite) TestGetSettingsCorrupt() {
	s.Require().NoError(s.mini.Set("hostguard:settings", "{not json"))

	_, err := s.storage.GetSettings(s.ctx)
	s.Error(err)
}

func (s *StorageSuite) TestNewConnectsWithURL() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	cfg.KeyPrefix = "viaurl"

	store, err := New(cfg)
	s.Require().NoError(err)
	defer func() { _ = store.Close() }()

	s.Require().NoError(store.SaveBanList(s.ctx, "blob"))
	s.True(s.mini.Exists("viaurl:banlist"))
}

func (s *StorageSuite) TestNewRejectsBadConfig() {
	cfg := DefaultConfig()
	cfg.URL = ""
	_, err := New(cfg)
	s.Error(err)

	cfg.URL = "not-a-url"
	_, err = New(cfg)
	s.Error(err)
}
