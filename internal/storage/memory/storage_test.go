package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hostguard/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Ban list tests

func (s *StorageSuite) TestGetBanListNotFound() {
	_, err := s.storage.GetBanList(s.ctx)
	s.ErrorIs(err, model.ErrBanListNotFound)
}

func (s *StorageSuite) TestSaveAndGetBanList() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "first"))
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "second"))

	blob, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	s.Equal("second", blob)
	s.Equal(2, s.storage.BanListSaves())
}

func (s *StorageSuite) TestEmptyBanListIsStored() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, ""))

	blob, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	s.Empty(blob)
}

// Settings tests

func (s *StorageSuite) TestGetSettingsNotFound() {
	_, err := s.storage.GetSettings(s.ctx)
	s.ErrorIs(err, model.ErrSettingsNotFound)
}

func (s *StorageSuite) TestSettingsAreCopied() {
	settings := model.DefaultSettings()
	settings.AutoBanOffensiveName = true
	s.Require().NoError(s.storage.SaveSettings(s.ctx, &settings))

	// Mutating the caller's value must not leak into storage
	settings.OffensiveNames = "changed"

	retrieved, err := s.storage.GetSettings(s.ctx)
	s.Require().NoError(err)
	s.True(retrieved.AutoBanOffensiveName)
	s.Equal(model.DefaultOffensiveNames, retrieved.OffensiveNames)
}
