// Package storage defines where a host keeps its ban list and moderation
// settings between runs
package storage

import (
	"context"

	"github.com/mcoot/hostguard/internal/model"
)

// BanListStore persists the encoded ban list. The blob is opaque here;
// the ban store owns its format.
type BanListStore interface {
	// GetBanList returns model.ErrBanListNotFound when nothing was saved
	GetBanList(ctx context.Context) (string, error)
	SaveBanList(ctx context.Context, blob string) error
}

// SettingsStore persists the moderation toggles
type SettingsStore interface {
	// GetSettings returns model.ErrSettingsNotFound when nothing was saved
	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, settings *model.Settings) error
}

// Storage is implemented by every backend
type Storage interface {
	BanListStore
	SettingsStore
}
