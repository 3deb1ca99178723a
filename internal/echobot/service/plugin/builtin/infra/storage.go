package infra

import (
	"context"
	"fmt"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/storage"
	"github.com/kiosk404/echobot/internal/echobot/service/storage/boltdb"
	"github.com/kiosk404/echobot/pkg/logger"
)

const StorageName = "storage"

// Storage opens the BoltDB file and shares it as a storage.KV.
type Storage struct {
	plugin.Base
	path string
	db   *boltdb.DB
}

func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

func (s *Storage) Meta() plugin.Metadata {
	return plugin.NewMetadata(StorageName, "Persistent key/value storage for plugins")
}

func (s *Storage) Build(_ context.Context, b *plugin.AppBuilder) error {
	db, err := boltdb.Open(s.path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	s.db = db
	plugin.Insert[storage.KV](b.Resources(), db)
	logger.Info("[Storage] opened %s", db.Path())
	return nil
}

func (s *Storage) Cleanup(context.Context, *plugin.App) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) Matches(*event.Context) bool { return false }

func (s *Storage) Handle(context.Context, *event.Context) (*plugin.HandleResult, error) {
	return nil, nil
}
