package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/storage/badger"
	"github.com/ternarybob/equitylens/internal/storage/filecache"
	"github.com/ternarybob/equitylens/internal/storage/sqlite"
)

// NewCacheStore creates the cache backend selected by [storage] type
func NewCacheStore(logger arbor.ILogger, config *common.Config) (interfaces.CacheStore, error) {
	switch config.Storage.Type {
	case "sqlite", "":
		db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		return sqlite.NewCacheStore(db, logger), nil

	case "file":
		return filecache.NewStore(config.Storage.File.Root, logger)

	case "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return badger.NewCacheStore(db, logger), nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected sqlite, file or badger)", config.Storage.Type)
	}
}
