package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/catalog"
	"github.com/oggyb/matchbot/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, photo store, catalog)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Photos     *storage.PhotoStore
	Catalog    *catalog.Catalog
}

// New creates a new AppContext. The question catalog defaults to the embedded seed.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, photos *storage.PhotoStore) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Photos:     photos,
		Catalog:    catalog.Default(),
	}
}
