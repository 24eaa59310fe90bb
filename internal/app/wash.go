package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/costwash/internal/inventory"
	"github.com/odyssey-erp/costwash/internal/shared"
	"github.com/odyssey-erp/costwash/internal/wash"
)

// WashComponents are the pieces the server, worker and CLI share.
type WashComponents struct {
	Service    *wash.Service
	Repository *wash.Repository
}

// NewWashComponents wires the wash service onto postgres and, when rdb is
// non-nil, the redis record lock. recorder may be nil.
func NewWashComponents(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger, recorder wash.Recorder) WashComponents {
	auditLogger := shared.NewAuditLogger(pool, logger)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, inventory.ServiceConfig{})
	adapter := wash.NewInventoryAdapter(inventoryService)

	repo := wash.NewRepository(pool)
	var settings wash.SettingsProvider = wash.StaticSettings{
		AdjustmentAccount: cfg.Wash.AdjustmentAccount,
		HoldingLocation:   cfg.Wash.HoldingLocation,
	}
	if cfg.Wash.SettingsSource == "db" {
		settings = repo
	}

	deps := wash.Deps{
		Store:     repo,
		Inventory: adapter,
		Finder:    adapter,
		Writer:    adapter,
		Settings:  settings,
		Recorder:  recorder,
		Auditor:   auditLogger,
		Logger:    logger,
	}
	if rdb != nil {
		deps.Locker = wash.NewRedisLocker(rdb)
	}
	return WashComponents{
		Service:    wash.NewService(deps, cfg.Wash.LockTTL),
		Repository: repo,
	}
}
