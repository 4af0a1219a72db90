package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/postgres"
	"github.com/geoquiz/internal/ranking"
	"github.com/geoquiz/internal/redis"
)

// SyncWorker periodically rebuilds the Redis ranking buckets from the
// PostgreSQL system of record. Redis is a cache here: a flush or failover
// loses nothing that the next sync cycle cannot restore.
type SyncWorker struct {
	store    *redis.RankingStore
	postgres *postgres.Repository
	config   *config.SyncConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	store *redis.RankingStore,
	pg *postgres.Repository,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		store:    store,
		postgres: pg,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// syncAll rebuilds the current buckets of every known game type
func (w *SyncWorker) syncAll(ctx context.Context) {
	w.logger.Info("starting sync cycle")
	startTime := time.Now()

	gameTypes, err := w.postgres.ListGameTypes(ctx)
	if err != nil {
		w.logger.Error("failed to list game types for sync", "error", err)
		return
	}

	syncedCount := 0
	errorCount := 0

	for _, gameType := range gameTypes {
		if err := w.SyncGameType(ctx, gameType); err != nil {
			w.logger.Error("failed to sync game type",
				"game_type", gameType,
				"error", err,
			)
			errorCount++
		} else {
			syncedCount++
		}
	}

	duration := time.Since(startTime)
	w.logger.Info("sync cycle completed",
		"duration", duration,
		"synced", syncedCount,
		"errors", errorCount,
	)
}

// SyncGameType rebuilds all current-period buckets of one game type from
// the database
func (w *SyncWorker) SyncGameType(ctx context.Context, gameType string) error {
	w.logger.Debug("syncing game type", "game_type", gameType)

	now := time.Now().UTC()
	for _, period := range domain.Periods {
		periodKey := ranking.PeriodKey(period, now)
		start, end := ranking.PeriodRange(period, now)

		for _, mode := range []domain.SortMode{domain.SortModeTotal, domain.SortModeBest} {
			scores, err := w.postgres.AggregateScores(ctx, gameType, start, end, mode)
			if err != nil {
				return err
			}

			if err := w.store.ReplaceBucket(ctx, gameType, period, periodKey, mode, scores); err != nil {
				return err
			}
		}
	}

	return nil
}

// SyncAllFromDatabase rebuilds every current bucket from PostgreSQL.
// Called at startup so a cold or flushed Redis serves correct rankings
// immediately.
func (w *SyncWorker) SyncAllFromDatabase(ctx context.Context) error {
	w.logger.Info("rebuilding ranking buckets from database")

	gameTypes, err := w.postgres.ListGameTypes(ctx)
	if err != nil {
		return err
	}

	for _, gameType := range gameTypes {
		if err := w.SyncGameType(ctx, gameType); err != nil {
			w.logger.Error("failed to rebuild game type from database",
				"game_type", gameType,
				"error", err,
			)
			// Continue with other game types
		}
	}

	w.logger.Info("completed rebuilding ranking buckets", "game_types", len(gameTypes))
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sync cycle (useful for manual triggers)
func (w *SyncWorker) RunOnce(ctx context.Context) {
	w.syncAll(ctx)
}
