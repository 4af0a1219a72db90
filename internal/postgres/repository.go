package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
)

// Repository is the PostgreSQL system of record: one row per completed
// game, cumulative per-type user stats, and resolved duels.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS game_results (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			game_type VARCHAR(128) NOT NULL,
			score BIGINT NOT NULL,
			total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			rounds INT NOT NULL DEFAULT 0,
			duration_seconds BIGINT NOT NULL DEFAULT 0,
			played_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id VARCHAR(64) NOT NULL,
			game_type VARCHAR(128) NOT NULL,
			total_games BIGINT NOT NULL DEFAULT 0,
			total_rounds BIGINT NOT NULL DEFAULT 0,
			total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_score BIGINT NOT NULL DEFAULT 0,
			best_score BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, game_type)
		)`,
		`CREATE TABLE IF NOT EXISTS duel_results (
			id VARCHAR(64) PRIMARY KEY,
			game_type VARCHAR(128) NOT NULL,
			challenger_id VARCHAR(64) NOT NULL,
			accepter_id VARCHAR(64) NOT NULL,
			challenger_score BIGINT NOT NULL,
			challenger_time BIGINT NOT NULL,
			accepter_score BIGINT NOT NULL,
			accepter_time BIGINT NOT NULL,
			winner VARCHAR(16) NOT NULL,
			resolved_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_type_time ON game_results(game_type, played_at)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_user ON game_results(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_score ON game_results(game_type, score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_duel_results_challenger ON duel_results(challenger_id, resolved_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// InsertGameResult stores one completed game
func (r *Repository) InsertGameResult(ctx context.Context, result domain.GameResult, playedAt time.Time) error {
	query := `
		INSERT INTO game_results (id, user_id, game_type, score, total_distance_km, rounds, duration_seconds, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		result.GameID,
		result.UserID,
		result.GameType,
		result.Score,
		result.TotalDistanceKm,
		len(result.Rounds),
		result.DurationSeconds,
		playedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting game result: %w", err)
	}
	return nil
}

// ApplyGameToStats folds one game into the player's cumulative stats.
// A single additive upsert, so concurrent games from multiple devices
// cannot lose updates.
func (r *Repository) ApplyGameToStats(ctx context.Context, result domain.GameResult) error {
	query := `
		INSERT INTO user_stats (user_id, game_type, total_games, total_rounds, total_distance_km, total_score, best_score, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5, $5, $6)
		ON CONFLICT (user_id, game_type)
		DO UPDATE SET
			total_games = user_stats.total_games + 1,
			total_rounds = user_stats.total_rounds + $3,
			total_distance_km = user_stats.total_distance_km + $4,
			total_score = user_stats.total_score + $5,
			best_score = GREATEST(user_stats.best_score, $5),
			updated_at = $6
	`
	_, err := r.pool.Exec(ctx, query,
		result.UserID,
		result.GameType,
		len(result.Rounds),
		result.TotalDistanceKm,
		result.Score,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("applying game to stats: %w", err)
	}
	return nil
}

// GetUserStats returns a player's per-game-type stats rows
func (r *Repository) GetUserStats(ctx context.Context, userID string) ([]domain.UserStats, error) {
	query := `
		SELECT user_id, game_type, total_games, total_rounds, total_distance_km, total_score, best_score
		FROM user_stats
		WHERE user_id = $1
		ORDER BY game_type
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.UserStats
	for rows.Next() {
		var s domain.UserStats
		err := rows.Scan(
			&s.UserID,
			&s.GameType,
			&s.TotalGames,
			&s.TotalRounds,
			&s.TotalDistanceKm,
			&s.TotalScore,
			&s.BestScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user stats: %w", err)
		}
		if s.TotalRounds > 0 {
			s.AverageDistanceKm = s.TotalDistanceKm / float64(s.TotalRounds)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// GetTotalScore returns a player's lifetime score across all game types
func (r *Repository) GetTotalScore(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(SUM(total_score), 0) FROM user_stats WHERE user_id = $1`
	var total int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("getting total score: %w", err)
	}
	return total, nil
}

// GetTopGames returns the per-game leaderboard of one time window: each
// stored game is its own row, so a player may appear more than once.
// Ties break to the earlier game, then the lower user id.
func (r *Repository) GetTopGames(ctx context.Context, gameType string, start, end time.Time, limit, offset int) ([]domain.GameRecord, error) {
	query := `
		SELECT id, user_id, game_type, score, played_at,
			   ROW_NUMBER() OVER (ORDER BY score DESC, played_at ASC, user_id ASC) as rank
		FROM game_results
		WHERE game_type = $1 AND played_at >= $2 AND played_at < $3
		ORDER BY score DESC, played_at ASC, user_id ASC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, gameType, start, end, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("getting top games: %w", err)
	}
	defer rows.Close()

	var records []domain.GameRecord
	for rows.Next() {
		var rec domain.GameRecord
		err := rows.Scan(&rec.GameID, &rec.UserID, &rec.GameType, &rec.Score, &rec.PlayedAt, &rec.Rank)
		if err != nil {
			return nil, fmt.Errorf("scanning game record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountGames returns the number of stored games for a game type in a window
func (r *Repository) CountGames(ctx context.Context, gameType string, start, end time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM game_results WHERE game_type = $1 AND played_at >= $2 AND played_at < $3`
	var count int64
	if err := r.pool.QueryRow(ctx, query, gameType, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting games: %w", err)
	}
	return count, nil
}

// AggregateScores recomputes one bucket's per-player scores from stored
// games: summed per player for the total mode, maximum for best.
func (r *Repository) AggregateScores(ctx context.Context, gameType string, start, end time.Time, mode domain.SortMode) (map[string]int64, error) {
	agg := "SUM(score)"
	if mode == domain.SortModeBest {
		agg = "MAX(score)"
	}
	query := fmt.Sprintf(`
		SELECT user_id, %s
		FROM game_results
		WHERE game_type = $1 AND played_at >= $2 AND played_at < $3
		GROUP BY user_id
	`, agg)

	rows, err := r.pool.Query(ctx, query, gameType, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregating scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]int64)
	for rows.Next() {
		var userID string
		var score int64
		if err := rows.Scan(&userID, &score); err != nil {
			return nil, fmt.Errorf("scanning aggregate: %w", err)
		}
		scores[userID] = score
	}
	return scores, nil
}

// ListGameTypes returns every game type that has at least one stored game
func (r *Repository) ListGameTypes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT game_type FROM game_results ORDER BY game_type`)
	if err != nil {
		return nil, fmt.Errorf("listing game types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning game type: %w", err)
		}
		types = append(types, t)
	}
	return types, nil
}

// MigrateGuestResults re-attributes every game and stats row of a guest
// identity to a claimed account inside a single transaction. Re-running
// after completion finds no guest rows and changes nothing.
func (r *Repository) MigrateGuestResults(ctx context.Context, guestID, userID string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE game_results SET user_id = $2 WHERE user_id = $1`, guestID, userID)
	if err != nil {
		return 0, fmt.Errorf("migrating game results: %w", err)
	}
	migrated := result.RowsAffected()

	// Merge the guest's per-type stats into the account's rows, additively
	_, err = tx.Exec(ctx, `
		INSERT INTO user_stats (user_id, game_type, total_games, total_rounds, total_distance_km, total_score, best_score, updated_at)
		SELECT $2, game_type, total_games, total_rounds, total_distance_km, total_score, best_score, $3
		FROM user_stats
		WHERE user_id = $1
		ON CONFLICT (user_id, game_type)
		DO UPDATE SET
			total_games = user_stats.total_games + EXCLUDED.total_games,
			total_rounds = user_stats.total_rounds + EXCLUDED.total_rounds,
			total_distance_km = user_stats.total_distance_km + EXCLUDED.total_distance_km,
			total_score = user_stats.total_score + EXCLUDED.total_score,
			best_score = GREATEST(user_stats.best_score, EXCLUDED.best_score),
			updated_at = $3
	`, guestID, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("merging guest stats: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_stats WHERE user_id = $1`, guestID); err != nil {
		return 0, fmt.Errorf("removing guest stats: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE duel_results SET challenger_id = $2 WHERE challenger_id = $1`, guestID, userID)
	if err != nil {
		return 0, fmt.Errorf("migrating duel challenger rows: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE duel_results SET accepter_id = $2 WHERE accepter_id = $1`, guestID, userID)
	if err != nil {
		return 0, fmt.Errorf("migrating duel accepter rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing migration: %w", err)
	}
	return migrated, nil
}

// InsertDuelResult stores a resolved duel
func (r *Repository) InsertDuelResult(ctx context.Context, result domain.DuelResult) error {
	query := `
		INSERT INTO duel_results (id, game_type, challenger_id, accepter_id, challenger_score, challenger_time, accepter_score, accepter_time, winner, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		result.DuelID,
		result.GameType,
		result.ChallengerID,
		result.AccepterID,
		result.ChallengerScore,
		result.ChallengerTime,
		result.AccepterScore,
		result.AccepterTime,
		string(result.Winner),
		result.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting duel result: %w", err)
	}
	return nil
}

// GetDuelResult retrieves a resolved duel by id
func (r *Repository) GetDuelResult(ctx context.Context, duelID string) (*domain.DuelResult, error) {
	query := `
		SELECT id, game_type, challenger_id, accepter_id, challenger_score, challenger_time, accepter_score, accepter_time, winner, resolved_at
		FROM duel_results
		WHERE id = $1
	`
	var result domain.DuelResult
	var winner string
	err := r.pool.QueryRow(ctx, query, duelID).Scan(
		&result.DuelID,
		&result.GameType,
		&result.ChallengerID,
		&result.AccepterID,
		&result.ChallengerScore,
		&result.ChallengerTime,
		&result.AccepterScore,
		&result.AccepterTime,
		&winner,
		&result.ResolvedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDuelNotFound
		}
		return nil, fmt.Errorf("getting duel result: %w", err)
	}
	result.Winner = domain.DuelSide(winner)
	return &result, nil
}

// ListUserDuels returns a player's resolved duels, newest first
func (r *Repository) ListUserDuels(ctx context.Context, userID string, limit int) ([]domain.DuelResult, error) {
	query := `
		SELECT id, game_type, challenger_id, accepter_id, challenger_score, challenger_time, accepter_score, accepter_time, winner, resolved_at
		FROM duel_results
		WHERE challenger_id = $1 OR accepter_id = $1
		ORDER BY resolved_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing user duels: %w", err)
	}
	defer rows.Close()

	var results []domain.DuelResult
	for rows.Next() {
		var result domain.DuelResult
		var winner string
		err := rows.Scan(
			&result.DuelID,
			&result.GameType,
			&result.ChallengerID,
			&result.AccepterID,
			&result.ChallengerScore,
			&result.ChallengerTime,
			&result.AccepterScore,
			&result.AccepterTime,
			&winner,
			&result.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning duel result: %w", err)
		}
		result.Winner = domain.DuelSide(winner)
		results = append(results, result)
	}
	return results, nil
}
