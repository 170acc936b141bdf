package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BatchConfig holds configuration for bulk insert operations.
type BatchConfig struct {
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
	OnProgress func(processed, total int)
}

// DefaultBatchConfig returns sensible defaults for bulk inserts.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// BatchInsert inserts rows in configurable chunks using COPY.
// Returns the total number of rows inserted and any error encountered.
func (d *DB) BatchInsert(ctx context.Context, tableName string, columns []string, values [][]interface{}, cfg BatchConfig) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	totalInserted := 0
	totalRows := len(values)

	for i := 0; i < len(values); i += cfg.BatchSize {
		end := i + cfg.BatchSize
		if end > len(values) {
			end = len(values)
		}

		inserted, err := d.insertBatch(ctx, tableName, columns, values[i:end], cfg.MaxRetries, cfg.RetryDelay)
		if err != nil {
			return totalInserted, fmt.Errorf("batch insert failed at offset %d: %w", i, err)
		}

		totalInserted += inserted

		if cfg.OnProgress != nil {
			cfg.OnProgress(totalInserted, totalRows)
		}
	}

	return totalInserted, nil
}

func (d *DB) insertBatch(ctx context.Context, tableName string, columns []string, batch [][]interface{}, maxRetries int, retryDelay time.Duration) (int, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		rowsCopied, err := d.Pool.CopyFrom(ctx, []string{tableName}, columns, &batchSource{rows: batch})
		if err == nil {
			return int(rowsCopied), nil
		}

		lastErr = err
		if attempt < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return 0, lastErr
}

// batchSource implements pgx.CopyFromSource.
type batchSource struct {
	rows  [][]interface{}
	index int
}

func (b *batchSource) Next() bool {
	b.index++
	return b.index <= len(b.rows)
}

func (b *batchSource) Values() ([]interface{}, error) {
	return b.rows[b.index-1], nil
}

func (b *batchSource) Err() error {
	return nil
}

// Seeder wraps BatchInsert with progress logging for the seed command.
type Seeder struct {
	db     *DB
	logger *slog.Logger
}

func NewSeeder(db *DB, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, logger: logger}
}

func (s *Seeder) Insert(ctx context.Context, tableName string, columns []string, records [][]interface{}) error {
	if len(records) == 0 {
		return nil
	}

	cfg := DefaultBatchConfig()
	cfg.OnProgress = func(processed, total int) {
		s.logger.Debug("seed_progress", "table", tableName, "processed", processed, "total", total)
	}

	start := time.Now()
	inserted, err := s.db.BatchInsert(ctx, tableName, columns, records, cfg)
	if err != nil {
		s.logger.Error("seed_insert_failed", "table", tableName, "error", err, "inserted", inserted)
		return err
	}

	s.logger.Info("seed_insert_complete", "table", tableName, "rows", inserted, "elapsed", time.Since(start).String())
	return nil
}
