package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// DownloadRecord is one finished download attempt of a run
type DownloadRecord struct {
	ID         int64     `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	EpisodeKey string    `db:"episode_key" json:"episode_key"`
	Kind       string    `db:"kind" json:"kind"`
	State      string    `db:"state" json:"state"`
	Source     string    `db:"source" json:"source,omitempty"`
	Error      string    `db:"error" json:"error,omitempty"`
	Bytes      int64     `db:"bytes" json:"bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LogDownloads stores the outcomes of a run
func (s *SQLite) LogDownloads(ctx context.Context, records []DownloadRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `
		INSERT INTO downloads (run_id, episode_key, kind, state, source, error, bytes)
		VALUES (:run_id, :episode_key, :kind, :state, :source, :error, :bytes)
	`
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	var critical error
	err := retrier.Do(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, r := range records {
			if _, err := tx.NamedExecContext(ctx, query, r); err != nil {
				if isLockError(err) {
					return err // repeater will retry this
				}
				critical = &criticalError{err: fmt.Errorf("insert download record: %w", err)}
				return nil
			}
		}
		return tx.Commit()
	})
	if critical != nil {
		return critical
	}
	if err != nil {
		return fmt.Errorf("log downloads: %w", err)
	}
	return nil
}

// Downloads returns records of the run in insertion order
func (s *SQLite) Downloads(ctx context.Context, runID string) ([]DownloadRecord, error) {
	var res []DownloadRecord
	err := s.db.SelectContext(ctx, &res, `SELECT * FROM downloads WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get downloads of run %s: %w", runID, err)
	}
	return res, nil
}
