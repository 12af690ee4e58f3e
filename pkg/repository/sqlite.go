package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/umputun/lepdl/pkg/domain"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteConfig represents database configuration
type SQLiteConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLite keeps snapshots and the download log in a SQLite database
type SQLite struct {
	db *sqlx.DB
}

// episodeSQL represents an episode for SQL operations
type episodeSQL struct {
	ID              int64       `db:"id"`
	Position        int         `db:"position"`
	Number          int         `db:"number"`
	Date            domain.Date `db:"date"`
	Name            string      `db:"name"`
	Title           string      `db:"title"`
	AudioURL        string      `db:"audio_url"`
	ReserveAudioURL string      `db:"reserve_audio_url"`
	PDFURL          string      `db:"pdf_url"`
	PostURL         string      `db:"post_url"`
	FileName        string      `db:"file_name"`
	AudioDownloaded bool        `db:"audio_downloaded"`
	PDFDownloaded   bool        `db:"pdf_downloaded"`
	Stale           bool        `db:"stale"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

// NewSQLite opens the database, applies pragmas and creates the schema
func NewSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:lep.db?cache=shared&mode=rwc&_txlock=immediate"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000", // 5 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sqlx.DB) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// migrate adds columns introduced after the first schema version
func migrate(ctx context.Context, db *sqlx.DB) error {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pragma_table_info('episodes') WHERE name = 'stale'`)
	if err != nil {
		return fmt.Errorf("check stale column: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `ALTER TABLE episodes ADD COLUMN stale BOOLEAN NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add stale column: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the stored snapshot in insertion order
func (s *SQLite) Load(ctx context.Context) ([]domain.Episode, error) {
	var rows []episodeSQL
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM episodes ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	res := make([]domain.Episode, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toDomain())
	}
	return res, nil
}

// Save replaces the stored snapshot in one transaction, retrying on lock conflicts
func (s *SQLite) Save(ctx context.Context, eps []domain.Episode) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	var critical error
	err := retrier.Do(ctx, func() error {
		err := s.save(ctx, eps)
		if err == nil || isLockError(err) {
			return err // nil or retry
		}
		critical = &criticalError{err: err}
		return nil
	})
	if critical != nil {
		return critical
	}
	if err != nil {
		return fmt.Errorf("save episodes: %w", err)
	}
	return s.setSetting(ctx, settingSavedAt, time.Now().UTC().Format(time.RFC3339))
}

func (s *SQLite) save(ctx context.Context, eps []domain.Episode) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM episodes`); err != nil {
		return fmt.Errorf("clear episodes: %w", err)
	}

	query := `
		INSERT INTO episodes (
			position, number, date, name, title, audio_url, reserve_audio_url, pdf_url,
			post_url, file_name, audio_downloaded, pdf_downloaded, stale
		) VALUES (
			:position, :number, :date, :name, :title, :audio_url, :reserve_audio_url, :pdf_url,
			:post_url, :file_name, :audio_downloaded, :pdf_downloaded, :stale
		)
	`
	for i, ep := range eps {
		if _, err = tx.NamedExecContext(ctx, query, fromDomain(i, ep)); err != nil {
			return fmt.Errorf("insert episode %s: %w", ep.Key(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SavedAt returns the time of the last successful save, zero if never saved
func (s *SQLite) SavedAt(ctx context.Context) (time.Time, error) {
	v, err := s.getSetting(ctx, settingSavedAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse saved time: %w", err)
	}
	return t, nil
}

func fromDomain(position int, ep domain.Episode) episodeSQL {
	return episodeSQL{
		Position:        position,
		Number:          ep.Number,
		Date:            ep.Date,
		Name:            ep.Key().Name,
		Title:           ep.Title,
		AudioURL:        ep.AudioURL,
		ReserveAudioURL: ep.ReserveAudioURL,
		PDFURL:          ep.PDFURL,
		PostURL:         ep.PostURL,
		FileName:        ep.FileName,
		AudioDownloaded: ep.AudioDownloaded,
		PDFDownloaded:   ep.PDFDownloaded,
		Stale:           ep.Stale,
	}
}

func (r episodeSQL) toDomain() domain.Episode {
	return domain.Episode{
		Number:          r.Number,
		Date:            r.Date,
		Title:           r.Title,
		AudioURL:        r.AudioURL,
		ReserveAudioURL: r.ReserveAudioURL,
		PDFURL:          r.PDFURL,
		PostURL:         r.PostURL,
		FileName:        r.FileName,
		AudioDownloaded: r.AudioDownloaded,
		PDFDownloaded:   r.PDFDownloaded,
		Stale:           r.Stale,
	}
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }

func (e *criticalError) Unwrap() error { return e.err }

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	var ce *criticalError
	if errors.As(err, &ce) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// noRows reports an empty single-row result
func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
