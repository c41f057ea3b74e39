// Package store persists vital-sign samples in SQLite. The insight core only
// ever reads from it through History.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/careahead/vitalscope/internal/store/migrations"
	"github.com/careahead/vitalscope/internal/vitals"
)

// Seeder ranges, matching the demo data the mobile app shipped with.
const (
	SeedDays         = 100
	seedMinHeartRate = 55
	seedMaxHeartRate = 95
	seedMinBreathing = 12
	seedMaxBreathing = 20
)

// Store is a SQLite-backed sample store.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger.Named("store")}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		s.logger.Debug("applied migration", zap.String("name", name))
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, sample vitals.Sample) (int64, error) {
	var sleep sql.NullFloat64
	if hours, ok := sample.Sleep(); ok {
		sleep = sql.NullFloat64{Float64: hours, Valid: true}
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO samples (recorded_at, recorded_unix, heart_rate, breathing_rate, sleep_hours, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sample.Timestamp.Format(time.RFC3339Nano), sample.Timestamp.UnixNano(),
		sample.HeartRate, sample.BreathingRate, sleep, sample.Notes)
	if err != nil {
		return 0, fmt.Errorf("inserting sample: %w", err)
	}
	return res.LastInsertId()
}

// Add validates and stores one sample, returning its row id.
func (s *Store) Add(ctx context.Context, sample vitals.Sample) (int64, error) {
	if err := sample.Validate(); err != nil {
		return 0, err
	}
	id, err := insert(ctx, s.db, sample)
	if err != nil {
		return 0, err
	}
	s.logger.Info("sample stored",
		zap.Int64("id", id),
		zap.Time("timestamp", sample.Timestamp),
		zap.Int("heart_rate", sample.HeartRate),
		zap.Int("breathing_rate", sample.BreathingRate),
	)
	return id, nil
}

// History returns every stored sample, oldest first.
func (s *Store) History(ctx context.Context) ([]vitals.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, heart_rate, breathing_rate, sleep_hours, notes
		FROM samples
		ORDER BY recorded_unix ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []vitals.Sample
	for rows.Next() {
		var (
			recordedAt string
			sample     vitals.Sample
			sleep      sql.NullFloat64
		)
		if err := rows.Scan(&recordedAt, &sample.HeartRate, &sample.BreathingRate, &sleep, &sample.Notes); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		sample.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", recordedAt, err)
		}
		if sleep.Valid {
			sample.SleepHours = vitals.Hours(sleep.Float64)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return samples, nil
}

// Count returns the number of stored samples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting samples: %w", err)
	}
	return n, nil
}

// ErrNotEmpty is returned by Seed when the store already holds samples.
var ErrNotEmpty = errors.New("store already has samples")

// Seed fills an empty store with one synthetic noon sample for each of the
// days before ref. It never touches a store that already has data.
func (s *Store) Seed(ctx context.Context, days int, ref time.Time, rng *rand.Rand) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, ErrNotEmpty
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	today := vitals.Day(ref)
	for daysAgo := days; daysAgo >= 1; daysAgo-- {
		day := today.AddDate(0, 0, -daysAgo)
		sample := vitals.Sample{
			Timestamp:     time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location()),
			HeartRate:     seedMinHeartRate + rng.Intn(seedMaxHeartRate-seedMinHeartRate+1),
			BreathingRate: seedMinBreathing + rng.Intn(seedMaxBreathing-seedMinBreathing+1),
		}
		if _, err := insert(ctx, tx, sample); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	s.logger.Info("seeded demo history", zap.Int("days", days))
	return days, nil
}
