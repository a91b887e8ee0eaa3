package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	user_id         TEXT    NOT NULL,
	stage_id        INTEGER NOT NULL,
	exercise_id     INTEGER NOT NULL,
	current_item_id INTEGER NOT NULL,
	completed       INTEGER NOT NULL DEFAULT 0,
	completed_at    DATETIME,
	updated_at      DATETIME NOT NULL,
	PRIMARY KEY (user_id, stage_id, exercise_id)
);
CREATE TABLE IF NOT EXISTS learners (
	user_id        TEXT PRIMARY KEY,
	initialized_at DATETIME NOT NULL
);
`

// SQLiteStore keeps records in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create progress db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open progress db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate progress db: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (practice.ProgressRecord, bool, error) {
	query := `
		SELECT current_item_id, completed, completed_at
		FROM progress
		WHERE user_id = ? AND stage_id = ? AND exercise_id = ?
	`
	rec := practice.ProgressRecord{UserID: key.UserID, StageID: key.StageID, ExerciseID: key.ExerciseID}
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, key.UserID, key.StageID, key.ExerciseID).Scan(
		&rec.CurrentItemID,
		&rec.Completed,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return practice.ProgressRecord{}, false, nil
	}
	if err != nil {
		return practice.ProgressRecord{}, false, fmt.Errorf("%w: %w", practice.ErrProgressSync, err)
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return rec, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, rec practice.ProgressRecord) error {
	now := s.now().UTC()
	var completedAt any
	if rec.Completed {
		if rec.CompletedAt != nil {
			completedAt = rec.CompletedAt.UTC()
		} else {
			completedAt = now
		}
	}
	query := `
		INSERT INTO progress (user_id, stage_id, exercise_id, current_item_id, completed, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, stage_id, exercise_id) DO UPDATE SET
			current_item_id = excluded.current_item_id,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, rec.UserID, rec.StageID, rec.ExerciseID, rec.CurrentItemID, rec.Completed, completedAt, now); err != nil {
		return fmt.Errorf("%w: %w", practice.ErrProgressSync, err)
	}
	return nil
}

func (s *SQLiteStore) Init(ctx context.Context, userID string) error {
	query := `INSERT OR IGNORE INTO learners (user_id, initialized_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, userID, s.now().UTC()); err != nil {
		return fmt.Errorf("%w: %w", practice.ErrProgressSync, err)
	}
	return nil
}

// Ping checks the database is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
