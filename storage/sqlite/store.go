package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai_dungeon_master/storage"
	"ai_dungeon_master/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store keeps save games in a single SQLite table.
type Store struct {
	db *sql.DB
}

var _ storage.SaveStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, rec storage.SaveRecord) (int64, error) {
	if strings.TrimSpace(rec.PlayerName) == "" {
		return 0, fmt.Errorf("player name is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	history := rec.HistoryJSON
	if len(history) == 0 {
		history = []byte("[]")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (player_name, created_at, mode, history, offline_story_id, offline_segment)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.PlayerName,
		rec.CreatedAt.UTC().UnixNano(),
		rec.Mode,
		string(history),
		rec.OfflineStoryID,
		rec.OfflineSegmentIndex,
	)
	if err != nil {
		return 0, fmt.Errorf("insert save: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert save: %w", err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context) ([]storage.SaveSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_name, created_at FROM saves ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []storage.SaveSummary
	for rows.Next() {
		var (
			sum     storage.SaveSummary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.PlayerName, &created); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (storage.SaveRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, player_name, created_at, mode, history, offline_story_id, offline_segment
		 FROM saves WHERE id = ?`, id)

	var (
		rec     storage.SaveRecord
		created int64
		history string
	)
	if err := row.Scan(&rec.ID, &rec.PlayerName, &created, &rec.Mode, &history, &rec.OfflineStoryID, &rec.OfflineSegmentIndex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SaveRecord{}, false, nil
		}
		return storage.SaveRecord{}, false, fmt.Errorf("get save: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.HistoryJSON = []byte(history)
	return rec, true, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}
