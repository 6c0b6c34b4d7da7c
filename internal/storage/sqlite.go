package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteArchive implements Archive with a local sqlite database, so
// finished scenes survive process restarts.
type SQLiteArchive struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteArchive implements Archive interface
var _ Archive = (*SQLiteArchive)(nil)

// NewSQLiteArchive opens (creating if needed) the archive database.
func NewSQLiteArchive(dbPath string, logger *slog.Logger) (*SQLiteArchive, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}

	a := &SQLiteArchive{conn: conn, logger: logger}
	if err := a.migrate(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *SQLiteArchive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scenes_session ON scenes(session_id);
	`
	if _, err := a.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return nil
}

// Save appends a finalized scene to the archive.
func (a *SQLiteArchive) Save(ctx context.Context, sessionID uuid.UUID, content string) error {
	_, err := a.conn.ExecContext(ctx,
		`INSERT INTO scenes (session_id, content) VALUES (?, ?)`,
		sessionID.String(), content)
	if err != nil {
		a.logger.Error("Failed to archive scene", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to archive scene: %w", err)
	}
	return nil
}

// Recent returns up to n archived scenes, newest first.
func (a *SQLiteArchive) Recent(ctx context.Context, n int) ([]string, error) {
	rows, err := a.conn.QueryContext(ctx,
		`SELECT content FROM scenes ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scenes []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan archived scene: %w", err)
		}
		scenes = append(scenes, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive rows: %w", err)
	}

	return scenes, nil
}

func (a *SQLiteArchive) Close() error {
	return a.conn.Close()
}
