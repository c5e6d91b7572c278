package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding per-session conversation logs and
// candidate field tables.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "scout.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Messages ---

// AppendMessage appends one message to the session's conversation log.
func (s *Store) AppendMessage(sessionID, role, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, role, content, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListMessages returns the session's messages in insertion order. A limit
// <= 0 returns the full log.
func (s *Store) ListMessages(sessionID string, limit int) ([]Message, error) {
	query := `SELECT seq, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY seq ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns the last n messages of the session in
// chronological order.
func (s *Store) RecentMessages(sessionID string, n int) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT seq, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ClearMessages deletes the session's entire conversation log.
func (s *Store) ClearMessages(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE session_id = ?", sessionID)
	return err
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.Seq, &m.SessionID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.CreatedAt = t
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// --- Candidate fields ---

// UpsertField stores one candidate field value, replacing any prior value
// for the same field (last write wins).
func (s *Store) UpsertField(sessionID, field, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO candidate_fields (session_id, field, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, field) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, field, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetField returns the current value of one candidate field, or ErrNotFound.
func (s *Store) GetField(sessionID, field string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM candidate_fields WHERE session_id = ? AND field = ?",
		sessionID, field,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// GetFields returns all collected candidate fields for the session.
func (s *Store) GetFields(sessionID string) (map[string]string, error) {
	rows, err := s.db.Query(
		"SELECT field, value FROM candidate_fields WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var f, v string
		if err := rows.Scan(&f, &v); err != nil {
			return nil, err
		}
		result[f] = v
	}
	return result, rows.Err()
}

// ClearFields deletes all collected candidate fields for the session.
func (s *Store) ClearFields(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM candidate_fields WHERE session_id = ?", sessionID)
	return err
}

// --- Resumes ---

// SaveResume stores an ingested resume document.
func (s *Store) SaveResume(r Resume) error {
	_, err := s.db.Exec(`
		INSERT INTO resumes (id, session_id, filename, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Filename, r.Content, r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetResume retrieves one stored resume by ID.
func (s *Store) GetResume(id string) (Resume, error) {
	var r Resume
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, session_id, filename, content, created_at
		FROM resumes WHERE id = ?`, id,
	).Scan(&r.ID, &r.SessionID, &r.Filename, &r.Content, &createdAt)
	if err == sql.ErrNoRows {
		return Resume{}, ErrNotFound
	}
	if err != nil {
		return Resume{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Resume{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}
