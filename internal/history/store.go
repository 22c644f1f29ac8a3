// Package history persists one row per session, dispatched fragment, and
// observed controller event to a local SQLite database, for postmortem
// review of a run. It is purely additive: nothing in internal/controller
// depends on it succeeding.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// EventKind enumerates the EventRecord.Kind values: one per agent packet
// the controller reports (event, error, log, scriptend) plus the target's
// relayed stdout (output).
type EventKind string

const (
	KindEvent     EventKind = "event"
	KindError     EventKind = "error"
	KindLog       EventKind = "log"
	KindOutput    EventKind = "output"
	KindScriptEnd EventKind = "scriptend"
)

const timeFmt = time.RFC3339Nano

// Session is one controller run against one target application.
type Session struct {
	ID          string
	StartedAt   time.Time
	UserAppPath string
	UserAppArgs []string
}

// FragmentRecord is one dispatched script fragment.
type FragmentRecord struct {
	SessionID        string
	FileName         string
	BeginLine        int
	RunAfterAppStart bool
	DispatchedAt     time.Time
}

// EventRecord is one packet the controller observed from the agent.
type EventRecord struct {
	SessionID string
	Kind      EventKind
	Payload   string
	At        time.Time
}

// Store wraps a SQLite database holding the run history schema.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at dsn and applies any
// pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// StartSession inserts a new session row.
func (s *Store) StartSession(sess Session) error {
	_, err := s.db.Exec(`INSERT INTO sessions (id, started_at, user_app_path, user_app_args) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.StartedAt.UTC().Format(timeFmt), sess.UserAppPath, strings.Join(sess.UserAppArgs, "\x1f"))
	if err != nil {
		return fmt.Errorf("history: start session: %w", err)
	}
	return nil
}

// RecordFragment inserts one dispatched-fragment row.
func (s *Store) RecordFragment(f FragmentRecord) error {
	_, err := s.db.Exec(`INSERT INTO fragments (session_id, filename, begin_line, run_after_app_start, dispatched_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.SessionID, f.FileName, f.BeginLine, f.RunAfterAppStart, f.DispatchedAt.UTC().Format(timeFmt))
	if err != nil {
		return fmt.Errorf("history: record fragment: %w", err)
	}
	return nil
}

// RecordEvent inserts one observed-packet row.
func (s *Store) RecordEvent(e EventRecord) error {
	_, err := s.db.Exec(`INSERT INTO events (session_id, kind, payload, at) VALUES (?, ?, ?, ?)`,
		e.SessionID, string(e.Kind), e.Payload, e.At.UTC().Format(timeFmt))
	if err != nil {
		return fmt.Errorf("history: record event: %w", err)
	}
	return nil
}

// RecentSessions returns the most recently started limit sessions, newest
// first.
func (s *Store) RecentSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`SELECT id, started_at, user_app_path, user_app_args FROM sessions
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedAt, args string
		if err := rows.Scan(&sess.ID, &startedAt, &sess.UserAppPath, &args); err != nil {
			return nil, fmt.Errorf("history: scan session: %w", err)
		}
		sess.StartedAt, err = time.Parse(timeFmt, startedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse started_at: %w", err)
		}
		if args != "" {
			sess.UserAppArgs = strings.Split(args, "\x1f")
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionEvents returns every event row recorded for sessionID, oldest first.
func (s *Store) SessionEvents(sessionID string) ([]EventRecord, error) {
	rows, err := s.db.Query(`SELECT kind, payload, at FROM events WHERE session_id = ? ORDER BY at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: session events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		var kind, at string
		e.SessionID = sessionID
		if err := rows.Scan(&kind, &e.Payload, &at); err != nil {
			return nil, fmt.Errorf("history: scan event: %w", err)
		}
		e.Kind = EventKind(kind)
		e.At, err = time.Parse(timeFmt, at)
		if err != nil {
			return nil, fmt.Errorf("history: parse at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
