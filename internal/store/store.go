// internal/store/store.go
// Package store keeps practice sessions and their scored attempts in SQLite.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ColonelBlimp/cwtrainer/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			style TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			session_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			expected TEXT NOT NULL,
			actual TEXT NOT NULL,
			correct INTEGER NOT NULL,
			at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_expected ON attempts(kind, expected);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session with its attempts in one transaction.
func (s *Store) InsertSession(ctx context.Context, info model.SessionInfo, attempts []model.Attempt) (id int64, err error) {
	var correct, incorrect int
	for _, a := range attempts {
		if a.Correct {
			correct++
		} else {
			incorrect++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, mode, style, wpm, correct, incorrect)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.StartedAt.Format(time.RFC3339Nano),
		info.EndedAt.Format(time.RFC3339Nano),
		info.Mode,
		info.Style,
		info.WPM,
		correct,
		incorrect,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(attempts) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO attempts (session_id, seq, kind, expected, actual, correct, at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, a := range attempts {
			if _, err = stmt.ExecContext(ctx, id, i, string(a.Kind), a.Expected, a.Actual, a.Correct, a.Timestamp.Format(time.RFC3339Nano)); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns the most recent sessions, newest first. limit <= 0
// returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ended_at, mode, style, wpm, correct, incorrect
		 FROM sessions
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var endedAt string
		if err := rows.Scan(&sum.SessionID, &endedAt, &sum.Mode, &sum.Style, &sum.WPM, &sum.Correct, &sum.Incorrect); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		sum.EndedAt = parsed
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SymbolAggregates totals symbol attempts over the most recent window
// sessions, worst error rate first.
func (s *Store) SymbolAggregates(ctx context.Context, window int) ([]model.SymbolAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	)
	SELECT a.expected, SUM(a.correct) AS correct, SUM(1 - a.correct) AS incorrect
	FROM attempts a
	JOIN recent_sessions r ON r.id = a.session_id
	WHERE a.kind = ? AND a.expected != ''
	GROUP BY a.expected`

	rows, err := s.db.QueryContext(ctx, query, window, string(model.KindSymbol))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SymbolAggregate
	for rows.Next() {
		var agg model.SymbolAggregate
		if err := rows.Scan(&agg.Symbol, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		ei, ej := result[i].ErrorRate(), result[j].ErrorRate()
		if ei != ej {
			return ei > ej
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}
