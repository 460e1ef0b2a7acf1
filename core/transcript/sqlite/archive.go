// Package sqlite keeps finished session transcripts in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

var ErrSessionNotFound = errors.New("archived session not found")

type Archive struct {
	DB *sql.DB
}

// Open opens or creates the archive at path. Use ":memory:" for a throwaway
// archive.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// a single connection keeps ":memory:" databases shared between calls
	db.SetMaxOpenConns(1)

	a := &Archive{DB: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return a, nil
}

func (a *Archive) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (id TEXT PRIMARY KEY, remote_id TEXT, started_at INTEGER, ended_at INTEGER);`,
		`CREATE TABLE IF NOT EXISTS messages (session_id TEXT NOT NULL REFERENCES sessions(id), position INTEGER NOT NULL, sender TEXT NOT NULL, text TEXT NOT NULL, PRIMARY KEY (session_id, position));`,
	}
	for _, q := range stmts {
		if _, err := a.DB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Save stores session with its messages in order. Saving a session ID again
// replaces the earlier copy.
func (a *Archive) Save(ctx context.Context, session transcript.Session) error {
	if session.ID == "" {
		return errors.New("session id required")
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions(id, remote_id, started_at, ended_at) VALUES(?,?,?,?)`,
		session.ID, session.RemoteID, session.StartedAt.UnixMilli(), session.EndedAt.UnixMilli(),
	); err != nil {
		return err
	}
	for i, message := range session.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages(session_id, position, sender, text) VALUES(?,?,?,?)`,
			session.ID, i, string(message.Sender), message.Text,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load returns the archived session with the given ID.
func (a *Archive) Load(ctx context.Context, id string) (transcript.Session, error) {
	session := transcript.Session{ID: id}
	var remoteID sql.NullString
	var startedAt, endedAt int64
	row := a.DB.QueryRowContext(ctx, `SELECT remote_id, started_at, ended_at FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&remoteID, &startedAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session, ErrSessionNotFound
		}
		return session, err
	}
	session.RemoteID = remoteID.String
	session.StartedAt = time.UnixMilli(startedAt)
	session.EndedAt = time.UnixMilli(endedAt)

	rows, err := a.DB.QueryContext(ctx, `SELECT sender, text FROM messages WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return session, err
	}
	defer rows.Close()

	for rows.Next() {
		var sender, text string
		if err := rows.Scan(&sender, &text); err != nil {
			return session, err
		}
		session.Messages = append(session.Messages, transcript.Message{Text: text, Sender: transcript.Sender(sender)})
	}
	return session, rows.Err()
}

// Sessions lists the IDs of archived sessions, most recent first.
func (a *Archive) Sessions(ctx context.Context) ([]string, error) {
	rows, err := a.DB.QueryContext(ctx, `SELECT id FROM sessions ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
