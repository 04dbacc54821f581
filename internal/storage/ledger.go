// Package storage keeps the dispatch ledger, a small sqlite table recording
// which links were already sent to which target. It survives cache file
// resets, so a rebuilt cache never causes a resend storm.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS dispatched (
	link          TEXT NOT NULL,
	target        TEXT NOT NULL,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL,
	dispatched_at TIMESTAMP NOT NULL,
	PRIMARY KEY (link, target)
);
`

type Ledger struct {
	db *sql.DB
}

func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) IsDispatched(link, target string) (bool, error) {
	var exists int
	err := l.db.QueryRow(
		"SELECT 1 FROM dispatched WHERE link = ? AND target = ?", link, target,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return true, nil
}

func (l *Ledger) MarkDispatched(link, target, source, title string, at time.Time) error {
	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO dispatched (link, target, source, title, dispatched_at) VALUES (?, ?, ?, ?, ?)",
		link, target, source, title, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// DeleteOlderThan trims ledger rows past the retention horizon.
func (l *Ledger) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := l.db.Exec("DELETE FROM dispatched WHERE dispatched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim ledger: %w", err)
	}
	return result.RowsAffected()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
