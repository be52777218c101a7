package database

import (
	"context"
	"time"
)

// --- Seen URL ledger ---

func (db *DB) HasSeen(ctx context.Context, url string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT COUNT(*) FROM seen_urls WHERE url = ?`), url).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertSeen records url. An existing record is left untouched.
func (db *DB) InsertSeen(ctx context.Context, url, title string) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO seen_urls (url, title, seen_at) VALUES (?, ?, ?)
		ON CONFLICT (url) DO NOTHING`),
		url, title, formatTime(time.Now()))
	return err
}

// PurgeSeen deletes records older than cutoff and returns how many went.
func (db *DB) PurgeSeen(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM seen_urls WHERE seen_at < ?`), formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) CountSeen(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_urls`).Scan(&n)
	return n, err
}
