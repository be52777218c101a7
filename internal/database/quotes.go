package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/thinkscotty/globaldaily/internal/models"
)

// ReplaceQuote stores q as the only quote for its date.
func (db *DB) ReplaceQuote(ctx context.Context, q *models.QuoteRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM daily_quotes WHERE date = ?`), q.Date); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO daily_quotes (date, content, author, provider, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		q.Date, q.Content, q.Author, q.Provider, formatTime(q.CreatedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetQuote returns the quote for date, or the most recent one if date is "".
func (db *DB) GetQuote(ctx context.Context, date string) (*models.QuoteRecord, error) {
	var row *sql.Row
	if date == "" {
		row = db.conn.QueryRowContext(ctx, `
			SELECT date, content, author, provider, created_at
			FROM daily_quotes ORDER BY date DESC LIMIT 1`)
	} else {
		row = db.conn.QueryRowContext(ctx, db.rebind(`
			SELECT date, content, author, provider, created_at
			FROM daily_quotes WHERE date = ?`), date)
	}

	var q models.QuoteRecord
	var createdAt string
	err := row.Scan(&q.Date, &q.Content, &q.Author, &q.Provider, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.CreatedAt, _ = parseTime(createdAt)
	return &q, nil
}
