package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thinkscotty/globaldaily/internal/models"
)

const bundleColumns = `date, category, section, name, cards, summary_text, provider, run_id, created_at`

// ReplaceBundle stores b as the only bundle for its (date, category) key.
func (db *DB) ReplaceBundle(ctx context.Context, b *models.CategoryBundle) error {
	cards := b.Cards
	if cards == nil {
		cards = []models.ContentCard{}
	}
	cardsJSON, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("marshal cards: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM daily_bundles WHERE date = ? AND category = ?`),
		b.Date, b.Category); err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}

	if _, err := tx.ExecContext(ctx, db.rebind(`
		INSERT INTO daily_bundles (`+bundleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.Date, b.Category, b.Section, b.Name, string(cardsJSON),
		b.SummaryText, b.Provider, b.RunID, formatTime(b.CreatedAt)); err != nil {
		return fmt.Errorf("insert bundle: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetBundle(ctx context.Context, date, category string) (*models.CategoryBundle, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT `+bundleColumns+` FROM daily_bundles WHERE date = ? AND category = ?`),
		date, category)
	return scanBundle(row)
}

// LatestBundle returns the most recent bundle for a category.
func (db *DB) LatestBundle(ctx context.Context, category string) (*models.CategoryBundle, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT `+bundleColumns+` FROM daily_bundles WHERE category = ?
		ORDER BY date DESC LIMIT 1`), category)
	return scanBundle(row)
}

// ListBundles returns all bundles for a date in the order they were written.
func (db *DB) ListBundles(ctx context.Context, date string) ([]models.CategoryBundle, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT `+bundleColumns+` FROM daily_bundles WHERE date = ?
		ORDER BY created_at ASC, category ASC`), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []models.CategoryBundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, *b)
	}
	return bundles, rows.Err()
}

// LatestDate returns the most recent date that has any bundle.
func (db *DB) LatestDate(ctx context.Context) (string, error) {
	var date sql.NullString
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(date) FROM daily_bundles`).Scan(&date); err != nil {
		return "", err
	}
	if !date.Valid {
		return "", ErrNotFound
	}
	return date.String, nil
}

func (db *DB) DeleteBundle(ctx context.Context, date, category string) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM daily_bundles WHERE date = ? AND category = ?`), date, category)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBundle(s scanner) (*models.CategoryBundle, error) {
	var b models.CategoryBundle
	var cardsJSON, createdAt string
	err := s.Scan(&b.Date, &b.Category, &b.Section, &b.Name, &cardsJSON,
		&b.SummaryText, &b.Provider, &b.RunID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cardsJSON), &b.Cards); err != nil {
		return nil, fmt.Errorf("decode cards for %s/%s: %w", b.Date, b.Category, err)
	}
	b.CreatedAt, _ = parseTime(createdAt)
	return &b, nil
}
