package database

import (
	"context"
	"time"

	"github.com/thinkscotty/globaldaily/internal/models"
)

// --- Run log ---

func (db *DB) LogRun(ctx context.Context, r models.RunLog) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO run_log (run_id, category, provider, materials, cards, dropped, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.RunID, r.Category, r.Provider, r.Materials, r.Cards, r.Dropped, r.Error, formatTime(createdAt))
	return err
}

// RecentRuns returns the newest run log entries first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]models.RunLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, run_id, category, provider, materials, cards, dropped, error, created_at
		FROM run_log ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunLog
	for rows.Next() {
		var r models.RunLog
		var createdAt string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Category, &r.Provider, &r.Materials,
			&r.Cards, &r.Dropped, &r.Error, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = parseTime(createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
