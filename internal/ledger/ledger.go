// Package ledger tracks item URLs that have already been turned into content.
// The ledger is advisory: backend failures never block a run, they only risk
// showing an item twice.
package ledger

import (
	"context"
	"log/slog"
)

// Backend is the storage behind a Ledger.
type Backend interface {
	HasSeen(ctx context.Context, url string) (bool, error)
	InsertSeen(ctx context.Context, url, title string) error
}

type Ledger struct {
	backend Backend
}

func New(backend Backend) *Ledger {
	return &Ledger{backend: backend}
}

// IsSeen reports whether url was marked before. Backend errors are treated
// as "not seen".
func (l *Ledger) IsSeen(ctx context.Context, url string) bool {
	seen, err := l.backend.HasSeen(ctx, url)
	if err != nil {
		slog.Warn("Ledger lookup failed, treating item as new", "url", url, "error", err)
		return false
	}
	return seen
}

// MarkSeen records url. Marking an already-seen url is a no-op and backend
// errors are logged and dropped.
func (l *Ledger) MarkSeen(ctx context.Context, url, title string) {
	if err := l.backend.InsertSeen(ctx, url, title); err != nil {
		slog.Warn("Failed to mark item as seen", "url", url, "error", err)
	}
}
