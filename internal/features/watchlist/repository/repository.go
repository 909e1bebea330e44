package repository

import (
	"context"

	"chesswatch-bot/internal/features/watchlist/models"
)

// SnapshotStore persists the registry's snapshot document and retrieves
// the most recent one at startup. Save is called after every mutating
// command; Load exactly once per process.
type SnapshotStore interface {
	Save(ctx context.Context, snap models.Snapshot) error

	// Load returns found=false on a clean first boot (no snapshot
	// persisted yet); that is not an error.
	Load(ctx context.Context) (snap models.Snapshot, found bool, err error)
}
