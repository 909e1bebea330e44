package monitor

import (
	"context"

	"chesswatch-bot/internal/features/watchlist/models"
)

// PresenceAPI is the external presence source. All three operations are
// idempotent, bounded by their own timeouts and fail soft.
type PresenceAPI interface {
	ResolveIdentity(ctx context.Context, handle string) (string, error)
	FetchPresenceBatch(ctx context.Context, tokens []string) (map[string]models.Status, error)
	FetchLastSeen(ctx context.Context, handle string) (int64, error)
}

// Notifier delivers one online alert to one subscriber.
type Notifier interface {
	Notify(ctx context.Context, subscriberID, handle, lastSeenDisplay string) error
}
