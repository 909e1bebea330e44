package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the last observed presence state of a watched handle.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
)

// AddResult is the outcome of an AddWatch call.
type AddResult int

const (
	AddOK AddResult = iota
	AddAlreadyWatching
	AddLimitReached
)

// RemoveResult is the outcome of a RemoveWatch call.
type RemoveResult int

const (
	RemoveOK RemoveResult = iota
	RemoveNotFound
)

// StatusRow is one line of a subscriber's /status report, rendered from
// cached presence data only.
type StatusRow struct {
	Handle   string
	Status   Status
	LastSeen *int64 // unix seconds, nil when never observed
}

// Snapshot is the persisted projection of registry state. Presence
// caches (tokens, statuses, last-seen) are deliberately absent; they are
// rebuilt lazily by the monitor after a restart.
//
// The JSON keys match the db.json document the bot has always written,
// so old backups restore cleanly.
type Snapshot struct {
	ID         string              `json:"id"`
	SavedAt    time.Time           `json:"saved_at"`
	Watches    map[string][]string `json:"user_monitored"`
	Limits     map[string]int      `json:"limits"`
	Authorized []string            `json:"authorized_users"`
}

// NewSnapshot stamps a snapshot document with identity and time.
func NewSnapshot(watches map[string][]string, limits map[string]int, authorized []string) Snapshot {
	return Snapshot{
		ID:         uuid.NewString(),
		SavedAt:    time.Now().UTC(),
		Watches:    watches,
		Limits:     limits,
		Authorized: authorized,
	}
}
