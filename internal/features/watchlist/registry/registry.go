// Package registry owns all mutable subscription state: who watches
// which handles, per-subscriber limits, the authorization set, and the
// presence caches the monitor fills in. Every exported operation is
// atomic with respect to every other one; nothing here performs network
// I/O, so the lock is never held across a slow call.
package registry

import (
	"sort"
	"strings"
	"sync"

	"chesswatch-bot/internal/features/watchlist/models"
)

type Registry struct {
	mu sync.RWMutex

	// subscriber -> set of watched handles (forward mapping; the reverse
	// lookup is always recomputed from this, never stored)
	watches    map[string]map[string]struct{}
	limits     map[string]int
	authorized map[string]struct{}

	// presence caches, keyed by handle; purged when the last subscriber
	// drops the handle
	tokens   map[string]string
	statuses map[string]models.Status
	lastSeen map[string]int64

	defaultLimit int
}

func New(defaultLimit int) *Registry {
	return &Registry{
		watches:      make(map[string]map[string]struct{}),
		limits:       make(map[string]int),
		authorized:   make(map[string]struct{}),
		tokens:       make(map[string]string),
		statuses:     make(map[string]models.Status),
		lastSeen:     make(map[string]int64),
		defaultLimit: defaultLimit,
	}
}

// Normalize lowercases a handle the way it is stored and compared.
func Normalize(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// AddWatch adds handle to the subscriber's watch set, enforcing the
// effective limit. A failed add leaves state untouched.
func (r *Registry) AddWatch(subscriber, handle string) models.AddResult {
	handle = Normalize(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.watches[subscriber]
	if _, ok := set[handle]; ok {
		return models.AddAlreadyWatching
	}
	if len(set) >= r.effectiveLimit(subscriber) {
		return models.AddLimitReached
	}
	if set == nil {
		set = make(map[string]struct{})
		r.watches[subscriber] = set
	}
	set[handle] = struct{}{}
	return models.AddOK
}

// RemoveWatch drops handle from the subscriber's watch set. When no
// subscriber watches the handle anymore its cache entries are purged, so
// a later re-add starts from unknown status again.
func (r *Registry) RemoveWatch(subscriber, handle string) models.RemoveResult {
	handle = Normalize(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.watches[subscriber]
	if _, ok := set[handle]; !ok {
		return models.RemoveNotFound
	}
	delete(set, handle)
	if len(set) == 0 {
		delete(r.watches, subscriber)
	}
	r.purgeIfOrphaned(handle)
	return models.RemoveOK
}

// ListWatches returns the subscriber's watched handles, sorted.
func (r *Registry) ListWatches(subscriber string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.watches[subscriber]))
	for h := range r.watches[subscriber] {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// StatusRows renders the cached presence view of the subscriber's
// watchlist, sorted by handle.
func (r *Registry) StatusRows(subscriber string) []models.StatusRow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.StatusRow, 0, len(r.watches[subscriber]))
	for h := range r.watches[subscriber] {
		row := models.StatusRow{Handle: h, Status: models.StatusUnknown}
		if st, ok := r.statuses[h]; ok {
			row.Status = st
		}
		if ts, ok := r.lastSeen[h]; ok {
			v := ts
			row.LastSeen = &v
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Handle < rows[j].Handle })
	return rows
}

func (r *Registry) Authorize(subscriber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authorized[subscriber] = struct{}{}
}

// Deauthorize revokes the subscriber and purges their watch set,
// including orphan-cache cleanup for every handle they were the last
// watcher of. Returns false when the subscriber was not authorized.
func (r *Registry) Deauthorize(subscriber string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.authorized[subscriber]; !ok {
		return false
	}
	delete(r.authorized, subscriber)
	delete(r.limits, subscriber)

	handles := r.watches[subscriber]
	delete(r.watches, subscriber)
	for h := range handles {
		r.purgeIfOrphaned(h)
	}
	return true
}

func (r *Registry) IsAuthorized(subscriber string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.authorized[subscriber]
	return ok
}

// SetLimit stores a per-subscriber override. An override below the
// current watch count blocks further adds but never truncates the list.
func (r *Registry) SetLimit(subscriber string, limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[subscriber] = limit
}

// AllWatched returns every handle watched by at least one subscriber:
// a consistent snapshot reflecting all mutations committed before the
// call and none after.
func (r *Registry) AllWatched() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, set := range r.watches {
		for h := range set {
			seen[h] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Subscribers computes the reverse lookup for one handle from the
// forward mapping at call time.
func (r *Registry) Subscribers(handle string) []string {
	handle = Normalize(handle)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for sub, set := range r.watches {
		if _, ok := set[handle]; ok {
			out = append(out, sub)
		}
	}
	sort.Strings(out)
	return out
}

// Token returns the cached resolution for a handle.
func (r *Registry) Token(handle string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[Normalize(handle)]
	return tok, ok
}

// ResolvedTokens returns the token->handle index for every watched,
// resolved handle. The monitor uses it both as the batch input and to
// map results back; a token claimed by more than one handle is a
// data-integrity fault the caller must detect, so every affected
// handle is reported once in the collisions list and its token is
// excluded from the index.
func (r *Registry) ResolvedTokens() (index map[string]string, collisions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index = make(map[string]string)
	claimed := make(map[string]string) // token -> first handle
	colliding := make(map[string]struct{})
	for _, set := range r.watches {
		for h := range set {
			tok, ok := r.tokens[h]
			if !ok {
				continue
			}
			if prev, dup := claimed[tok]; dup {
				if prev != h {
					colliding[prev] = struct{}{}
					colliding[h] = struct{}{}
					delete(index, tok)
				}
				continue
			}
			claimed[tok] = h
			index[tok] = h
		}
	}
	for h := range colliding {
		collisions = append(collisions, h)
	}
	sort.Strings(collisions)
	return index, collisions
}

// CommitResolution stores a freshly resolved token and, when known, the
// best-effort last-seen seed. A no-op when the handle is no longer
// watched, so a concurrent remove keeps its purge.
func (r *Registry) CommitResolution(handle, token string, lastSeen *int64) {
	handle = Normalize(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isWatched(handle) {
		return
	}
	r.tokens[handle] = token
	if lastSeen != nil {
		r.commitLastSeen(handle, *lastSeen)
	}
}

// CommitStatus records the newly observed status and returns the
// previous one, unknown when never observed. A no-op (returning the
// new status, so no transition fires) when the handle is unwatched.
func (r *Registry) CommitStatus(handle string, status models.Status) models.Status {
	handle = Normalize(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isWatched(handle) {
		return status
	}
	prev, ok := r.statuses[handle]
	if !ok {
		prev = models.StatusUnknown
	}
	r.statuses[handle] = status
	return prev
}

// CommitLastSeen updates the last-seen cache. The timestamp only ever
// moves forward.
func (r *Registry) CommitLastSeen(handle string, ts int64) {
	handle = Normalize(handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isWatched(handle) {
		return
	}
	r.commitLastSeen(handle, ts)
}

// LastSeen returns the cached last-seen unix time for a handle.
func (r *Registry) LastSeen(handle string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.lastSeen[Normalize(handle)]
	return ts, ok
}

// Snapshot projects the persistable state. Caches are not included.
func (r *Registry) Snapshot() models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watches := make(map[string][]string, len(r.watches))
	for sub, set := range r.watches {
		list := make([]string, 0, len(set))
		for h := range set {
			list = append(list, h)
		}
		sort.Strings(list)
		watches[sub] = list
	}
	limits := make(map[string]int, len(r.limits))
	for sub, l := range r.limits {
		limits[sub] = l
	}
	authorized := make([]string, 0, len(r.authorized))
	for sub := range r.authorized {
		authorized = append(authorized, sub)
	}
	sort.Strings(authorized)

	return models.NewSnapshot(watches, limits, authorized)
}

// Restore replaces the subscription state from a persisted snapshot.
// Presence caches are reset; the monitor rebuilds them lazily.
func (r *Registry) Restore(snap models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watches = make(map[string]map[string]struct{}, len(snap.Watches))
	for sub, list := range snap.Watches {
		set := make(map[string]struct{}, len(list))
		for _, h := range list {
			set[Normalize(h)] = struct{}{}
		}
		if len(set) > 0 {
			r.watches[sub] = set
		}
	}
	r.limits = make(map[string]int, len(snap.Limits))
	for sub, l := range snap.Limits {
		r.limits[sub] = l
	}
	r.authorized = make(map[string]struct{}, len(snap.Authorized))
	for _, sub := range snap.Authorized {
		r.authorized[sub] = struct{}{}
	}

	r.tokens = make(map[string]string)
	r.statuses = make(map[string]models.Status)
	r.lastSeen = make(map[string]int64)
}

// callers must hold r.mu

func (r *Registry) effectiveLimit(subscriber string) int {
	if l, ok := r.limits[subscriber]; ok {
		return l
	}
	return r.defaultLimit
}

func (r *Registry) isWatched(handle string) bool {
	for _, set := range r.watches {
		if _, ok := set[handle]; ok {
			return true
		}
	}
	return false
}

func (r *Registry) purgeIfOrphaned(handle string) {
	if r.isWatched(handle) {
		return
	}
	delete(r.tokens, handle)
	delete(r.statuses, handle)
	delete(r.lastSeen, handle)
}

func (r *Registry) commitLastSeen(handle string, ts int64) {
	if cur, ok := r.lastSeen[handle]; ok && cur >= ts {
		return
	}
	r.lastSeen[handle] = ts
}
