// Package monitor runs the reconciliation loop: every interval it
// snapshots the watched handles, resolves the ones without a presence
// token, fetches live status for the resolved set in one batched call,
// detects status transitions against the cached previous status and
// fans out alerts to subscribers. Any external failure degrades the
// cycle and is retried on the next tick; the loop itself never stops
// until the context is cancelled.
package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "chesswatch-bot/internal/common/errors"
	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/notify"
	"chesswatch-bot/internal/features/watchlist/models"
	"chesswatch-bot/internal/features/watchlist/registry"
	"chesswatch-bot/internal/metrics"
)

type Engine struct {
	reg      *registry.Registry
	api      PresenceAPI
	notifier Notifier
	interval time.Duration
	loc      *time.Location
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewEngine(reg *registry.Registry, api PresenceAPI, notifier Notifier, interval time.Duration, loc *time.Location, m *metrics.Metrics) *Engine {
	return &Engine{
		reg:      reg,
		api:      api,
		notifier: notifier,
		interval: interval,
		loc:      loc,
		metrics:  m,
		log:      logger.With("monitor"),
	}
}

// Run blocks until ctx is cancelled. One cycle runs immediately so a
// restart does not wait a full interval before reseeding its caches.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info().Dur("interval", e.interval).Msg("presence monitor started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("presence monitor stopped")
			return
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	started := time.Now()
	defer func() {
		e.metrics.CyclesTotal.Inc()
		e.metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	handles := e.reg.AllWatched()
	e.metrics.WatchedIdentities.Set(float64(len(handles)))
	if len(handles) == 0 {
		return
	}

	e.resolveUnknown(ctx, handles)

	// Re-read the resolved set: resolution above may have grown it, a
	// concurrent /remove may have shrunk it.
	index, collisions := e.reg.ResolvedTokens()
	if len(collisions) > 0 {
		e.metrics.IntegrityFaults.Add(float64(len(collisions)))
		e.log.Error().
			Err(apperrors.NewIntegrityError("presence token claimed by multiple handles")).
			Strs("handles", collisions).
			Msg("skipping colliding handles this cycle")
	}
	if len(index) == 0 {
		return
	}

	tokens := make([]string, 0, len(index))
	for tok := range index {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	statuses, err := e.api.FetchPresenceBatch(ctx, tokens)
	if err != nil {
		e.metrics.BatchFailures.Inc()
		e.log.Warn().Err(err).Int("tokens", len(tokens)).Msg("presence batch failed, degrading cycle")
		return
	}

	for _, tok := range tokens {
		status, ok := statuses[tok]
		if !ok {
			continue
		}
		e.reconcile(ctx, index[tok], status)
	}
}

// resolveUnknown resolves handles that have no cached token yet.
// Resolution is the one per-handle call the presence source forces on
// us; failures are simply retried next cycle, with no backoff and no
// giving up.
func (e *Engine) resolveUnknown(ctx context.Context, handles []string) {
	for _, handle := range handles {
		if ctx.Err() != nil {
			return
		}
		if _, ok := e.reg.Token(handle); ok {
			continue
		}

		token, err := e.api.ResolveIdentity(ctx, handle)
		if err != nil || token == "" {
			e.metrics.ResolveFailures.Inc()
			if err != nil {
				e.log.Debug().Err(err).Str("handle", handle).Msg("resolution failed, will retry")
			}
			continue
		}

		// best-effort last-seen seed; the profile call failing does not
		// block the resolution commit
		var seed *int64
		if ls, err := e.api.FetchLastSeen(ctx, handle); err == nil && ls > 0 {
			seed = &ls
		}
		e.reg.CommitResolution(handle, token, seed)
		e.metrics.IdentitiesResolved.Inc()
		e.log.Info().Str("handle", handle).Msg("handle resolved")
	}
}

func (e *Engine) reconcile(ctx context.Context, handle string, status models.Status) {
	prev := e.reg.CommitStatus(handle, status)
	if prev == status {
		return
	}
	e.metrics.Transitions.WithLabelValues(string(status)).Inc()

	switch {
	case status == models.StatusOnline:
		// offline/unknown -> online: fan out to everyone watching the
		// handle right now
		e.fanOut(ctx, handle)

	case prev == models.StatusOnline:
		// online -> anything else: the batched endpoint carries no
		// last-seen, so refresh it from the profile
		if ls, err := e.api.FetchLastSeen(ctx, handle); err == nil && ls > 0 {
			e.reg.CommitLastSeen(handle, ls)
		}
	}
}

func (e *Engine) fanOut(ctx context.Context, handle string) {
	var display string
	if ls, ok := e.reg.LastSeen(handle); ok {
		display = notify.FormatLastSeen(&ls, e.loc)
	} else {
		display = notify.FormatLastSeen(nil, e.loc)
	}

	for _, subscriber := range e.reg.Subscribers(handle) {
		if err := e.notifier.Notify(ctx, subscriber, handle, display); err != nil {
			e.metrics.NotifyFailures.Inc()
			e.log.Warn().Err(err).Str("subscriber", subscriber).Str("handle", handle).Msg("failed to send online alert")
			continue
		}
		e.metrics.NotificationsSent.Inc()
	}
}
