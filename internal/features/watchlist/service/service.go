// Package service exposes the command-level watchlist operations: each
// mutating operation applies the registry change and then persists the
// updated snapshot (consistency over latency). Reads never persist.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/watchlist/models"
	"chesswatch-bot/internal/features/watchlist/registry"
	"chesswatch-bot/internal/features/watchlist/repository"
)

type Service struct {
	reg   *registry.Registry
	store repository.SnapshotStore
	log   zerolog.Logger
}

func New(reg *registry.Registry, store repository.SnapshotStore) *Service {
	return &Service{
		reg:   reg,
		store: store,
		log:   logger.With("watchlist"),
	}
}

// Restore loads the most recent snapshot into the registry. Called once
// at startup, before the worker loops start.
func (s *Service) Restore(ctx context.Context) error {
	snap, found, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		s.log.Info().Msg("no persisted snapshot, starting fresh")
		return nil
	}
	s.reg.Restore(snap)
	s.log.Info().
		Str("snapshot_id", snap.ID).
		Int("subscribers", len(snap.Watches)).
		Msg("registry state restored")
	return nil
}

func (s *Service) Add(ctx context.Context, subscriber, handle string) models.AddResult {
	res := s.reg.AddWatch(subscriber, handle)
	if res == models.AddOK {
		s.persist(ctx)
	}
	return res
}

func (s *Service) Remove(ctx context.Context, subscriber, handle string) models.RemoveResult {
	res := s.reg.RemoveWatch(subscriber, handle)
	if res == models.RemoveOK {
		s.persist(ctx)
	}
	return res
}

func (s *Service) List(subscriber string) []string {
	return s.reg.ListWatches(subscriber)
}

func (s *Service) StatusRows(subscriber string) []models.StatusRow {
	return s.reg.StatusRows(subscriber)
}

func (s *Service) IsAuthorized(subscriber string) bool {
	return s.reg.IsAuthorized(subscriber)
}

func (s *Service) Authorize(ctx context.Context, subscriber string) {
	s.reg.Authorize(subscriber)
	s.persist(ctx)
}

func (s *Service) Deauthorize(ctx context.Context, subscriber string) bool {
	removed := s.reg.Deauthorize(subscriber)
	if removed {
		s.persist(ctx)
	}
	return removed
}

func (s *Service) SetLimit(ctx context.Context, subscriber string, limit int) {
	s.reg.SetLimit(subscriber, limit)
	s.persist(ctx)
}

// persist writes the current snapshot. A store failure is logged, not
// propagated: the in-memory mutation already happened and the next
// mutating command retries the write with fresher state anyway.
func (s *Service) persist(ctx context.Context) {
	snap := s.reg.Snapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		s.log.Error().Err(err).Str("snapshot_id", snap.ID).Msg("failed to persist snapshot")
	}
}
