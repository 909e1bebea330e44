package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	apperrors "chesswatch-bot/internal/common/errors"
	"chesswatch-bot/internal/features/watchlist/models"
	"chesswatch-bot/internal/features/watchlist/repository"
)

const snapshotKey = "chesswatch:snapshot"

type snapshotStore struct {
	client *redis.Client
}

func NewSnapshotStore(client *redis.Client) repository.SnapshotStore {
	return &snapshotStore{client: client}
}

func (s *snapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return apperrors.NewSnapshotError("marshal", err)
	}
	if err := s.client.Set(ctx, snapshotKey, payload, 0).Err(); err != nil {
		return apperrors.NewSnapshotError("redis set", err)
	}
	return nil
}

func (s *snapshotStore) Load(ctx context.Context) (models.Snapshot, bool, error) {
	payload, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, apperrors.NewSnapshotError("redis get", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return models.Snapshot{}, false, apperrors.NewSnapshotError("unmarshal", err)
	}
	return snap, true, nil
}
