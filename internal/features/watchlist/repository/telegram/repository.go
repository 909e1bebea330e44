// Package telegram persists the snapshot document as a db.json file
// uploaded to a backup channel, the way the bot has always done it. The
// previous backup message is deleted after each upload so the channel
// holds a single current document.
package telegram

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	apperrors "chesswatch-bot/internal/common/errors"
	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/watchlist/models"
	"chesswatch-bot/internal/features/watchlist/repository"
)

const backupFileName = "db.json"

// Transport is the subset of the Telegram client the store needs.
type Transport interface {
	SendDocument(chatID int64, name string, data []byte) (messageID int, err error)
	DeleteMessage(chatID int64, messageID int) error
	LatestDocument(fileName string) (fileID string, messageID int, found bool, err error)
	DownloadDocument(ctx context.Context, fileID string) ([]byte, error)
}

type snapshotStore struct {
	transport Transport
	channelID int64

	// message ID of the current backup, deleted on the next Save
	lastMessageID int

	log zerolog.Logger
}

func NewSnapshotStore(transport Transport, channelID int64) repository.SnapshotStore {
	return &snapshotStore{
		transport: transport,
		channelID: channelID,
		log:       logger.With("snapshot-channel"),
	}
}

func (s *snapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return apperrors.NewSnapshotError("marshal", err)
	}

	messageID, err := s.transport.SendDocument(s.channelID, backupFileName, payload)
	if err != nil {
		return apperrors.NewSnapshotError("upload backup", err)
	}

	if s.lastMessageID != 0 {
		// best effort; a stale backup left behind is harmless
		if err := s.transport.DeleteMessage(s.channelID, s.lastMessageID); err != nil {
			s.log.Warn().Err(err).Int("message_id", s.lastMessageID).Msg("failed to delete superseded backup")
		}
	}
	s.lastMessageID = messageID
	return nil
}

// Load discovers the backup by scanning getUpdates for the newest
// db.json document. The Bot API offers no channel-history read, so
// this only works while the backup message is still within the update
// window; once the command worker has long-polled past it, a restart
// comes up empty and starts fresh. The Redis store does not have this
// limitation.
func (s *snapshotStore) Load(ctx context.Context) (models.Snapshot, bool, error) {
	fileID, messageID, found, err := s.transport.LatestDocument(backupFileName)
	if err != nil {
		return models.Snapshot{}, false, apperrors.NewSnapshotError("scan updates", err)
	}
	if !found {
		return models.Snapshot{}, false, nil
	}

	payload, err := s.transport.DownloadDocument(ctx, fileID)
	if err != nil {
		return models.Snapshot{}, false, apperrors.NewSnapshotError("download backup", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return models.Snapshot{}, false, apperrors.NewSnapshotError("unmarshal", err)
	}

	s.lastMessageID = messageID
	s.log.Info().Str("snapshot_id", snap.ID).Time("saved_at", snap.SavedAt).Msg("restored snapshot from backup channel")
	return snap, true, nil
}
