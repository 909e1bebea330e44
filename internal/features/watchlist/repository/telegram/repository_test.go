package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/watchlist/models"
)

type fakeTransport struct {
	nextMessageID int
	uploads       map[int][]byte // messageID -> payload
	deleted       []int
	latestFileID  string
	latestMsgID   int
	latestFound   bool
	failUpload    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextMessageID: 100, uploads: map[int][]byte{}}
}

func (f *fakeTransport) SendDocument(chatID int64, name string, data []byte) (int, error) {
	if f.failUpload {
		return 0, errors.New("upload failed")
	}
	f.nextMessageID++
	f.uploads[f.nextMessageID] = data
	return f.nextMessageID, nil
}

func (f *fakeTransport) DeleteMessage(chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	delete(f.uploads, messageID)
	return nil
}

func (f *fakeTransport) LatestDocument(fileName string) (string, int, bool, error) {
	return f.latestFileID, f.latestMsgID, f.latestFound, nil
}

func (f *fakeTransport) DownloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "corrupt" {
		return []byte("{not json"), nil
	}
	return f.uploads[f.latestMsgID], nil
}

func newStore(tr Transport) *snapshotStore {
	return &snapshotStore{transport: tr, channelID: -100123, log: logger.With("test")}
}

func TestSaveDeletesSupersededBackup(t *testing.T) {
	tr := newFakeTransport()
	store := newStore(tr)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, models.NewSnapshot(nil, nil, nil)))
	assert.Empty(t, tr.deleted, "first save has nothing to supersede")

	require.NoError(t, store.Save(ctx, models.NewSnapshot(nil, nil, nil)))
	assert.Equal(t, []int{101}, tr.deleted)
	assert.Len(t, tr.uploads, 1, "channel holds exactly one current backup")
}

func TestLoadRestoresLatestBackup(t *testing.T) {
	tr := newFakeTransport()
	snap := models.NewSnapshot(map[string][]string{"42": {"magnuscarlsen"}}, nil, []string{"42"})
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	tr.latestMsgID = 300
	tr.latestFileID = "file-300"
	tr.latestFound = true
	tr.uploads[300] = payload

	store := newStore(tr)
	got, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.Watches, got.Watches)
	assert.Equal(t, snap.Authorized, got.Authorized)

	// the restored backup message is the one superseded by the next save
	require.NoError(t, store.Save(context.Background(), snap))
	assert.Equal(t, []int{300}, tr.deleted)
}

func TestLoadFirstBoot(t *testing.T) {
	store := newStore(newFakeTransport())

	_, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadCorruptBackup(t *testing.T) {
	tr := newFakeTransport()
	tr.latestFound = true
	tr.latestFileID = "corrupt"

	store := newStore(tr)
	_, _, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestSaveUploadFailureKeepsState(t *testing.T) {
	tr := newFakeTransport()
	store := newStore(tr)
	require.NoError(t, store.Save(context.Background(), models.NewSnapshot(nil, nil, nil)))

	tr.failUpload = true
	assert.Error(t, store.Save(context.Background(), models.NewSnapshot(nil, nil, nil)))
	assert.Empty(t, tr.deleted, "current backup must survive a failed upload")
}
