package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	chatIDs []int64
	texts   []string
}

func (r *recordingSender) SendMarkdownV2(chatID int64, text string) error {
	r.chatIDs = append(r.chatIDs, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func TestNotify(t *testing.T) {
	sender := &recordingSender{}
	n := New(sender)

	err := n.Notify(context.Background(), "42", "magnuscarlsen", "2026-08-30 10:00:00 IST")
	require.NoError(t, err)
	require.Len(t, sender.texts, 1)
	assert.Equal(t, int64(42), sender.chatIDs[0])
	assert.Contains(t, sender.texts[0], "magnuscarlsen is now ONLINE")
}

func TestNotifyEscapesHandle(t *testing.T) {
	sender := &recordingSender{}
	n := New(sender)

	err := n.Notify(context.Background(), "42", "magnus_carlsen.v2", "Unknown")
	require.NoError(t, err)
	assert.Contains(t, sender.texts[0], `magnus\_carlsen\.v2`)
}

func TestNotifyInvalidSubscriberID(t *testing.T) {
	n := New(&recordingSender{})
	assert.Error(t, n.Notify(context.Background(), "not-a-chat-id", "x", "Unknown"))
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `a\*b\_c\[d\]\(e\)\!`, EscapeMarkdownV2("a*b_c[d](e)!"))
	assert.Equal(t, "plain", EscapeMarkdownV2("plain"))
}

func TestFormatLastSeen(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	ts := int64(1700000000) // 2023-11-14 22:13:20 UTC
	assert.Equal(t, "2023-11-15 03:43:20 IST", FormatLastSeen(&ts, loc))

	assert.Equal(t, "Unknown", FormatLastSeen(nil, loc))
	zero := int64(0)
	assert.Equal(t, "Unknown", FormatLastSeen(&zero, loc))
}
