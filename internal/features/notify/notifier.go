// Package notify formats and dispatches "now online" alerts. The
// watched handle is user-controlled input and is always escaped before
// it reaches Telegram markup.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"chesswatch-bot/internal/common/logger"
)

// Sender is the outbound messaging primitive the notifier consumes.
type Sender interface {
	SendMarkdownV2(chatID int64, text string) error
}

type Notifier struct {
	sender Sender
	log    zerolog.Logger
}

func New(sender Sender) *Notifier {
	return &Notifier{
		sender: sender,
		log:    logger.With("notify"),
	}
}

// Notify sends one online alert to one subscriber. subscriberID is the
// chat ID in string form, as stored in the registry.
func (n *Notifier) Notify(ctx context.Context, subscriberID, handle, lastSeenDisplay string) error {
	chatID, err := strconv.ParseInt(subscriberID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid subscriber id %q: %w", subscriberID, err)
	}

	text := fmt.Sprintf("♟ %s is now ONLINE\nLast Online: %s",
		EscapeMarkdownV2(handle), EscapeMarkdownV2(lastSeenDisplay))

	if err := n.sender.SendMarkdownV2(chatID, text); err != nil {
		return err
	}
	n.log.Debug().Str("subscriber", subscriberID).Str("handle", handle).Msg("online alert sent")
	return nil
}

// EscapeMarkdownV2 escapes the characters Telegram MarkdownV2 reserves.
func EscapeMarkdownV2(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		for _, sp := range specials {
			if s[i] == sp {
				buf.WriteByte('\\')
				break
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}

// FormatLastSeen renders a unix timestamp in the bot's display zone.
// Used by alerts and by /status.
func FormatLastSeen(ts *int64, loc *time.Location) string {
	if ts == nil || *ts == 0 {
		return "Unknown"
	}
	return time.Unix(*ts, 0).In(loc).Format("2006-01-02 15:04:05 MST")
}
