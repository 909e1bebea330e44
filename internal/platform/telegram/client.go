// Package telegram is the bot's messaging transport: inbound command
// updates via long poll, outbound replies and alerts, and the snapshot
// document upload/download used by the backup channel store.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "chesswatch-bot/internal/common/errors"
	"chesswatch-bot/internal/common/logger"
)

const longPollTimeout = 30 // seconds, Telegram-side

type Client struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(token string, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("create bot", err)
	}
	bot.Debug = debug

	c := &Client{
		bot:        bot,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("telegram"),
	}
	c.log.Info().Str("username", bot.Self.UserName).Msg("authorized on Telegram")
	return c, nil
}

// Updates opens the long-poll updates channel. The channel is closed
// when ctx is cancelled.
func (c *Client) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = longPollTimeout
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		c.bot.StopReceivingUpdates()
	}()
	return updates
}

func (c *Client) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return apperrors.NewTelegramAPIError("send message", err)
	}
	return nil
}

// SendMarkdownV2 sends text with MarkdownV2 parsing; the caller is
// responsible for escaping user-controlled substrings.
func (c *Client) SendMarkdownV2(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := c.bot.Send(msg); err != nil {
		return apperrors.NewTelegramAPIError("send markdown message", err)
	}
	return nil
}

// SendDocument uploads a file to a chat and returns the new message ID,
// so the caller can delete a superseded backup later.
func (c *Client) SendDocument(chatID int64, name string, data []byte) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	sent, err := c.bot.Send(doc)
	if err != nil {
		return 0, apperrors.NewTelegramAPIError("send document", err)
	}
	return sent.MessageID, nil
}

func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return apperrors.NewTelegramAPIError("delete message", err)
	}
	return nil
}

// LatestDocument scans pending updates for the newest document with the
// given file name and returns its file and message IDs. found is false
// when no such document is visible (clean first boot).
func (c *Client) LatestDocument(fileName string) (fileID string, messageID int, found bool, err error) {
	u := tgbotapi.NewUpdate(0)
	u.Limit = 100
	updates, err := c.bot.GetUpdates(u)
	if err != nil {
		return "", 0, false, apperrors.NewTelegramAPIError("get updates", err)
	}

	// newest last; keep the last match
	for _, update := range updates {
		for _, msg := range []*tgbotapi.Message{update.Message, update.ChannelPost} {
			if msg == nil || msg.Document == nil {
				continue
			}
			if msg.Document.FileName != fileName {
				continue
			}
			fileID = msg.Document.FileID
			messageID = msg.MessageID
			found = true
		}
	}
	return fileID, messageID, found, nil
}

// DownloadDocument fetches the raw bytes of an uploaded file.
func (c *Client) DownloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	link, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("get file link", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewTelegramAPIError("download file",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
