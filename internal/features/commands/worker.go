package commands

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport is the inbound/outbound side of the messaging platform the
// worker consumes.
type Transport interface {
	Updates(ctx context.Context) tgbotapi.UpdatesChannel
	SendMessage(chatID int64, text string) error
}

// Worker drains the long-poll updates channel and feeds text commands
// through the router. It runs concurrently with the monitor loop; both
// only meet inside the registry's critical sections.
type Worker struct {
	router    *Router
	transport Transport
}

func NewWorker(router *Router, transport Transport) *Worker {
	return &Worker{router: router, transport: transport}
}

// Run blocks until ctx is cancelled or the updates channel closes.
func (w *Worker) Run(ctx context.Context) {
	w.router.log.Info().Msg("command worker started")

	for update := range w.transport.Updates(ctx) {
		msg := update.Message
		if msg == nil || msg.From == nil || msg.Text == "" {
			continue
		}

		senderID := strconv.FormatInt(msg.From.ID, 10)
		reply := w.router.Handle(ctx, senderID, msg.Text)
		if reply == "" {
			continue
		}
		if err := w.transport.SendMessage(msg.Chat.ID, reply); err != nil {
			// degrade: the command already took effect, only the reply
			// was lost
			w.router.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
		}
	}
	w.router.log.Info().Msg("command worker stopped")
}
