// Package commands parses inbound chat commands, enforces admin and
// authorization rules and maps them onto watchlist operations. The
// router itself is transport-free: it takes sender and text, returns
// the reply.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chesswatch-bot/internal/common/logger"
	"chesswatch-bot/internal/features/notify"
	"chesswatch-bot/internal/features/watchlist/models"
)

const denialReply = "🚫 You are not authorized to use this bot."

// Watchlist is the command-level surface the router drives.
type Watchlist interface {
	Add(ctx context.Context, subscriber, handle string) models.AddResult
	Remove(ctx context.Context, subscriber, handle string) models.RemoveResult
	List(subscriber string) []string
	StatusRows(subscriber string) []models.StatusRow
	IsAuthorized(subscriber string) bool
	Authorize(ctx context.Context, subscriber string)
	Deauthorize(ctx context.Context, subscriber string) bool
	SetLimit(ctx context.Context, subscriber string, limit int)
}

type Router struct {
	watchlist Watchlist
	adminID   string
	loc       *time.Location
	log       zerolog.Logger
}

func NewRouter(watchlist Watchlist, adminID string, loc *time.Location) *Router {
	return &Router{
		watchlist: watchlist,
		adminID:   adminID,
		loc:       loc,
		log:       logger.With("commands"),
	}
}

// Handle processes one command and returns the reply text; empty means
// no reply. senderID is the Telegram user ID in string form.
func (r *Router) Handle(ctx context.Context, senderID, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || !strings.HasPrefix(text, "/") {
		return ""
	}

	parts := strings.Fields(text)
	command := parts[0]
	args := parts[1:]

	// admin surface first; the admin is implicitly authorized for the
	// user commands below as well
	if senderID == r.adminID {
		switch command {
		case "/authorize":
			return r.authorize(ctx, args)
		case "/unauthorize":
			return r.unauthorize(ctx, args)
		case "/setlimit":
			return r.setLimit(ctx, args)
		}
	} else if !r.watchlist.IsAuthorized(senderID) {
		return denialReply
	}

	switch command {
	case "/add":
		return r.add(ctx, senderID, args)
	case "/remove":
		return r.remove(ctx, senderID, args)
	case "/list":
		return r.list(senderID)
	case "/status":
		return r.status(senderID)
	case "/authorize", "/unauthorize", "/setlimit":
		// recognized admin commands from a non-admin sender
		return denialReply
	default:
		return ""
	}
}

func (r *Router) add(ctx context.Context, senderID string, args []string) string {
	if len(args) != 1 {
		return "Usage: /add <username>"
	}
	switch r.watchlist.Add(ctx, senderID, args[0]) {
	case models.AddAlreadyWatching:
		return "⚠ You are already monitoring this username."
	case models.AddLimitReached:
		return "⚠ Limit reached."
	default:
		return "✅ Username added."
	}
}

func (r *Router) remove(ctx context.Context, senderID string, args []string) string {
	if len(args) != 1 {
		return "Usage: /remove <username>"
	}
	if r.watchlist.Remove(ctx, senderID, args[0]) == models.RemoveNotFound {
		return "❌ Username not found in your list."
	}
	return "✅ Username removed."
}

func (r *Router) list(senderID string) string {
	handles := r.watchlist.List(senderID)
	if len(handles) == 0 {
		return "Your watchlist is empty."
	}
	var b strings.Builder
	b.WriteString("♟ Watched players:")
	for _, h := range handles {
		b.WriteString("\n• " + h)
	}
	return b.String()
}

func (r *Router) status(senderID string) string {
	rows := r.watchlist.StatusRows(senderID)
	if len(rows) == 0 {
		return "Your watchlist is empty."
	}
	var b strings.Builder
	b.WriteString("♟ Player Status:")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("\n• %s: %s (Last Online: %s)",
			row.Handle,
			strings.ToUpper(string(row.Status)),
			notify.FormatLastSeen(row.LastSeen, r.loc)))
	}
	return b.String()
}

func (r *Router) authorize(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /authorize <userID>"
	}
	r.watchlist.Authorize(ctx, args[0])
	r.log.Info().Str("subscriber", args[0]).Msg("subscriber authorized")
	return "✅ User authorized."
}

func (r *Router) unauthorize(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /unauthorize <userID>"
	}
	if !r.watchlist.Deauthorize(ctx, args[0]) {
		return "❌ User is not authorized."
	}
	r.log.Info().Str("subscriber", args[0]).Msg("subscriber deauthorized")
	return "❌ User unauthorized."
}

func (r *Router) setLimit(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: /setlimit <userID> <n>"
	}
	limit, err := strconv.Atoi(args[1])
	if err != nil || limit < 0 {
		return "Usage: /setlimit <userID> <n>"
	}
	r.watchlist.SetLimit(ctx, args[0], limit)
	return fmt.Sprintf("✅ Limit for %s set to %d.", args[0], limit)
}
