package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chesswatch-bot/internal/features/watchlist/models"
	"chesswatch-bot/internal/features/watchlist/registry"
	"chesswatch-bot/internal/features/watchlist/service"
)

type nopStore struct{ saves int }

func (s *nopStore) Save(ctx context.Context, snap models.Snapshot) error {
	s.saves++
	return nil
}

func (s *nopStore) Load(ctx context.Context) (models.Snapshot, bool, error) {
	return models.Snapshot{}, false, nil
}

func newRouter(t *testing.T) (*Router, *service.Service, *nopStore) {
	t.Helper()
	store := &nopStore{}
	svc := service.New(registry.New(2), store)
	return NewRouter(svc, "1000", time.UTC), svc, store
}

func TestUnauthorizedSenderDenied(t *testing.T) {
	r, svc, store := newRouter(t)
	ctx := context.Background()

	reply := r.Handle(ctx, "555", "/add foo")
	assert.Equal(t, denialReply, reply)
	assert.Empty(t, svc.List("555"), "denied command must not mutate")
	assert.Zero(t, store.saves, "denied command must not persist")
}

func TestAdminAuthorizesThenUserCanAdd(t *testing.T) {
	r, _, _ := newRouter(t)
	ctx := context.Background()

	assert.Equal(t, "✅ User authorized.", r.Handle(ctx, "1000", "/authorize 555"))
	assert.Equal(t, "✅ Username added.", r.Handle(ctx, "555", "/add MagnusCarlsen"))
	assert.Equal(t, "⚠ You are already monitoring this username.", r.Handle(ctx, "555", "/add magnuscarlsen"))
}

func TestAdminIsImplicitlyAuthorized(t *testing.T) {
	r, _, _ := newRouter(t)
	assert.Equal(t, "✅ Username added.", r.Handle(context.Background(), "1000", "/add hikaru"))
}

func TestNonAdminCannotManageAuthorization(t *testing.T) {
	r, svc, _ := newRouter(t)
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")

	assert.Equal(t, denialReply, r.Handle(ctx, "555", "/authorize 777"))
	assert.Equal(t, denialReply, r.Handle(ctx, "555", "/setlimit 555 99"))
	assert.False(t, svc.IsAuthorized("777"))
}

func TestLimitReachedAndOverride(t *testing.T) {
	r, _, _ := newRouter(t) // default limit 2
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")
	r.Handle(ctx, "555", "/add a")
	r.Handle(ctx, "555", "/add b")

	assert.Equal(t, "⚠ Limit reached.", r.Handle(ctx, "555", "/add c"))
	assert.Equal(t, "✅ Limit for 555 set to 3.", r.Handle(ctx, "1000", "/setlimit 555 3"))
	assert.Equal(t, "✅ Username added.", r.Handle(ctx, "555", "/add c"))
}

func TestRemove(t *testing.T) {
	r, _, _ := newRouter(t)
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")
	r.Handle(ctx, "555", "/add hikaru")

	assert.Equal(t, "✅ Username removed.", r.Handle(ctx, "555", "/remove HIKARU"))
	assert.Equal(t, "❌ Username not found in your list.", r.Handle(ctx, "555", "/remove hikaru"))
}

func TestUnauthorizePurgesSubscriber(t *testing.T) {
	r, svc, _ := newRouter(t)
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")
	r.Handle(ctx, "555", "/add hikaru")

	assert.Equal(t, "❌ User unauthorized.", r.Handle(ctx, "1000", "/unauthorize 555"))
	assert.Equal(t, "❌ User is not authorized.", r.Handle(ctx, "1000", "/unauthorize 555"))
	assert.Empty(t, svc.List("555"))
	assert.Equal(t, denialReply, r.Handle(ctx, "555", "/list"))
}

func TestListAndStatus(t *testing.T) {
	r, _, _ := newRouter(t)
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")

	assert.Equal(t, "Your watchlist is empty.", r.Handle(ctx, "555", "/list"))
	assert.Equal(t, "Your watchlist is empty.", r.Handle(ctx, "555", "/status"))

	r.Handle(ctx, "555", "/add hikaru")
	assert.Equal(t, "♟ Watched players:\n• hikaru", r.Handle(ctx, "555", "/list"))
	assert.Equal(t, "♟ Player Status:\n• hikaru: UNKNOWN (Last Online: Unknown)", r.Handle(ctx, "555", "/status"))
}

func TestMalformedInput(t *testing.T) {
	r, _, _ := newRouter(t)
	ctx := context.Background()
	r.Handle(ctx, "1000", "/authorize 555")

	assert.Equal(t, "Usage: /add <username>", r.Handle(ctx, "555", "/add"))
	assert.Equal(t, "Usage: /add <username>", r.Handle(ctx, "555", "/add one two"))
	assert.Equal(t, "Usage: /setlimit <userID> <n>", r.Handle(ctx, "1000", "/setlimit 555 many"))
	assert.Equal(t, "", r.Handle(ctx, "555", "plain text, not a command"))
	assert.Equal(t, "", r.Handle(ctx, "555", "/frobnicate"))
	assert.Equal(t, "", r.Handle(ctx, "555", "   "))
}
