package chesscom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chesswatch-bot/internal/features/watchlist/models"
)

func TestResolveIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/callback/user/popup/magnuscarlsen", r.URL.Path)
		assert.NotContains(t, r.Header.Get("User-Agent"), "Go-http-client")
		w.Write([]byte(`{"uuid":"uuid-magnus","name":"Magnus"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	token, err := c.ResolveIdentity(context.Background(), "magnuscarlsen")
	require.NoError(t, err)
	assert.Equal(t, "uuid-magnus", token)
}

func TestResolveIdentityMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"someone"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	token, err := c.ResolveIdentity(context.Background(), "someone")
	require.NoError(t, err)
	assert.Empty(t, token, "absent uuid is not an error, just no token")
}

func TestResolveIdentityNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	_, err := c.ResolveIdentity(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestFetchPresenceBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/service/presence/users", r.URL.Path)
		assert.Equal(t, "u1,u2", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"users":[{"userId":"u1","status":"online"},{"userId":"u2","status":"idle"}]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	got, err := c.FetchPresenceBatch(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Status{
		"u1": models.StatusOnline,
		"u2": models.StatusUnknown,
	}, got)
}

func TestFetchPresenceBatchEmpty(t *testing.T) {
	c := NewClient()
	got, err := c.FetchPresenceBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchPresenceBatchChunksLargeInput(t *testing.T) {
	var requests [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		requests = append(requests, ids)

		var b strings.Builder
		b.WriteString(`{"users":[`)
		for i, id := range ids {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"userId":%q,"status":"online"}`, id)
		}
		b.WriteString(`]}`)
		w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	tokens := make([]string, 150)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("uuid-%03d", i)
	}

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	got, err := c.FetchPresenceBatch(context.Background(), tokens)
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Len(t, requests[0], MaxBatchSize)
	assert.Len(t, requests[1], 50)

	require.Len(t, got, 150, "no token may be dropped")
	for _, tok := range tokens {
		assert.Equal(t, models.StatusOnline, got[tok])
	}
}

func TestFetchPresenceBatchChunkFailureDiscardsAll(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"users":[{"userId":"uuid-000","status":"online"}]}`))
	}))
	defer srv.Close()

	tokens := make([]string, MaxBatchSize+1)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("uuid-%03d", i)
	}

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	got, err := c.FetchPresenceBatch(context.Background(), tokens)
	assert.Error(t, err)
	assert.Nil(t, got, "partial results from a failed batch are discarded")
}

func TestFetchPresenceBatchFailureDiscardsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	got, err := c.FetchPresenceBatch(context.Background(), []string{"u1"})
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestFetchLastSeen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub/player/magnuscarlsen", r.URL.Path)
		w.Write([]byte(`{"last_online":1700000000}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURLs(srv.URL, srv.URL))
	ts, err := c.FetchLastSeen(context.Background(), "magnuscarlsen")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)
}
