// Package chesscom wraps the three chess.com endpoints the bot needs:
// handle→uuid resolution, batched presence lookup and the public player
// profile (for last_online). All calls are side-effect-free, bounded by
// a timeout and fail soft: the caller treats any error as "no data this
// cycle".
package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "chesswatch-bot/internal/common/errors"
	"chesswatch-bot/internal/features/watchlist/models"
)

// The presence service rejects default Go user agents, so the client
// presents a browser-like one (same trick the bot has always used).
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/115.0.0.0 Safari/537.36"

const (
	simpleTimeout = 5 * time.Second
	batchTimeout  = 10 * time.Second
)

// MaxBatchSize caps how many tokens go into one presence request.
const MaxBatchSize = 100

type Client struct {
	httpClient *http.Client

	// overridable in tests
	wwwBase   string
	pubBase   string
	userAgent string
}

type Option func(*Client)

// WithBaseURLs redirects the www and pub API hosts (tests).
func WithBaseURLs(www, pub string) Option {
	return func(c *Client) {
		c.wwwBase = www
		c.pubBase = pub
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: batchTimeout},
		wwwBase:    "https://www.chess.com",
		pubBase:    "https://api.chess.com",
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveIdentity looks up the opaque presence token (uuid) for a
// handle. An empty token with nil error means the profile exists but
// carries no uuid; both cases are "skip this cycle" for the caller.
func (c *Client) ResolveIdentity(ctx context.Context, handle string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, simpleTimeout)
	defer cancel()

	var payload struct {
		UUID string `json:"uuid"`
	}
	endpoint := fmt.Sprintf("%s/callback/user/popup/%s", c.wwwBase, url.PathEscape(handle))
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return "", apperrors.NewChessAPIError("resolve identity", err).WithContext("handle", handle)
	}
	return payload.UUID, nil
}

// FetchPresenceBatch fetches live status for the given tokens, issuing
// one request per MaxBatchSize chunk and merging the results. On any
// failure the whole batch is discarded; partial results from a failed
// response are never trusted.
func (c *Client) FetchPresenceBatch(ctx context.Context, tokens []string) (map[string]models.Status, error) {
	out := make(map[string]models.Status, len(tokens))
	for len(tokens) > 0 {
		n := len(tokens)
		if n > MaxBatchSize {
			n = MaxBatchSize
		}
		chunk, err := c.fetchPresenceChunk(ctx, tokens[:n])
		if err != nil {
			return nil, err
		}
		for tok, status := range chunk {
			out[tok] = status
		}
		tokens = tokens[n:]
	}
	return out, nil
}

func (c *Client) fetchPresenceChunk(ctx context.Context, tokens []string) (map[string]models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	var payload struct {
		Users []struct {
			UserID string `json:"userId"`
			Status string `json:"status"`
		} `json:"users"`
	}
	endpoint := fmt.Sprintf("%s/service/presence/users?ids=%s", c.wwwBase, url.QueryEscape(strings.Join(tokens, ",")))
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, apperrors.NewChessAPIError("fetch presence batch", err)
	}

	out := make(map[string]models.Status, len(payload.Users))
	for _, u := range payload.Users {
		if u.UserID == "" {
			continue
		}
		out[u.UserID] = parseStatus(u.Status)
	}
	return out, nil
}

// FetchLastSeen returns the last_online unix time from the public
// profile endpoint. Zero with nil error means the field is absent.
func (c *Client) FetchLastSeen(ctx context.Context, handle string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, simpleTimeout)
	defer cancel()

	var payload struct {
		LastOnline int64 `json:"last_online"`
	}
	endpoint := fmt.Sprintf("%s/pub/player/%s", c.pubBase, url.PathEscape(handle))
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return 0, apperrors.NewChessAPIError("fetch last seen", err).WithContext("handle", handle)
	}
	return payload.LastOnline, nil
}

func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func parseStatus(s string) models.Status {
	switch strings.ToLower(s) {
	case "online":
		return models.StatusOnline
	case "offline":
		return models.StatusOffline
	default:
		return models.StatusUnknown
	}
}
