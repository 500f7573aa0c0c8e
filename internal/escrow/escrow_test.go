package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/vladiouz/on-chain-chess/internal/match"
)

func TestMemoryCollectAndPayout(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Credit("alice", "CHESS", 15)

	stake := match.Stake{Amount: 10, Token: "CHESS"}
	require.NoError(t, m.Collect(ctx, "alice", stake, "k1"))
	require.NoError(t, m.Collect(ctx, "alice", stake, "k1"), "same key is a no-op")
	assert.Equal(t, uint64(5), m.Balance("alice", "CHESS"))

	err := m.Collect(ctx, "alice", stake, "k2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, m.Collect(ctx, "nobody", stake, "k3"), ErrInsufficientFunds)

	require.NoError(t, m.Payout(ctx, match.Payout{Player: "alice", Amount: 20, Token: "CHESS"}, "p1"))
	require.NoError(t, m.Payout(ctx, match.Payout{Player: "alice", Amount: 20, Token: "CHESS"}, "p1"))
	assert.Equal(t, uint64(25), m.Balance("alice", "CHESS"))
	assert.Len(t, m.Transfers(), 2)
}

func TestAmbiguous(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"insufficient funds", fmt.Errorf("%w: alice has 0 CHESS", ErrInsufficientFunds), false},
		{"payment required", &APIError{Status: 402}, false},
		{"bad request", &APIError{Status: 400}, false},
		{"server error", &APIError{Status: 502}, true},
		{"timeout", fmt.Errorf("escrow /collect: %w", fasthttp.ErrTimeout), true},
		{"canceled", context.Canceled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ambiguous(tt.err))
		})
	}
}

func TestPayoutKeyIsStable(t *testing.T) {
	assert.Equal(t, PayoutKey(3, "alice", 0), PayoutKey(3, "alice", 0))
	assert.NotEqual(t, PayoutKey(3, "alice", 0), PayoutKey(3, "alice", 1))
	assert.NotEqual(t, PayoutKey(3, "alice", 0), PayoutKey(4, "alice", 0))
	assert.NotEqual(t, NewKey(), NewKey())
}

type recorded struct {
	path string
	key  string
	body transferRequest
}

func serve(t *testing.T, handler fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestClientSendsIdempotencyKeyAndRetries(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []recorded
	)
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		defer mu.Unlock()
		var body transferRequest
		_ = json.Unmarshal(ctx.PostBody(), &body)
		calls = append(calls, recorded{path: string(ctx.Path()), key: string(ctx.Request.Header.Peek("Idempotency-Key")), body: body})
		if len(calls) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	c := NewClient("http://escrow.test",
		WithDialer(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
		WithHeaderProvider(func() map[string]string { return map[string]string{"Authorization": "Bearer x"} }),
	)
	err := c.Payout(context.Background(), match.Payout{Player: "bob", Amount: 40, Token: "CHESS"}, "key-1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, "/payout", call.path)
		assert.Equal(t, "key-1", call.key)
		assert.Equal(t, transferRequest{Player: "bob", Amount: 40, Token: "CHESS"}, call.body)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var n int
	var mu sync.Mutex
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		n++
		mu.Unlock()
		ctx.SetStatusCode(fasthttp.StatusPaymentRequired)
		ctx.SetBodyString("no funds")
	})
	c := NewClient("http://escrow.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }))

	err := c.Collect(context.Background(), "alice", match.Stake{Amount: 1, Token: "CHESS"}, "k")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusPaymentRequired, apiErr.Status)
	assert.Equal(t, "no funds", apiErr.Body)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	mu.Lock()
	assert.Equal(t, 1, n)
	mu.Unlock()
}

func TestClientTreatsReplayedKeyAsDone(t *testing.T) {
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusConflict)
	})
	c := NewClient("http://escrow.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }))
	require.NoError(t, c.Payout(context.Background(), match.Payout{Player: "bob", Amount: 1, Token: "CHESS"}, "k"))
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var n int
	var mu sync.Mutex
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		n++
		mu.Unlock()
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	c := NewClient("http://escrow.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }), WithRetry(2))

	err := c.Payout(context.Background(), match.Payout{Player: "bob", Amount: 1, Token: "CHESS"}, "k")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusBadGateway, apiErr.Status)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	mu.Lock()
	assert.Equal(t, 2, n)
	mu.Unlock()
}
