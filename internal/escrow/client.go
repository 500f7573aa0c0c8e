package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
)

// HeaderProvider allows injecting per-request headers (auth tokens etc).
type HeaderProvider func() map[string]string

// Client talks to a remote escrow service over HTTP:
//
//	POST /collect {player, amount, token}
//	POST /payout  {player, amount, token}
//
// with the idempotency key in the Idempotency-Key header.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

const headerIdempotencyKey = "Idempotency-Key"

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDialer replaces the transport dialer, e.g. an in-memory listener in tests.
func WithDialer(d fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transferRequest struct {
	Player string `json:"player"`
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

// APIError is a non-2xx answer from the escrow service. A 402 unwraps to
// ErrInsufficientFunds.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("escrow: status=%d body=%s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.Status == fasthttp.StatusPaymentRequired {
		return ErrInsufficientFunds
	}
	return nil
}

func (c *Client) Collect(ctx context.Context, player string, stake match.Stake, key string) error {
	return c.transfer(ctx, "/collect", key, transferRequest{Player: player, Amount: stake.Amount, Token: stake.Token})
}

func (c *Client) Payout(ctx context.Context, p match.Payout, key string) error {
	return c.transfer(ctx, "/payout", key, transferRequest{Player: p.Player, Amount: p.Amount, Token: p.Token})
}

// transfer posts one movement of funds. The service answers 409 when the
// idempotency key was already applied, which counts as success.
func (c *Client) transfer(ctx context.Context, path, key string, in transferRequest) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set(headerIdempotencyKey, key)
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	req.SetBody(payload)

	attempts := max(c.retryMax, 1)
	var lastErr error
	for attempt := 1; ; attempt++ {
		retry := true
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("escrow %s: %w", path, err)
		} else {
			switch status := resp.StatusCode(); {
			case status >= 200 && status < 300, status == fasthttp.StatusConflict:
				return nil
			default:
				lastErr = &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
				retry = retryableStatus(status)
			}
		}
		if !retry || attempt >= attempts {
			return lastErr
		}
		obslog.L().Debug("escrow_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(lastErr))
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			return lastErr
		}
	}
}

func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.defaultTimeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 100ms and stops growing after 3.2s.
func backoff(attempt int) time.Duration {
	return 100 * time.Millisecond << min(max(attempt-1, 0), 5)
}

func retryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
