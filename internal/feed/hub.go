// Package feed streams arena events to websocket subscribers.
package feed

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

const (
	defaultBuffer = 32
	writeTimeout  = 5 * time.Second
)

type subscriber struct {
	matchID uint64
	events  chan matchdto.Event
	// closed when the hub drops the subscriber
	dropped chan struct{}
	once    sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.dropped) })
}

func (s *subscriber) wants(ev matchdto.Event) bool {
	return s.matchID == 0 || ev.MatchID == 0 || ev.MatchID == s.matchID
}

// Hub fans events out to websocket subscribers. A subscriber that cannot keep
// up with its buffer is disconnected instead of blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	buffer int
	origin []string
}

type HubOption func(*Hub)

func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithOriginPatterns allows cross-origin browsers matching the patterns.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.origin = append(h.origin, patterns...) }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{subs: make(map[*subscriber]struct{}), buffer: defaultBuffer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every interested subscriber without blocking.
func (h *Hub) Publish(ev matchdto.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			s.drop()
		}
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until either side closes.
// The optional "match" query parameter restricts the stream to one match.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var matchID uint64
	if raw := r.URL.Query().Get("match"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		matchID = id
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origin,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("feed_accept_failed", zap.Error(err))
		return
	}

	s := &subscriber{
		matchID: matchID,
		events:  make(chan matchdto.Event, h.buffer),
		dropped: make(chan struct{}),
	}
	h.add(s)
	defer h.remove(s)

	// clients never send; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(r.Context())
	obslog.L().Debug("feed_subscribed", zap.Uint64("match_id", matchID))

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-s.dropped:
			obslog.L().Info("feed_subscriber_dropped", zap.Uint64("match_id", matchID))
			_ = conn.Close(websocket.StatusPolicyViolation, "slow consumer")
			return
		case ev := <-s.events:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					obslog.L().Debug("feed_write_failed", zap.Error(err))
				}
				_ = conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}
