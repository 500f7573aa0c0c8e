package feed

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type EventCallback func(ev matchdto.Event)

type StateCallback func(state State)

type HeaderProvider func() map[string]string

// Client subscribes to a feed and reconnects with backoff when the stream drops.
type Client struct {
	url string

	connM sync.Mutex
	conn  *websocket.Conn

	state  State
	stateM sync.RWMutex

	eventCbs []EventCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnects  int
	reconnectDelay time.Duration
	headers        HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type ClientOption func(*Client)

func WithReconnect(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxReconnects = attempts
		if delay > 0 {
			c.reconnectDelay = delay
		}
	}
}

func WithHeaders(h HeaderProvider) ClientOption {
	return func(c *Client) { c.headers = h }
}

func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:            url,
		state:          StateDisconnected,
		reconnectDelay: 500 * time.Millisecond,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	return c
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) OnEvent(cb EventCallback) {
	c.cbM.Lock()
	c.eventCbs = append(c.eventCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

// Connect dials once; on failure it still schedules background reconnects.
func (c *Client) Connect(ctx context.Context) error {
	if s := c.State(); s == StateConnected || s == StateConnecting {
		return nil
	}
	c.setState(StateConnecting)
	if err := c.dial(ctx); err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		return err
	}
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)

	c.wg.Add(1)
	go c.listen(conn)
	return nil
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var ev matchdto.Event
		if err := wsjson.Read(c.rootCtx, conn, &ev); err != nil {
			if c.stopping() {
				return
			}
			c.setState(StateDisconnected)
			c.closeConn(websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}

		c.cbM.RLock()
		cbs := append([]EventCallback(nil), c.eventCbs...)
		c.cbM.RUnlock()
		for _, cb := range cbs {
			cb(ev)
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnects <= 0 {
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnects; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.backoff(attempt)):
			}
			if err := c.dial(c.rootCtx); err == nil {
				return
			}
		}
		c.setState(StateFailed)
	}()
}

// backoff doubles the base delay per attempt, capped at 30s.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.reconnectDelay
	for i := 1; i < attempt && d < 30*time.Second; i++ {
		d *= 2
	}
	return min(d, 30*time.Second)
}

func (c *Client) setState(s State) {
	c.stateM.Lock()
	c.state = s
	c.stateM.Unlock()

	c.cbM.RLock()
	cbs := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.closeConn(websocket.StatusNormalClosure, "close")
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Client) closeConn(code websocket.StatusCode, reason string) {
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn != nil {
		_ = conn.Close(code, reason)
	}
}

func (c *Client) stopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headers == nil {
		return hdr
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
