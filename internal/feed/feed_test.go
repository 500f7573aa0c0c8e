package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed" + query
}

func TestHubDeliversFilteredEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, "?match=7"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(matchdto.Event{Kind: matchdto.EventMoved, MatchID: 8})
	hub.Publish(matchdto.Event{Kind: matchdto.EventMoved, MatchID: 7, Player: "alice"})
	hub.Publish(matchdto.Event{Kind: matchdto.EventSettings})

	var ev matchdto.Event
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, uint64(7), ev.MatchID)
	assert.Equal(t, "alice", ev.Player)
	assert.False(t, ev.At.IsZero())

	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, matchdto.EventSettings, ev.Kind)
}

func TestHubRejectsBadMatchID(t *testing.T) {
	srv := httptest.NewServer(NewHub())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, wsURL(srv, "?match=x"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	s := &subscriber{events: make(chan matchdto.Event, 1), dropped: make(chan struct{})}
	hub := NewHub(WithBuffer(1))
	hub.add(s)

	hub.Publish(matchdto.Event{Kind: matchdto.EventMoved, MatchID: 1})
	hub.Publish(matchdto.Event{Kind: matchdto.EventMoved, MatchID: 1})

	select {
	case <-s.dropped:
	default:
		t.Fatal("expected subscriber to be dropped")
	}
}

func TestClientReceivesEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	var (
		mu  sync.Mutex
		got []matchdto.Event
	)
	c := NewClient(wsURL(srv, ""), WithHeaders(func() map[string]string {
		return map[string]string{"X-Player-Id": "watcher", "": "skip"}
	}))
	c.OnEvent(func(ev matchdto.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, StateConnected, c.State())
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(matchdto.Event{Kind: matchdto.EventPaired, MatchID: 3})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close(ctx))
}

func TestClientBackoff(t *testing.T) {
	c := NewClient("ws://unused", WithReconnect(3, time.Second))
	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 30*time.Second, c.backoff(10))
	assert.Equal(t, "reconnecting", StateReconnecting.String())
}
