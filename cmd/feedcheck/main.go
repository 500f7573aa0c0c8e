package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vladiouz/on-chain-chess/internal/feed"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

func main() {
	wsURL := os.Getenv("CHESS_FEED_URL")
	token := os.Getenv("CHESS_TOKEN")
	if wsURL == "" {
		log.Fatal("CHESS_FEED_URL is required (e.g. ws://localhost:8081/?match=1)")
	}

	headers := func() map[string]string {
		if token == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}

	c := feed.NewClient(wsURL,
		feed.WithHeaders(headers),
		feed.WithReconnect(5, time.Second),
	)
	c.OnStateChange(func(state feed.State) {
		log.Printf("feed state: %s", state)
	})
	c.OnEvent(func(ev matchdto.Event) {
		line := fmt.Sprintf("%s match=%d", ev.Kind, ev.MatchID)
		if ev.Player != "" {
			line += " player=" + ev.Player
		}
		if ev.Match != nil {
			line += fmt.Sprintf(" state=%s moves=%d fen=%q", ev.Match.State, ev.Match.Moves, ev.Match.FEN)
		}
		fmt.Println(line)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		log.Printf("feed connect error: %v", err)
		return
	}

	// Observe for a short window
	window := 30 * time.Second
	if v := os.Getenv("CHESS_FEED_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			window = d
		}
	}
	t := time.NewTimer(window)
	<-t.C

	_ = c.Close(context.Background())
}
