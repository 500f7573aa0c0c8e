package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/msgcat"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

type captured struct{ events []matchdto.Event }

func (c *captured) Publish(ev matchdto.Event) { c.events = append(c.events, ev) }

func newNarrator(t *testing.T) (*Narrator, *captured) {
	t.Helper()
	msgs, err := msgcat.New("")
	require.NoError(t, err)
	sink := &captured{}
	return NewNarrator(msgs, sink), sink
}

func TestLines(t *testing.T) {
	n, _ := newNarrator(t)

	m := &matchdto.Match{ID: 3, White: "alice", Black: "bob", ToMove: "bob", LastMove: "e2e4", State: "ongoing"}
	assert.Equal(t, "Match #3 started: alice (white) vs bob (black).",
		n.Line(matchdto.Event{Kind: matchdto.EventPaired, MatchID: 3, Match: m}))
	assert.Equal(t, "Match #3: alice played e2e4. bob to move.",
		n.Line(matchdto.Event{Kind: matchdto.EventMoved, MatchID: 3, Player: "alice", Match: m}))
	assert.Equal(t, "carol is waiting for an opponent.",
		n.Line(matchdto.Event{Kind: matchdto.EventWaiting, Player: "carol"}))

	ended := &matchdto.Match{ID: 3, White: "alice", Black: "bob", State: "black_won", Termination: "illegal_move"}
	assert.Equal(t, "Match #3 ended: black wins by illegal move claim.",
		n.Line(matchdto.Event{Kind: matchdto.EventEnded, MatchID: 3, Match: ended}))
}

func TestLineFallsBackToKind(t *testing.T) {
	n, _ := newNarrator(t)
	// paired needs the match for player names
	assert.Equal(t, "paired", n.Line(matchdto.Event{Kind: matchdto.EventPaired, MatchID: 1}))
	assert.Equal(t, "mystery", n.Line(matchdto.Event{Kind: "mystery"}))
}

func TestPublishKeepsExistingText(t *testing.T) {
	n, sink := newNarrator(t)
	n.Publish(matchdto.Event{Kind: matchdto.EventSettings})
	n.Publish(matchdto.Event{Kind: matchdto.EventSettings, Text: "custom"})
	require.Len(t, sink.events, 2)
	assert.Equal(t, "Arena settings changed.", sink.events[0].Text)
	assert.Equal(t, "custom", sink.events[1].Text)
}
