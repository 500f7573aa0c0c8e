package matchdto

import "time"

type EventKind string

const (
	EventWaiting     EventKind = "waiting"
	EventWithdrawn   EventKind = "withdrawn"
	EventPaired      EventKind = "paired"
	EventMoved       EventKind = "moved"
	EventDrawOffered EventKind = "draw_offered"
	EventEnded       EventKind = "ended"
	EventSettings    EventKind = "settings"
)

// Event is one message on the live feed. MatchID is zero for arena-wide events.
type Event struct {
	Kind    EventKind `json:"kind"`
	MatchID uint64    `json:"match_id,omitempty"`
	Player  string    `json:"player,omitempty"`
	Match   *Match    `json:"match,omitempty"`
	Text    string    `json:"text,omitempty"`
	At      time.Time `json:"at"`
}
