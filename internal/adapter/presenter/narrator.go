// Package presenter turns arena events into human-readable feed lines.
package presenter

import (
	"strings"

	"github.com/vladiouz/on-chain-chess/internal/msgcat"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

// Sink receives narrated events; the feed hub is one.
type Sink interface {
	Publish(ev matchdto.Event)
}

// Narrator fills Event.Text from the message catalog before forwarding.
type Narrator struct {
	msgs *msgcat.Catalog
	next Sink
}

func NewNarrator(msgs *msgcat.Catalog, next Sink) *Narrator {
	return &Narrator{msgs: msgs, next: next}
}

func (n *Narrator) Publish(ev matchdto.Event) {
	if n == nil || n.next == nil {
		return
	}
	if strings.TrimSpace(ev.Text) == "" {
		ev.Text = n.Line(ev)
	}
	n.next.Publish(ev)
}

// Line renders ev. Kinds without a template, or events missing the data a
// template needs, fall back to the bare kind.
func (n *Narrator) Line(ev matchdto.Event) string {
	fallback := string(ev.Kind)
	if n == nil || n.msgs == nil {
		return fallback
	}
	data := map[string]any{
		"ID":     ev.MatchID,
		"Player": ev.Player,
	}
	if m := ev.Match; m != nil {
		data["White"] = m.White
		data["Black"] = m.Black
		data["Move"] = m.LastMove
		data["ToMove"] = m.ToMove
		data["Outcome"] = n.msgs.Text("outcome."+m.State, nil, m.State)
		data["Termination"] = n.msgs.Text("termination."+m.Termination, nil, m.Termination)
	}
	return n.msgs.Text("event."+string(ev.Kind), data, fallback)
}
