package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/pairing"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu sync.Mutex

	nextID    uint64
	slot      pairing.Slot
	matches   map[uint64]*match.Match
	byPlayer  map[string][]uint64
	scores    map[string]int64
	settings  Settings
	seeded    bool
	unsettled map[string]UnsettledPayout
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:   make(map[uint64]*match.Match),
		byPlayer:  make(map[string][]uint64),
		scores:    make(map[string]int64),
		settings:  Settings{Paused: true},
		unsettled: make(map[string]UnsettledPayout),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Join(_ context.Context, player string, stake match.Stake, now uint64) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, pair, err := s.slot.Join(player)
	if err != nil {
		return JoinResult{}, err
	}
	s.slot = next
	if pair == nil {
		return JoinResult{}, nil
	}
	s.nextID++
	m := match.New(s.nextID, pair.White, pair.Black, stake, now)
	s.matches[m.ID] = m
	s.byPlayer[m.White] = append(s.byPlayer[m.White], m.ID)
	s.byPlayer[m.Black] = append(s.byPlayer[m.Black], m.ID)
	return JoinResult{Match: m.Clone()}, nil
}

func (s *MemoryStore) Withdraw(_ context.Context, player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.slot.Withdraw(player)
	if err != nil {
		return err
	}
	s.slot = next
	return nil
}

func (s *MemoryStore) Waiting(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot.Waiting, nil
}

func (s *MemoryStore) Match(_ context.Context, id uint64) (*match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, apperr.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) UpdateMatch(_ context.Context, id uint64, fn UpdateFunc) (*match.Match, match.Effects, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[id]
	if !ok {
		return nil, match.Effects{}, apperr.ErrMatchNotFound
	}
	// work on a copy so a failing fn cannot leave partial writes behind
	cur := stored.Clone()
	eff, err := fn(cur)
	if err != nil {
		return nil, match.Effects{}, err
	}
	s.matches[id] = cur
	for _, d := range eff.Scores {
		s.scores[d.Player] += d.Points
	}
	return cur.Clone(), eff, nil
}

func (s *MemoryStore) MatchesOf(_ context.Context, player string) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]uint64(nil), s.byPlayer[player]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) Score(_ context.Context, player string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[player], nil
}

func (s *MemoryStore) Settings(context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *MemoryStore) SeedSettings(_ context.Context, in Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded {
		s.settings.Paused = in.Paused
		s.seeded = true
	}
	if in.StakeSet && !s.settings.StakeSet {
		s.settings.Stake, s.settings.StakeSet = in.Stake, true
	}
	return nil
}

func (s *MemoryStore) SetPaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Paused = paused
	s.seeded = true
	return nil
}

func (s *MemoryStore) SetStakeIfEmpty(_ context.Context, stake match.Stake) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.StakeSet {
		return false, nil
	}
	s.settings.Stake, s.settings.StakeSet = stake, true
	return true, nil
}

func (s *MemoryStore) AddUnsettled(_ context.Context, p UnsettledPayout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsettled[p.Key] = p
	return nil
}

func (s *MemoryStore) Unsettled(context.Context) ([]UnsettledPayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UnsettledPayout, 0, len(s.unsettled))
	for _, p := range s.unsettled {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) SettleUnsettled(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unsettled, key)
	return nil
}
