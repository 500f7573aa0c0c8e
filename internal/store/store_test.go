package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
)

var stake = match.Stake{Amount: 10, Token: "CHESS"}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	s, err := NewRedisStore(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), "test")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

func TestJoinPairsAndAllocatesIDs(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := s.Join(ctx, "alice", stake, 5)
		require.NoError(t, err)
		assert.True(t, res.Waiting())
		w, _ := s.Waiting(ctx)
		assert.Equal(t, "alice", w)

		_, err = s.Join(ctx, "alice", stake, 5)
		assert.ErrorIs(t, err, apperr.ErrSelfPairing)

		res, err = s.Join(ctx, "bob", stake, 6)
		require.NoError(t, err)
		require.NotNil(t, res.Match)
		assert.Equal(t, uint64(1), res.Match.ID)
		assert.Equal(t, "alice", res.Match.White)
		assert.Equal(t, "bob", res.Match.Black)
		assert.Equal(t, uint64(6), res.Match.LastMoveEpoch)
		w, _ = s.Waiting(ctx)
		assert.Empty(t, w)

		_, _ = s.Join(ctx, "carol", stake, 7)
		res, err = s.Join(ctx, "dave", stake, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), res.Match.ID)

		loaded, err := s.Match(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, board.StartPosition(), loaded.Board)
		assert.Equal(t, stake, loaded.Stake)

		ids, err := s.MatchesOf(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, ids)

		_, err = s.Match(ctx, 99)
		assert.ErrorIs(t, err, apperr.ErrMatchNotFound)
	})
}

func TestWithdraw(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.ErrorIs(t, s.Withdraw(ctx, "alice"), apperr.ErrNotWaiting)
		_, err := s.Join(ctx, "alice", stake, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, s.Withdraw(ctx, "bob"), apperr.ErrNotWaiting)
		require.NoError(t, s.Withdraw(ctx, "alice"))
		w, _ := s.Waiting(ctx)
		assert.Empty(t, w)
	})
}

func TestUpdateMatchCommitsScoresWithTransition(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _ = s.Join(ctx, "alice", stake, 0)
		_, _ = s.Join(ctx, "bob", stake, 0)

		m, _, err := s.UpdateMatch(ctx, 1, func(m *match.Match) (match.Effects, error) {
			return match.Effects{}, m.Move("alice", board.MustSquare("e2"), board.MustSquare("e4"), 0, match.DefaultRules())
		})
		require.NoError(t, err)
		assert.Equal(t, board.Black, m.Turn)

		m, eff, err := s.UpdateMatch(ctx, 1, func(m *match.Match) (match.Effects, error) {
			return m.Resign("bob")
		})
		require.NoError(t, err)
		assert.Equal(t, match.WhiteWon, m.State)
		assert.Len(t, eff.Payouts, 1)

		score, err := s.Score(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(2), score)
		score, _ = s.Score(ctx, "bob")
		assert.Zero(t, score)

		reloaded, err := s.Match(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, m, reloaded)
	})
}

func TestUpdateMatchErrorLeavesStateUntouched(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _ = s.Join(ctx, "alice", stake, 0)
		_, _ = s.Join(ctx, "bob", stake, 0)
		before, _ := s.Match(ctx, 1)

		boom := errors.New("boom")
		_, _, err := s.UpdateMatch(ctx, 1, func(m *match.Match) (match.Effects, error) {
			m.Turn = board.Black
			return match.Effects{Scores: []match.ScoreDelta{{Player: "alice", Points: 5}}}, boom
		})
		assert.ErrorIs(t, err, boom)

		after, _ := s.Match(ctx, 1)
		assert.Equal(t, before, after)
		score, _ := s.Score(ctx, "alice")
		assert.Zero(t, score)

		_, _, err = s.UpdateMatch(ctx, 42, func(*match.Match) (match.Effects, error) { return match.Effects{}, nil })
		assert.ErrorIs(t, err, apperr.ErrMatchNotFound)
	})
}

func TestSettings(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		st, err := s.Settings(ctx)
		require.NoError(t, err)
		assert.True(t, st.Paused, "a fresh arena starts paused")
		assert.False(t, st.StakeSet)

		require.NoError(t, s.SeedSettings(ctx, Settings{Paused: false}))
		st, _ = s.Settings(ctx)
		assert.False(t, st.Paused)

		require.NoError(t, s.SetPaused(ctx, true))
		require.NoError(t, s.SeedSettings(ctx, Settings{Paused: false}))
		st, _ = s.Settings(ctx)
		assert.True(t, st.Paused, "seeding never overrides an explicit value")

		ok, err := s.SetStakeIfEmpty(ctx, stake)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.SetStakeIfEmpty(ctx, match.Stake{Amount: 99, Token: "X"})
		require.NoError(t, err)
		assert.False(t, ok)
		st, _ = s.Settings(ctx)
		assert.True(t, st.StakeSet)
		assert.Equal(t, stake, st.Stake)
	})
}

func TestUnsettledPayouts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p1 := UnsettledPayout{Key: "k1", MatchID: 3, Payout: match.Payout{Player: "alice", Amount: 20, Token: "CHESS"}, Reason: "timeout"}
		p2 := UnsettledPayout{Key: "k2", MatchID: 3, Payout: match.Payout{Player: "bob", Amount: 20, Token: "CHESS"}, Reason: "timeout"}
		require.NoError(t, s.AddUnsettled(ctx, p2))
		require.NoError(t, s.AddUnsettled(ctx, p1))

		// listing does not consume
		for range 2 {
			got, err := s.Unsettled(ctx)
			require.NoError(t, err)
			assert.Equal(t, []UnsettledPayout{p1, p2}, got)
		}

		p1.Reason = "502"
		require.NoError(t, s.AddUnsettled(ctx, p1))
		require.NoError(t, s.SettleUnsettled(ctx, "k2"))
		got, err := s.Unsettled(ctx)
		require.NoError(t, err)
		assert.Equal(t, []UnsettledPayout{p1}, got)

		require.NoError(t, s.SettleUnsettled(ctx, "k1"))
		require.NoError(t, s.SettleUnsettled(ctx, "missing"))
		got, err = s.Unsettled(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestConcurrentJoinsPairEachPlayerOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const players = 20
		var wg sync.WaitGroup
		for i := 0; i < players; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for {
					_, err := s.Join(ctx, fmt.Sprintf("p%02d", i), stake, 0)
					if errors.Is(err, apperr.ErrConflict) {
						continue
					}
					assert.NoError(t, err)
					return
				}
			}(i)
		}
		wg.Wait()

		seen := map[string]int{}
		for id := uint64(1); id <= players/2; id++ {
			m, err := s.Match(ctx, id)
			require.NoError(t, err, "match %d", id)
			seen[m.White]++
			seen[m.Black]++
		}
		_, err := s.Match(ctx, players/2+1)
		assert.ErrorIs(t, err, apperr.ErrMatchNotFound)
		assert.Len(t, seen, players)
		for p, n := range seen {
			assert.Equal(t, 1, n, p)
		}
	})
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = ParseRedisURL("http://localhost")
	assert.Error(t, err)
}
