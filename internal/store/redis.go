package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/pairing"
)

const maxTxRetries = 8

const (
	fieldPaused      = "paused"
	fieldStakeAmount = "stake_amount"
	fieldStakeToken  = "stake_token"
)

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL (redis:// or rediss://) and pings it.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, prefix), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "chess"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) keyMatch(id uint64) string { return s.prefix + ":match:" + strconv.FormatUint(id, 10) }
func (s *RedisStore) keySeq() string            { return s.prefix + ":match:seq" }
func (s *RedisStore) keyPairing() string        { return s.prefix + ":pairing" }
func (s *RedisStore) keyScores() string         { return s.prefix + ":scores" }
func (s *RedisStore) keySettings() string       { return s.prefix + ":settings" }
func (s *RedisStore) keyUnsettled() string      { return s.prefix + ":payouts:unsettled" }
func (s *RedisStore) keyUserIdx(player string) string {
	return s.prefix + ":index:player:" + strings.TrimSpace(player)
}

// watch runs fn under WATCH, retrying when a watched key changed underneath.
func (s *RedisStore) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("store_tx_retry", zap.Int("attempt", attempt), zap.Strings("keys", keys))
			continue
		}
		return err
	}
	return apperr.ErrConflict
}

func (s *RedisStore) Join(ctx context.Context, player string, stake match.Stake, now uint64) (JoinResult, error) {
	var res JoinResult
	slotK, seqK := s.keyPairing(), s.keySeq()
	err := s.watch(ctx, func(tx *redis.Tx) error {
		res = JoinResult{}
		waiting, err := tx.Get(ctx, slotK).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, pair, err := pairing.Slot{Waiting: waiting}.Join(player)
		if err != nil {
			return err
		}
		if pair == nil {
			pipe := tx.TxPipeline()
			pipe.Set(ctx, slotK, next.Waiting, 0)
			_, err := pipe.Exec(ctx)
			return err
		}

		seq, err := tx.Get(ctx, seqK).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		m := match.New(seq+1, pair.White, pair.Black, stake, now)
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		id := strconv.FormatUint(m.ID, 10)
		pipe := tx.TxPipeline()
		pipe.Set(ctx, seqK, m.ID, 0)
		pipe.Set(ctx, s.keyMatch(m.ID), raw, 0)
		pipe.Del(ctx, slotK)
		pipe.SAdd(ctx, s.keyUserIdx(m.White), id)
		pipe.SAdd(ctx, s.keyUserIdx(m.Black), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		res.Match = m
		return nil
	}, slotK, seqK)
	return res, err
}

func (s *RedisStore) Withdraw(ctx context.Context, player string) error {
	slotK := s.keyPairing()
	return s.watch(ctx, func(tx *redis.Tx) error {
		waiting, err := tx.Get(ctx, slotK).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if _, err := (pairing.Slot{Waiting: waiting}).Withdraw(player); err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Del(ctx, slotK)
		_, err = pipe.Exec(ctx)
		return err
	}, slotK)
}

func (s *RedisStore) Waiting(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, s.keyPairing()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) Match(ctx context.Context, id uint64) (*match.Match, error) {
	return s.load(ctx, s.rdb, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, g getter, id uint64) (*match.Match, error) {
	raw, err := g.Get(ctx, s.keyMatch(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	var m match.Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode match %d: %w", id, err)
	}
	return &m, nil
}

func (s *RedisStore) UpdateMatch(ctx context.Context, id uint64, fn UpdateFunc) (*match.Match, match.Effects, error) {
	var (
		out *match.Match
		eff match.Effects
	)
	key := s.keyMatch(id)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		e, err := fn(cur)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, 0)
		for _, d := range e.Scores {
			pipe.HIncrBy(ctx, s.keyScores(), d.Player, d.Points)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out, eff = cur, e
		return nil
	}, key)
	if err != nil {
		return nil, match.Effects{}, err
	}
	return out, eff, nil
}

func (s *RedisStore) MatchesOf(ctx context.Context, player string) ([]uint64, error) {
	members, err := s.rdb.SMembers(ctx, s.keyUserIdx(player)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, v := range members {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			ids = append(ids, n)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *RedisStore) Score(ctx context.Context, player string) (int64, error) {
	n, err := s.rdb.HGet(ctx, s.keyScores(), player).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *RedisStore) Settings(ctx context.Context) (Settings, error) {
	vals, err := s.rdb.HGetAll(ctx, s.keySettings()).Result()
	if err != nil {
		return Settings{}, err
	}
	// never configured means paused
	out := Settings{Paused: true}
	if v, ok := vals[fieldPaused]; ok {
		out.Paused = v == "1"
	}
	if v, ok := vals[fieldStakeAmount]; ok {
		amount, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Settings{}, fmt.Errorf("decode stake amount: %w", err)
		}
		out.Stake = match.Stake{Amount: amount, Token: vals[fieldStakeToken]}
		out.StakeSet = true
	}
	return out, nil
}

func (s *RedisStore) SeedSettings(ctx context.Context, in Settings) error {
	key := s.keySettings()
	if err := s.rdb.HSetNX(ctx, key, fieldPaused, boolField(in.Paused)).Err(); err != nil {
		return err
	}
	if in.StakeSet {
		if _, err := s.SetStakeIfEmpty(ctx, in.Stake); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) SetPaused(ctx context.Context, paused bool) error {
	return s.rdb.HSet(ctx, s.keySettings(), fieldPaused, boolField(paused)).Err()
}

func (s *RedisStore) SetStakeIfEmpty(ctx context.Context, stake match.Stake) (bool, error) {
	key := s.keySettings()
	var set bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		set = false
		exists, err := tx.HExists(ctx, key, fieldStakeAmount).Result()
		if err != nil || exists {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.HSet(ctx, key, fieldStakeAmount, strconv.FormatUint(stake.Amount, 10), fieldStakeToken, stake.Token)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		set = true
		return nil
	}, key)
	return set, err
}

// AddUnsettled records p under its idempotency key; a later failure of the
// same payout overwrites the entry.
func (s *RedisStore) AddUnsettled(ctx context.Context, p UnsettledPayout) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.keyUnsettled(), p.Key, raw).Err()
}

func (s *RedisStore) Unsettled(ctx context.Context) ([]UnsettledPayout, error) {
	all, err := s.rdb.HGetAll(ctx, s.keyUnsettled()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]UnsettledPayout, 0, len(all))
	for key, raw := range all {
		var p UnsettledPayout
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			// left in place for inspection
			obslog.L().Error("unsettled_decode_error", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *RedisStore) SettleUnsettled(ctx context.Context, key string) error {
	return s.rdb.HDel(ctx, s.keyUnsettled(), key).Err()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseRedisURL turns redis://[:password@]host:port/db into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
