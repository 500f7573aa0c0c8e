// Package arena runs the wagered match arena: it gates calls, moves stakes
// through the escrow and drives matches through the store.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/escrow"
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/store"
	"github.com/vladiouz/on-chain-chess/internal/telemetry"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

// Publisher receives match events, e.g. the live feed hub.
type Publisher interface {
	Publish(ev matchdto.Event)
}

// ResultSink records finished matches.
type ResultSink interface {
	SaveResult(ctx context.Context, m *match.Match) error
}

type Manager struct {
	store  store.Store
	escrow escrow.Escrow
	epochs EpochSource
	rules  match.Rules
	owner  string

	results   ResultSink
	publisher Publisher
	tracer    trace.Tracer
}

type Option func(*Manager)

func WithRules(r match.Rules) Option {
	return func(m *Manager) { m.rules = r }
}

func WithResultSink(s ResultSink) Option {
	return func(m *Manager) { m.results = s }
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

func NewManager(st store.Store, esc escrow.Escrow, epochs EpochSource, owner string, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		escrow: esc,
		epochs: epochs,
		rules:  match.DefaultRules(),
		owner:  strings.TrimSpace(owner),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Rules() match.Rules { return m.rules }

func (m *Manager) Epoch() uint64 { return m.epochs.Now() }

// Seed writes the initial settings unless the store already has them.
// Stake terms follow the same rules as SetStake; a zero stake leaves them unset.
func (m *Manager) Seed(ctx context.Context, paused bool, stake match.Stake) error {
	stake.Token = strings.TrimSpace(stake.Token)
	if !stake.IsZero() {
		if err := checkStake(stake); err != nil {
			return err
		}
	}
	return m.store.SeedSettings(ctx, store.Settings{Paused: paused, Stake: stake, StakeSet: !stake.IsZero()})
}

func checkStake(stake match.Stake) error {
	if stake.Token == "" {
		return apperr.New(apperr.CodeInvalidArgument, "stake token is required")
	}
	// a win pays twice the stake
	if stake.Amount > math.MaxUint64/2 {
		return apperr.New(apperr.CodeInvalidArgument, "stake amount too large")
	}
	return nil
}

func (m *Manager) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "arena."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
	}
	span.End()
}

func (m *Manager) requireActive(ctx context.Context) (store.Settings, error) {
	s, err := m.store.Settings(ctx)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	if s.Paused {
		return s, apperr.ErrNotActive
	}
	return s, nil
}

func (m *Manager) requireOwner(caller string) error {
	if m.owner == "" || strings.TrimSpace(caller) != m.owner {
		return apperr.ErrNotOwner
	}
	return nil
}

// Join pays the stake and enters the pairing slot. It returns the new match
// when the caller was paired, or nil when the caller is now waiting.
func (m *Manager) Join(ctx context.Context, player string, payment match.Stake) (_ *match.Match, err error) {
	player = strings.TrimSpace(player)
	ctx, span := m.span(ctx, "join", attribute.String("player", player))
	defer func() { endSpan(span, err) }()

	if player == "" {
		return nil, apperr.ErrInvalidArgument
	}
	settings, err := m.requireActive(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.StakeSet || !payment.Equal(settings.Stake) {
		return nil, apperr.ErrWrongStake
	}
	waiting, err := m.store.Waiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pairing slot: %w", err)
	}
	if waiting == player {
		return nil, apperr.ErrSelfPairing
	}

	stake := settings.Stake
	key := escrow.NewKey()
	if stake.Amount > 0 {
		if err := m.escrow.Collect(ctx, player, stake, key); err != nil {
			obslog.L().Warn("stake_collect_failed", zap.String("player", player), zap.Error(err))
			if escrow.Ambiguous(err) {
				// the service may have taken the stake; owner resettles the refund
				m.park(ctx, store.UnsettledPayout{
					Key:    key + "/refund",
					Payout: match.Payout{Player: player, Amount: stake.Amount, Token: stake.Token},
					Reason: "collect outcome unknown: " + err.Error(),
				})
			}
			return nil, fmt.Errorf("collect stake: %w", err)
		}
	}

	res, err := m.store.Join(ctx, player, stake, m.epochs.Now())
	if err != nil {
		// the slot never took the caller, so the stake goes back
		m.pay(ctx, 0, match.Payout{Player: player, Amount: stake.Amount, Token: stake.Token}, key+"/refund")
		return nil, err
	}

	if res.Waiting() {
		obslog.L().Info("pairing_wait", zap.String("player", player))
		m.publish(matchdto.Event{Kind: matchdto.EventWaiting, Player: player})
		return nil, nil
	}
	mt := res.Match
	span.SetAttributes(attribute.Int64("match.id", int64(mt.ID)))
	obslog.L().Info("match_create",
		zap.Uint64("match_id", mt.ID),
		zap.String("white", mt.White),
		zap.String("black", mt.Black),
		zap.Uint64("stake", mt.Stake.Amount),
		zap.String("token", mt.Stake.Token),
	)
	m.publish(matchdto.Event{Kind: matchdto.EventPaired, MatchID: mt.ID, Player: player, Match: ToDTO(mt, m.rules)})
	return mt, nil
}

// Withdraw takes the waiting player out of the pairing slot and refunds the stake.
func (m *Manager) Withdraw(ctx context.Context, player string) (err error) {
	player = strings.TrimSpace(player)
	ctx, span := m.span(ctx, "withdraw", attribute.String("player", player))
	defer func() { endSpan(span, err) }()

	settings, err := m.requireActive(ctx)
	if err != nil {
		return err
	}
	if err := m.store.Withdraw(ctx, player); err != nil {
		return err
	}
	obslog.L().Info("pairing_withdraw", zap.String("player", player))
	m.pay(ctx, 0, match.Payout{Player: player, Amount: settings.Stake.Amount, Token: settings.Stake.Token}, escrow.NewKey())
	m.publish(matchdto.Event{Kind: matchdto.EventWithdrawn, Player: player})
	return nil
}

func (m *Manager) Move(ctx context.Context, id uint64, player string, from, to board.Square) (*match.Match, error) {
	return m.update(ctx, "move", id, player, func(mt *match.Match, now uint64) (match.Effects, error) {
		return match.Effects{}, mt.Move(player, from, to, now, m.rules)
	})
}

func (m *Manager) OfferOrAcceptDraw(ctx context.Context, id uint64, player string) (match.DrawResult, *match.Match, error) {
	var result match.DrawResult
	mt, err := m.update(ctx, "draw", id, player, func(mt *match.Match, _ uint64) (match.Effects, error) {
		r, eff, err := mt.OfferOrAcceptDraw(player)
		result = r
		return eff, err
	})
	if err != nil {
		return "", nil, err
	}
	if result == match.DrawOffered {
		m.publish(matchdto.Event{Kind: matchdto.EventDrawOffered, MatchID: id, Player: player, Match: ToDTO(mt, m.rules)})
	}
	return result, mt, nil
}

func (m *Manager) ClaimIllegalMove(ctx context.Context, id uint64, claimant string) (*match.Match, error) {
	return m.update(ctx, "claim_illegal_move", id, claimant, func(mt *match.Match, _ uint64) (match.Effects, error) {
		return mt.ClaimIllegalMove(claimant)
	})
}

func (m *Manager) ClaimInactivity(ctx context.Context, id uint64, claimant string) (*match.Match, error) {
	return m.update(ctx, "claim_inactivity", id, claimant, func(mt *match.Match, now uint64) (match.Effects, error) {
		return mt.ClaimInactivity(claimant, now, m.rules)
	})
}

func (m *Manager) Resign(ctx context.Context, id uint64, player string) (*match.Match, error) {
	return m.update(ctx, "resign", id, player, func(mt *match.Match, _ uint64) (match.Effects, error) {
		return mt.Resign(player)
	})
}

type matchOp func(mt *match.Match, now uint64) (match.Effects, error)

// update runs one gated match operation, then pays out, records and
// publishes whatever it produced.
func (m *Manager) update(ctx context.Context, op string, id uint64, player string, fn matchOp) (_ *match.Match, err error) {
	player = strings.TrimSpace(player)
	ctx, span := m.span(ctx, op, attribute.Int64("match.id", int64(id)), attribute.String("player", player))
	defer func() { endSpan(span, err) }()

	if _, err := m.requireActive(ctx); err != nil {
		return nil, err
	}
	now := m.epochs.Now()
	mt, eff, err := m.store.UpdateMatch(ctx, id, func(cur *match.Match) (match.Effects, error) {
		return fn(cur, now)
	})
	if err != nil {
		obslog.L().Debug("match_op_rejected",
			zap.String("op", op),
			zap.Uint64("match_id", id),
			zap.String("player", player),
			zap.String("code", string(apperr.CodeOf(err))),
			zap.String("reason", apperr.ReasonOf(err)),
		)
		return nil, err
	}

	if !mt.State.Terminal() {
		if op == "move" {
			obslog.L().Info("match_move",
				zap.Uint64("match_id", id),
				zap.String("player", player),
				zap.Int("ply", mt.Moves),
				zap.Uint64("epoch", now),
			)
			m.publish(matchdto.Event{Kind: matchdto.EventMoved, MatchID: id, Player: player, Match: ToDTO(mt, m.rules)})
		}
		return mt, nil
	}

	obslog.L().Info("match_end",
		zap.Uint64("match_id", id),
		zap.String("state", mt.State.String()),
		zap.String("winner", mt.Winner),
		zap.String("termination", string(mt.Termination)),
	)
	for i, p := range eff.Payouts {
		m.pay(ctx, id, p, escrow.PayoutKey(id, p.Player, i))
	}
	m.record(ctx, mt)
	m.publish(matchdto.Event{Kind: matchdto.EventEnded, MatchID: id, Player: player, Match: ToDTO(mt, m.rules)})
	return mt, nil
}

// pay sends p through the escrow. A failure is parked as unsettled for a
// later ResettlePayouts instead of failing the already committed operation.
func (m *Manager) pay(ctx context.Context, matchID uint64, p match.Payout, key string) {
	if p.Amount == 0 {
		return
	}
	err := m.escrow.Payout(ctx, p, key)
	if err == nil {
		obslog.L().Info("payout_sent",
			zap.Uint64("match_id", matchID),
			zap.String("player", p.Player),
			zap.Uint64("amount", p.Amount),
			zap.String("token", p.Token),
		)
		return
	}
	obslog.L().Error("payout_failed",
		zap.Uint64("match_id", matchID),
		zap.String("player", p.Player),
		zap.Uint64("amount", p.Amount),
		zap.Error(err),
	)
	m.park(ctx, store.UnsettledPayout{Key: key, MatchID: matchID, Payout: p, Reason: err.Error()})
}

// park records u for ResettlePayouts.
func (m *Manager) park(ctx context.Context, u store.UnsettledPayout) {
	// the request context may already be gone
	if err := m.store.AddUnsettled(context.WithoutCancel(ctx), u); err != nil {
		obslog.L().Error("payout_unsettled_lost", zap.String("key", u.Key), zap.Error(err))
	}
}

func (m *Manager) record(ctx context.Context, mt *match.Match) {
	if m.results == nil {
		return
	}
	if err := m.results.SaveResult(context.WithoutCancel(ctx), mt); err != nil {
		obslog.L().Warn("ledger_save_failed", zap.Uint64("match_id", mt.ID), zap.Error(err))
	}
}

func (m *Manager) publish(ev matchdto.Event) {
	if m.publisher == nil {
		return
	}
	ev.At = time.Now().UTC()
	m.publisher.Publish(ev)
}

// Pause stops every mutating player operation.
func (m *Manager) Pause(ctx context.Context, caller string) error {
	return m.setPaused(ctx, caller, true)
}

func (m *Manager) Unpause(ctx context.Context, caller string) error {
	return m.setPaused(ctx, caller, false)
}

func (m *Manager) setPaused(ctx context.Context, caller string, paused bool) error {
	if err := m.requireOwner(caller); err != nil {
		return err
	}
	if err := m.store.SetPaused(ctx, paused); err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	obslog.L().Info("arena_paused", zap.Bool("paused", paused))
	m.publish(matchdto.Event{Kind: matchdto.EventSettings})
	return nil
}

// SetStake fixes the stake terms. Terms can be set once; later calls leave
// them untouched and report false.
func (m *Manager) SetStake(ctx context.Context, caller string, stake match.Stake) (bool, error) {
	if err := m.requireOwner(caller); err != nil {
		return false, err
	}
	stake.Token = strings.TrimSpace(stake.Token)
	if err := checkStake(stake); err != nil {
		return false, err
	}
	set, err := m.store.SetStakeIfEmpty(ctx, stake)
	if err != nil {
		return false, fmt.Errorf("set stake: %w", err)
	}
	if set {
		obslog.L().Info("arena_stake_set", zap.Uint64("amount", stake.Amount), zap.String("token", stake.Token))
		m.publish(matchdto.Event{Kind: matchdto.EventSettings})
	}
	return set, nil
}

// ResettlePayouts retries every unsettled payout with its original key. An
// entry is dropped only after its payout went through.
func (m *Manager) ResettlePayouts(ctx context.Context, caller string) (settled, remaining int, err error) {
	if err := m.requireOwner(caller); err != nil {
		return 0, 0, err
	}
	pending, err := m.store.Unsettled(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load unsettled payouts: %w", err)
	}
	var errs []error
	for _, u := range pending {
		if err := m.escrow.Payout(ctx, u.Payout, u.Key); err != nil {
			u.Reason = err.Error()
			if err := m.store.AddUnsettled(ctx, u); err != nil {
				errs = append(errs, err)
			}
			remaining++
			continue
		}
		settled++
		if err := m.store.SettleUnsettled(ctx, u.Key); err != nil {
			// paid; a retry reuses the key, so the escrow will not pay twice
			errs = append(errs, fmt.Errorf("drop settled payout %s: %w", u.Key, err))
		}
	}
	obslog.L().Info("payouts_resettled", zap.Int("settled", settled), zap.Int("remaining", remaining))
	return settled, remaining, errors.Join(errs...)
}

func (m *Manager) Match(ctx context.Context, id uint64) (*match.Match, error) {
	return m.store.Match(ctx, id)
}

func (m *Manager) Score(ctx context.Context, player string) (int64, error) {
	return m.store.Score(ctx, strings.TrimSpace(player))
}

func (m *Manager) Waiting(ctx context.Context) (string, error) {
	return m.store.Waiting(ctx)
}

func (m *Manager) Settings(ctx context.Context) (store.Settings, error) {
	return m.store.Settings(ctx)
}

func (m *Manager) MatchesOf(ctx context.Context, player string) ([]uint64, error) {
	return m.store.MatchesOf(ctx, strings.TrimSpace(player))
}
