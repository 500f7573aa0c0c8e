// Package app assembles the arena from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/adapter/presenter"
	"github.com/vladiouz/on-chain-chess/internal/arena"
	"github.com/vladiouz/on-chain-chess/internal/config"
	"github.com/vladiouz/on-chain-chess/internal/escrow"
	"github.com/vladiouz/on-chain-chess/internal/feed"
	"github.com/vladiouz/on-chain-chess/internal/httpapi"
	"github.com/vladiouz/on-chain-chess/internal/identity"
	"github.com/vladiouz/on-chain-chess/internal/ledger"
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/msgcat"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/render"
	"github.com/vladiouz/on-chain-chess/internal/store"
)

type Deps struct {
	Store  store.Store
	Escrow escrow.Escrow
	// Ledger is nil without DATABASE_URL.
	Ledger *ledger.Repository
	Hub    *feed.Hub
	Arena  *arena.Manager
	API    *httpapi.Server
}

// New builds every component named by cfg. Redis, the escrow service and the
// results database are optional; without them the arena runs in memory.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	promotion, err := cfg.PromotionRule()
	if err != nil {
		return nil, err
	}
	origin, err := cfg.Origin()
	if err != nil {
		return nil, err
	}

	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	// Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		d.Store = rs
	} else {
		obslog.L().Warn("store_in_memory", zap.String("hint", "set REDIS_URL to persist matches"))
		d.Store = store.NewMemoryStore()
	}

	// Escrow
	if strings.TrimSpace(cfg.EscrowURL) != "" {
		token := strings.TrimSpace(cfg.EscrowToken)
		headers := func() map[string]string {
			if token == "" {
				return nil
			}
			return map[string]string{"Authorization": "Bearer " + token}
		}
		d.Escrow = escrow.NewClient(cfg.EscrowURL,
			escrow.WithHeaderProvider(headers),
			escrow.WithTimeout(8*time.Second),
		)
	} else {
		obslog.L().Warn("escrow_in_memory", zap.String("hint", "stakes are not backed by real funds"))
		mem := escrow.NewMemory()
		mem.Unlimited = true
		d.Escrow = mem
	}

	// Results ledger
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := ledger.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		d.Ledger = repo
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	if missing := msgs.Missing(httpapi.RequiredMessages()...); len(missing) > 0 {
		return nil, fmt.Errorf("message catalog is missing %s", strings.Join(missing, ", "))
	}

	d.Hub = feed.NewHub()

	rules := match.Rules{Grace: cfg.MoveGrace, Promotion: promotion}
	opts := []arena.Option{arena.WithRules(rules), arena.WithPublisher(presenter.NewNarrator(msgs, d.Hub))}
	if d.Ledger != nil {
		opts = append(opts, arena.WithResultSink(d.Ledger))
	}
	epochs := arena.WallEpochs{Origin: origin, Length: cfg.EpochLength}
	d.Arena = arena.NewManager(d.Store, d.Escrow, epochs, cfg.OwnerID, opts...)

	stake := match.Stake{Amount: cfg.StakeAmount, Token: strings.TrimSpace(cfg.StakeToken)}
	if err := d.Arena.Seed(ctx, cfg.StartPaused, stake); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	ids := identity.NewResolver(cfg.JWTSecret, cfg.JWTIssuer)
	var apiOpts []httpapi.Option
	if d.Ledger != nil {
		apiOpts = append(apiOpts, httpapi.WithResults(d.Ledger))
	}
	d.API = httpapi.New(d.Arena, ids, msgs, render.New(), apiOpts...)

	obslog.L().Info("arena_built",
		zap.Bool("redis", strings.TrimSpace(cfg.RedisURL) != ""),
		zap.Bool("escrow_remote", strings.TrimSpace(cfg.EscrowURL) != ""),
		zap.Bool("ledger", d.Ledger != nil),
		zap.Bool("token_auth", ids.TokenMode()),
		zap.Uint64("grace", rules.Grace),
		zap.String("promotion", cfg.Promotion),
	)
	ok = true
	return d, nil
}

// Close releases the store and the ledger.
func (d *Deps) Close() error {
	var errs []error
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.Ledger != nil {
		errs = append(errs, d.Ledger.Close())
	}
	return errors.Join(errs...)
}
