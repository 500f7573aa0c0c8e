// Package httpapi exposes the arena over HTTP using fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/arena"
	"github.com/vladiouz/on-chain-chess/internal/identity"
	"github.com/vladiouz/on-chain-chess/internal/ledger"
	"github.com/vladiouz/on-chain-chess/internal/msgcat"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/render"
)

const (
	headerRequestID    = "X-Request-Id"
	defaultCallTimeout = 10 * time.Second
	maxListLimit       = 100
)

// Results serves ledger reads; nil when no ledger is configured.
type Results interface {
	Standings(ctx context.Context, limit int) ([]ledger.Standing, error)
	RecentByPlayer(ctx context.Context, player string, limit int) ([]*ledger.Result, error)
}

type Server struct {
	arena    *arena.Manager
	ids      *identity.Resolver
	msgs     *msgcat.Catalog
	renderer *render.Renderer
	results  Results
	timeout  time.Duration

	srv *fasthttp.Server
}

type Option func(*Server)

func WithResults(r Results) Option {
	return func(s *Server) { s.results = r }
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(mgr *arena.Manager, ids *identity.Resolver, msgs *msgcat.Catalog, renderer *render.Renderer, opts ...Option) *Server {
	s := &Server{
		arena:    mgr,
		ids:      ids,
		msgs:     msgs,
		renderer: renderer,
		timeout:  defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "chess-arena",
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: 64 << 10,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handle is the fasthttp entry point.
func (s *Server) Handle(rc *fasthttp.RequestCtx) {
	start := time.Now()
	reqID := string(rc.Request.Header.Peek(headerRequestID))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	rc.Response.Header.Set(headerRequestID, reqID)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.route(ctx, rc)

	obslog.L().Debug("http_request",
		zap.String("request_id", reqID),
		zap.ByteString("method", rc.Method()),
		zap.ByteString("path", rc.Path()),
		zap.Int("status", rc.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) route(ctx context.Context, rc *fasthttp.RequestCtx) {
	method := string(rc.Method())
	parts := strings.Split(strings.Trim(string(rc.Path()), "/"), "/")

	switch method {
	case fasthttp.MethodGet:
		s.routeGet(ctx, rc, parts)
	case fasthttp.MethodPost:
		s.routePost(ctx, rc, parts)
	default:
		rc.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
	}
}

func (s *Server) routeGet(ctx context.Context, rc *fasthttp.RequestCtx, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		rc.SetStatusCode(fasthttp.StatusOK)
		rc.SetBodyString("ok")
	case len(parts) == 1 && parts[0] == "settings":
		s.getSettings(ctx, rc)
	case len(parts) == 1 && parts[0] == "pairing":
		s.getPairing(ctx, rc)
	case len(parts) == 1 && parts[0] == "standings":
		s.getStandings(ctx, rc)
	case len(parts) == 2 && parts[0] == "matches":
		s.withMatchID(ctx, rc, parts[1], s.getMatch)
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "board.png":
		s.withMatchID(ctx, rc, parts[1], s.getBoardPNG)
	case len(parts) == 3 && parts[0] == "players" && parts[2] == "score":
		s.getScore(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "players" && parts[2] == "matches":
		s.getMatchesOf(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "players" && parts[2] == "results":
		s.getResults(ctx, rc, parts[1])
	default:
		rc.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) routePost(ctx context.Context, rc *fasthttp.RequestCtx, parts []string) {
	caller, err := s.caller(rc)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "join":
		s.postJoin(ctx, rc, caller)
	case len(parts) == 1 && parts[0] == "withdraw":
		s.postWithdraw(ctx, rc, caller)
	case len(parts) == 3 && parts[0] == "matches":
		id, err := parseMatchID(parts[1])
		if err != nil {
			s.writeError(ctx, rc, err)
			return
		}
		switch parts[2] {
		case "move":
			s.postMove(ctx, rc, id, caller)
		case "draw":
			s.postDraw(ctx, rc, id, caller)
		case "claim-illegal-move":
			s.respondMatch(ctx, rc)(s.arena.ClaimIllegalMove(ctx, id, caller))
		case "claim-inactivity":
			s.respondMatch(ctx, rc)(s.arena.ClaimInactivity(ctx, id, caller))
		case "resign":
			s.respondMatch(ctx, rc)(s.arena.Resign(ctx, id, caller))
		default:
			rc.Error("not found", fasthttp.StatusNotFound)
		}
	case len(parts) == 2 && parts[0] == "admin":
		s.postAdmin(ctx, rc, caller, parts[1])
	case len(parts) == 3 && parts[0] == "admin" && parts[1] == "payouts" && parts[2] == "resettle":
		s.postResettle(ctx, rc, caller)
	default:
		rc.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) caller(rc *fasthttp.RequestCtx) (string, error) {
	return s.ids.Resolve(
		string(rc.Request.Header.Peek(fasthttp.HeaderAuthorization)),
		string(rc.Request.Header.Peek(identity.HeaderPlayerID)),
	)
}

func (s *Server) writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("http_encode_failed", zap.Error(err))
		rc.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json; charset=utf-8")
	rc.SetBody(body)
}

func decodeBody(rc *fasthttp.RequestCtx, v any) error {
	body := rc.PostBody()
	if len(body) == 0 {
		return badRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("malformed json")
	}
	return nil
}

func queryLimit(rc *fasthttp.RequestCtx, def int) int {
	n, err := strconv.Atoi(string(rc.QueryArgs().Peek("limit")))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxListLimit)
}
