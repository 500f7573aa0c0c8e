package httpapi

import (
	"context"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/arena"
	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

func badRequest(reason string) error {
	return &apperr.Error{Code: apperr.CodeInvalidArgument, Message: "invalid argument", Reason: reason}
}

func parseMatchID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("match id must be a positive integer")
	}
	return id, nil
}

// parseSquare accepts algebraic names and flat indexes. Indexes past the board
// are kept as off-board squares so move validation reports them.
func parseSquare(raw string) (board.Square, error) {
	sq, err := board.ParseSquare(raw)
	if err == nil {
		return sq, nil
	}
	if n, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr == nil && n >= board.Size {
		return board.Square{File: n % 8, Rank: n / 8}, nil
	}
	return board.Square{}, badRequest("invalid square " + strconv.Quote(raw))
}

func (s *Server) withMatchID(ctx context.Context, rc *fasthttp.RequestCtx, raw string, fn func(context.Context, *fasthttp.RequestCtx, uint64)) {
	id, err := parseMatchID(raw)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	fn(ctx, rc, id)
}

func (s *Server) respondMatch(ctx context.Context, rc *fasthttp.RequestCtx) func(*match.Match, error) {
	return func(m *match.Match, err error) {
		if err != nil {
			s.writeError(ctx, rc, err)
			return
		}
		s.writeJSON(rc, fasthttp.StatusOK, arena.ToDTO(m, s.arena.Rules()))
	}
}

func (s *Server) getMatch(ctx context.Context, rc *fasthttp.RequestCtx, id uint64) {
	s.respondMatch(ctx, rc)(s.arena.Match(ctx, id))
}

func (s *Server) getBoardPNG(ctx context.Context, rc *fasthttp.RequestCtx, id uint64) {
	m, err := s.arena.Match(ctx, id)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	img, err := s.renderer.RenderPNG(ctx, m)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	rc.SetStatusCode(fasthttp.StatusOK)
	rc.SetContentType("image/png")
	rc.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	rc.SetBody(img)
}

func (s *Server) getSettings(ctx context.Context, rc *fasthttp.RequestCtx) {
	st, err := s.arena.Settings(ctx)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	out := matchdto.Settings{Paused: st.Paused, Epoch: s.arena.Epoch(), Grace: s.arena.Rules().Grace}
	if st.StakeSet {
		out.Stake = &matchdto.Stake{Amount: st.Stake.Amount, Token: st.Stake.Token}
	}
	s.writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) getPairing(ctx context.Context, rc *fasthttp.RequestCtx) {
	waiting, err := s.arena.Waiting(ctx)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.Pairing{Waiting: waiting})
}

func (s *Server) getScore(ctx context.Context, rc *fasthttp.RequestCtx, player string) {
	pts, err := s.arena.Score(ctx, player)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.Score{Player: player, Points: pts})
}

func (s *Server) getMatchesOf(ctx context.Context, rc *fasthttp.RequestCtx, player string) {
	ids, err := s.arena.MatchesOf(ctx, player)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.MatchList{Player: player, Matches: ids})
}

func (s *Server) getStandings(ctx context.Context, rc *fasthttp.RequestCtx) {
	if s.results == nil {
		rc.Error("results ledger is not configured", fasthttp.StatusNotFound)
		return
	}
	rows, err := s.results.Standings(ctx, queryLimit(rc, 20))
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	out := matchdto.Standings{Standings: make([]matchdto.Score, 0, len(rows))}
	for _, r := range rows {
		out.Standings = append(out.Standings, matchdto.Score{Player: r.Player, Points: r.Points})
	}
	s.writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) getResults(ctx context.Context, rc *fasthttp.RequestCtx, player string) {
	if s.results == nil {
		rc.Error("results ledger is not configured", fasthttp.StatusNotFound)
		return
	}
	rows, err := s.results.RecentByPlayer(ctx, player, queryLimit(rc, 20))
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	out := make([]matchdto.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, matchdto.Result{
			MatchID:     r.MatchID,
			White:       r.White,
			Black:       r.Black,
			Outcome:     r.Outcome,
			Termination: r.Termination,
			Winner:      r.Winner,
			Stake:       matchdto.Stake{Amount: r.StakeAmount, Token: r.StakeToken},
			Moves:       r.Moves,
			RecordedAt:  r.RecordedAt.UnixMilli(),
		})
	}
	s.writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) postJoin(ctx context.Context, rc *fasthttp.RequestCtx, caller string) {
	var req matchdto.JoinRequest
	if err := decodeBody(rc, &req); err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	m, err := s.arena.Join(ctx, caller, match.Stake{Amount: req.Amount, Token: strings.TrimSpace(req.Token)})
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	if m == nil {
		s.writeJSON(rc, fasthttp.StatusAccepted, matchdto.JoinResponse{Waiting: true})
		return
	}
	s.writeJSON(rc, fasthttp.StatusCreated, matchdto.JoinResponse{Match: arena.ToDTO(m, s.arena.Rules())})
}

func (s *Server) postWithdraw(ctx context.Context, rc *fasthttp.RequestCtx, caller string) {
	if err := s.arena.Withdraw(ctx, caller); err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.Pairing{})
}

func (s *Server) postMove(ctx context.Context, rc *fasthttp.RequestCtx, id uint64, caller string) {
	var req matchdto.MoveRequest
	if err := decodeBody(rc, &req); err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	from, err := parseSquare(req.From)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	to, err := parseSquare(req.To)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.respondMatch(ctx, rc)(s.arena.Move(ctx, id, caller, from, to))
}

func (s *Server) postDraw(ctx context.Context, rc *fasthttp.RequestCtx, id uint64, caller string) {
	res, m, err := s.arena.OfferOrAcceptDraw(ctx, id, caller)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.DrawResponse{Result: string(res), Match: arena.ToDTO(m, s.arena.Rules())})
}

func (s *Server) postAdmin(ctx context.Context, rc *fasthttp.RequestCtx, caller, action string) {
	var err error
	switch action {
	case "pause":
		err = s.arena.Pause(ctx, caller)
	case "unpause":
		err = s.arena.Unpause(ctx, caller)
	case "stake":
		var req matchdto.StakeRequest
		if err = decodeBody(rc, &req); err == nil {
			var set bool
			set, err = s.arena.SetStake(ctx, caller, match.Stake{Amount: req.Amount, Token: req.Token})
			if err == nil && !set {
				err = errStakeAlreadySet
			}
		}
	default:
		rc.Error("not found", fasthttp.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.getSettings(ctx, rc)
}

var errStakeAlreadySet = apperr.New(apperr.CodeConflict, "stake terms are already set")

func (s *Server) postResettle(ctx context.Context, rc *fasthttp.RequestCtx, caller string) {
	settled, remaining, err := s.arena.ResettlePayouts(ctx, caller)
	if err != nil {
		s.writeError(ctx, rc, err)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, matchdto.Resettle{Settled: settled, Remaining: remaining})
}
