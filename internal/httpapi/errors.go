package httpapi

import (
	"context"
	"errors"
	"sort"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/escrow"
	"github.com/vladiouz/on-chain-chess/internal/obslog"
	"github.com/vladiouz/on-chain-chess/internal/rules"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

const codeInsufficientFunds apperr.Code = "INSUFFICIENT_FUNDS"

var statusByCode = map[apperr.Code]int{
	apperr.CodeNotActive:             fasthttp.StatusServiceUnavailable,
	apperr.CodeNotOwner:              fasthttp.StatusForbidden,
	apperr.CodeMatchNotFound:         fasthttp.StatusNotFound,
	apperr.CodeMatchNotOngoing:       fasthttp.StatusConflict,
	apperr.CodeNotYourTurn:           fasthttp.StatusConflict,
	apperr.CodeNotAParticipant:       fasthttp.StatusForbidden,
	apperr.CodeDeadlineExpired:       fasthttp.StatusConflict,
	apperr.CodeDeadlineNotYetExpired: fasthttp.StatusConflict,
	apperr.CodeIllegalMove:           fasthttp.StatusUnprocessableEntity,
	apperr.CodeKingNotInCheck:        fasthttp.StatusConflict,
	apperr.CodeSelfPairing:           fasthttp.StatusConflict,
	apperr.CodeWrongStake:            fasthttp.StatusPaymentRequired,
	apperr.CodeNotWaiting:            fasthttp.StatusConflict,
	apperr.CodeInvalidArgument:       fasthttp.StatusBadRequest,
	apperr.CodeUnauthenticated:       fasthttp.StatusUnauthorized,
	apperr.CodeConflict:              fasthttp.StatusConflict,
	codeInsufficientFunds:            fasthttp.StatusPaymentRequired,
}

// RequiredMessages lists the catalog keys error responses render.
func RequiredMessages() []string {
	keys := []string{"error.internal"}
	for code := range statusByCode {
		keys = append(keys, "error."+string(code))
	}
	for _, r := range rules.Reasons() {
		keys = append(keys, "reason."+r)
	}
	sort.Strings(keys)
	return keys
}

// writeError renders err as {"error":{code,reason,message}}. Anything that is
// not a domain error is logged and reported as internal.
func (s *Server) writeError(ctx context.Context, rc *fasthttp.RequestCtx, err error) {
	code := apperr.CodeOf(err)
	reason := apperr.ReasonOf(err)
	if code == "" && errors.Is(err, escrow.ErrInsufficientFunds) {
		code = codeInsufficientFunds
	}

	status, known := statusByCode[code]
	if !known {
		obslog.L().Error("http_internal_error",
			zap.ByteString("path", rc.Path()),
			zap.Error(err),
		)
		s.writeJSON(rc, fasthttp.StatusInternalServerError, matchdto.ErrorResponse{Error: matchdto.ErrorBody{
			Code:    "INTERNAL",
			Message: s.msgs.Text("error.internal", nil, "internal error"),
		}})
		return
	}

	s.writeJSON(rc, status, matchdto.ErrorResponse{Error: matchdto.ErrorBody{
		Code:    string(code),
		Reason:  reason,
		Message: s.msgs.Text("error."+string(code), s.messageData(ctx, code, reason), err.Error()),
	}})
}

func (s *Server) messageData(ctx context.Context, code apperr.Code, reason string) map[string]any {
	data := map[string]any{
		"Reason":   "",
		"StakeSet": false,
		"Amount":   uint64(0),
		"Token":    "",
	}
	if reason != "" {
		data["Reason"] = s.msgs.Text("reason."+reason, nil, reason)
	}
	if code == apperr.CodeWrongStake {
		if st, err := s.arena.Settings(ctx); err == nil && st.StakeSet {
			data["StakeSet"] = true
			data["Amount"] = st.Stake.Amount
			data["Token"] = st.Stake.Token
		}
	}
	return data
}
