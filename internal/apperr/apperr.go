// Package apperr holds the error taxonomy shared by the match core and its
// transports.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotActive             Code = "NOT_ACTIVE"
	CodeNotOwner              Code = "NOT_OWNER"
	CodeMatchNotFound         Code = "MATCH_NOT_FOUND"
	CodeMatchNotOngoing       Code = "MATCH_NOT_ONGOING"
	CodeNotYourTurn           Code = "NOT_YOUR_TURN"
	CodeNotAParticipant       Code = "NOT_A_PARTICIPANT"
	CodeDeadlineExpired       Code = "DEADLINE_EXPIRED"
	CodeDeadlineNotYetExpired Code = "DEADLINE_NOT_YET_EXPIRED"
	CodeIllegalMove           Code = "ILLEGAL_MOVE"
	CodeKingNotInCheck        Code = "KING_NOT_IN_CHECK"
	CodeSelfPairing           Code = "SELF_PAIRING"
	CodeWrongStake            Code = "WRONG_STAKE"
	CodeNotWaiting            Code = "NOT_WAITING"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeConflict              Code = "CONFLICT"
)

// Error is a domain error. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
	// Reason refines the code, e.g. which movement rule rejected an illegal move.
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IllegalMove returns an ILLEGAL_MOVE error carrying reason.
func IllegalMove(reason string) *Error {
	return &Error{Code: CodeIllegalMove, Message: "illegal move", Reason: reason}
}

// Sentinels for errors.Is checks.
var (
	ErrNotActive             = New(CodeNotActive, "arena is paused")
	ErrNotOwner              = New(CodeNotOwner, "caller is not the owner")
	ErrMatchNotFound         = New(CodeMatchNotFound, "match not found")
	ErrMatchNotOngoing       = New(CodeMatchNotOngoing, "match is not ongoing")
	ErrNotYourTurn           = New(CodeNotYourTurn, "not your turn")
	ErrNotAParticipant       = New(CodeNotAParticipant, "not a participant")
	ErrDeadlineExpired       = New(CodeDeadlineExpired, "move deadline expired")
	ErrDeadlineNotYetExpired = New(CodeDeadlineNotYetExpired, "move deadline not yet expired")
	ErrIllegalMove           = New(CodeIllegalMove, "illegal move")
	ErrKingNotInCheck        = New(CodeKingNotInCheck, "king is not in check")
	ErrSelfPairing           = New(CodeSelfPairing, "cannot play against yourself")
	ErrWrongStake            = New(CodeWrongStake, "wrong stake")
	ErrNotWaiting            = New(CodeNotWaiting, "not waiting in the pairing slot")
	ErrInvalidArgument       = New(CodeInvalidArgument, "invalid argument")
	ErrUnauthenticated       = New(CodeUnauthenticated, "unauthenticated")
	ErrConflict              = New(CodeConflict, "concurrent update, retry")
)

// CodeOf extracts the code of a domain error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ReasonOf extracts the reason of a domain error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
