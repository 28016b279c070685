package game

import "errors"

// ErrorCode maps a game error to the stable code sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, ErrRevealInProgress):
		return "reveal_in_progress"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "bad_request"
}
