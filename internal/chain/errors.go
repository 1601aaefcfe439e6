package chain

import (
	"context"
	"errors"
	"fmt"
)

// The failure classes the engine routes on. Transport implementations wrap
// their native failures in one of these; everything else is permanent.
var (
	ErrTransient    = errors.New("transient_network_error")
	ErrStaleState   = errors.New("stale_state")
	ErrPrerequisite = errors.New("prerequisite_unmet")
)

// ContractError is a named revert reported by the contract itself.
type ContractError struct {
	Code string
}

func (e *ContractError) Error() string {
	return "contract_error: " + e.Code
}

var contractMessages = map[string]string{
	"wrong_turn":         "it is not this participant's turn",
	"hand_finished":      "this hand has already been resolved",
	"game_finished":      "this game has already been settled",
	"insufficient_funds": "balance is too low for this action",
	"insurance_closed":   "the insurance window has closed",
	"split_not_allowed":  "this hand cannot be split",
	"double_not_allowed": "this hand cannot be doubled",
	"no_active_game":     "no active game at this table",
}

// Message returns the human-readable explanation for a known revert code,
// or a diagnostic string that still carries the raw code.
func (e *ContractError) Message() string {
	if msg, ok := contractMessages[e.Code]; ok {
		return msg
	}
	return fmt.Sprintf("the contract rejected the call (code %q)", e.Code)
}

type ErrorKind string

const (
	KindTransient    ErrorKind = "transient"
	KindStaleState   ErrorKind = "stale_state"
	KindPrerequisite ErrorKind = "prerequisite"
	KindContract     ErrorKind = "contract"
	KindUnknown      ErrorKind = "unknown"
)

// Classify buckets an error for retry and surfacing decisions. Context
// timeouts count as transient: the write may still land, so the caller has
// to re-check observed state rather than assume failure.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, ErrStaleState):
		return KindStaleState
	case errors.Is(err, ErrPrerequisite):
		return KindPrerequisite
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return KindContract
	}
	return KindUnknown
}

// UserMessage maps an error to the message shown for user-initiated actions.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindTransient:
		return "the network is slow right now, please retry"
	case KindStaleState:
		return "the game state changed, please retry"
	case KindPrerequisite:
		return "a spending approval or balance requirement is not met"
	case KindContract:
		var ce *ContractError
		errors.As(err, &ce)
		return ce.Message()
	default:
		return "the action failed unexpectedly"
	}
}
