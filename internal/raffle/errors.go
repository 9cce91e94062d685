package raffle

import (
	"errors"
	"fmt"
)

// Error is a program error surfaced verbatim to the caller. Codes are stable
// across releases.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

const errorCodeOffset = 6000

func newError(offset uint32, name, msg string) *Error {
	return &Error{Code: errorCodeOffset + offset, Name: name, Msg: msg}
}

var (
	ErrEndTimestampAlreadyPassed             = newError(0, "EndTimestampAlreadyPassed", "End timestamp already passed")
	ErrEntrantsAccountTooSmallForMaxEntrants = newError(1, "EntrantsAccountTooSmallForMaxEntrants", "Entrants account too small for max entrants")
	ErrRaffleEnded                           = newError(2, "RaffleEnded", "Raffle has ended")
	ErrInvalidCalculation                    = newError(3, "InvalidCalculation", "Invalid calculation")
	ErrNotEnoughTicketsLeft                  = newError(4, "NotEnoughTicketsLeft", "Not enough tickets left")
	ErrRaffleStillRunning                    = newError(5, "RaffleStillRunning", "Raffle is still running")
	ErrUnauthorized                          = newError(6, "Unauthorized", "Signer lacks the required authority")
	ErrEntrantsMismatch                      = newError(7, "EntrantsMismatch", "Entrants account does not belong to this raffle")
	ErrProceedsOwnerMismatch                 = newError(8, "ProceedsOwnerMismatch", "Proceeds account is not owned by the authority")
	ErrAccountNotZeroed                      = newError(9, "AccountNotZeroed", "Entrants account is already initialized")
	ErrEntrantIndexOutOfRange                = newError(10, "EntrantIndexOutOfRange", "Entrant index out of range")
	ErrInvalidAdminKey                       = newError(11, "InvalidAdminKey", "Admin key must not be empty")
	ErrAccountDiscriminatorMismatch          = newError(12, "AccountDiscriminatorMismatch", "Account holds a different record type")
)

// ErrorName returns the program error name carried by err, if any.
func ErrorName(err error) (string, bool) {
	var programErr *Error
	if errors.As(err, &programErr) {
		return programErr.Name, true
	}
	return "", false
}
