package engine

import "errors"

// Admission and lookup failures are returned to the originating request and
// never mutate the book. Conflict-class failures (duplicate id in the cancel
// index) are invariant breaches and panic inside the book instead.
var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidSide     = errors.New("invalid side")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrMalformed       = errors.New("malformed request")
	ErrUnknownID       = errors.New("unknown order id")
	ErrAlreadyTerminal = errors.New("order already terminal")
)

// Code maps an error to its wire taxonomy name.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPrice):
		return "INVALID_PRICE"
	case errors.Is(err, ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(err, ErrInvalidSide):
		return "INVALID_SIDE"
	case errors.Is(err, ErrUnknownSymbol):
		return "UNKNOWN_SYMBOL"
	case errors.Is(err, ErrMalformed):
		return "MALFORMED_REQUEST"
	case errors.Is(err, ErrUnknownID):
		return "UNKNOWN_ID"
	case errors.Is(err, ErrAlreadyTerminal):
		return "ALREADY_TERMINAL"
	default:
		return "INTERNAL"
	}
}
