package core

import "errors"

// ErrorCode is a stable machine-readable identifier for an error condition
// raised by the adapter itself. Venue error codes are carried verbatim in
// ExchangeError.Code instead.
type ErrorCode string

// Adapter-level error codes.
const (
	// ErrCodeMissingArgument marks a required caller parameter that was
	// absent (symbol, pagination cursor, order id).
	ErrCodeMissingArgument ErrorCode = "MISSING_ARGUMENT"
	// ErrCodeUnknownMarket marks a failed market catalog lookup.
	ErrCodeUnknownMarket ErrorCode = "UNKNOWN_MARKET"
	// ErrCodeWindowTooWide marks a history query whose since/until span
	// exceeds the venue's 24-hour maximum.
	ErrCodeWindowTooWide ErrorCode = "WINDOW_TOO_WIDE"
	// ErrCodeMarketOrder marks a locally rejected market-type order;
	// the venue only accepts limit orders.
	ErrCodeMarketOrder ErrorCode = "MARKET_ORDER_UNSUPPORTED"
	// ErrCodeInvalidPayload marks a venue payload matching none of the
	// known raw shapes. Missing credentials surface as the ErrNoCredentials
	// and ErrNoAPIKey sentinels instead of a code.
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// IsErrorCode checks if the error carries the specified adapter error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
