package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants categorize errors for caller-side handling.
const (
	// ErrorTypeUnknown indicates an unclassified error, including venue
	// error codes with no entry in the exact-match table.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork indicates a network connectivity issue.
	ErrorTypeNetwork
	// ErrorTypeAuthentication indicates credential, signature, or nonce
	// problems.
	ErrorTypeAuthentication
	// ErrorTypeInvalidRequest indicates malformed or out-of-range
	// parameters, or an unknown market, currency, or order.
	ErrorTypeInvalidRequest
	// ErrorTypeInsufficientFunds indicates the account balance is too low
	// for the requested operation.
	ErrorTypeInsufficientFunds
	// ErrorTypeServiceUnavailable indicates a transient venue-side failure.
	ErrorTypeServiceUnavailable
	// ErrorTypeMissingArgument indicates a required adapter-level parameter
	// was not supplied by the caller. Raised locally, before any request.
	ErrorTypeMissingArgument
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"NETWORK",
		"AUTHENTICATION",
		"INVALID_REQUEST",
		"INSUFFICIENT_FUNDS",
		"SERVICE_UNAVAILABLE",
		"MISSING_ARGUMENT",
	}[t]
}

// Sentinel errors for common client-state conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when no API credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrNoAPIKey is returned when the key ring has no usable key.
	ErrNoAPIKey = errors.New("no available API key")
	// ErrCatalogNotLoaded is returned when resolving against an empty
	// market catalog.
	ErrCatalogNotLoaded = errors.New("market catalog not loaded")
)

// ExchangeError is a structured error raised by the adapter, either from
// local validation or mapped from a venue error response.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status of the response, zero for local errors.
	StatusCode int `json:"status_code,omitempty"`
	// Code is the venue-specific error code, kept verbatim for diagnostics.
	Code string `json:"code,omitempty"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Exchange identifies the venue that produced the error.
	Exchange string `json:"exchange"`
	// Timestamp is when the error was raised.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Exchange, e.Type, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Exchange, e.Type, e.Message)
}

// WithCode returns the error with the specified code attached.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// WithStatus returns the error with the HTTP status attached.
func (e *ExchangeError) WithStatus(status int) *ExchangeError {
	e.StatusCode = status
	return e
}

// NewExchangeError creates an ExchangeError with the current timestamp.
func NewExchangeError(exchange string, errorType ErrorType, message string) *ExchangeError {
	return &ExchangeError{
		Type:      errorType,
		Message:   message,
		Exchange:  exchange,
		Timestamp: time.Now(),
	}
}

// NewMissingArgument creates a local validation error for a parameter the
// caller must supply. It never reaches the network.
func NewMissingArgument(exchange, param string) *ExchangeError {
	return NewExchangeError(exchange, ErrorTypeMissingArgument,
		fmt.Sprintf("required parameter %q was not supplied", param)).
		WithCode(ErrCodeMissingArgument)
}

// NewUnknownMarket creates the error raised when a market lookup misses.
func NewUnknownMarket(exchange, idOrSymbol string) *ExchangeError {
	return NewExchangeError(exchange, ErrorTypeInvalidRequest,
		fmt.Sprintf("unknown market %q", idOrSymbol)).
		WithCode(ErrCodeUnknownMarket)
}

// IsAuthenticationError reports whether err is an authentication failure.
func IsAuthenticationError(err error) bool {
	return isErrorType(err, ErrorTypeAuthentication)
}

// IsInvalidRequest reports whether err is a bad/invalid request error.
func IsInvalidRequest(err error) bool {
	return isErrorType(err, ErrorTypeInvalidRequest)
}

// IsInsufficientFunds reports whether err indicates the balance was too low.
func IsInsufficientFunds(err error) bool {
	return isErrorType(err, ErrorTypeInsufficientFunds)
}

// IsServiceUnavailable reports whether err is a transient venue failure.
func IsServiceUnavailable(err error) bool {
	return isErrorType(err, ErrorTypeServiceUnavailable)
}

// IsMissingArgument reports whether err is a local missing-parameter error.
func IsMissingArgument(err error) bool {
	return isErrorType(err, ErrorTypeMissingArgument)
}

func isErrorType(err error, t ErrorType) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr.Type == t
	}
	return false
}
