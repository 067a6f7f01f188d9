package core

import (
	"context"

	"resty.dev/v3"
)

// RateLimitConfig defines rate limiting parameters for the venue.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum general requests per second.
	RequestsPerSecond int `json:"requests_per_second"`
	// OrdersPerSecond is the maximum order placement requests per second.
	OrdersPerSecond int `json:"orders_per_second"`
	// Burst allows temporary exceeding of rate limits.
	Burst int `json:"burst"`
}

// Protocol defines the venue-specific request construction, signing, and
// response normalization contract. Implementations must be pure with
// respect to their inputs and safe for concurrent use.
type Protocol interface {
	// Name returns the venue identifier.
	Name() string

	// Version returns the API version being used.
	Version() string

	// BaseURL returns the API base URL.
	BaseURL() string

	// BuildRequest constructs a request for the specified operation.
	// Parameter validation failures surface as local ExchangeErrors and
	// never reach the network.
	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)

	// ParseResponse deserializes the HTTP response, maps venue error
	// codes, and normalizes the payload to the operation's canonical type.
	// The market provides context the payload omits (canonical symbol,
	// fee quote currency); pass nil for operations without one.
	ParseResponse(op Operation, resp *resty.Response, market *Market) (any, error)

	// SignRequest attaches the authentication envelope for a private
	// request: signed headers plus the serialized body.
	SignRequest(req *resty.Request, creds Credentials, r *Request) error

	// SupportedOperations returns the operations this protocol supports.
	SupportedOperations() []Operation

	// RateLimits returns the venue's rate limiting configuration.
	RateLimits() RateLimitConfig
}
