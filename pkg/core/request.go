package core

import (
	"maps"
	"time"
)

// Params is a free-form parameter map for building requests. For private
// calls the map becomes the signed JSON body.
type Params map[string]any

// Request is a venue request built by a Protocol, ready for transport.
type Request struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	// Query carries GET parameters, appended to the URL unsigned.
	Query Params `json:"query,omitempty"`
	// Body carries the parameter map for private POST calls. The signer
	// extends it with "request" and "nonce" before serialization.
	Body Params `json:"body,omitempty"`
	// RequireAuth marks the request for signing before dispatch.
	RequireAuth bool `json:"require_auth"`
	// Weight is the request's rate-limit cost.
	Weight int `json:"weight"`
	// CacheKey and CacheTTL advise the caller on response reuse.
	CacheKey string        `json:"cache_key,omitempty"`
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

// NewRequest creates a Request with default weight 1.
func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Weight: 1,
	}
}

// SetQuery sets a single query parameter.
func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

// SetBodyParam sets a single body parameter.
func (r *Request) SetBodyParam(key string, value any) *Request {
	if r.Body == nil {
		r.Body = make(Params)
	}
	r.Body[key] = value
	return r
}

// SetBodyParams merges the given parameters into the body.
func (r *Request) SetBodyParams(params Params) *Request {
	if r.Body == nil {
		r.Body = make(Params, len(params))
	}
	maps.Copy(r.Body, params)
	return r
}

// SetRequireAuth marks the request as needing a signature.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

// SetWeight sets the rate-limit cost of the request.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetCache sets the response cache hint.
func (r *Request) SetCache(key string, ttl time.Duration) *Request {
	r.CacheKey = key
	r.CacheTTL = ttl
	return r
}
