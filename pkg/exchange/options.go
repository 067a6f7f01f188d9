package exchange

import "time"

// Options carries the optional query parameters shared across operations.
// The zero value means "let the venue use its defaults".
type Options struct {
	// Limit caps the number of returned records.
	Limit int
	// Offset skips records for offset pagination.
	Offset int
	// LastID is the public-history cursor; negative means unset. The
	// venue requires it, so GetTrades without WithLastID fails locally.
	LastID int64
	// Since is the inclusive window start for history queries.
	Since time.Time
	// Until is the exclusive window end for history queries.
	Until time.Time
	// Interval is the depth price-grouping interval.
	Interval string
	// Symbol restricts a cross-market query to one market.
	Symbol string
}

// Option mutates query Options.
type Option func(*Options)

// BuildOptions folds the given options over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{LastID: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLimit caps the number of returned records.
func WithLimit(limit int) Option {
	return func(o *Options) { o.Limit = limit }
}

// WithOffset skips the first offset records.
func WithOffset(offset int) Option {
	return func(o *Options) { o.Offset = offset }
}

// WithLastID sets the public trade history cursor: only trades with ids
// greater than id are returned. Use 0 to page from the beginning.
func WithLastID(id int64) Option {
	return func(o *Options) { o.LastID = id }
}

// WithSince sets the window start for history queries.
func WithSince(t time.Time) Option {
	return func(o *Options) { o.Since = t }
}

// WithUntil sets the window end for history queries.
func WithUntil(t time.Time) Option {
	return func(o *Options) { o.Until = t }
}

// WithInterval sets the depth price-grouping interval (e.g. "0.001").
func WithInterval(interval string) Option {
	return func(o *Options) { o.Interval = interval }
}

// WithSymbol restricts a cross-market history query to one market.
func WithSymbol(symbol string) Option {
	return func(o *Options) { o.Symbol = symbol }
}
