package p2b

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"nakula/internal/cache"
	"nakula/internal/circuitbreaker"
	internalhttp "nakula/internal/http"
	"nakula/internal/keyring"
	"nakula/internal/ratelimit"
	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

const windowMax = 24 * time.Hour

// ordersBucket is the rate limit bucket for order placement and
// cancellation, limited separately from general requests.
const ordersBucket = "orders"

func init() {
	exchange.Register(ExchangeName, func(cfg *core.Config) (exchange.Exchange, error) {
		return New(cfg)
	})
}

// Exchange is the p2b venue adapter. The normalization and signing core
// stays pure; this type adds the transport around it: rate limiting,
// circuit breaking, retries (inside the HTTP client), and logging.
type Exchange struct {
	cfg      *core.Config
	catalog  *core.Catalog
	protocol *Protocol
	http     *internalhttp.Client
	limiter  *ratelimit.RateLimiter
	breaker  *circuitbreaker.Breaker
	cache    *cache.Cache
	keys     *keyring.KeyRing
	logger   zerolog.Logger
	closed   atomic.Bool

	// baseURL overrides the venue endpoint, for mirrors and tests.
	baseURL string
	// now is the clock for window defaults, swappable in tests.
	now func() time.Time
}

// ExchangeOption customizes an Exchange beyond its Config.
type ExchangeOption func(*Exchange)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) ExchangeOption {
	return func(e *Exchange) { e.logger = logger }
}

// WithKeyRing signs private requests with rotating keys from the ring
// instead of the single Config credential pair.
func WithKeyRing(ring *keyring.KeyRing) ExchangeOption {
	return func(e *Exchange) { e.keys = ring }
}

// WithBaseURL points the adapter at a different endpoint.
func WithBaseURL(url string) ExchangeOption {
	return func(e *Exchange) { e.baseURL = url }
}

// New creates a p2b adapter from the given config.
func New(cfg *core.Config, opts ...ExchangeOption) (*Exchange, error) {
	if cfg == nil {
		cfg = core.DefaultConfig(ExchangeName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("p2b: invalid config: %w", err)
	}
	catalog := core.NewCatalog(ExchangeName)
	e := &Exchange{
		cfg:      cfg,
		catalog:  catalog,
		protocol: NewProtocol(catalog),
		limiter:  ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitPeriod),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	e.baseURL = e.protocol.BaseURL()
	for _, opt := range opts {
		opt(e)
	}

	limits := e.protocol.RateLimits()
	e.limiter.SetBucketLimit(ordersBucket, limits.OrdersPerSecond, time.Second)

	if cfg.CircuitBreakerEnabled {
		e.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    cfg.CircuitBreakerFailThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		})
	}
	if cfg.CacheEnabled {
		e.cache = cache.New(cfg.CacheTTL)
	}

	httpClient, err := internalhttp.NewClient(&internalhttp.Config{
		BaseURL:      e.baseURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
	}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("p2b: http client: %w", err)
	}
	e.http = httpClient
	return e, nil
}

// Name returns the venue identifier.
func (e *Exchange) Name() string { return ExchangeName }

// Protocol exposes the venue protocol, mainly for fee rates.
func (e *Exchange) Protocol() *Protocol { return e.protocol }

// Close releases the HTTP transport. Further calls fail with
// ErrClientClosed.
func (e *Exchange) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.http.Close()
}

// LoadMarkets fetches the market listing and swaps it into the catalog.
func (e *Exchange) LoadMarkets(ctx context.Context) ([]core.Market, error) {
	result, err := e.do(ctx, core.OpGetMarkets, nil, nil)
	if err != nil {
		return nil, err
	}
	markets := result.([]core.Market)
	e.catalog.Load(markets)
	e.logger.Debug().Int("markets", len(markets)).Msg("market catalog loaded")
	return markets, nil
}

// Markets returns the loaded market catalog.
func (e *Exchange) Markets() []core.Market { return e.catalog.Markets() }

// Market resolves a market by native id or canonical symbol.
func (e *Exchange) Market(idOrSymbol string) (*core.Market, error) {
	return e.catalog.Resolve(idOrSymbol)
}

// GetTicker returns 24h statistics for one market.
func (e *Exchange) GetTicker(ctx context.Context, symbol string) (core.Ticker, error) {
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return core.Ticker{}, err
	}
	result, err := e.do(ctx, core.OpGetTicker, core.Params{"market": m.ID}, m)
	if err != nil {
		return core.Ticker{}, err
	}
	return result.(core.Ticker), nil
}

// GetTickers returns 24h statistics for every listed market.
func (e *Exchange) GetTickers(ctx context.Context) ([]core.Ticker, error) {
	if err := e.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	result, err := e.do(ctx, core.OpGetTickers, nil, nil)
	if err != nil {
		return nil, err
	}
	return result.([]core.Ticker), nil
}

// GetOrderBook returns a depth snapshot, levels in venue order.
func (e *Exchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (core.OrderBook, error) {
	o := exchange.BuildOptions(opts...)
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return core.OrderBook{}, err
	}
	params := core.Params{"market": m.ID}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
	if o.Interval != "" {
		params["interval"] = o.Interval
	}
	result, err := e.do(ctx, core.OpGetOrderBook, params, m)
	if err != nil {
		return core.OrderBook{}, err
	}
	return result.(core.OrderBook), nil
}

// GetTrades returns public trade history after the WithLastID cursor.
func (e *Exchange) GetTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	o := exchange.BuildOptions(opts...)
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := core.Params{"market": m.ID}
	if o.LastID >= 0 {
		params["lastId"] = o.LastID
	}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
	result, err := e.do(ctx, core.OpGetTrades, params, m)
	if err != nil {
		return nil, err
	}
	return result.([]core.Trade), nil
}

// GetKlines returns a candle series for interval "1m", "1h", or "1d".
func (e *Exchange) GetKlines(ctx context.Context, symbol, interval string, opts ...exchange.Option) ([]core.Kline, error) {
	o := exchange.BuildOptions(opts...)
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := core.Params{"market": m.ID, "interval": interval}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
	if o.Offset > 0 {
		params["offset"] = o.Offset
	}
	result, err := e.do(ctx, core.OpGetKlines, params, m)
	if err != nil {
		return nil, err
	}
	return result.([]core.Kline), nil
}

// GetBalances returns the account balances the venue reports.
func (e *Exchange) GetBalances(ctx context.Context) (core.Balances, error) {
	result, err := e.do(ctx, core.OpGetBalance, core.Params{}, nil)
	if err != nil {
		return nil, err
	}
	return result.(core.Balances), nil
}

// PlaceOrder submits a limit order. Market orders fail locally; the venue
// only accepts limit orders.
func (e *Exchange) PlaceOrder(ctx context.Context, order exchange.OrderRequest) (core.Order, error) {
	if order.Type == core.TypeMarket {
		return core.Order{}, core.NewExchangeError(ExchangeName, core.ErrorTypeInvalidRequest,
			"market orders are not supported, only limit orders are accepted").
			WithCode(core.ErrCodeMarketOrder)
	}
	if order.Side != core.SideBuy && order.Side != core.SideSell {
		return core.Order{}, core.NewMissingArgument(ExchangeName, "side")
	}
	m, err := e.resolve(ctx, order.Symbol)
	if err != nil {
		return core.Order{}, err
	}
	params := core.Params{
		"market": m.ID,
		"side":   order.Side.String(),
		"amount": order.Amount.Text('f'),
		"price":  order.Price.Text('f'),
	}
	result, err := e.do(ctx, core.OpPlaceOrder, params, m)
	if err != nil {
		return core.Order{}, err
	}
	return result.(core.Order), nil
}

// CancelOrder cancels an open order on the given market.
func (e *Exchange) CancelOrder(ctx context.Context, symbol, orderID string) (core.Order, error) {
	if orderID == "" {
		return core.Order{}, core.NewMissingArgument(ExchangeName, "orderId")
	}
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return core.Order{}, err
	}
	params := core.Params{"market": m.ID, "orderId": orderParam(orderID)}
	result, err := e.do(ctx, core.OpCancelOrder, params, m)
	if err != nil {
		return core.Order{}, err
	}
	return result.(core.Order), nil
}

// GetOpenOrders returns the account's resting orders on one market.
func (e *Exchange) GetOpenOrders(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Order, error) {
	o := exchange.BuildOptions(opts...)
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := core.Params{"market": m.ID}
	addPagination(params, o)
	result, err := e.do(ctx, core.OpGetOpenOrders, params, m)
	if err != nil {
		return nil, err
	}
	return result.([]core.Order), nil
}

// GetOrderTrades returns the fills of one order. The symbol supplies the
// market context the payload omits; the fee currency depends on it.
func (e *Exchange) GetOrderTrades(ctx context.Context, symbol, orderID string, opts ...exchange.Option) ([]core.Trade, error) {
	if orderID == "" {
		return nil, core.NewMissingArgument(ExchangeName, "orderId")
	}
	o := exchange.BuildOptions(opts...)
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := core.Params{"orderId": orderParam(orderID)}
	addPagination(params, o)
	result, err := e.do(ctx, core.OpGetOrderTrades, params, m)
	if err != nil {
		return nil, err
	}
	return result.([]core.Trade), nil
}

// GetMyTrades returns the account's fills on one market within a window of
// at most 24 hours.
func (e *Exchange) GetMyTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	o := exchange.BuildOptions(opts...)
	start, end, err := e.resolveWindow(o.Since, o.Until)
	if err != nil {
		return nil, err
	}
	m, err := e.resolve(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := core.Params{"market": m.ID, "startTime": start, "endTime": end}
	addPagination(params, o)
	result, err := e.do(ctx, core.OpGetMyTrades, params, m)
	if err != nil {
		return nil, err
	}
	return result.([]core.Trade), nil
}

// GetOrderHistory returns closed orders within a window of at most 24
// hours, across every market or, with WithSymbol, one of them. The venue
// takes no market filter, so the restriction is applied after
// normalization.
func (e *Exchange) GetOrderHistory(ctx context.Context, opts ...exchange.Option) ([]core.Order, error) {
	o := exchange.BuildOptions(opts...)
	start, end, err := e.resolveWindow(o.Since, o.Until)
	if err != nil {
		return nil, err
	}
	if err := e.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	var symbol string
	if o.Symbol != "" {
		m, err := e.catalog.Resolve(o.Symbol)
		if err != nil {
			return nil, err
		}
		symbol = m.Symbol
	}
	params := core.Params{"startTime": start, "endTime": end}
	addPagination(params, o)
	result, err := e.do(ctx, core.OpGetOrderHistory, params, nil)
	if err != nil {
		return nil, err
	}
	orders := result.([]core.Order)
	if symbol == "" {
		return orders, nil
	}
	filtered := orders[:0]
	for _, order := range orders {
		if order.Symbol == symbol {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// resolveWindow applies the venue's history window rules: until defaults
// to now, or to since+24h when only since is given; since defaults to
// until−24h; a span over 24 hours fails before any request is built.
// Exactly 24 hours is accepted. The venue takes the bounds in whole
// seconds, truncated.
func (e *Exchange) resolveWindow(since, until time.Time) (start, end int64, err error) {
	if until.IsZero() {
		if since.IsZero() {
			until = e.now()
		} else {
			until = since.Add(windowMax)
		}
	}
	if since.IsZero() {
		since = until.Add(-windowMax)
	}
	if until.Sub(since) > windowMax {
		return 0, 0, core.NewExchangeError(ExchangeName, core.ErrorTypeInvalidRequest,
			"the time between since and until cannot be greater than 24 hours").
			WithCode(core.ErrCodeWindowTooWide)
	}
	return since.UnixMilli() / 1000, until.UnixMilli() / 1000, nil
}

// ensureMarkets loads the catalog on first use.
func (e *Exchange) ensureMarkets(ctx context.Context) error {
	if e.catalog.Len() > 0 {
		return nil
	}
	_, err := e.LoadMarkets(ctx)
	return err
}

// resolve loads the catalog if needed and resolves a market reference.
func (e *Exchange) resolve(ctx context.Context, idOrSymbol string) (*core.Market, error) {
	if idOrSymbol == "" {
		return nil, core.NewMissingArgument(ExchangeName, "symbol")
	}
	if err := e.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	return e.catalog.Resolve(idOrSymbol)
}

// do runs one operation end to end: cache check, build, rate limit,
// breaker check, sign, dispatch, parse.
func (e *Exchange) do(ctx context.Context, op core.Operation, params core.Params, market *core.Market) (any, error) {
	if e.closed.Load() {
		return nil, core.ErrClientClosed
	}
	req, err := e.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if req.CacheKey != "" && e.cache != nil {
		if cached := e.cache.Get(req.CacheKey); cached != nil {
			e.logger.Debug().Str("cache_key", req.CacheKey).Msg("cache hit")
			return cached, nil
		}
	}
	if e.breaker != nil && !e.breaker.Allow() {
		return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeServiceUnavailable,
			"circuit breaker open")
	}

	// Credential and signing failures are local; they reach neither the
	// network nor the breaker.
	r := e.http.Request().SetContext(ctx)
	if req.RequireAuth {
		creds, err := e.credentials()
		if err != nil {
			return nil, err
		}
		if err := e.protocol.SignRequest(r, creds, req); err != nil {
			return nil, err
		}
	}
	for key, value := range req.Query {
		r.SetQueryParam(key, fmt.Sprint(value))
	}

	if err := e.wait(ctx, op); err != nil {
		return nil, err
	}
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		e.record(false)
		return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeNetwork, err.Error())
	}
	if req.RequireAuth && e.keys != nil {
		e.keys.MarkUsed()
	}

	result, err := e.protocol.ParseResponse(op, resp, market)
	e.record(err == nil || !transientFailure(resp, err))
	if err != nil {
		if req.RequireAuth && e.keys != nil && core.IsAuthenticationError(err) {
			e.keys.OnError()
		}
		e.logger.Debug().Err(err).Stringer("op", op).Msg("request failed")
		return nil, err
	}
	if req.CacheKey != "" && e.cache != nil && result != nil {
		e.cache.Set(req.CacheKey, result, req.CacheTTL)
	}
	return result, nil
}

func (e *Exchange) wait(ctx context.Context, op core.Operation) error {
	if op == core.OpPlaceOrder || op == core.OpCancelOrder {
		return e.limiter.WaitBucket(ctx, ordersBucket)
	}
	return e.limiter.Wait(ctx)
}

// credentials returns the signing credentials, preferring the key ring
// over the static config pair.
func (e *Exchange) credentials() (core.Credentials, error) {
	if e.keys != nil {
		key := e.keys.Current()
		if key == nil {
			return core.Credentials{}, core.ErrNoAPIKey
		}
		return key.Credentials(), nil
	}
	if e.cfg.Credentials == nil {
		return core.Credentials{}, core.ErrNoCredentials
	}
	return *e.cfg.Credentials, nil
}

func (e *Exchange) record(success bool) {
	if e.breaker != nil {
		e.breaker.Record(success)
	}
}

// transientFailure reports whether a parsed error should count against the
// circuit breaker. Caller mistakes (bad params, bad auth) do not; venue
// outages do.
func transientFailure(resp *resty.Response, err error) bool {
	if core.IsServiceUnavailable(err) {
		return true
	}
	return resp != nil && resp.StatusCode() >= 500
}

func addPagination(params core.Params, o exchange.Options) {
	if o.Offset > 0 {
		params["offset"] = o.Offset
	}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
}

// orderParam sends numeric order ids as numbers, matching the venue's
// integer field, and leaves anything else as a string.
func orderParam(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
