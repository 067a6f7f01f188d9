package p2b

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
	"resty.dev/v3"

	"nakula/pkg/core"
)

const (
	// ExchangeName is the venue identifier.
	ExchangeName = "p2b"

	baseURL    = "https://api.p2pb2b.com"
	apiVersion = "v2"
)

// API paths. Private paths double as the signed "request" body field, so
// they are the full path including the version prefix.
const (
	pathMarkets = "/api/v2/public/markets"
	pathTickers = "/api/v2/public/tickers"
	pathTicker  = "/api/v2/public/ticker"
	pathDepth   = "/api/v2/public/depth/result"
	pathHistory = "/api/v2/public/history"
	pathKline   = "/api/v2/public/market/kline"

	pathBalances     = "/api/v2/account/balances"
	pathOrderNew     = "/api/v2/order/new"
	pathOrderCancel  = "/api/v2/order/cancel"
	pathOpenOrders   = "/api/v2/orders"
	pathOrderDeals   = "/api/v2/account/order"
	pathDealHistory  = "/api/v2/account/market_deal_history"
	pathOrderHistory = "/api/v2/account/order_history"
)

// signingJSON serializes the signed body with sorted keys so the payload,
// and therefore the signature, is deterministic for a given parameter map.
var signingJSON = sonic.Config{SortMapKeys: true}.Froze()

// wireJSON decodes venue payloads. UseNumber keeps numeric tokens out of
// float64 on the way into the raw shapes.
var wireJSON = sonic.Config{UseNumber: true, CopyString: true}.Froze()

// intervals lists the candle intervals the venue accepts.
var intervals = map[string]struct{}{
	"1m": {},
	"1h": {},
	"1d": {},
}

// errorKinds is the exact-match table from venue error code to canonical
// error kind. Codes absent here fall through as unknown, carrying the
// original code and message.
var errorKinds = map[string]core.ErrorType{
	// 1001-1016: key, payload, signature, and nonce failures.
	"1001": core.ErrorTypeAuthentication,
	"1002": core.ErrorTypeAuthentication,
	"1003": core.ErrorTypeAuthentication,
	"1004": core.ErrorTypeAuthentication,
	"1005": core.ErrorTypeAuthentication,
	"1006": core.ErrorTypeAuthentication,
	"1007": core.ErrorTypeAuthentication,
	"1008": core.ErrorTypeAuthentication,
	"1009": core.ErrorTypeAuthentication,
	"1010": core.ErrorTypeAuthentication,
	"1011": core.ErrorTypeAuthentication,
	"1012": core.ErrorTypeAuthentication,
	"1013": core.ErrorTypeAuthentication,
	"1014": core.ErrorTypeAuthentication,
	"1015": core.ErrorTypeAuthentication,
	"1016": core.ErrorTypeAuthentication,

	"2010": core.ErrorTypeInvalidRequest,
	"2020": core.ErrorTypeInvalidRequest,
	"2021": core.ErrorTypeInvalidRequest,
	"2030": core.ErrorTypeInvalidRequest,
	"2040": core.ErrorTypeInsufficientFunds,
	"2050": core.ErrorTypeInvalidRequest,
	"2051": core.ErrorTypeInvalidRequest,
	"2052": core.ErrorTypeInvalidRequest,
	"2060": core.ErrorTypeInvalidRequest,
	"2061": core.ErrorTypeInvalidRequest,
	"2062": core.ErrorTypeInvalidRequest,
	"2070": core.ErrorTypeInvalidRequest,

	"3001": core.ErrorTypeInvalidRequest,
	"3020": core.ErrorTypeInvalidRequest,
	"3030": core.ErrorTypeInvalidRequest,
	"3040": core.ErrorTypeInvalidRequest,
	"3050": core.ErrorTypeInvalidRequest,
	"3060": core.ErrorTypeInvalidRequest,
	"3070": core.ErrorTypeInvalidRequest,
	"3080": core.ErrorTypeInvalidRequest,
	"3090": core.ErrorTypeInvalidRequest,
	"3100": core.ErrorTypeInvalidRequest,
	"3110": core.ErrorTypeInvalidRequest,

	"4001": core.ErrorTypeServiceUnavailable,

	"6010": core.ErrorTypeInsufficientFunds,
}

// envelope is the common response wrapper. Error details arrive either as
// a top-level errorCode/message pair or nested under "error"; the nested
// form wins when both are present.
type envelope struct {
	Success     bool            `json:"success"`
	ErrorCode   number          `json:"errorCode"`
	Message     json.RawMessage `json:"message"`
	Result      json.RawMessage `json:"result"`
	CacheTime   number          `json:"cache_time"`
	CurrentTime number          `json:"current_time"`
	Error       *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    number `json:"code"`
	Message string `json:"message"`
}

// messageText flattens the message field, which the venue emits as a
// string, an array of strings, or nothing at all.
func (e *envelope) messageText() string {
	if len(e.Message) == 0 {
		return ""
	}
	var s string
	if err := wireJSON.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := wireJSON.Unmarshal(e.Message, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return string(e.Message)
}

// FeeRate is one maker/taker fee pair from the venue fee schedule.
type FeeRate struct {
	Maker apd.Decimal
	Taker apd.Decimal
}

// Protocol implements request construction, signing, and response
// normalization for the venue. Safe for concurrent use; the only mutable
// state is the nonce source.
type Protocol struct {
	catalog    *core.Catalog
	normalizer *Normalizer
	nonces     *nonceSource
}

// NewProtocol creates the venue protocol resolving markets against the
// given catalog.
func NewProtocol(catalog *core.Catalog) *Protocol {
	return &Protocol{
		catalog:    catalog,
		normalizer: NewNormalizer(catalog),
		nonces:     newNonceSource(),
	}
}

// Name returns the venue identifier.
func (p *Protocol) Name() string { return ExchangeName }

// Version returns the API version.
func (p *Protocol) Version() string { return apiVersion }

// BaseURL returns the REST API base URL.
func (p *Protocol) BaseURL() string { return baseURL }

// Normalizer returns the payload normalizer backing ParseResponse.
func (p *Protocol) Normalizer() *Normalizer { return p.normalizer }

// FeeRates returns the venue's flat trading fee, 0.2% for both sides.
// The venue publishes no volume tiers on the public schedule.
func (p *Protocol) FeeRates() FeeRate {
	var rate FeeRate
	rate.Maker.SetFinite(2, -3)
	rate.Taker.SetFinite(2, -3)
	return rate
}

// BuildRequest constructs the venue request for an operation. Missing
// required parameters fail locally with a missing-argument error; nothing
// reaches the network.
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch op {
	case core.OpGetMarkets:
		return core.NewRequest(http.MethodGet, pathMarkets).
			SetCache("markets", time.Minute), nil

	case core.OpGetTickers:
		return core.NewRequest(http.MethodGet, pathTickers), nil

	case core.OpGetTicker:
		if err := requireParams(params, "market"); err != nil {
			return nil, err
		}
		return core.NewRequest(http.MethodGet, pathTicker).
			SetQuery("market", params["market"]), nil

	case core.OpGetOrderBook:
		if err := requireParams(params, "market"); err != nil {
			return nil, err
		}
		req := core.NewRequest(http.MethodGet, pathDepth).
			SetQuery("market", params["market"])
		copyOptional(req.SetQuery, params, "limit", "interval")
		return req, nil

	case core.OpGetTrades:
		// The history endpoint pages by an opaque cursor; the venue
		// rejects calls without it, so the gap is caught here.
		if err := requireParams(params, "market", "lastId"); err != nil {
			return nil, err
		}
		req := core.NewRequest(http.MethodGet, pathHistory).
			SetQuery("market", params["market"]).
			SetQuery("lastId", params["lastId"])
		copyOptional(req.SetQuery, params, "limit")
		return req, nil

	case core.OpGetKlines:
		if err := requireParams(params, "market", "interval"); err != nil {
			return nil, err
		}
		interval, _ := params["interval"].(string)
		if _, ok := intervals[interval]; !ok {
			return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeInvalidRequest,
				fmt.Sprintf("unsupported candle interval %q", interval))
		}
		req := core.NewRequest(http.MethodGet, pathKline).
			SetQuery("market", params["market"]).
			SetQuery("interval", interval)
		copyOptional(req.SetQuery, params, "limit", "offset")
		return req, nil

	case core.OpGetBalance:
		return p.privateRequest(pathBalances, params), nil

	case core.OpPlaceOrder:
		if err := requireParams(params, "market", "side", "amount", "price"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathOrderNew, params), nil

	case core.OpCancelOrder:
		if err := requireParams(params, "market", "orderId"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathOrderCancel, params), nil

	case core.OpGetOpenOrders:
		if err := requireParams(params, "market"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathOpenOrders, params), nil

	case core.OpGetOrderTrades:
		if err := requireParams(params, "orderId"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathOrderDeals, params), nil

	case core.OpGetMyTrades:
		if err := requireParams(params, "market", "startTime", "endTime"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathDealHistory, params), nil

	case core.OpGetOrderHistory:
		if err := requireParams(params, "startTime", "endTime"); err != nil {
			return nil, err
		}
		return p.privateRequest(pathOrderHistory, params), nil
	}
	return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeInvalidRequest,
		fmt.Sprintf("unsupported operation %s", op))
}

func (p *Protocol) privateRequest(path string, params core.Params) *core.Request {
	return core.NewRequest(http.MethodPost, path).
		SetBodyParams(params).
		SetRequireAuth(true)
}

// SignRequest attaches the authentication envelope to a private request.
// The body parameters are extended with the API path under "request" and a
// fresh nonce, serialized with sorted keys, and sent both as the plain
// JSON body and base64-encoded in X-TXC-PAYLOAD; the signature header is
// the lowercase hex HMAC-SHA512 of the base64 payload under the secret.
func (p *Protocol) SignRequest(req *resty.Request, creds core.Credentials, r *core.Request) error {
	if creds.APIKey == "" || creds.SecretKey == "" {
		return core.ErrNoCredentials
	}
	params := make(core.Params, len(r.Body)+2)
	maps.Copy(params, r.Body)
	params["request"] = r.Path
	params["nonce"] = p.nonces.Next()

	body, payload, signature, err := signPayload(params, creds.SecretKey)
	if err != nil {
		return fmt.Errorf("sign %s: %w", r.Path, err)
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("X-TXC-APIKEY", creds.APIKey)
	req.SetHeader("X-TXC-PAYLOAD", payload)
	req.SetHeader("X-TXC-SIGNATURE", signature)
	req.SetBody(body)
	return nil
}

// signPayload serializes the extended parameter map and derives the
// payload and signature. Split out so the signature recipe can be pinned
// by tests with a fixed nonce.
func signPayload(params core.Params, secret string) (body []byte, payload, signature string, err error) {
	body, err = signingJSON.Marshal(params)
	if err != nil {
		return nil, "", "", fmt.Errorf("marshal body: %w", err)
	}
	payload = base64.StdEncoding.EncodeToString(body)
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	signature = hex.EncodeToString(mac.Sum(nil))
	return body, payload, signature, nil
}

// ParseResponse decodes the response envelope, maps venue errors, and
// normalizes the result to the operation's canonical type. The market
// supplies context the payload omits; operations that need one document it
// on the exchange method.
func (p *Protocol) ParseResponse(op core.Operation, resp *resty.Response, market *core.Market) (any, error) {
	var env envelope
	if err := wireJSON.Unmarshal(resp.Bytes(), &env); err != nil {
		return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeUnknown,
			fmt.Sprintf("malformed response: %v", err)).
			WithCode(core.ErrCodeInvalidPayload).
			WithStatus(resp.StatusCode())
	}
	if !env.Success || resp.IsError() {
		return nil, p.mapError(resp.StatusCode(), &env)
	}

	switch op {
	case core.OpGetMarkets:
		var raws []rawMarket
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeMarkets(raws)

	case core.OpGetTickers:
		var raws map[string]rawTickerEntry
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeTickerEntries(raws)

	case core.OpGetTicker:
		var raw rawTickerBody
		if err := decodeResult(env.Result, &raw); err != nil {
			return nil, err
		}
		// The flat shape has no "at"; the envelope cache time is the
		// snapshot time.
		return p.normalizer.NormalizeTicker(market.Symbol, env.CacheTime, raw)

	case core.OpGetOrderBook:
		var raw rawOrderBook
		if err := decodeResult(env.Result, &raw); err != nil {
			return nil, err
		}
		ts, err := unixTime(env.CacheTime)
		if err != nil {
			return nil, fmt.Errorf("book timestamp: %w", err)
		}
		return p.normalizer.NormalizeOrderBook(raw, market.Symbol, ts)

	case core.OpGetTrades:
		var raws []rawPublicTrade
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		trades := make([]core.Trade, 0, len(raws))
		for _, raw := range raws {
			t, err := p.normalizer.NormalizeTrade(raw, market)
			if err != nil {
				return nil, err
			}
			trades = append(trades, t)
		}
		return trades, nil

	case core.OpGetKlines:
		var raws []rawKline
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeKlines(raws)

	case core.OpGetBalance:
		var raws map[string]rawBalance
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeBalances(raws)

	case core.OpPlaceOrder, core.OpCancelOrder:
		var raw rawOrder
		if err := decodeResult(env.Result, &raw); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeOrder(raw, market)

	case core.OpGetOpenOrders:
		var raws []rawOrder
		if err := decodeResult(env.Result, &raws); err != nil {
			return nil, err
		}
		return p.normalizer.NormalizeOrders(raws, market)

	case core.OpGetOrderTrades:
		var result struct {
			Offset  number         `json:"offset"`
			Limit   number         `json:"limit"`
			Records []rawOrderDeal `json:"records"`
		}
		if err := decodeResult(env.Result, &result); err != nil {
			return nil, err
		}
		trades := make([]core.Trade, 0, len(result.Records))
		for _, raw := range result.Records {
			t, err := p.normalizer.NormalizeOrderDeal(raw, market)
			if err != nil {
				return nil, err
			}
			trades = append(trades, t)
		}
		return trades, nil

	case core.OpGetMyTrades:
		var result struct {
			Total number    `json:"total"`
			Deals []rawDeal `json:"deals"`
		}
		if err := decodeResult(env.Result, &result); err != nil {
			return nil, err
		}
		trades := make([]core.Trade, 0, len(result.Deals))
		for _, raw := range result.Deals {
			t, err := p.normalizer.NormalizeDeal(raw, market)
			if err != nil {
				return nil, err
			}
			trades = append(trades, t)
		}
		return trades, nil

	case core.OpGetOrderHistory:
		// The history result is a map keyed by native market id, each
		// value a list of that market's orders; flattened here.
		var groups map[string][]rawOrder
		if err := decodeResult(env.Result, &groups); err != nil {
			return nil, err
		}
		var orders []core.Order
		for id, raws := range groups {
			m, err := p.catalog.Resolve(id)
			if err != nil {
				return nil, err
			}
			group, err := p.normalizer.NormalizeOrders(raws, m)
			if err != nil {
				return nil, err
			}
			orders = append(orders, group...)
		}
		return orders, nil
	}
	return nil, core.NewExchangeError(ExchangeName, core.ErrorTypeInvalidRequest,
		fmt.Sprintf("unsupported operation %s", op))
}

// SupportedOperations returns every operation the venue exposes.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpGetMarkets,
		core.OpGetTickers,
		core.OpGetTicker,
		core.OpGetOrderBook,
		core.OpGetTrades,
		core.OpGetKlines,
		core.OpGetBalance,
		core.OpPlaceOrder,
		core.OpCancelOrder,
		core.OpGetOpenOrders,
		core.OpGetOrderTrades,
		core.OpGetMyTrades,
		core.OpGetOrderHistory,
	}
}

// RateLimits returns the venue's documented per-key ceiling.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		RequestsPerSecond: 10,
		OrdersPerSecond:   10,
		Burst:             1,
	}
}

// mapError maps a non-success response to a canonical error. The nested
// error object wins over the top-level code when both are present; a code
// missing from the table falls through as unknown with the original code
// and message kept for diagnostics.
func (p *Protocol) mapError(status int, env *envelope) error {
	code := env.ErrorCode.String()
	message := env.messageText()
	if env.Error != nil {
		if !env.Error.Code.empty() {
			code = env.Error.Code.String()
		}
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}
	kind, ok := errorKinds[code]
	if !ok {
		kind = core.ErrorTypeUnknown
	}
	if message == "" {
		message = "request failed"
	}
	exErr := core.NewExchangeError(ExchangeName, kind, message).WithStatus(status)
	if code != "" {
		exErr = exErr.WithCode(core.ErrorCode(code))
	}
	return exErr
}

func decodeResult(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return core.NewExchangeError(ExchangeName, core.ErrorTypeUnknown,
			"response has no result").
			WithCode(core.ErrCodeInvalidPayload)
	}
	if err := wireJSON.Unmarshal(raw, dest); err != nil {
		return core.NewExchangeError(ExchangeName, core.ErrorTypeUnknown,
			fmt.Sprintf("malformed result: %v", err)).
			WithCode(core.ErrCodeInvalidPayload)
	}
	return nil
}

// requireParams fails with a missing-argument error for the first absent
// or nil key.
func requireParams(params core.Params, keys ...string) error {
	for _, key := range keys {
		if v, ok := params[key]; !ok || v == nil || v == "" {
			return core.NewMissingArgument(ExchangeName, key)
		}
	}
	return nil
}

// copyOptional copies the given keys into a request when present.
func copyOptional(set func(string, any) *core.Request, params core.Params, keys ...string) {
	for _, key := range keys {
		if v, ok := params[key]; ok && v != nil {
			set(key, v)
		}
	}
}
