package p2b

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

const (
	testAPIKey = "test-key"
	testSecret = "test-secret"
)

const marketsBody = `{"success":true,"errorCode":"","message":"","result":[
	{"name":"ETH_BTC","stock":"ETH","money":"BTC",
	 "precision":{"money":"6","stock":"4","fee":"4"},
	 "limits":{"min_amount":"0.001","max_amount":"100000","step_size":"0.0001",
	           "min_price":"0.00001","max_price":"922327","tick_size":"0.00001","min_total":"0.0001"}},
	{"name":"DOGE_USDT","stock":"DOGE","money":"USDT",
	 "precision":{"money":"6","stock":"1","fee":"4"},
	 "limits":{"min_amount":"1","max_amount":"0","step_size":"0.1",
	           "min_price":"0.000001","max_price":"0","tick_size":"0.000001","min_total":"0.0001"}}
],"cache_time":1699252631.327,"current_time":1699252631.456}`

// testServer stubs the venue. Private handlers verify the signing envelope
// before answering.
type testServer struct {
	*httptest.Server
	t         *testing.T
	hits      atomic.Int64
	lastNonce atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{t: t}
	mux := http.NewServeMux()

	public := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			ts.hits.Add(1)
			w.Write([]byte(body))
		})
	}
	private := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			ts.hits.Add(1)
			ts.verifySigned(r, path)
			w.Write([]byte(body))
		})
	}

	public("/api/v2/public/markets", marketsBody)
	public("/api/v2/public/ticker", `{"success":true,"errorCode":"","message":"","result":{
		"bid":"0.342037","ask":"0.342537","open":"0.342037","high":"0.344334","low":"0.341293",
		"last":"0.342037","volume":"135854.6948","deal":"46479.054","change":"0"},
		"cache_time":1699252631.327,"current_time":1699252631.456}`)
	public("/api/v2/public/history", `{"success":true,"errorCode":"","message":"","result":[
		{"id":7545846,"type":"sell","time":1699255565.585696,"amount":"60.4","price":"0.33771"}]}`)

	private("/api/v2/account/balances", `{"success":true,"errorCode":"","message":"","result":{
		"USDT":{"available":"71.81328046","freeze":"10.46103091"}}}`)
	private("/api/v2/order/new", `{"success":true,"errorCode":"","message":"","result":{
		"orderId":171906478744,"market":"DOGE_USDT","price":"0.04","side":"buy","type":"limit",
		"timestamp":1699237419.064541,"dealMoney":"0","dealStock":"0","amount":"100",
		"takerFee":"0.002","makerFee":"0.002","left":"100","dealFee":"0"}}`)
	private("/api/v2/account/order_history", `{"success":true,"errorCode":"","message":"","result":{
		"DOGE_USDT":[{"id":171955225751,"ctime":1699268825.3807,"market":"DOGE_USDT","type":"limit",
		"side":"buy","price":"0.335","amount":"19.1","dealFee":"0.0127970","dealMoney":"6.3985","dealStock":"19.1"}],
		"ETH_BTC":[{"id":171955225752,"ctime":1699268825.4,"market":"ETH_BTC","type":"limit",
		"side":"sell","price":"0.05","amount":"1","dealFee":"0","dealMoney":"0.05","dealStock":"1"}]}}`)

	ts.Server = httptest.NewServer(mux)
	return ts
}

// verifySigned recomputes the signature over the payload header and checks
// the signed body carries the path and a strictly increasing nonce.
func (ts *testServer) verifySigned(r *http.Request, path string) {
	t := ts.t
	t.Helper()

	payload := r.Header.Get("X-TXC-PAYLOAD")
	require.NotEmpty(t, payload, "private call without payload header")
	assert.Equal(t, testAPIKey, r.Header.Get("X-TXC-APIKEY"))

	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write([]byte(payload))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-TXC-SIGNATURE"))

	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	var body struct {
		Request string `json:"request"`
		Nonce   string `json:"nonce"`
	}
	require.NoError(t, wireJSON.Unmarshal(decoded, &body))
	assert.Equal(t, path, body.Request)

	nonce, err := strconv.ParseInt(body.Nonce, 10, 64)
	require.NoError(t, err)
	assert.Greater(t, nonce, ts.lastNonce.Swap(nonce), "nonces must strictly increase")
}

func newTestExchange(t *testing.T, ts *testServer) *Exchange {
	t.Helper()
	cfg := core.DefaultConfig(ExchangeName).
		WithCredentials(&core.Credentials{APIKey: testAPIKey, SecretKey: testSecret})
	cfg.MaxRetries = 0
	e, err := New(cfg, WithBaseURL(ts.URL))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	t.Cleanup(ts.Close)
	return e
}

func TestLoadMarketsPopulatesCatalog(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))

	markets, err := e.LoadMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, markets, 2)

	m, err := e.Market("ETH/BTC")
	require.NoError(t, err)
	assert.Equal(t, "ETH_BTC", m.ID)
}

func TestLoadMarketsServedFromCache(t *testing.T) {
	ts := newTestServer(t)
	e := newTestExchange(t, ts)

	_, err := e.LoadMarkets(context.Background())
	require.NoError(t, err)
	_, err = e.LoadMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), ts.hits.Load(), "the listing is served from cache within its TTL")
}

func TestLoadMarketsCacheDisabled(t *testing.T) {
	ts := newTestServer(t)
	cfg := core.DefaultConfig(ExchangeName).WithCache(false, 0)
	e, err := New(cfg, WithBaseURL(ts.URL))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	t.Cleanup(ts.Close)

	_, err = e.LoadMarkets(context.Background())
	require.NoError(t, err)
	_, err = e.LoadMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), ts.hits.Load(), "every call hits the venue with the cache off")
}

func TestGetTickerResolvesLazily(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))

	// No explicit LoadMarkets; the first symbol call loads the catalog.
	tk, err := e.GetTicker(context.Background(), "DOGE/USDT")
	require.NoError(t, err)
	assert.Equal(t, "DOGE/USDT", tk.Symbol)
	assert.Equal(t, int64(1699252631327), tk.Timestamp.UnixMilli())
	assert.Equal(t, "0.342037", tk.Last.Text('f'))
	assert.Zero(t, tk.Close.Cmp(&tk.Last))
}

func TestGetTradesRequiresCursor(t *testing.T) {
	ts := newTestServer(t)
	e := newTestExchange(t, ts)
	require.NoError(t, initMarkets(e))
	before := ts.hits.Load()

	_, err := e.GetTrades(context.Background(), "DOGE/USDT")
	assert.True(t, core.IsMissingArgument(err))
	assert.Equal(t, before, ts.hits.Load(), "validation failures never reach the network")

	trades, err := e.GetTrades(context.Background(), "DOGE/USDT", exchange.WithLastID(0))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "7545846", trades[0].ID)
}

func TestGetBalancesSignsRequest(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))

	balances, err := e.GetBalances(context.Background())
	require.NoError(t, err)
	usdt, ok := balances["USDT"]
	require.True(t, ok)
	assert.Equal(t, "71.81328046", usdt.Free.Text('f'))
	assert.Equal(t, "10.46103091", usdt.Used.Text('f'))
}

func TestGetBalancesWithoutCredentials(t *testing.T) {
	ts := newTestServer(t)
	cfg := core.DefaultConfig(ExchangeName)
	e, err := New(cfg, WithBaseURL(ts.URL))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	t.Cleanup(ts.Close)

	_, err = e.GetBalances(context.Background())
	assert.ErrorIs(t, err, core.ErrNoCredentials)
}

func TestPlaceOrderRejectsMarketType(t *testing.T) {
	ts := newTestServer(t)
	e := newTestExchange(t, ts)
	before := ts.hits.Load()

	_, err := e.PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol: "DOGE/USDT",
		Side:   core.SideBuy,
		Type:   core.TypeMarket,
	})
	assert.True(t, core.IsInvalidRequest(err))
	assert.True(t, core.IsErrorCode(err, core.ErrCodeMarketOrder))
	assert.Equal(t, before, ts.hits.Load())
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))
	require.NoError(t, initMarkets(e))

	req := exchange.OrderRequest{Symbol: "DOGE/USDT", Side: core.SideBuy, Type: core.TypeLimit}
	req.Amount.SetFinite(100, 0)
	req.Price.SetFinite(4, -2)

	o, err := e.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "171906478744", o.ID)
	assert.Equal(t, "DOGE/USDT", o.Symbol)
	require.NotNil(t, o.Remaining)
	assert.Equal(t, "100", o.Remaining.Text('f'))
	assert.Equal(t, core.StatusUnknown, o.Status)
}

func TestGetOrderHistoryFlattensAndFilters(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))
	require.NoError(t, initMarkets(e))

	all, err := e.GetOrderHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2, "orders from every market flattened")

	doge, err := e.GetOrderHistory(context.Background(), exchange.WithSymbol("DOGE/USDT"))
	require.NoError(t, err)
	require.Len(t, doge, 1)
	assert.Equal(t, "DOGE/USDT", doge[0].Symbol)
}

func TestResolveWindow(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))
	now := time.UnixMilli(1699268460_829)
	e.now = func() time.Time { return now }

	t.Run("defaults to the last 24 hours", func(t *testing.T) {
		start, end, err := e.resolveWindow(time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, now.UnixMilli()/1000, end, "bounds are whole seconds, truncated")
		assert.Equal(t, now.Add(-24*time.Hour).UnixMilli()/1000, start)
	})

	t.Run("since alone extends 24 hours forward", func(t *testing.T) {
		since := now.Add(-48 * time.Hour)
		start, end, err := e.resolveWindow(since, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, since.UnixMilli()/1000, start)
		assert.Equal(t, since.Add(24*time.Hour).UnixMilli()/1000, end)
	})

	t.Run("until alone reaches 24 hours back", func(t *testing.T) {
		until := now.Add(-time.Hour)
		start, _, err := e.resolveWindow(time.Time{}, until)
		require.NoError(t, err)
		assert.Equal(t, until.Add(-24*time.Hour).UnixMilli()/1000, start)
	})

	t.Run("exactly 24 hours is accepted", func(t *testing.T) {
		since := now.Add(-24 * time.Hour)
		_, _, err := e.resolveWindow(since, now)
		assert.NoError(t, err)
	})

	t.Run("over 24 hours is rejected", func(t *testing.T) {
		since := now.Add(-24*time.Hour - time.Millisecond)
		_, _, err := e.resolveWindow(since, now)
		assert.True(t, core.IsInvalidRequest(err))
		assert.True(t, core.IsErrorCode(err, core.ErrCodeWindowTooWide))
	})
}

func TestGetMyTradesWindowRejectedLocally(t *testing.T) {
	ts := newTestServer(t)
	e := newTestExchange(t, ts)
	require.NoError(t, initMarkets(e))
	before := ts.hits.Load()

	_, err := e.GetMyTrades(context.Background(), "DOGE/USDT",
		exchange.WithSince(time.Now().Add(-72*time.Hour)),
		exchange.WithUntil(time.Now()))
	assert.True(t, core.IsErrorCode(err, core.ErrCodeWindowTooWide))
	assert.Equal(t, before, ts.hits.Load())
}

func TestClosedExchangeRefusesCalls(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))
	require.NoError(t, e.Close())

	_, err := e.GetTickers(context.Background())
	assert.ErrorIs(t, err, core.ErrClientClosed)
}

func TestCancelOrderRequiresID(t *testing.T) {
	e := newTestExchange(t, newTestServer(t))
	_, err := e.CancelOrder(context.Background(), "DOGE/USDT", "")
	assert.True(t, core.IsMissingArgument(err))
}

func initMarkets(e *Exchange) error {
	_, err := e.LoadMarkets(context.Background())
	return err
}
