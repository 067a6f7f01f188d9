package exchange

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// Exchange is the venue-agnostic trading surface. Implementations live one
// package down (pkg/exchange/p2b) and register themselves with Register.
//
// Symbol arguments accept either the canonical symbol ("ETH/BTC") or the
// venue-native id ("ETH_BTC"); both resolve through the market catalog, so
// LoadMarkets must run before any call that takes a symbol.
type Exchange interface {
	// Name returns the venue identifier.
	Name() string

	// LoadMarkets fetches the market listing and swaps it into the
	// catalog. Concurrent readers keep working against the old snapshot
	// until the swap.
	LoadMarkets(ctx context.Context) ([]core.Market, error)

	// Markets returns the loaded market catalog.
	Markets() []core.Market

	// Market resolves a market by native id or canonical symbol.
	Market(idOrSymbol string) (*core.Market, error)

	// GetTicker returns 24h statistics for one market.
	GetTicker(ctx context.Context, symbol string) (core.Ticker, error)

	// GetTickers returns 24h statistics for every listed market.
	GetTickers(ctx context.Context) ([]core.Ticker, error)

	// GetOrderBook returns a depth snapshot, levels in venue order.
	GetOrderBook(ctx context.Context, symbol string, opts ...Option) (core.OrderBook, error)

	// GetTrades returns public trade history. The venue pages by an
	// opaque cursor, so WithLastID is required.
	GetTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)

	// GetKlines returns a candle series for the given interval
	// (one of "1m", "1h", "1d"), paginated with WithLimit/WithOffset.
	GetKlines(ctx context.Context, symbol, interval string, opts ...Option) ([]core.Kline, error)

	// GetBalances returns the account balances, only for currencies the
	// venue reports.
	GetBalances(ctx context.Context) (core.Balances, error)

	// PlaceOrder submits a limit order. Market orders are rejected
	// locally; the venue does not accept them.
	PlaceOrder(ctx context.Context, order OrderRequest) (core.Order, error)

	// CancelOrder cancels an open order on the given market.
	CancelOrder(ctx context.Context, symbol, orderID string) (core.Order, error)

	// GetOpenOrders returns the account's resting orders on one market.
	GetOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]core.Order, error)

	// GetOrderTrades returns the fills of one order. The symbol names
	// the order's market; the payload does not carry it and the fee
	// currency depends on it.
	GetOrderTrades(ctx context.Context, symbol, orderID string, opts ...Option) ([]core.Trade, error)

	// GetMyTrades returns the account's fills on one market inside a
	// time window of at most 24 hours (WithSince/WithUntil; until
	// defaults to now, since to until minus 24h).
	GetMyTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)

	// GetOrderHistory returns closed orders across one or all markets,
	// windowed the same way as GetMyTrades. Restrict to one market with
	// WithSymbol.
	GetOrderHistory(ctx context.Context, opts ...Option) ([]core.Order, error)

	// Close releases the transport resources.
	Close() error
}

// OrderRequest describes an order to place.
type OrderRequest struct {
	// Symbol is the market, by canonical symbol or native id.
	Symbol string `json:"symbol"`
	// Side is the order direction.
	Side core.OrderSide `json:"side"`
	// Type is the order type; only TypeLimit is accepted.
	Type core.OrderType `json:"type"`
	// Amount is the base-currency quantity.
	Amount apd.Decimal `json:"amount"`
	// Price is the limit price.
	Price apd.Decimal `json:"price"`
}
