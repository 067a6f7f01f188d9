package core

// Operation represents a type of action that can be performed on the venue.
type Operation int

// Operation constants cover the full p2b endpoint surface.
const (
	// OpGetMarkets retrieves all listed markets with precision and limits.
	OpGetMarkets Operation = iota
	// OpGetTickers retrieves tickers for every market in one call.
	OpGetTickers
	// OpGetTicker retrieves the ticker for a single market.
	OpGetTicker
	// OpGetOrderBook retrieves order book depth for a market.
	OpGetOrderBook
	// OpGetTrades retrieves public trade history, paginated by last trade id.
	OpGetTrades
	// OpGetKlines retrieves candlestick data, paginated by limit/offset.
	OpGetKlines
	// OpGetBalance retrieves account balances for all currencies.
	OpGetBalance
	// OpPlaceOrder submits a new limit order.
	OpPlaceOrder
	// OpCancelOrder cancels an open order.
	OpCancelOrder
	// OpGetOpenOrders retrieves open orders for a market.
	OpGetOpenOrders
	// OpGetOrderTrades retrieves the fills of a single order.
	OpGetOrderTrades
	// OpGetMyTrades retrieves the account's fills for one market within a
	// bounded time window.
	OpGetMyTrades
	// OpGetOrderHistory retrieves closed orders across one or all markets
	// within a bounded time window.
	OpGetOrderHistory
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return [...]string{
		"GET_MARKETS",
		"GET_TICKERS",
		"GET_TICKER",
		"GET_ORDER_BOOK",
		"GET_TRADES",
		"GET_KLINES",
		"GET_BALANCE",
		"PLACE_ORDER",
		"CANCEL_ORDER",
		"GET_OPEN_ORDERS",
		"GET_ORDER_TRADES",
		"GET_MY_TRADES",
		"GET_ORDER_HISTORY",
	}[o]
}

// Private reports whether the operation requires request signing.
func (o Operation) Private() bool {
	switch o {
	case OpGetBalance, OpPlaceOrder, OpCancelOrder, OpGetOpenOrders,
		OpGetOrderTrades, OpGetMyTrades, OpGetOrderHistory:
		return true
	}
	return false
}
