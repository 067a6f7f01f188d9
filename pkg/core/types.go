package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade. SideUnknown exists
// because one fills payload (per-order trade listing) omits the side
// entirely; it is reported as-is rather than guessed.
const (
	// SideUnknown means the payload carried no side information.
	SideUnknown OrderSide = iota
	// SideBuy indicates an order to purchase the base asset.
	SideBuy
	// SideSell indicates an order to sell the base asset.
	SideSell
)

// String returns the string representation of the order side.
func (s OrderSide) String() string {
	return [...]string{"unknown", "buy", "sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both lowercase and uppercase forms.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buy"`, `"BUY"`:
		*s = SideBuy
	case `"sell"`, `"SELL"`:
		*s = SideSell
	default:
		*s = SideUnknown
	}
	return nil
}

// OrderType represents the type of order to place on an exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = iota
	// TypeMarket executes immediately at the best available price.
	// p2b does not accept market orders; the adapter rejects them locally.
	TypeMarket
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{"limit", "market"}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"limit"`, `"LIMIT"`:
		*t = TypeLimit
	case `"market"`, `"MARKET"`:
		*t = TypeMarket
	}
	return nil
}

// TradeRole identifies which side of a fill provided liquidity.
type TradeRole int

// Trade role constants. The venue reports roles either as the literal
// strings "maker"/"taker" or as the integer codes 1/2 depending on the
// endpoint; both normalize to these values.
const (
	// RoleUnknown means the payload carried no role information.
	RoleUnknown TradeRole = iota
	// RoleMaker means the resting order side of the fill.
	RoleMaker
	// RoleTaker means the side that crossed the book.
	RoleTaker
)

// String returns the string representation of the trade role.
func (r TradeRole) String() string {
	return [...]string{"unknown", "maker", "taker"}[r]
}

// MarshalJSON implements json.Marshaler for TradeRole.
func (r TradeRole) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for TradeRole.
func (r *TradeRole) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"maker"`:
		*r = RoleMaker
	case `"taker"`:
		*r = RoleTaker
	default:
		*r = RoleUnknown
	}
	return nil
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus int

// Order status constants. No p2b payload carries a status field, so
// normalized orders always report StatusUnknown; the remaining states exist
// for callers that track orders themselves.
const (
	// StatusUnknown means the venue did not report a status.
	StatusUnknown OrderStatus = iota
	// StatusOpen indicates the order is resting on the book.
	StatusOpen
	// StatusClosed indicates the order has been completely filled.
	StatusClosed
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"unknown", "open", "closed", "canceled"}[s]
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"open"`:
		*s = StatusOpen
	case `"closed"`:
		*s = StatusClosed
	case `"canceled"`:
		*s = StatusCanceled
	default:
		*s = StatusUnknown
	}
	return nil
}

// Market describes a trading pair as listed by the venue, with precision
// steps and order limits carried as exact decimals.
type Market struct {
	// ID is the venue-native market identifier (e.g. "ETH_BTC").
	ID string `json:"id"`
	// Symbol is the canonical identifier, always Base + "/" + Quote.
	Symbol string `json:"symbol"`
	// Base is the canonical base currency code.
	Base string `json:"base"`
	// Quote is the canonical quote currency code.
	Quote string `json:"quote"`
	// BaseID is the venue-native base currency identifier.
	BaseID string `json:"base_id"`
	// QuoteID is the venue-native quote currency identifier.
	QuoteID string `json:"quote_id"`
	// AmountPrecision is the minimum amount increment (step size),
	// not a count of decimal places.
	AmountPrecision apd.Decimal `json:"amount_precision"`
	// PricePrecision is the minimum price increment (tick size).
	PricePrecision apd.Decimal `json:"price_precision"`
	// MinAmount is the smallest accepted order amount.
	MinAmount apd.Decimal `json:"min_amount"`
	// MaxAmount is the largest accepted order amount. Nil means the venue
	// reported no cap (a literal "0" upstream means unbounded).
	MaxAmount *apd.Decimal `json:"max_amount,omitempty"`
	// MinPrice is the smallest accepted order price.
	MinPrice apd.Decimal `json:"min_price"`
	// MaxPrice is the largest accepted order price. Nil means uncapped.
	MaxPrice *apd.Decimal `json:"max_price,omitempty"`
	// MinTotal is the smallest accepted order total (price * amount).
	MinTotal apd.Decimal `json:"min_total"`
}

// Ticker holds 24-hour rolling statistics for a trading pair.
type Ticker struct {
	// Symbol is the canonical trading pair identifier.
	Symbol string `json:"symbol"`
	// Timestamp is when the venue generated the snapshot.
	Timestamp time.Time `json:"timestamp"`
	// High is the highest traded price in the window.
	High apd.Decimal `json:"high"`
	// Low is the lowest traded price in the window.
	Low apd.Decimal `json:"low"`
	// Bid is the best current buy price.
	Bid apd.Decimal `json:"bid"`
	// Ask is the best current sell price.
	Ask apd.Decimal `json:"ask"`
	// Open is the price at the start of the window. The multi-symbol
	// listing omits it, in which case it is zero.
	Open apd.Decimal `json:"open"`
	// Close is the most recent trade price. Always equal to Last.
	Close apd.Decimal `json:"close"`
	// Last is the most recent trade price.
	Last apd.Decimal `json:"last"`
	// BaseVolume is traded volume denominated in the base currency.
	BaseVolume apd.Decimal `json:"base_volume"`
	// QuoteVolume is traded volume denominated in the quote currency.
	QuoteVolume apd.Decimal `json:"quote_volume"`
	// Percentage is the price change over the window in percent.
	Percentage apd.Decimal `json:"percentage"`
}

// BookLevel is a single price level of an order book.
type BookLevel struct {
	// Price is the limit price of the level.
	Price apd.Decimal `json:"price"`
	// Amount is the quantity resting at the level.
	Amount apd.Decimal `json:"amount"`
}

// OrderBook is a depth snapshot for a trading pair. Levels are carried in
// venue order (bids descending, asks ascending); the adapter never re-sorts.
type OrderBook struct {
	// Symbol is the canonical trading pair identifier.
	Symbol string `json:"symbol"`
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// Bids are buy levels as reported by the venue.
	Bids []BookLevel `json:"bids"`
	// Asks are sell levels as reported by the venue.
	Asks []BookLevel `json:"asks"`
}

// Fee is a trading fee amount in a specific currency.
type Fee struct {
	// Currency is the canonical code the fee was charged in. For p2b this
	// is always the market's quote currency; no payload states it.
	Currency string `json:"currency"`
	// Cost is the charged amount, nil when the payload reports none.
	Cost *apd.Decimal `json:"cost,omitempty"`
}

// Trade is a single executed fill.
type Trade struct {
	// ID is the venue-assigned deal identifier.
	ID string `json:"id"`
	// OrderID links the fill to its parent order, when reported.
	OrderID string `json:"order_id,omitempty"`
	// Symbol is the canonical trading pair identifier.
	Symbol string `json:"symbol"`
	// Timestamp is the execution time.
	Timestamp time.Time `json:"timestamp"`
	// Side is the direction of the fill.
	Side OrderSide `json:"side"`
	// Role reports whether this side made or took liquidity.
	Role TradeRole `json:"role"`
	// Price is the execution price.
	Price apd.Decimal `json:"price"`
	// Amount is the executed quantity.
	Amount apd.Decimal `json:"amount"`
	// Cost is price*amount as reported by the venue, never recomputed.
	// Nil when the payload carries no total.
	Cost *apd.Decimal `json:"cost,omitempty"`
	// Fee is the charged fee. Currency is always the market's quote;
	// Cost is nil for the public history shape, which reports no fee.
	Fee *Fee `json:"fee,omitempty"`
}

// Order is an exchange order as reported by the venue. Fields the venue
// never reports (status, cost, average, client id) are left at their unset
// values rather than inferred.
type Order struct {
	// ID is the venue-assigned order identifier.
	ID string `json:"id"`
	// Symbol is the canonical trading pair identifier.
	Symbol string `json:"symbol"`
	// Timestamp is the order creation time.
	Timestamp time.Time `json:"timestamp"`
	// Type is the order type; p2b only produces limit orders.
	Type OrderType `json:"type"`
	// Side is the order direction.
	Side OrderSide `json:"side"`
	// Price is the limit price.
	Price apd.Decimal `json:"price"`
	// Amount is the original order quantity.
	Amount apd.Decimal `json:"amount"`
	// Filled is the executed quantity ("dealStock").
	Filled apd.Decimal `json:"filled"`
	// Remaining is the unfilled quantity ("left"). Nil for the history
	// payload shape, which does not report it; it is never derived.
	Remaining *apd.Decimal `json:"remaining,omitempty"`
	// Status is always StatusUnknown; no payload reports a status.
	Status OrderStatus `json:"status"`
	// Fee is the accumulated deal fee in the quote currency.
	Fee *Fee `json:"fee,omitempty"`
	// Cost is never reported by the venue and stays nil.
	Cost *apd.Decimal `json:"cost,omitempty"`
	// Average is never reported by the venue and stays nil.
	Average *apd.Decimal `json:"average,omitempty"`
	// ClientOrderID is never reported by the venue and stays empty.
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Kline is a single candle: timestamp plus open, high, low, close, volume.
type Kline struct {
	// Timestamp is the candle open time.
	Timestamp time.Time `json:"timestamp"`
	// Open is the first trade price of the interval.
	Open apd.Decimal `json:"open"`
	// High is the highest trade price of the interval.
	High apd.Decimal `json:"high"`
	// Low is the lowest trade price of the interval.
	Low apd.Decimal `json:"low"`
	// Close is the last trade price of the interval.
	Close apd.Decimal `json:"close"`
	// Volume is the traded base-currency volume of the interval.
	Volume apd.Decimal `json:"volume"`
}

// Balance is the funds held in one currency.
type Balance struct {
	// Free is the balance available for trading ("available").
	Free apd.Decimal `json:"free"`
	// Used is the balance locked in open orders ("freeze").
	Used apd.Decimal `json:"used"`
}

// Balances maps canonical currency codes to balances. Currencies absent
// from the venue payload are absent here, never zero-filled.
type Balances map[string]Balance
