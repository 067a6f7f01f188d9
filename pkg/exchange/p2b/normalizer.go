package p2b

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// Raw payload shapes, one strict schema per upstream shape. Every numeric
// field decodes through number because the venue mixes string and number
// encodings for the same concept across endpoints.

type rawMarket struct {
	Name      string `json:"name"`
	Stock     string `json:"stock"`
	Money     string `json:"money"`
	Precision struct {
		Money number `json:"money"`
		Stock number `json:"stock"`
		Fee   number `json:"fee"`
	} `json:"precision"`
	Limits struct {
		MinAmount number `json:"min_amount"`
		MaxAmount number `json:"max_amount"`
		StepSize  number `json:"step_size"`
		MinPrice  number `json:"min_price"`
		MaxPrice  number `json:"max_price"`
		TickSize  number `json:"tick_size"`
		MinTotal  number `json:"min_total"`
	} `json:"limits"`
}

// rawTickerBody is the flat ticker shape. The single-market endpoint
// returns it directly; the listing endpoint nests it under "ticker".
// Base volume arrives as "vol" on one endpoint and "volume" on the other.
type rawTickerBody struct {
	Bid    number `json:"bid"`
	Ask    number `json:"ask"`
	Open   number `json:"open"`
	High   number `json:"high"`
	Low    number `json:"low"`
	Last   number `json:"last"`
	Vol    number `json:"vol"`
	Volume number `json:"volume"`
	Deal   number `json:"deal"`
	Change number `json:"change"`
}

type rawTickerEntry struct {
	At     number        `json:"at"`
	Ticker rawTickerBody `json:"ticker"`
}

type rawOrderBook struct {
	Asks [][]number `json:"asks"`
	Bids [][]number `json:"bids"`
}

// rawPublicTrade is the public history shape: side under "type", no fee,
// no role.
type rawPublicTrade struct {
	ID     number `json:"id"`
	Type   string `json:"type"`
	Time   number `json:"time"`
	Price  number `json:"price"`
	Amount number `json:"amount"`
}

// rawDeal is the account deal-history shape: deal_-prefixed fields and the
// role as a literal "maker"/"taker" string.
type rawDeal struct {
	DealID      number `json:"deal_id"`
	DealTime    number `json:"deal_time"`
	DealOrderID number `json:"deal_order_id"`
	Side        string `json:"side"`
	Role        number `json:"role"`
	Price       number `json:"price"`
	Amount      number `json:"amount"`
	Deal        number `json:"deal"`
	DealFee     number `json:"deal_fee"`
}

// rawOrderDeal is the per-order fills shape: camelCase order id, the role
// as the integer codes 1 (maker) / 2 (taker), and no side field.
type rawOrderDeal struct {
	ID          number `json:"id"`
	Time        number `json:"time"`
	DealOrderID number `json:"dealOrderId"`
	Role        number `json:"role"`
	Price       number `json:"price"`
	Amount      number `json:"amount"`
	Deal        number `json:"deal"`
	Fee         number `json:"fee"`
}

// rawKline is a fixed-position candle array. The trailing market-name
// element decodes into the string branch of number and is ignored.
type rawKline []number

type rawBalance struct {
	Available number `json:"available"`
	Freeze    number `json:"freeze"`
}

// rawOrder covers both order shapes. Placement, cancel, and the open-order
// listing report "orderId"/"timestamp"/"left"; the history listing reports
// "id"/"ctime" and omits "left".
type rawOrder struct {
	OrderID   number `json:"orderId"`
	ID        number `json:"id"`
	Market    string `json:"market"`
	Timestamp number `json:"timestamp"`
	CTime     number `json:"ctime"`
	FTime     number `json:"ftime"`
	Type      string `json:"type"`
	Side      string `json:"side"`
	Price     number `json:"price"`
	Amount    number `json:"amount"`
	DealStock number `json:"dealStock"`
	Left      number `json:"left"`
	DealFee   number `json:"dealFee"`
	DealMoney number `json:"dealMoney"`
	TakerFee  number `json:"takerFee"`
	MakerFee  number `json:"makerFee"`
}

// Normalizer converts raw venue payloads into canonical entities. All
// methods are pure mappings; the only collaborator is the market catalog,
// consulted when a payload carries a native market id instead of a full
// market. Safe for concurrent use.
type Normalizer struct {
	catalog *core.Catalog
}

// NewNormalizer creates a Normalizer resolving against the given catalog.
func NewNormalizer(catalog *core.Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// NormalizeMarket maps one raw market listing entry to a canonical Market.
// Amount precision is the step size and price precision the tick size, not
// decimal-place counts. A literal "0" maximum bound means uncapped.
func (n *Normalizer) NormalizeMarket(raw rawMarket) (core.Market, error) {
	base := strings.ToUpper(raw.Stock)
	quote := strings.ToUpper(raw.Money)
	m := core.Market{
		ID:      raw.Name,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  raw.Stock,
		QuoteID: raw.Money,
	}
	if err := parseDecimal(&m.AmountPrecision, raw.Limits.StepSize); err != nil {
		return core.Market{}, fmt.Errorf("market %s step size: %w", raw.Name, err)
	}
	if err := parseDecimal(&m.PricePrecision, raw.Limits.TickSize); err != nil {
		return core.Market{}, fmt.Errorf("market %s tick size: %w", raw.Name, err)
	}
	if err := parseDecimal(&m.MinAmount, raw.Limits.MinAmount); err != nil {
		return core.Market{}, fmt.Errorf("market %s min amount: %w", raw.Name, err)
	}
	if err := parseDecimal(&m.MinPrice, raw.Limits.MinPrice); err != nil {
		return core.Market{}, fmt.Errorf("market %s min price: %w", raw.Name, err)
	}
	if err := parseDecimal(&m.MinTotal, raw.Limits.MinTotal); err != nil {
		return core.Market{}, fmt.Errorf("market %s min total: %w", raw.Name, err)
	}
	var err error
	if m.MaxAmount, err = omitZeroBound(raw.Limits.MaxAmount); err != nil {
		return core.Market{}, fmt.Errorf("market %s max amount: %w", raw.Name, err)
	}
	if m.MaxPrice, err = omitZeroBound(raw.Limits.MaxPrice); err != nil {
		return core.Market{}, fmt.Errorf("market %s max price: %w", raw.Name, err)
	}
	return m, nil
}

// NormalizeMarkets maps the full market listing.
func (n *Normalizer) NormalizeMarkets(raws []rawMarket) ([]core.Market, error) {
	markets := make([]core.Market, 0, len(raws))
	for _, raw := range raws {
		m, err := n.NormalizeMarket(raw)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// NormalizeTicker maps a flat ticker body to a canonical Ticker. The last
// price is read once and reused for close; base volume comes from
// whichever of vol/volume is present and quote volume from deal. at is the
// snapshot time in epoch seconds, empty when the endpoint does not report
// one.
func (n *Normalizer) NormalizeTicker(symbol string, at number, raw rawTickerBody) (core.Ticker, error) {
	t := core.Ticker{Symbol: symbol}
	var err error
	if t.Timestamp, err = unixTime(at); err != nil {
		return core.Ticker{}, fmt.Errorf("ticker %s: %w", symbol, err)
	}
	for _, f := range []struct {
		name string
		dest *apd.Decimal
		raw  number
	}{
		{"bid", &t.Bid, raw.Bid},
		{"ask", &t.Ask, raw.Ask},
		{"open", &t.Open, raw.Open},
		{"high", &t.High, raw.High},
		{"low", &t.Low, raw.Low},
		{"last", &t.Last, raw.Last},
		{"base volume", &t.BaseVolume, firstOf(raw.Vol, raw.Volume)},
		{"quote volume", &t.QuoteVolume, raw.Deal},
		{"change", &t.Percentage, raw.Change},
	} {
		if err := parseDecimal(f.dest, f.raw); err != nil {
			return core.Ticker{}, fmt.Errorf("ticker %s %s: %w", symbol, f.name, err)
		}
	}
	t.Close = t.Last
	return t, nil
}

// NormalizeTickerEntries maps the multi-market listing, keyed by native
// market id with each body nested under "ticker". Market ids missing from
// the catalog fall back to the id with "_" replaced by "/".
func (n *Normalizer) NormalizeTickerEntries(raws map[string]rawTickerEntry) ([]core.Ticker, error) {
	tickers := make([]core.Ticker, 0, len(raws))
	for id, entry := range raws {
		t, err := n.NormalizeTicker(n.symbolFor(id), entry.At, entry.Ticker)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, nil
}

// NormalizeOrderBook maps a depth snapshot. Levels pass through in venue
// order, price at offset 0 and amount at offset 1; no re-sorting and no
// aggregation. The timestamp is supplied by the caller from the response
// envelope.
func (n *Normalizer) NormalizeOrderBook(raw rawOrderBook, symbol string, ts time.Time) (core.OrderBook, error) {
	book := core.OrderBook{Symbol: symbol, Timestamp: ts}
	var err error
	if book.Bids, err = normalizeLevels(raw.Bids); err != nil {
		return core.OrderBook{}, fmt.Errorf("book %s bids: %w", symbol, err)
	}
	if book.Asks, err = normalizeLevels(raw.Asks); err != nil {
		return core.OrderBook{}, fmt.Errorf("book %s asks: %w", symbol, err)
	}
	return book, nil
}

func normalizeLevels(raws [][]number) ([]core.BookLevel, error) {
	levels := make([]core.BookLevel, 0, len(raws))
	for _, raw := range raws {
		if len(raw) < 2 {
			return nil, fmt.Errorf("level has %d fields, want 2", len(raw))
		}
		var lvl core.BookLevel
		if err := parseDecimal(&lvl.Price, raw[0]); err != nil {
			return nil, err
		}
		if err := parseDecimal(&lvl.Amount, raw[1]); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

// NormalizeTrade maps a public history entry. The shape carries no fee, no
// role, and no cost; those stay unset.
func (n *Normalizer) NormalizeTrade(raw rawPublicTrade, market *core.Market) (core.Trade, error) {
	t := core.Trade{
		ID:     raw.ID.String(),
		Symbol: market.Symbol,
		Side:   parseSide(raw.Type),
		Role:   core.RoleUnknown,
	}
	var err error
	if t.Timestamp, err = unixTime(raw.Time); err != nil {
		return core.Trade{}, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Price, raw.Price); err != nil {
		return core.Trade{}, fmt.Errorf("trade %s price: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Amount, raw.Amount); err != nil {
		return core.Trade{}, fmt.Errorf("trade %s amount: %w", t.ID, err)
	}
	return t, nil
}

// NormalizeDeal maps an account deal-history entry. The fee currency is the
// market's quote currency; no payload states it.
func (n *Normalizer) NormalizeDeal(raw rawDeal, market *core.Market) (core.Trade, error) {
	t := core.Trade{
		ID:      raw.DealID.String(),
		OrderID: raw.DealOrderID.String(),
		Symbol:  market.Symbol,
		Side:    parseSide(raw.Side),
		Role:    parseRole(raw.Role),
	}
	var err error
	if t.Timestamp, err = unixTime(raw.DealTime); err != nil {
		return core.Trade{}, fmt.Errorf("deal %s: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Price, raw.Price); err != nil {
		return core.Trade{}, fmt.Errorf("deal %s price: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Amount, raw.Amount); err != nil {
		return core.Trade{}, fmt.Errorf("deal %s amount: %w", t.ID, err)
	}
	if t.Cost, err = optDecimal(raw.Deal); err != nil {
		return core.Trade{}, fmt.Errorf("deal %s cost: %w", t.ID, err)
	}
	if t.Fee, err = quoteFee(market, raw.DealFee); err != nil {
		return core.Trade{}, fmt.Errorf("deal %s fee: %w", t.ID, err)
	}
	return t, nil
}

// NormalizeOrderDeal maps a per-order fills entry. The shape reports no
// side; role arrives as the integer codes 1 (maker) / 2 (taker).
func (n *Normalizer) NormalizeOrderDeal(raw rawOrderDeal, market *core.Market) (core.Trade, error) {
	t := core.Trade{
		ID:      raw.ID.String(),
		OrderID: raw.DealOrderID.String(),
		Symbol:  market.Symbol,
		Side:    core.SideUnknown,
		Role:    parseRole(raw.Role),
	}
	var err error
	if t.Timestamp, err = unixTime(raw.Time); err != nil {
		return core.Trade{}, fmt.Errorf("order deal %s: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Price, raw.Price); err != nil {
		return core.Trade{}, fmt.Errorf("order deal %s price: %w", t.ID, err)
	}
	if err = parseDecimal(&t.Amount, raw.Amount); err != nil {
		return core.Trade{}, fmt.Errorf("order deal %s amount: %w", t.ID, err)
	}
	if t.Cost, err = optDecimal(raw.Deal); err != nil {
		return core.Trade{}, fmt.Errorf("order deal %s cost: %w", t.ID, err)
	}
	if t.Fee, err = quoteFee(market, raw.Fee); err != nil {
		return core.Trade{}, fmt.Errorf("order deal %s fee: %w", t.ID, err)
	}
	return t, nil
}

// NormalizeKline maps a fixed-position candle array. The venue's field
// order is inverted versus the canonical layout: position 1 is open, 2 is
// close, 3 is high, 4 is low, 5 is volume. Position 6 (quote volume) and
// the trailing market name are dropped.
func (n *Normalizer) NormalizeKline(raw rawKline) (core.Kline, error) {
	if len(raw) < 6 {
		return core.Kline{}, fmt.Errorf("candle has %d fields, want at least 6", len(raw))
	}
	var k core.Kline
	var err error
	if k.Timestamp, err = unixTime(raw[0]); err != nil {
		return core.Kline{}, fmt.Errorf("candle timestamp: %w", err)
	}
	for _, f := range []struct {
		name string
		dest *apd.Decimal
		raw  number
	}{
		{"open", &k.Open, raw[1]},
		{"close", &k.Close, raw[2]},
		{"high", &k.High, raw[3]},
		{"low", &k.Low, raw[4]},
		{"volume", &k.Volume, raw[5]},
	} {
		if err := parseDecimal(f.dest, f.raw); err != nil {
			return core.Kline{}, fmt.Errorf("candle %s: %w", f.name, err)
		}
	}
	return k, nil
}

// NormalizeKlines maps a candle series.
func (n *Normalizer) NormalizeKlines(raws []rawKline) ([]core.Kline, error) {
	klines := make([]core.Kline, 0, len(raws))
	for i, raw := range raws {
		k, err := n.NormalizeKline(raw)
		if err != nil {
			return nil, fmt.Errorf("candle %d: %w", i, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// NormalizeBalances maps the balances payload. Only currencies present in
// the payload appear in the result; nothing is zero-filled.
func (n *Normalizer) NormalizeBalances(raws map[string]rawBalance) (core.Balances, error) {
	balances := make(core.Balances, len(raws))
	for code, raw := range raws {
		var b core.Balance
		if err := parseDecimal(&b.Free, raw.Available); err != nil {
			return nil, fmt.Errorf("balance %s available: %w", code, err)
		}
		if err := parseDecimal(&b.Used, raw.Freeze); err != nil {
			return nil, fmt.Errorf("balance %s freeze: %w", code, err)
		}
		balances[strings.ToUpper(code)] = b
	}
	return balances, nil
}

// NormalizeOrder maps either order shape. The live shape reports
// orderId/timestamp/left; the history shape reports id/ctime and no left,
// so Remaining stays nil there rather than being derived. Status, cost,
// average, and client id are never reported and stay unset. When market is
// nil the raw market id is resolved through the catalog.
func (n *Normalizer) NormalizeOrder(raw rawOrder, market *core.Market) (core.Order, error) {
	if market == nil {
		var err error
		if market, err = n.catalog.Resolve(raw.Market); err != nil {
			return core.Order{}, err
		}
	}
	o := core.Order{
		ID:     firstOf(raw.OrderID, raw.ID).String(),
		Symbol: market.Symbol,
		Type:   parseOrderType(raw.Type),
		Side:   parseSide(raw.Side),
		Status: core.StatusUnknown,
	}
	var err error
	if o.Timestamp, err = unixTime(firstOf(raw.Timestamp, raw.CTime)); err != nil {
		return core.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if err = parseDecimal(&o.Price, raw.Price); err != nil {
		return core.Order{}, fmt.Errorf("order %s price: %w", o.ID, err)
	}
	if err = parseDecimal(&o.Amount, raw.Amount); err != nil {
		return core.Order{}, fmt.Errorf("order %s amount: %w", o.ID, err)
	}
	if err = parseDecimal(&o.Filled, raw.DealStock); err != nil {
		return core.Order{}, fmt.Errorf("order %s filled: %w", o.ID, err)
	}
	if o.Remaining, err = optDecimal(raw.Left); err != nil {
		return core.Order{}, fmt.Errorf("order %s remaining: %w", o.ID, err)
	}
	if o.Fee, err = quoteFee(market, raw.DealFee); err != nil {
		return core.Order{}, fmt.Errorf("order %s fee: %w", o.ID, err)
	}
	return o, nil
}

// NormalizeOrders maps a list of orders sharing one market context.
func (n *Normalizer) NormalizeOrders(raws []rawOrder, market *core.Market) ([]core.Order, error) {
	orders := make([]core.Order, 0, len(raws))
	for _, raw := range raws {
		o, err := n.NormalizeOrder(raw, market)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// quoteFee builds a fee denominated in the market's quote currency, nil
// when the payload reports no fee field.
func quoteFee(market *core.Market, raw number) (*core.Fee, error) {
	cost, err := optDecimal(raw)
	if err != nil {
		return nil, err
	}
	if cost == nil {
		return nil, nil
	}
	return &core.Fee{Currency: market.Quote, Cost: cost}, nil
}

// symbolFor resolves a native market id to its canonical symbol, falling
// back to the id with "_" replaced by "/" when the catalog misses.
func (n *Normalizer) symbolFor(id string) string {
	if m, err := n.catalog.Resolve(id); err == nil {
		return m.Symbol
	}
	return strings.ReplaceAll(id, "_", "/")
}

func parseOrderType(s string) core.OrderType {
	if s == "market" {
		return core.TypeMarket
	}
	return core.TypeLimit
}
