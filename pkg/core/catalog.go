package core

import "sync/atomic"

// Catalog holds the market definitions for the venue, resolvable by the
// venue-native id ("ETH_BTC") or the canonical symbol ("ETH/BTC").
//
// The catalog is loaded once by the caller and is read-only between loads.
// Reload swaps in a freshly built index atomically, so concurrent readers
// never observe a partially rebuilt catalog.
type Catalog struct {
	exchange string
	snap     atomic.Pointer[catalogSnapshot]
}

type catalogSnapshot struct {
	byID     map[string]*Market
	bySymbol map[string]*Market
	markets  []Market
}

// NewCatalog creates an empty catalog for the named venue. Resolve fails
// until Load is called.
func NewCatalog(exchange string) *Catalog {
	return &Catalog{exchange: exchange}
}

// Load replaces the catalog contents with the given markets. The slice is
// copied; later mutation of the argument does not affect the catalog.
func (c *Catalog) Load(markets []Market) {
	snap := &catalogSnapshot{
		byID:     make(map[string]*Market, len(markets)),
		bySymbol: make(map[string]*Market, len(markets)),
		markets:  make([]Market, len(markets)),
	}
	copy(snap.markets, markets)
	for i := range snap.markets {
		m := &snap.markets[i]
		snap.byID[m.ID] = m
		snap.bySymbol[m.Symbol] = m
	}
	c.snap.Store(snap)
}

// Resolve looks up a market by native id or canonical symbol. It fails with
// ErrCatalogNotLoaded before the first Load and with an unknown-market
// invalid-request error when neither index has the key.
func (c *Catalog) Resolve(idOrSymbol string) (*Market, error) {
	snap := c.snap.Load()
	if snap == nil {
		return nil, ErrCatalogNotLoaded
	}
	if m, ok := snap.byID[idOrSymbol]; ok {
		return m, nil
	}
	if m, ok := snap.bySymbol[idOrSymbol]; ok {
		return m, nil
	}
	return nil, NewUnknownMarket(c.exchange, idOrSymbol)
}

// Markets returns a copy of all loaded markets.
func (c *Catalog) Markets() []Market {
	snap := c.snap.Load()
	if snap == nil {
		return nil
	}
	out := make([]Market, len(snap.markets))
	copy(out, snap.markets)
	return out
}

// Len returns the number of loaded markets.
func (c *Catalog) Len() int {
	snap := c.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.markets)
}
