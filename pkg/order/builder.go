// Package order builds validated order requests. The venue rejects orders
// that break a market's step, tick, or limit constraints with an opaque
// error code after the round trip; the builder applies the same
// constraints locally from the market catalog so mistakes fail fast.
package order

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

var ctx = apd.BaseContext.WithPrecision(34)

// Builder accumulates order fields and validates them against the
// market's constraints at Build time. Setter errors are deferred so calls
// chain; the first one surfaces from Build.
type Builder struct {
	exchange string
	market   *core.Market
	side     core.OrderSide
	amount   apd.Decimal
	price    apd.Decimal
	err      error
}

// New creates a builder for the given market on the named venue.
func New(exchange string, market *core.Market) *Builder {
	return &Builder{exchange: exchange, market: market}
}

// Buy sets the order direction to buy.
func (b *Builder) Buy() *Builder {
	b.side = core.SideBuy
	return b
}

// Sell sets the order direction to sell.
func (b *Builder) Sell() *Builder {
	b.side = core.SideSell
	return b
}

// Amount sets the base-currency quantity from its decimal text.
func (b *Builder) Amount(amount string) *Builder {
	b.setDecimal(&b.amount, "amount", amount)
	return b
}

// AmountDecimal sets the base-currency quantity.
func (b *Builder) AmountDecimal(amount apd.Decimal) *Builder {
	b.amount = amount
	return b
}

// Price sets the limit price from its decimal text.
func (b *Builder) Price(price string) *Builder {
	b.setDecimal(&b.price, "price", price)
	return b
}

// PriceDecimal sets the limit price.
func (b *Builder) PriceDecimal(price apd.Decimal) *Builder {
	b.price = price
	return b
}

func (b *Builder) setDecimal(dest *apd.Decimal, field, text string) {
	if b.err != nil {
		return
	}
	if _, _, err := ctx.SetString(dest, text); err != nil {
		b.err = invalid(b.exchange, "%s %q is not a decimal", field, text)
	}
}

// Build validates the accumulated fields against the market and returns
// the request for Exchange.PlaceOrder.
func (b *Builder) Build() (exchange.OrderRequest, error) {
	if b.err != nil {
		return exchange.OrderRequest{}, b.err
	}
	if b.side != core.SideBuy && b.side != core.SideSell {
		return exchange.OrderRequest{}, core.NewMissingArgument(b.exchange, "side")
	}
	m := b.market
	if err := checkField(b.exchange, "amount", &b.amount, &m.AmountPrecision, &m.MinAmount, m.MaxAmount); err != nil {
		return exchange.OrderRequest{}, err
	}
	if err := checkField(b.exchange, "price", &b.price, &m.PricePrecision, &m.MinPrice, m.MaxPrice); err != nil {
		return exchange.OrderRequest{}, err
	}
	total, err := Cost(&b.amount, &b.price)
	if err != nil {
		return exchange.OrderRequest{}, err
	}
	if total.Cmp(&m.MinTotal) < 0 {
		return exchange.OrderRequest{}, invalid(b.exchange, "total %s is below the minimum %s %s",
			total.Text('f'), m.MinTotal.Text('f'), m.Quote)
	}
	return exchange.OrderRequest{
		Symbol: m.Symbol,
		Side:   b.side,
		Type:   core.TypeLimit,
		Amount: b.amount,
		Price:  b.price,
	}, nil
}

// checkField validates one value against its step and bounds. A zero step
// or minimum disables that check; max is nil when the venue reports no
// cap.
func checkField(exchange, field string, value, step, min, max *apd.Decimal) error {
	if value.Sign() <= 0 {
		return invalid(exchange, "%s must be positive, got %s", field, value.Text('f'))
	}
	if !step.IsZero() {
		var rem apd.Decimal
		if _, err := ctx.Rem(&rem, value, step); err != nil {
			return fmt.Errorf("%s step check: %w", field, err)
		}
		if !rem.IsZero() {
			return invalid(exchange, "%s %s is not a multiple of the %s step %s",
				field, value.Text('f'), field, step.Text('f'))
		}
	}
	if !min.IsZero() && value.Cmp(min) < 0 {
		return invalid(exchange, "%s %s is below the minimum %s",
			field, value.Text('f'), min.Text('f'))
	}
	if max != nil && value.Cmp(max) > 0 {
		return invalid(exchange, "%s %s is above the maximum %s",
			field, value.Text('f'), max.Text('f'))
	}
	return nil
}

// Cost returns amount times price in the quote currency.
func Cost(amount, price *apd.Decimal) (*apd.Decimal, error) {
	var total apd.Decimal
	if _, err := ctx.Mul(&total, amount, price); err != nil {
		return nil, fmt.Errorf("order cost: %w", err)
	}
	return &total, nil
}

// EstimateFee returns the fee charged on the given order total at the
// given rate, in the quote currency.
func EstimateFee(total, rate *apd.Decimal) (*apd.Decimal, error) {
	var fee apd.Decimal
	if _, err := ctx.Mul(&fee, total, rate); err != nil {
		return nil, fmt.Errorf("fee estimate: %w", err)
	}
	return &fee, nil
}

func invalid(exchange, format string, args ...any) error {
	return core.NewExchangeError(exchange, core.ErrorTypeInvalidRequest,
		fmt.Sprintf(format, args...))
}
