package order

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func dec(t *testing.T, s string) apd.Decimal {
	t.Helper()
	var d apd.Decimal
	_, _, err := d.SetString(s)
	require.NoError(t, err)
	return d
}

func testMarket(t *testing.T) *core.Market {
	t.Helper()
	maxAmount := dec(t, "100000")
	m := &core.Market{
		ID:              "DOGE_USDT",
		Symbol:          "DOGE/USDT",
		Base:            "DOGE",
		Quote:           "USDT",
		AmountPrecision: dec(t, "0.1"),
		PricePrecision:  dec(t, "0.000001"),
		MinAmount:       dec(t, "1"),
		MaxAmount:       &maxAmount,
		MinPrice:        dec(t, "0.000001"),
		MinTotal:        dec(t, "0.0001"),
	}
	return m
}

func TestBuildValidOrder(t *testing.T) {
	req, err := New("p2b", testMarket(t)).Buy().Amount("100").Price("0.04").Build()
	require.NoError(t, err)

	assert.Equal(t, "DOGE/USDT", req.Symbol)
	assert.Equal(t, core.SideBuy, req.Side)
	assert.Equal(t, core.TypeLimit, req.Type)
	assert.Equal(t, "100", req.Amount.Text('f'))
	assert.Equal(t, "0.04", req.Price.Text('f'))
}

func TestBuildRequiresSide(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Amount("100").Price("0.04").Build()
	assert.True(t, core.IsMissingArgument(err))
}

func TestBuildRejectsOffStepAmount(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Sell().Amount("100.05").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err), "amount must be a multiple of the 0.1 step")
}

func TestBuildRejectsOffTickPrice(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Sell().Amount("100").Price("0.0000015").Build()
	assert.True(t, core.IsInvalidRequest(err), "price must be a multiple of the tick")
}

func TestBuildRejectsBelowMinimumAmount(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Buy().Amount("0.5").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err))
}

func TestBuildRejectsAboveMaximumAmount(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Buy().Amount("100000.1").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err))
}

func TestBuildUncappedMarketAcceptsLargeAmount(t *testing.T) {
	m := testMarket(t)
	m.MaxAmount = nil
	_, err := New("p2b", m).Buy().Amount("9000000").Price("0.04").Build()
	assert.NoError(t, err, "nil maximum means uncapped")
}

func TestBuildRejectsNonPositiveValues(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Buy().Amount("0").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err))

	_, err = New("p2b", testMarket(t)).Buy().Amount("100").Price("-0.04").Build()
	assert.True(t, core.IsInvalidRequest(err))
}

func TestBuildRejectsBelowMinimumTotal(t *testing.T) {
	m := testMarket(t)
	m.MinTotal = dec(t, "10")
	_, err := New("p2b", m).Buy().Amount("100").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err), "total 4 is below the 10 USDT minimum")
}

func TestBuildRejectsGarbageDecimal(t *testing.T) {
	_, err := New("p2b", testMarket(t)).Buy().Amount("lots").Price("0.04").Build()
	assert.True(t, core.IsInvalidRequest(err))
}

func TestBuildErrorsCarryVenueName(t *testing.T) {
	_, err := New("venue-x", testMarket(t)).Buy().Amount("0.5").Price("0.04").Build()
	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "venue-x", exErr.Exchange, "the builder reports whatever venue it was created for")
}

func TestCostAndFeeEstimate(t *testing.T) {
	amount := dec(t, "100")
	price := dec(t, "0.04")
	total, err := Cost(&amount, &price)
	require.NoError(t, err)
	assert.Equal(t, "4.00", total.Text('f'))

	rate := dec(t, "0.002")
	fee, err := EstimateFee(total, &rate)
	require.NoError(t, err)
	assert.Equal(t, "0.00800", fee.Text('f'))
}
