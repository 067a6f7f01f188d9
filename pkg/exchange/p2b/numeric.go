package p2b

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// decCtx is the decimal context for all venue arithmetic. 34 digits covers
// every observed payload; half-up rounding matches the millisecond
// conversion contract.
var decCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

var thousand = apd.New(1000, 0)

// number holds a numeric venue field verbatim. p2b encodes the same concept
// as a JSON string on one endpoint and a JSON number on another (ids,
// timestamps, role codes), so both decode into the literal digits with no
// float64 round-trip in between.
type number string

// UnmarshalJSON implements json.Unmarshaler for number.
func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal number: %w", err)
		}
		*n = number(s)
		return nil
	}
	*n = number(data)
	return nil
}

// String returns the literal digits of the field.
func (n number) String() string {
	return string(n)
}

func (n number) empty() bool {
	return n == ""
}

// parseDecimal sets dest to the exact decimal value of the field.
// An absent field leaves dest zero.
func parseDecimal(dest *apd.Decimal, n number) error {
	if n.empty() {
		*dest = apd.Decimal{}
		return nil
	}
	if _, _, err := decCtx.SetString(dest, string(n)); err != nil {
		return fmt.Errorf("set decimal from %q: %w", string(n), err)
	}
	return nil
}

// optDecimal returns the field as an exact decimal, or nil when absent.
func optDecimal(n number) (*apd.Decimal, error) {
	if n.empty() {
		return nil, nil
	}
	var d apd.Decimal
	if err := parseDecimal(&d, n); err != nil {
		return nil, err
	}
	return &d, nil
}

// firstOf returns the first present of two fields carrying the same
// concept under different names across endpoints.
func firstOf(a, b number) number {
	if !a.empty() {
		return a
	}
	return b
}

// omitZeroBound converts a maximum bound to nil when the venue reports a
// literal zero, which means "no cap" rather than a zero ceiling. Only
// maximum bounds go through here; a genuine zero minimum stays zero.
func omitZeroBound(n number) (*apd.Decimal, error) {
	d, err := optDecimal(n)
	if err != nil {
		return nil, err
	}
	if d != nil && d.IsZero() {
		return nil, nil
	}
	return d, nil
}

// unixTime converts a Unix epoch with a fractional second component into a
// millisecond-precision time, rounding half-up to the nearest millisecond.
// The conversion runs through decimal arithmetic end to end. An absent
// field yields the zero time, never the epoch.
func unixTime(n number) (time.Time, error) {
	if n.empty() {
		return time.Time{}, nil
	}
	var sec, ms, rounded apd.Decimal
	if _, _, err := decCtx.SetString(&sec, string(n)); err != nil {
		return time.Time{}, fmt.Errorf("parse epoch %q: %w", string(n), err)
	}
	if _, err := decCtx.Mul(&ms, &sec, thousand); err != nil {
		return time.Time{}, fmt.Errorf("scale epoch %q: %w", string(n), err)
	}
	if _, err := decCtx.RoundToIntegralValue(&rounded, &ms); err != nil {
		return time.Time{}, fmt.Errorf("round epoch %q: %w", string(n), err)
	}
	i, err := rounded.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch %q out of range: %w", string(n), err)
	}
	return time.UnixMilli(i), nil
}

// parseRole maps the venue's role encodings onto the canonical trade role.
// Two endpoints disagree: my-trades reports the strings "maker"/"taker",
// order-trades reports the integer codes 1/2. Anything else, including an
// absent field, is unknown.
func parseRole(n number) core.TradeRole {
	switch string(n) {
	case "1", "maker":
		return core.RoleMaker
	case "2", "taker":
		return core.RoleTaker
	default:
		return core.RoleUnknown
	}
}

// parseSide maps the venue's side strings ("buy"/"sell"; the public
// history endpoint calls the field "type") onto the canonical side. The
// per-order fills payload has no side field at all, which comes out as
// SideUnknown.
func parseSide(s string) core.OrderSide {
	switch s {
	case "buy":
		return core.SideBuy
	case "sell":
		return core.SideSell
	default:
		return core.SideUnknown
	}
}
