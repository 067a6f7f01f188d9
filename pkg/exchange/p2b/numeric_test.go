package p2b

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func TestNumberUnmarshalBothEncodings(t *testing.T) {
	var payload struct {
		A number `json:"a"`
		B number `json:"b"`
		C number `json:"c"`
		D number `json:"d"`
	}
	err := wireJSON.Unmarshal([]byte(`{"a":"0.3429","b":1699253400,"c":1699268460.8285,"d":null}`), &payload)
	require.NoError(t, err)

	assert.Equal(t, "0.3429", payload.A.String())
	assert.Equal(t, "1699253400", payload.B.String())
	assert.Equal(t, "1699268460.8285", payload.C.String())
	assert.True(t, payload.D.empty())
}

func TestUnixTime(t *testing.T) {
	tests := []struct {
		name   string
		in     number
		wantMs int64
	}{
		{"whole seconds", "1699252631", 1699252631000},
		{"fractional rounds half up", "1698506956.66224", 1698506956662},
		{"fractional rounds up at half", "1699268460.8285", 1699268460829},
		{"truncating digits", "1699255565.585696", 1699255565586},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unixTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMs, got.UnixMilli())
		})
	}
}

func TestUnixTimeAbsent(t *testing.T) {
	got, err := unixTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "absent epoch must not become 1970")
}

func TestUnixTimeGarbage(t *testing.T) {
	_, err := unixTime("not-a-number")
	assert.Error(t, err)
}

func TestOmitZeroBound(t *testing.T) {
	capped, err := omitZeroBound("100000")
	require.NoError(t, err)
	require.NotNil(t, capped)
	assert.Equal(t, "100000", capped.Text('f'))

	uncapped, err := omitZeroBound("0")
	require.NoError(t, err)
	assert.Nil(t, uncapped, `a literal "0" maximum means no cap`)

	absent, err := omitZeroBound("")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestFirstOf(t *testing.T) {
	assert.Equal(t, number("1"), firstOf("1", "2"))
	assert.Equal(t, number("2"), firstOf("", "2"))
	assert.True(t, firstOf("", "").empty())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   number
		want core.TradeRole
	}{
		{"1", core.RoleMaker},
		{"2", core.RoleTaker},
		{"maker", core.RoleMaker},
		{"taker", core.RoleTaker},
		{"", core.RoleUnknown},
		{"3", core.RoleUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRole(tt.in), "role %q", tt.in)
	}
}

func TestParseSide(t *testing.T) {
	assert.Equal(t, core.SideBuy, parseSide("buy"))
	assert.Equal(t, core.SideSell, parseSide("sell"))
	assert.Equal(t, core.SideUnknown, parseSide(""))
}
