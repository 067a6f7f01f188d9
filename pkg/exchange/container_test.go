package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

type stubExchange struct{ Exchange }

func (stubExchange) Name() string { return "stub" }
func (stubExchange) Close() error { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("stub", func(cfg *core.Config) (Exchange, error) {
		return stubExchange{}, nil
	})

	e, err := New("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", e.Name())
	assert.Contains(t, Registered(), "stub")
}

func TestNewUnknownVenue(t *testing.T) {
	_, err := New("no-such-venue", nil)
	assert.ErrorContains(t, err, "no-such-venue")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	Register("stub-validated", func(cfg *core.Config) (Exchange, error) {
		return stubExchange{}, nil
	})

	cfg := core.DefaultConfig("stub-validated")
	cfg.Timeout = 0
	_, err := New("stub-validated", cfg)
	assert.Error(t, err)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("stub-dup", func(cfg *core.Config) (Exchange, error) {
		return stubExchange{}, nil
	})
	assert.Panics(t, func() {
		Register("stub-dup", func(cfg *core.Config) (Exchange, error) {
			return stubExchange{}, nil
		})
	})
}

func TestBuildOptions(t *testing.T) {
	since := time.Unix(1699200000, 0)

	o := BuildOptions(
		WithLimit(50),
		WithOffset(10),
		WithLastID(0),
		WithSince(since),
		WithSymbol("ETH/BTC"),
	)
	assert.Equal(t, 50, o.Limit)
	assert.Equal(t, 10, o.Offset)
	assert.Equal(t, int64(0), o.LastID)
	assert.Equal(t, since, o.Since)
	assert.Equal(t, "ETH/BTC", o.Symbol)

	defaults := BuildOptions()
	assert.Equal(t, int64(-1), defaults.LastID, "unset cursor stays distinguishable from zero")
	assert.True(t, defaults.Until.IsZero())
}
