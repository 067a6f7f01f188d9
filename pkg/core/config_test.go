package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig("p2b")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "p2b", cfg.Exchange)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.Equal(t, time.Second, cfg.RateLimitPeriod)
	assert.True(t, cfg.CircuitBreakerEnabled)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestConfigRejectsZeroTimeout(t *testing.T) {
	cfg := DefaultConfig("p2b")
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigRejectsMissingExchange(t *testing.T) {
	cfg := DefaultConfig("")
	assert.Error(t, cfg.Validate())
}

func TestConfigRejectsBadBreakerThresholds(t *testing.T) {
	cfg := DefaultConfig("p2b")
	cfg.CircuitBreakerFailThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig("p2b")
	cfg.CircuitBreakerEnabled = false
	cfg.CircuitBreakerFailThreshold = 0
	assert.NoError(t, cfg.Validate(), "thresholds are ignored when the breaker is off")
}

func TestConfigFluentSetters(t *testing.T) {
	creds := &Credentials{APIKey: "k", SecretKey: "s"}
	cfg := DefaultConfig("p2b").
		WithCredentials(creds).
		WithTimeout(5 * time.Second).
		WithRateLimit(3, time.Minute).
		WithCache(true, 30*time.Second)

	assert.Same(t, creds, cfg.Credentials)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitPeriod)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	require.NoError(t, cfg.Validate())
}
