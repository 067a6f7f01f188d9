package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeKeys() []*APIKey {
	return []*APIKey{
		{ID: "a", Key: "key-aaaa-0001", Secret: "sec-a"},
		{ID: "b", Key: "key-bbbb-0002", Secret: "sec-b"},
		{ID: "c", Key: "key-cccc-0003", Secret: "sec-c"},
	}
}

func TestCurrentAndRotate(t *testing.T) {
	ring := New(threeKeys(), RotationRoundRobin)

	require.Equal(t, 3, ring.Len())
	assert.Equal(t, "a", ring.Current().ID)

	ring.Rotate()
	assert.Equal(t, "b", ring.Current().ID)

	ring.Rotate()
	ring.Rotate()
	assert.Equal(t, "a", ring.Current().ID, "rotation wraps around")
}

func TestCurrentSkipsDisabled(t *testing.T) {
	ring := New(threeKeys(), RotationRoundRobin)
	ring.Disable("a")

	assert.Equal(t, "b", ring.Current().ID)

	ring.Disable("b")
	ring.Disable("c")
	assert.Nil(t, ring.Current(), "every key disabled")

	ring.Enable("c")
	assert.Equal(t, "c", ring.Current().ID)
}

func TestOnErrorRotatesWhenStrategySays(t *testing.T) {
	ring := New(threeKeys(), RotationOnError)
	ring.OnError()
	assert.Equal(t, "b", ring.Current().ID)

	fixed := New(threeKeys(), RotationRoundRobin)
	fixed.OnError()
	assert.Equal(t, "a", fixed.Current().ID, "round-robin only rotates explicitly")
	assert.Equal(t, 1, fixed.Current().ErrorCount)
}

func TestEnableClearsErrorCount(t *testing.T) {
	ring := New(threeKeys(), RotationRoundRobin)
	ring.OnError()
	ring.OnError()
	require.Equal(t, 2, ring.Current().ErrorCount)

	ring.Disable("a")
	ring.Enable("a")
	assert.Equal(t, 0, ring.Current().ErrorCount)
}

func TestAddIgnoresDuplicateIDs(t *testing.T) {
	ring := New(threeKeys(), RotationRoundRobin)
	ring.Add(&APIKey{ID: "b", Key: "other", Secret: "other"})
	assert.Equal(t, 3, ring.Len())

	ring.Add(&APIKey{ID: "d", Key: "key-dddd-0004", Secret: "sec-d"})
	assert.Equal(t, 4, ring.Len())
}

func TestNewCopiesKeys(t *testing.T) {
	keys := threeKeys()
	ring := New(keys, RotationRoundRobin)

	keys[0].Secret = "mutated"
	assert.Equal(t, "sec-a", ring.Current().Secret, "the ring owns its copies")
}

func TestCredentialsBridge(t *testing.T) {
	k := &APIKey{ID: "a", Key: "key-aaaa-0001", Secret: "sec-a"}
	creds := k.Credentials()
	assert.Equal(t, "key-aaaa-0001", creds.APIKey)
	assert.Equal(t, "sec-a", creds.SecretKey)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "key-****0001", maskKey("key-aaaa-0001"))
}

func TestMarkUsedStampsCurrent(t *testing.T) {
	ring := New(threeKeys(), RotationRoundRobin)
	require.True(t, ring.Current().LastUsed.IsZero())

	ring.MarkUsed()
	assert.False(t, ring.Current().LastUsed.IsZero())
}
