// Package keyring rotates between multiple venue API keys. One key is
// current at a time; rotation strategies move to the next enabled key
// round-robin or when a key starts failing. The nonce requirement makes a
// single busy key a bottleneck, so spreading private calls across keys is
// the venue's own recommendation.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"nakula/pkg/core"
)

// RotationStrategy decides when the ring advances to the next key.
type RotationStrategy int

const (
	// RotationRoundRobin rotates only on explicit Rotate calls.
	RotationRoundRobin RotationStrategy = iota
	// RotationOnError rotates whenever the current key records an error.
	RotationOnError
)

// APIKey is one signing key pair with its bookkeeping.
type APIKey struct {
	ID         string
	Key        string
	Secret     string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int
}

// Credentials converts the key to the signing credential pair.
func (k *APIKey) Credentials() core.Credentials {
	return core.Credentials{APIKey: k.Key, SecretKey: k.Secret}
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, maskKey(k.Key))
}

// KeyRing holds the keys and the rotation cursor. Safe for concurrent use.
type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
}

// New creates a ring over copies of the given keys.
func New(keys []*APIKey, strategy RotationStrategy) *KeyRing {
	copies := make([]*APIKey, len(keys))
	for i, k := range keys {
		c := *k
		copies[i] = &c
	}
	return &KeyRing{keys: copies, strategy: strategy}
}

// Current returns the active key, skipping disabled ones, or nil when
// every key is disabled or the ring is empty.
func (r *KeyRing) Current() *APIKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.keys {
		idx := (r.current + i) % len(r.keys)
		if !r.keys[idx].Disabled {
			return r.keys[idx]
		}
	}
	return nil
}

// Rotate advances to the next enabled key.
func (r *KeyRing) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotateLocked()
}

func (r *KeyRing) rotateLocked() {
	if len(r.keys) == 0 {
		return
	}
	start := r.current
	for {
		r.current = (r.current + 1) % len(r.keys)
		if !r.keys[r.current].Disabled || r.current == start {
			return
		}
	}
}

// OnError records a failure against the current key and rotates when the
// strategy calls for it.
func (r *KeyRing) OnError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return
	}
	r.keys[r.current].ErrorCount++
	if r.strategy == RotationOnError {
		r.rotateLocked()
	}
}

// MarkUsed stamps the current key's last-used time.
func (r *KeyRing) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return
	}
	r.keys[r.current].LastUsed = time.Now()
}

// Disable takes a key out of rotation.
func (r *KeyRing) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.ID == id {
			key.Disabled = true
			return
		}
	}
}

// Enable returns a key to rotation and clears its error count.
func (r *KeyRing) Enable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.ID == id {
			key.Disabled = false
			key.ErrorCount = 0
			return
		}
	}
}

// Add appends a key; duplicate ids are ignored.
func (r *KeyRing) Add(key *APIKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.keys {
		if existing.ID == key.ID {
			return
		}
	}
	c := *key
	r.keys = append(r.keys, &c)
}

// Len returns the number of keys in the ring, disabled included.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
