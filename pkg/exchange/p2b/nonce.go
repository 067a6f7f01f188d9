package p2b

import (
	"strconv"
	"sync"
	"time"
)

// nonceSource issues strictly increasing millisecond nonces. The venue
// rejects a private request whose nonce is not greater than the previous
// one, so two requests in the same millisecond must not share a value.
type nonceSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newNonceSource() *nonceSource {
	return &nonceSource{now: time.Now}
}

// Next returns the next nonce as the decimal string the venue expects.
func (s *nonceSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}
