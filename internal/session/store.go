// Package session keeps the most recently captured answer batch.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xkilldash9x/tapsolver/internal/challenge"
)

// ErrCaptureRejected is returned by Ingest when a response does not qualify as
// session data. Callers drop these silently.
var ErrCaptureRejected = errors.New("capture rejected")

// DefaultMinBytes is the payload length a response must exceed to be treated
// as session data rather than a placeholder.
const DefaultMinBytes = 1000

// DefaultRoutePattern is the URL fragment identifying session responses.
const DefaultRoutePattern = "/sessions"

// Store holds the latest accepted batch. Replacement is a single pointer swap,
// so readers never lock and never observe a partially built batch. Only the
// capture path writes.
type Store struct {
	current      atomic.Pointer[challenge.AnswerBatch]
	routePattern string
	minBytes     int
}

// Option configures a Store.
type Option func(*Store)

// WithRoutePattern sets the URL substring a response must contain.
func WithRoutePattern(p string) Option {
	return func(s *Store) { s.routePattern = p }
}

// WithMinBytes sets the payload length a response must exceed.
func WithMinBytes(n int) Option {
	return func(s *Store) { s.minBytes = n }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{routePattern: DefaultRoutePattern, minBytes: DefaultMinBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Matches reports whether url is a candidate session route. The capture
// listener uses it to avoid fetching bodies of unrelated traffic.
func (s *Store) Matches(url string) bool {
	return s.routePattern == "" || strings.Contains(url, s.routePattern)
}

// Ingest validates a captured response and, if it qualifies, makes it the
// current batch. The batch is fully decoded and checked before it becomes
// visible. Any prior batch is left in place on rejection.
func (s *Store) Ingest(url string, body []byte) (*challenge.AnswerBatch, error) {
	if !s.Matches(url) {
		return nil, fmt.Errorf("%w: route %q does not match %q", ErrCaptureRejected, url, s.routePattern)
	}
	if len(body) <= s.minBytes {
		return nil, fmt.Errorf("%w: payload of %d bytes is not above %d", ErrCaptureRejected, len(body), s.minBytes)
	}
	batch, err := challenge.DecodeBatch(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureRejected, err)
	}
	if batch.Len() == 0 {
		return nil, fmt.Errorf("%w: payload has no challenges", ErrCaptureRejected)
	}
	s.current.Store(batch)
	return batch, nil
}

// Current returns the latest batch, or nil if nothing has been captured.
func (s *Store) Current() *challenge.AnswerBatch {
	return s.current.Load()
}

// Replace installs b directly, bypassing the acceptance checks. A nil b
// clears the store.
func (s *Store) Replace(b *challenge.AnswerBatch) {
	s.current.Store(b)
}
