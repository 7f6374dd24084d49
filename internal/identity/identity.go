// Package identity provides the id sources used for graph nodes and edges.
// A Generator is the only external capability the parser needs; inject a
// Sequence to make parsing deterministic.
package identity

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Scheme names accepted by FromScheme.
const (
	SchemeUUID  = "uuid"
	SchemeULID  = "ulid"
	SchemeShort = "short"
	SchemeSeq   = "seq"
)

// DefaultShortLength is the width of ids produced by Short(0).
const DefaultShortLength = 10

// Generator returns a fresh id on every call. Implementations must be safe
// for concurrent use.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func() string

// NewID calls f.
func (f GeneratorFunc) NewID() string {
	return f()
}

// UUID returns a generator of random (v4) UUID strings.
func UUID() Generator {
	return GeneratorFunc(func() string {
		return uuid.NewString()
	})
}

type ulidGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// ULID returns a generator of lexically sortable ULIDs. Ids from one
// generator are strictly increasing even within the same millisecond.
func ULID() Generator {
	return &ulidGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ulidGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}

const shortAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_-"

// Short returns a generator of url-safe random ids of length n, drawn from a
// 64-symbol alphabet. n <= 0 selects DefaultShortLength.
func Short(n int) Generator {
	if n <= 0 {
		n = DefaultShortLength
	}
	return GeneratorFunc(func() string {
		buf := make([]byte, n)
		// Never fails since Go 1.24.
		_, _ = rand.Read(buf)
		for i, b := range buf {
			buf[i] = shortAlphabet[b&63]
		}
		return string(buf)
	})
}

// SequenceGenerator yields prefix1, prefix2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	next   atomic.Uint64
}

// Sequence returns a deterministic generator. It is intended for tests and
// for canonical output where stable ids matter more than uniqueness across runs.
func Sequence(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (s *SequenceGenerator) NewID() string {
	return s.prefix + strconv.FormatUint(s.next.Add(1), 10)
}

// Reset restarts the sequence at 1.
func (s *SequenceGenerator) Reset() {
	s.next.Store(0)
}

// FromScheme returns the generator registered under name.
func FromScheme(name string) (Generator, error) {
	switch name {
	case "", SchemeUUID:
		return UUID(), nil
	case SchemeULID:
		return ULID(), nil
	case SchemeShort:
		return Short(DefaultShortLength), nil
	case SchemeSeq:
		return Sequence("n"), nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q: must be one of uuid, ulid, short, seq", name)
	}
}
