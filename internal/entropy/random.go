// Package entropy provides the injectable random source used by galaxy
// generation, plus the Gaussian sampler built on top of it.
// Falls back to crypto/rand for seeding when no seed is given.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"sync"
)

// Source is a uniform random source. Float64 returns a value in [0, 1).
type Source interface {
	Float64() float64
	Intn(n int) int
}

// lockedSource wraps a math/rand generator so one Source can be shared.
type lockedSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSource returns a deterministic source for the given seed.
// A zero seed draws a fresh seed from crypto/rand.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = CryptoSeed()
		slog.Debug("random seed drawn from crypto/rand", "seed", seed)
	}
	return &lockedSource{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// CryptoSeed returns a non-zero seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen but a fixed seed keeps generation usable.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		return 1
	}
	return seed
}
