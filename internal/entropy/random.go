// Package entropy provides the random sources the simulation draws from.
// Runs are reproducible from an explicit seed; a zero seed is replaced by one
// read from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source is the subset of *rand.Rand the simulation uses. Tests substitute
// scripted sources to force specific draws.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a math/rand generator for the given seed. A zero seed is
// replaced with CryptoSeed().
func New(seed int64) *mrand.Rand {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return mrand.New(mrand.NewSource(seed))
}

// Derive returns a generator seeded from seed and a subsystem offset, so
// subsystems sharing a root seed do not share a stream.
func Derive(seed int64, offset int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed + offset))
}

// CryptoSeed returns a non-zero seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen but a fixed seed keeps the process alive.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
