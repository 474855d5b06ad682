package backend

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeed generates a random non-negative seed for image generation.
// Uses crypto/rand so concurrent calls never correlate.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Better a fixed seed than a panic in production.
		return 42
	}

	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	if seed < 0 {
		seed = -seed
	}
	// -MinInt64 == MinInt64, still negative.
	if seed < 0 {
		seed = 0
	}
	return seed
}

// ResolveSeed maps the request seed to the seed actually used: -1
// becomes a fresh random seed, anything else passes through.
func ResolveSeed(requested int64) int64 {
	if requested < 0 {
		return RandomSeed()
	}
	return requested
}
