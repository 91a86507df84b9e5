package service

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// DieSides is the die rolled when the client leaves rolling to the server.
const DieSides = 6

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a generator seeded from crypto/rand, falling back to a
// fixed seed only if the system source fails.
func NewRand() *rand.Rand {
	seed, err := NewSeed()
	if err != nil {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// rollDie returns a value in [1, sides].
func rollDie(rng *rand.Rand, sides int) int {
	return rng.Intn(sides) + 1
}
