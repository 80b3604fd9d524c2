package rewards

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// newCryptoRand returns a ChaCha8 generator keyed from crypto/rand.
func newCryptoRand() (*rand.Rand, error) {
	var seed [32]byte

	_, err := crand.Read(seed[:])
	if err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}

	return rand.New(rand.NewChaCha8(seed)), nil
}

// newSeededRand is reproducible for a given seed. Test mode only.
func newSeededRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)

	return rand.New(rand.NewChaCha8(key))
}
