package io

import (
	"math/rand"
)

// Random is the source of random bytes for the Cxnn instruction.
type Random interface {
	// Byte returns the next random byte.
	Byte() uint8
}

// Rng is a pseudo-random byte source.
type Rng struct {
	rand *rand.Rand
}

var _ Random = (*Rng)(nil)

// NewRandom creates a pseudo-random byte source from a seed.
func NewRandom(seed int64) (rng *Rng) {
	rng = &Rng{
		rand: rand.New(rand.NewSource(seed)),
	}
	return
}

func (rng *Rng) Byte() uint8 {
	return uint8(rng.rand.Intn(256))
}

// Sequence replays a fixed list of bytes, repeating from the start
// when exhausted. An empty Sequence always yields zero.
type Sequence struct {
	Data  []uint8
	index int
}

var _ Random = (*Sequence)(nil)

func (seq *Sequence) Byte() (value uint8) {
	if len(seq.Data) == 0 {
		return
	}

	value = seq.Data[seq.index%len(seq.Data)]
	seq.index++
	return
}
