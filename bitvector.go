// bitvector.go -- slot occupancy bitmap used while placing keys
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package forkmap

import (
	"math/bits"
)

// bitVector represents a bit vector in an efficient manner
type bitVector struct {
	v []uint64
}

// newBitVector creates a bitvector to hold atleast 'sz' bits.
// The resulting size is rounded-up to the next multiple of 64.
func newBitVector(sz uint64) *bitVector {
	sz += 63
	sz &= ^(uint64(63))
	words := sz / 64
	bv := &bitVector{
		v: make([]uint64, words),
	}

	return bv
}

// Size returns the number of bits in this bitvector
func (b *bitVector) Size() uint64 {
	return uint64(len(b.v)) * 64
}

// Set sets the bit 'i' in the bitvector
func (b *bitVector) Set(i uint64) {
	b.v[i/64] |= uint64(1) << (i % 64)
}

// IsSet() returns true if the bit 'i' is set, false otherwise
func (b *bitVector) IsSet(i uint64) bool {
	w := b.v[i/64]
	return 1 == (1 & (w >> (i % 64)))
}

// Reset() clears all the bits in the bitvector
func (b *bitVector) Reset() {
	v := b.v
	for i := range v {
		v[i] = 0
	}
}

// Count returns the population count of the bitvector.
func (b *bitVector) Count() uint64 {
	var p uint64

	for i := range b.v {
		p += uint64(bits.OnesCount64(b.v[i]))
	}
	return p
}
