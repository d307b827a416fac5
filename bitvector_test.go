// bitvector_test.go -- test suite for bitvector
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
	"testing"
)

func TestBV(t *testing.T) {
	assert := newAsserter(t)

	bv := newBitVector(100)
	assert(bv.Size() == 128, "size mismatch; exp 128, saw %d", bv.Size())

	var i uint64
	for i = 0; i < bv.Size(); i++ {
		if 1 == (i & 1) {
			bv.Set(i)
		}
	}

	for i = 0; i < bv.Size(); i++ {
		if 1 == (i & 1) {
			assert(bv.IsSet(i), "%d not set", i)
		} else {
			assert(!bv.IsSet(i), "%d is set", i)
		}
	}

	assert(bv.Count() == 64, "popcount: exp 64, saw %d", bv.Count())

	bv.Reset()
	assert(bv.Count() == 0, "reset: exp 0, saw %d", bv.Count())
}

func TestBVSizes(t *testing.T) {
	assert := newAsserter(t)

	for _, sz := range []uint64{0, 1, 63, 64, 65, 1024} {
		bv := newBitVector(sz)
		exp := (sz + 63) / 64 * 64
		assert(bv.Size() == exp, "%d: size mismatch; exp %d, saw %d", sz, exp, bv.Size())
	}
}
