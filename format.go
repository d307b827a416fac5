// format.go -- on-disk layout of a forkmap index
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
	"encoding/binary"
	"fmt"
	"math"
)

// The index file is a single immutable byte stream:
//
//   - 128 byte file header: big-endian encoding of all multibyte ints
//      * magic    [4]byte  "FKMP"
//      * version  uint32   format version
//      * flags    uint32   _F_Snappy if values are snappy compressed
//      * hash     uint32   HashKind used to place keys
//      * salt     [16]byte hash salt
//      * nkeys    uint64   number of entries
//      * nslots   uint64   number of slots (power of 2, > nkeys)
//      * payoff   uint64   file offset of the payload (128 + 24 * nslots)
//      * paylen   uint64   length of the payload
//      * cksum    [32]byte SHA512_256 of the slot table and payload
//      * zero padding
//
//   - slot table: nslots slots of 24 bytes each, little-endian since
//     they are read in place from the mapping:
//      * hash     uint64   slot hash of the key
//      * off      uint64   offset of the key relative to payoff
//      * klen     uint32   key length | _SlotUsed
//      * vlen     uint32   stored value length
//     An all-zero slot is empty.
//
//   - payload: key bytes immediately followed by value bytes for each
//     entry in insertion order.
const (
	// Flags
	_F_Snappy = 1 << iota
)

const (
	_Magic   = "FKMP"
	_Version = 1

	_HeaderSize = 128
	_SlotSize   = 24
	_SaltSize   = 16
	_CksumSize  = 32

	_SlotUsed = uint32(1) << 31

	// max key and value sizes
	_MaxKeyLen = int64(_SlotUsed) - 1
	_MaxValLen = int64(math.MaxUint32)

	_MinSlots    = 8
	_DefaultLoad = 0.7
	_MaxLoad     = 0.95

	_knownFlags = _F_Snappy
)

// header is the decoded file header
type header struct {
	flags  uint32
	hash   HashKind
	salt   []byte
	nkeys  uint64
	nslots uint64
	payoff uint64
	paylen uint64
	cksum  []byte
}

// encode the header into 'b'; b must be _HeaderSize bytes long.
func (h *header) marshal(b []byte) {
	_ = b[_HeaderSize-1]

	for i := range b {
		b[i] = 0
	}

	be := binary.BigEndian
	copy(b[:4], _Magic)
	be.PutUint32(b[4:8], _Version)
	be.PutUint32(b[8:12], h.flags)
	be.PutUint32(b[12:16], uint32(h.hash))
	copy(b[16:32], h.salt)
	be.PutUint64(b[32:40], h.nkeys)
	be.PutUint64(b[40:48], h.nslots)
	be.PutUint64(b[48:56], h.payoff)
	be.PutUint64(b[56:64], h.paylen)
	copy(b[64:96], h.cksum)
}

// unmarshal decodes and validates a header read from a file of 'sz'
// bytes named 'fn'. Every offset is checked against 'sz' so that later
// slot accesses can't wander outside the mapping.
func (h *header) unmarshal(fn string, b []byte, sz int64) error {
	if len(b) < _HeaderSize || sz < _HeaderSize {
		return corrupt(fn, "file too small (%d bytes)", sz)
	}

	magic := string(b[:4])
	if magic != _Magic {
		return corrupt(fn, "bad file magic <%x>", b[:4])
	}

	be := binary.BigEndian
	if v := be.Uint32(b[4:8]); v != _Version {
		return corrupt(fn, "unsupported format version %d (want %d)", v, _Version)
	}

	h.flags = be.Uint32(b[8:12])
	if h.flags&^_knownFlags != 0 {
		return corrupt(fn, "unknown flags %#x", h.flags)
	}

	h.hash = HashKind(be.Uint32(b[12:16]))
	if !h.hash.valid() {
		return corrupt(fn, "unknown hash function %d", uint32(h.hash))
	}

	h.salt = append([]byte(nil), b[16:32]...)
	h.nkeys = be.Uint64(b[32:40])
	h.nslots = be.Uint64(b[40:48])
	h.payoff = be.Uint64(b[48:56])
	h.paylen = be.Uint64(b[56:64])
	h.cksum = append([]byte(nil), b[64:96]...)

	if h.nslots < _MinSlots || h.nslots&(h.nslots-1) != 0 {
		return corrupt(fn, "slot count %d is not a power of 2", h.nslots)
	}
	if h.nkeys >= h.nslots {
		return corrupt(fn, "%d keys don't fit in %d slots", h.nkeys, h.nslots)
	}

	size := uint64(sz)
	if h.nslots > (size-_HeaderSize)/_SlotSize {
		return corrupt(fn, "slot table (%d slots) extends past EOF (%d bytes)", h.nslots, sz)
	}
	if h.payoff != _HeaderSize+h.nslots*_SlotSize {
		return corrupt(fn, "payload offset %d doesn't follow the slot table", h.payoff)
	}
	if h.paylen != size-h.payoff {
		return corrupt(fn, "payload length %d doesn't match file size %d", h.paylen, sz)
	}
	return nil
}

// slot is a decoded slot table entry
type slot struct {
	hash uint64
	off  uint64
	klen uint32
	vlen uint32
}

func (s *slot) used() bool {
	return s.klen&_SlotUsed != 0
}

func (s *slot) keyLen() uint64 {
	return uint64(s.klen &^ _SlotUsed)
}

// decodeSlot reads slot 'i' from the slot table 'tbl'
func decodeSlot(tbl []byte, i uint64) slot {
	b := tbl[i*_SlotSize : (i+1)*_SlotSize]
	_ = b[_SlotSize-1]

	le := binary.LittleEndian
	return slot{
		hash: le.Uint64(b[0:8]),
		off:  le.Uint64(b[8:16]),
		klen: le.Uint32(b[16:20]),
		vlen: le.Uint32(b[20:24]),
	}
}

// encodeSlot writes 's' as slot 'i' of 'tbl'
func encodeSlot(tbl []byte, i uint64, s *slot) {
	b := tbl[i*_SlotSize : (i+1)*_SlotSize]
	_ = b[_SlotSize-1]

	le := binary.LittleEndian
	le.PutUint64(b[0:8], s.hash)
	le.PutUint64(b[8:16], s.off)
	le.PutUint32(b[16:20], s.klen|_SlotUsed)
	le.PutUint32(b[20:24], s.vlen)
}

// tableSize returns the number of slots for n keys at the given load
// factor. The result is a power of 2 and always leaves at least one
// empty slot, so every probe sequence terminates.
func tableSize(n uint64, load float64) uint64 {
	m := uint64(math.Ceil(float64(n) / load))
	if m <= n {
		m = n + 1
	}
	if m < _MinSlots {
		m = _MinSlots
	}
	return nextpow2(m)
}

func validLoad(load float64) error {
	if !(load > 0 && load <= _MaxLoad) {
		return fmt.Errorf("invalid load factor %f (must be in (0, %.2f])", load, _MaxLoad)
	}
	return nil
}
