// map.go -- typed view of a DBReader
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
	"fmt"
)

// Map is a typed, read-only view of an index: keys of type K are
// encoded with a key Encoder and values are decoded into V with a
// Decoder on every lookup.
type Map[K, V any] struct {
	rd  *DBReader
	key Encoder[K]
	dec Decoder[V]
}

// OpenMap opens the index in file 'fn' as a Map. A nil 'key' or 'dec'
// passes bytes through unchanged, which works when K or V is []byte or
// string.
func OpenMap[K, V any](fn string, key Encoder[K], dec Decoder[V], opts ...ReaderOption) (*Map[K, V], error) {
	rd, err := NewDBReader(fn, opts...)
	if err != nil {
		return nil, err
	}
	return NewMap(rd, key, dec), nil
}

// NewMap wraps an already open reader, e.g. one shared via a Registry.
func NewMap[K, V any](rd *DBReader, key Encoder[K], dec Decoder[V]) *Map[K, V] {
	if key == nil {
		key = identityEncoder[K]()
	}
	if dec == nil {
		dec = identityDecoder[V]()
	}

	return &Map[K, V]{
		rd:  rd,
		key: key,
		dec: dec,
	}
}

// Find returns the decoded value of 'k'. Absent keys return ErrNoKey;
// encoder and decoder errors are returned wrapped.
func (m *Map[K, V]) Find(k K) (V, error) {
	var zero V

	kb, err := m.key(k)
	if err != nil {
		return zero, fmt.Errorf("%s: key: %w", m.rd.fn, err)
	}

	b, err := m.rd.Find(kb)
	if err != nil {
		return zero, err
	}

	v, err := m.dec(b)
	if err != nil {
		return zero, fmt.Errorf("%s: key %q: value: %w", m.rd.fn, kb, err)
	}
	return v, nil
}

// Lookup returns the decoded value of 'k' and true, or false if the key
// is absent or can't be decoded.
func (m *Map[K, V]) Lookup(k K) (V, bool) {
	v, err := m.Find(k)
	if err != nil {
		return v, false
	}
	return v, true
}

// Get returns the decoded value of 'k', or 'def' if there is none.
func (m *Map[K, V]) Get(k K, def V) V {
	if v, ok := m.Lookup(k); ok {
		return v
	}
	return def
}

// Len returns the number of keys in the index
func (m *Map[K, V]) Len() int {
	return m.rd.Len()
}

// Reader returns the underlying raw reader
func (m *Map[K, V]) Reader() *DBReader {
	return m.rd
}

// Close closes the underlying reader
func (m *Map[K, V]) Close() error {
	return m.rd.Close()
}
