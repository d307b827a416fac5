// errors.go - public errors exposed by forkmap
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
	"errors"
	"fmt"
)

func errShortWrite(who string, exp, n int) error {
	return fmt.Errorf("%s: incomplete write; exp %d, saw %d", who, exp, n)
}

// corrupt wraps ErrCorrupt with the file name and a description of the
// offending field.
func corrupt(fn string, f string, v ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", fn, fmt.Sprintf(f, v...), ErrCorrupt)
}

var (
	// ErrDuplicateKey is returned by Freeze() when two entries carry the
	// same key. Nothing is published when this happens.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCorrupt is returned when an index file has a bad magic or version,
	// or when any of its fields point outside the file.
	ErrCorrupt = errors.New("index corrupt")

	// ErrNoKey is returned when a key cannot be found in the index
	ErrNoKey = errors.New("no such key")

	// ErrFrozen is returned when attempting to add new records to an already
	// frozen (or aborted) index. It is also returned when trying to freeze
	// twice.
	ErrFrozen = errors.New("index already frozen")

	// ErrKeyTooLarge is returned if the key-length is 2^31 bytes or more
	ErrKeyTooLarge = errors.New("key is larger than 2^31-1 bytes")

	// ErrValueTooLarge is returned if the value-length is larger than 2^32-1 bytes
	ErrValueTooLarge = errors.New("value is larger than 2^32-1 bytes")

	// ErrClosed is returned when using a reader after Close()
	ErrClosed = errors.New("index closed")
)
