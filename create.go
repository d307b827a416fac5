// create.go -- one-shot construction of an index from an iterator
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
	"iter"
)

// ByteSeq is the set of types stored directly as raw keys and values
type ByteSeq interface {
	~string | ~[]byte
}

// Create builds the index 'fn' from the key/value pairs in 'kvs' and
// returns the path of the published file. If 'fn' is empty, a new file
// in os.TempDir() is created. 'kvs' is consumed once; maps.All(m) is a
// convenient source.
func Create[K, V ByteSeq](fn string, kvs iter.Seq2[K, V], opts ...WriterOption) (string, error) {
	return build(fn, opts, func(w *DBWriter) error {
		for k, v := range kvs {
			if err := w.Add([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("%s: entry %d: %w", w.fn, w.Len(), err)
			}
		}
		return nil
	})
}

// CreateFunc builds the index 'fn' from arbitrary entries: 'key' extracts
// the raw key of each entry and 'val' encodes its value. An error from
// either function aborts the build; it is returned wrapped and nothing
// is published. A nil 'key' or 'val' works only for entries of type
// []byte or string.
func CreateFunc[E any](fn string, entries iter.Seq[E], key, val Encoder[E], opts ...WriterOption) (string, error) {
	if key == nil {
		key = identityEncoder[E]()
	}
	if val == nil {
		val = identityEncoder[E]()
	}

	return build(fn, opts, func(w *DBWriter) error {
		for e := range entries {
			n := w.Len()
			k, err := key(e)
			if err != nil {
				return fmt.Errorf("%s: entry %d: key: %w", w.fn, n, err)
			}
			v, err := val(e)
			if err != nil {
				return fmt.Errorf("%s: entry %d: value: %w", w.fn, n, err)
			}
			if err := w.Add(k, v); err != nil {
				return fmt.Errorf("%s: entry %d: %w", w.fn, n, err)
			}
		}
		return nil
	})
}

func build(fn string, opts []WriterOption, fill func(w *DBWriter) error) (string, error) {
	w, err := NewDBWriter(fn, opts...)
	if err != nil {
		return "", err
	}

	if err := fill(w); err != nil {
		w.Abort()
		return "", err
	}

	if err := w.Freeze(); err != nil {
		return "", err
	}
	return w.Filename(), nil
}
