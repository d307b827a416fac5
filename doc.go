// doc.go - top level documentation
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

// Package forkmap implements a read-only, file backed key/value index
// meant to be shared by many worker processes.
//
// A large map built in the heap of a parent process is nominally shared
// with forked children via copy-on-write, but any runtime bookkeeping
// that touches the map (GC marking, rehashing, reference counts) dirties
// its pages and every worker ends up with a private copy. forkmap
// instead writes the entries once into an immutable file: a fixed header,
// an open-addressed slot table (linear probing) and a payload of raw key
// and value bytes. Readers map the file read-only and resolve lookups
// directly against the mapped bytes, so the page cache backs every
// process with the same physical pages.
//
// The primary interface is via the 'DBWriter' and 'DBReader' objects, or
// the one-shot Create()/CreateFunc() functions and the typed Map. Keys
// and values are arbitrary byte sequences; callers convert their own
// types with Encoder and Decoder functions.
//
//	fn, err := forkmap.Create("", maps.All(map[string]string{
//		"foo": "aaa",
//		"bar": "bbbb",
//	}))
//
//	m, err := forkmap.OpenMap(fn, forkmap.StringKey, forkmap.StringValue)
//	v, err := m.Find("bar") // "bbbb"
//	_, err = m.Find("qux")  // ErrNoKey
//
// Files are published by an atomic rename, so readers never observe a
// partially written index. To regenerate an index, build a new one at
// the same path; existing readers keep their mapping of the old file.
package forkmap
