// options.go -- functional options for DBWriter and DBReader
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
	"io"
	"log/slog"
)

// WriterOption configures a DBWriter.
type WriterOption func(*writerOptions)

type writerOptions struct {
	load   float64
	hash   HashKind
	salt   []byte
	snappy bool
	log    *slog.Logger
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		load: _DefaultLoad,
		hash: HashSiphash,
		log:  discardLogger(),
	}
}

// WithLoad sets the target load factor of the slot table. It must be in
// (0, 0.95]; the default is 0.7. Lower values shorten probe sequences at
// the cost of a bigger slot table.
func WithLoad(load float64) WriterOption {
	return func(o *writerOptions) {
		o.load = load
	}
}

// WithHash selects the hash function used to place keys.
func WithHash(h HashKind) WriterOption {
	return func(o *writerOptions) {
		o.hash = h
	}
}

// WithSalt fixes the 16 byte hash salt instead of drawing a random one.
// Two builds of the same entries with the same salt produce identical
// files.
func WithSalt(salt []byte) WriterOption {
	return func(o *writerOptions) {
		o.salt = append([]byte(nil), salt...)
	}
}

// WithSnappy stores every value snappy compressed. Readers decompress
// transparently; values are then no longer zero-copy views of the file.
func WithSnappy() WriterOption {
	return func(o *writerOptions) {
		o.snappy = true
	}
}

// WithLogger sets an optional logger for the writer to report progress.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(o *writerOptions) {
		if logger != nil {
			o.log = logger
		}
	}
}

// ReaderOption configures a DBReader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	cache  int
	verify bool
	log    *slog.Logger
}

func defaultReaderOptions() readerOptions {
	return readerOptions{
		log: discardLogger(),
	}
}

// WithCache retains up to 'n' decoded values in an ARC cache. The cache
// lives in the process heap, so it is off by default.
func WithCache(n int) ReaderOption {
	return func(o *readerOptions) {
		o.cache = n
	}
}

// WithVerify checks the strong checksum of the whole file at open time.
// This reads every page of the file.
func WithVerify() ReaderOption {
	return func(o *readerOptions) {
		o.verify = true
	}
}

// WithReaderLogger sets an optional logger for the reader.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(o *readerOptions) {
		if logger != nil {
			o.log = logger
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
