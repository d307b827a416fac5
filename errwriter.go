// errwriter.go -- io.writer that handles errors gracefully
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
)

// errWriter remembers the first error and the number of bytes written;
// after an error every Write is a no-op that returns the same error.
type errWriter struct {
	w   io.Writer
	n   uint64
	err error
}

func newErrWriter(w io.Writer) *errWriter {
	e := &errWriter{
		w: w,
	}
	return e
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	n, err := e.w.Write(b)
	e.n += uint64(n)
	if err != nil {
		e.err = err
		return n, err
	}
	if n != len(b) {
		e.err = errShortWrite("write", len(b), n)
		return n, e.err
	}

	return n, nil
}

// Written returns the number of bytes successfully written
func (e *errWriter) Written() uint64 {
	return e.n
}

func (e *errWriter) Error() error {
	return e.err
}
