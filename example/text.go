// text.go -- read from variety of text files and populate a DBWriter
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

package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

// Adder is the part of forkmap.DBWriter used to load records
type Adder interface {
	Add(key, val []byte) error
}

type record struct {
	key []byte
	val []byte
}

// AddTextFile adds contents from text file 'fn' where key and value are separated
// by one of the characters in 'delim'. Empty lines and comment lines are
// skipped. This function just opens the file and calls AddTextStream()
// Returns number of records added.
func AddTextFile(w Adder, fn string, delim string) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	if len(delim) == 0 {
		delim = " \t"
	}

	defer fd.Close()

	return AddTextStream(w, fd, delim)
}

// AddTextStream adds contents from text stream 'fd' where key and value are separated
// by one of the characters in 'delim'. Empty lines and lines starting with '#'
// are skipped; a line with no delimiter is a key with an empty value.
// Returns number of records added.
func AddTextStream(w Adder, fd io.Reader, delim string) (uint64, error) {
	sc := bufio.NewScanner(bufio.NewReader(fd))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	ch := make(chan *record, 10)
	done := make(chan struct{})

	var rerr error

	// do I/O asynchronously
	go func(sc *bufio.Scanner, ch chan *record) {
		defer close(ch)

		for sc.Scan() {
			s := strings.TrimSpace(sc.Text())
			if len(s) == 0 || s[0] == '#' {
				continue
			}

			var k, v string

			// if we have no delimiters - we treat the value as "boolean"
			i := strings.IndexAny(s, delim)
			if i > 0 {
				k = s[:i]
				v = strings.TrimLeft(s[i:], delim)
			} else {
				k = s
			}

			select {
			case ch <- makeRecord(k, v):
			case <-done:
				return
			}
		}
		rerr = sc.Err()
	}(sc, ch)

	n, err := addFromChan(w, ch, done)
	if err != nil {
		return n, err
	}
	return n, rerr
}

// AddCSVFile adds contents from CSV file 'fn'. If 'kwfield' and 'valfield' are
// non-negative, they indicate the field# of the key and value respectively; the
// default value for 'kwfield' & 'valfield' is 0 and 1 respectively.
// If 'comma' is not 0, the default CSV delimiter is ','.
// If 'comment' is not 0, then lines beginning with that rune are discarded.
// Records where the 'kwfield' and 'valfield' can't be evaluated are discarded.
// Returns number of records added.
func AddCSVFile(w Adder, fn string, comma, comment rune, kwfield, valfield int) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	defer fd.Close()

	return AddCSVStream(w, fd, comma, comment, kwfield, valfield)
}

// AddCSVStream adds contents from CSV stream 'fd'. If 'kwfield' and 'valfield' are
// non-negative, they indicate the field# of the key and value respectively; the
// default value for 'kwfield' & 'valfield' is 0 and 1 respectively.
// If 'comma' is not 0, the default CSV delimiter is ','.
// If 'comment' is not 0, then lines beginning with that rune are discarded.
// Records where the 'kwfield' and 'valfield' can't be evaluated are discarded.
// Returns number of records added.
func AddCSVStream(w Adder, fd io.Reader, comma, comment rune, kwfield, valfield int) (uint64, error) {
	if kwfield < 0 {
		kwfield = 0
	}

	if valfield < 0 {
		valfield = 1
	}

	if comma == 0 {
		comma = ','
	}

	var max int = valfield
	if kwfield > valfield {
		max = kwfield
	}

	max += 1

	ch := make(chan *record, 10)
	done := make(chan struct{})
	cr := csv.NewReader(fd)
	cr.Comma = comma
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rerr error

	go func(cr *csv.Reader, ch chan *record) {
		defer close(ch)

		for {
			v, err := cr.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					rerr = err
				}
				return
			}

			if len(v) < max {
				continue
			}

			select {
			case ch <- makeRecord(v[kwfield], v[valfield]):
			case <-done:
				return
			}
		}
	}(cr, ch)

	n, err := addFromChan(w, ch, done)
	if err != nil {
		return n, err
	}
	return n, rerr
}

// read records from the chan and add them to the index. On error, the
// producer is told to stop and the chan is drained.
func addFromChan(w Adder, ch chan *record, done chan struct{}) (uint64, error) {
	var n uint64
	for r := range ch {
		if err := w.Add(r.key, r.val); err != nil {
			close(done)
			for range ch {
			}
			return n, err
		}
		n++
	}

	return n, nil
}

// the key is stored as is; the index salts and hashes it
func makeRecord(key, val string) *record {
	return &record{[]byte(key), []byte(val)}
}
