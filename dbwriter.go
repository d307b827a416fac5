// dbwriter.go -- build an immutable, mmap-able forkmap index
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
	"bufio"
	"bytes"
	"crypto/sha512"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
)

const _BufSize = 1 << 20

// writer state
type wstate int

const (
	_Aborted = -1
	_Open    = 0
	_Frozen  = 1
)

// DBWriter builds a read-only forkmap index. Keys and values are
// arbitrary byte sequences. Entries are appended to a payload spill file
// as they are added; Freeze() lays out the open-addressed slot table,
// writes header, slot table and payload into a temporary file and
// atomically renames it into place. A DBWriter must not be shared
// between goroutines, and two writers must not build the same file at
// the same time.
type DBWriter struct {
	fd *os.File // the index being assembled

	// payload spill file; keys and values in insertion order
	spill *os.File
	sw    *bufio.Writer

	// placement data for every entry, in insertion order
	recs []slot

	hash hasher
	hdr  header
	load float64

	// running offset of the payload
	off uint64

	// snappy scratch buffer
	zbuf []byte

	log   *slog.Logger
	stats Stats

	fntmp string // tmp file name
	fn    string // final index file
	state wstate
}

// Stats describes the slot table of a frozen index
type Stats struct {
	Keys      uint64
	Slots     uint64
	Load      float64
	MaxProbe  uint64        // longest probe sequence of any key
	MeanProbe float64       // mean number of slots examined per key
	Elapsed   time.Duration // time taken by Freeze()
}

// NewDBWriter prepares file 'fn' to hold a forkmap index. If 'fn' is
// empty, a fresh name in os.TempDir() is used; Filename() returns it.
// Once written, the index is "frozen" and readers open it using
// NewDBReader().
func NewDBWriter(fn string, opts ...WriterOption) (*DBWriter, error) {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := validLoad(o.load); err != nil {
		return nil, err
	}

	if o.salt == nil {
		o.salt = randbytes(_SaltSize)
	}

	hash, err := newHasher(o.hash, o.salt)
	if err != nil {
		return nil, err
	}

	if len(fn) == 0 {
		fn = filepath.Join(os.TempDir(), fmt.Sprintf("forkmap-%08x.db", rand32()))
	}

	fn, err = filepath.Abs(fn)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp.%d", fn, rand32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}

	spill, err := os.CreateTemp(filepath.Dir(fn), filepath.Base(fn)+".payload.*")
	if err != nil {
		fd.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("%s: can't create payload file: %w", fn, err)
	}

	w := &DBWriter{
		fd:    fd,
		spill: spill,
		sw:    bufio.NewWriterSize(spill, _BufSize),
		recs:  make([]slot, 0, 1024),
		hash:  hash,
		hdr: header{
			hash: o.hash,
			salt: o.salt,
		},
		load:  o.load,
		log:   o.log,
		fn:    fn,
		fntmp: tmp,
	}

	if o.snappy {
		w.hdr.flags |= _F_Snappy
	}
	return w, nil
}

// Len returns the total number of keys added so far
func (w *DBWriter) Len() int {
	return len(w.recs)
}

// Filename returns the name of the index being built
func (w *DBWriter) Filename() string {
	return w.fn
}

// Stats returns slot table statistics; it is only meaningful after
// Freeze() succeeds.
func (w *DBWriter) Stats() Stats {
	return w.stats
}

// AddKeyVals adds a series of key-value matched pairs to the db. If they are of
// unequal length, only the smaller of the lengths are used.
// Returns number of records added.
func (w *DBWriter) AddKeyVals(keys [][]byte, vals [][]byte) (int, error) {
	if w.state != _Open {
		return 0, ErrFrozen
	}

	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}

	for i := 0; i < n; i++ {
		if err := w.Add(keys[i], vals[i]); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Add adds a single key,value pair. Duplicate keys are detected by
// Freeze().
func (w *DBWriter) Add(key, val []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}

	if int64(len(key)) > _MaxKeyLen {
		return ErrKeyTooLarge
	}
	if int64(len(val)) > _MaxValLen {
		return ErrValueTooLarge
	}

	if w.hdr.flags&_F_Snappy > 0 {
		w.zbuf = snappy.Encode(w.zbuf[:cap(w.zbuf)], val)
		val = w.zbuf
		if int64(len(val)) > _MaxValLen {
			return ErrValueTooLarge
		}
	}

	s := slot{
		hash: w.hash(key),
		off:  w.off,
		klen: uint32(len(key)),
		vlen: uint32(len(val)),
	}

	if _, err := writeAll(w.sw, key); err != nil {
		return err
	}
	if _, err := writeAll(w.sw, val); err != nil {
		return err
	}

	w.off += uint64(len(key)) + uint64(len(val))
	w.recs = append(w.recs, s)
	return nil
}

// Abort a construction
func (w *DBWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}

	return w.abort()
}

func (w *DBWriter) abort() error {
	w.state = _Aborted
	w.recs = nil

	w.spill.Close()
	os.Remove(w.spill.Name())

	w.fd.Close()
	return os.Remove(w.fntmp)
}

// Freeze builds the slot table, writes the index and renames it into
// place. On error, nothing is published and the temporary files are
// removed.
func (w *DBWriter) Freeze() (err error) {
	if w.state != _Open {
		return ErrFrozen
	}

	defer func(e *error) {
		// undo the tmpfile
		if *e != nil {
			w.abort()
		}
	}(&err)

	start := time.Now()

	if err = w.sw.Flush(); err != nil {
		return fmt.Errorf("%s: payload flush: %w", w.fn, err)
	}

	n := uint64(len(w.recs))
	nslots := tableSize(n, w.load)
	tbl := make([]byte, nslots*_SlotSize)
	if err = w.place(tbl, nslots); err != nil {
		return err
	}

	// placement data is no longer needed
	w.recs = nil

	// calculate strong checksum for all data past the header
	h := sha512.New512_256()

	var hdrb [_HeaderSize]byte

	bw := bufio.NewWriterSize(w.fd, _BufSize)

	// Leave room for the header; we fill it in once we have the checksum.
	if _, err = writeAll(bw, hdrb[:]); err != nil {
		return err
	}

	tee := newErrWriter(io.MultiWriter(bw, h))
	tee.Write(tbl)

	if _, err = w.spill.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%s: payload seek: %w", w.fn, err)
	}
	if _, err = io.Copy(tee, w.spill); err != nil {
		return fmt.Errorf("%s: payload copy: %w", w.fn, err)
	}
	if err = tee.Error(); err != nil {
		return err
	}
	if exp := uint64(len(tbl)) + w.off; tee.Written() != exp {
		return fmt.Errorf("%s: wrote %d bytes of slots and payload, exp %d", w.fn, tee.Written(), exp)
	}
	if err = bw.Flush(); err != nil {
		return err
	}

	w.hdr.nkeys = n
	w.hdr.nslots = nslots
	w.hdr.payoff = _HeaderSize + uint64(len(tbl))
	w.hdr.paylen = w.off
	w.hdr.cksum = h.Sum(nil)
	w.hdr.marshal(hdrb[:])

	// Finally, write the header at start of file
	if _, err = w.fd.WriteAt(hdrb[:], 0); err != nil {
		return err
	}

	if err = w.fd.Sync(); err != nil {
		return err
	}

	if err = w.fd.Close(); err != nil {
		return err
	}

	// readers never get write access
	if err = os.Chmod(w.fntmp, 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}

	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}

	w.spill.Close()
	os.Remove(w.spill.Name())

	w.stats.Elapsed = time.Since(start)
	w.state = _Frozen

	w.log.Info("froze index",
		"file", w.fn,
		"keys", w.stats.Keys,
		"slots", w.stats.Slots,
		"hash", w.hdr.hash.String(),
		"max-probe", w.stats.MaxProbe,
		"mean-probe", w.stats.MeanProbe,
		"elapsed", w.stats.Elapsed)
	return nil
}

// place assigns every entry a slot in 'tbl' by linear probing from
// hash & (nslots-1). Since nslots > len(w.recs), every probe reaches an
// empty slot. Two entries with the same hash and key length have their
// keys compared; a match is a duplicate key.
func (w *DBWriter) place(tbl []byte, nslots uint64) error {
	mask := nslots - 1
	occ := newBitVector(nslots)

	var tot, maxp uint64
	for i := range w.recs {
		r := &w.recs[i]
		j := r.hash & mask
		probe := uint64(1)

		for occ.IsSet(j) {
			o := decodeSlot(tbl, j)
			if o.hash == r.hash && o.keyLen() == uint64(r.klen) {
				key, dup, err := w.sameKey(&o, r)
				if err != nil {
					return err
				}
				if dup {
					return fmt.Errorf("%s: key %q: %w", w.fn, key, ErrDuplicateKey)
				}
			}
			j = (j + 1) & mask
			probe++
		}

		occ.Set(j)
		encodeSlot(tbl, j, r)

		tot += probe
		if probe > maxp {
			maxp = probe
		}
	}

	if c := occ.Count(); c != uint64(len(w.recs)) {
		return fmt.Errorf("%s: placed %d keys, exp %d", w.fn, c, len(w.recs))
	}

	n := uint64(len(w.recs))
	w.stats = Stats{
		Keys:     n,
		Slots:    nslots,
		Load:     float64(n) / float64(nslots),
		MaxProbe: maxp,
	}
	if n > 0 {
		w.stats.MeanProbe = float64(tot) / float64(n)
	}

	w.log.Debug("placed keys", "keys", n, "slots", nslots, "max-probe", maxp)
	return nil
}

// sameKey reads the keys of 'a' and 'b' back from the payload spill and
// compares them.
func (w *DBWriter) sameKey(a, b *slot) ([]byte, bool, error) {
	klen := a.keyLen()
	ka := make([]byte, klen)
	kb := make([]byte, klen)

	if _, err := w.spill.ReadAt(ka, int64(a.off)); err != nil {
		return nil, false, fmt.Errorf("%s: payload read at %d: %w", w.fn, a.off, err)
	}
	if _, err := w.spill.ReadAt(kb, int64(b.off)); err != nil {
		return nil, false, fmt.Errorf("%s: payload read at %d: %w", w.fn, b.off, err)
	}
	return ka, bytes.Equal(ka, kb), nil
}
