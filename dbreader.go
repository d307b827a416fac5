// dbreader.go -- query a forkmap index through a read-only mapping
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
	"bytes"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

// DBReader represents the query interface for a previously constructed
// index (built using NewDBWriter()). The file is mapped read-only and
// every lookup is resolved against the mapped bytes; nothing but the
// header is copied into the process heap. A DBReader is safe for
// concurrent use, and any number of processes may map the same file.
type DBReader struct {
	hdr  header
	hash hasher

	// optional cache of decoded values
	cache *arc.ARCCache[string, []byte]

	// views into the mapping
	data    []byte
	slots   []byte
	payload []byte

	mm *mmap.Mapping
	fd *os.File
	fn string

	log    *slog.Logger
	closed atomic.Bool
}

// NewDBReader opens a previously built index in file 'fn' and prepares
// it for querying. The header is validated eagerly; a file with the
// wrong magic or version, or with offsets outside the file, fails here
// with ErrCorrupt.
func NewDBReader(fn string, opts ...ReaderOption) (rd *DBReader, err error) {
	o := defaultReaderOptions()
	for _, opt := range opts {
		opt(&o)
	}

	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	defer func(e *error) {
		if *e != nil {
			fd.Close()
		}
	}(&err)

	rd = &DBReader{
		fd:  fd,
		fn:  fn,
		log: o.log,
	}

	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}

	if st.Size() < _HeaderSize {
		return nil, corrupt(fn, "file too small (%d bytes)", st.Size())
	}

	var hdrb [_HeaderSize]byte

	if _, err = io.ReadFull(fd, hdrb[:]); err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	if err = rd.hdr.unmarshal(fn, hdrb[:], st.Size()); err != nil {
		return nil, err
	}

	rd.hash, err = newHasher(rd.hdr.hash, rd.hdr.salt)
	if err != nil {
		return nil, corrupt(fn, "%s", err)
	}

	if o.cache > 0 {
		rd.cache, err = arc.NewARC[string, []byte](o.cache)
		if err != nil {
			return nil, err
		}
	}

	// Map the whole file; the kernel shares these pages between every
	// process mapping it.
	mm := mmap.New(fd)
	mapping, err := mm.Map(st.Size(), 0, mmap.PROT_READ, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes: %w", fn, st.Size(), err)
	}

	bs := mapping.Bytes()
	if uint64(len(bs)) != rd.hdr.payoff+rd.hdr.paylen {
		mapping.Unmap()
		return nil, corrupt(fn, "mapped %d bytes, exp %d", len(bs), rd.hdr.payoff+rd.hdr.paylen)
	}

	// lookups touch a handful of random pages; readahead is wasted work.
	if err := adviseRandom(bs); err != nil {
		rd.log.Warn("madvise failed, continuing anyway", "file", fn, "err", err)
	}

	rd.mm = mapping
	rd.data = bs
	rd.slots = bs[_HeaderSize:rd.hdr.payoff]
	rd.payload = bs[rd.hdr.payoff:]

	if o.verify {
		if err = rd.Verify(); err != nil {
			mapping.Unmap()
			return nil, err
		}
	}

	rd.log.Debug("opened index", "file", fn, "keys", rd.hdr.nkeys, "slots", rd.hdr.nslots)
	return rd, nil
}

// Len returns the number of keys in the index
func (rd *DBReader) Len() int {
	return int(rd.hdr.nkeys)
}

// Filename returns the file backing this index
func (rd *DBReader) Filename() string {
	return rd.fn
}

// Close unmaps and closes the index. Slices returned by Find() or
// Lookup() must not be used after Close().
func (rd *DBReader) Close() error {
	if rd.closed.Swap(true) {
		return nil
	}

	rd.mm.Unmap()
	if rd.cache != nil {
		rd.cache.Purge()
	}
	rd.data = nil
	rd.slots = nil
	rd.payload = nil
	return rd.fd.Close()
}

// Lookup looks up 'key' in the index and returns the corresponding value.
// If the key is not found or the index is corrupt, value is nil and
// returns false.
func (rd *DBReader) Lookup(key []byte) ([]byte, bool) {
	v, err := rd.Find(key)
	if err != nil {
		return nil, false
	}

	return v, true
}

// Find looks up 'key' in the index and returns the corresponding value.
// It returns ErrNoKey if the key is absent, and ErrCorrupt if a slot on
// the probe sequence points outside the file.
//
// Unless the index is snappy compressed, the returned slice points into
// the read-only mapping: it must not be modified, and it is valid until
// Close().
func (rd *DBReader) Find(key []byte) ([]byte, error) {
	if rd.closed.Load() {
		return nil, ErrClosed
	}

	if rd.cache != nil {
		if v, ok := rd.cache.Get(string(key)); ok {
			return v, nil
		}
	}

	h := rd.hash(key)
	mask := rd.hdr.nslots - 1
	klen := uint64(len(key))

	// at most nslots probes; the table always has an empty slot, but a
	// corrupt file might not.
	for i, j := uint64(0), h&mask; i < rd.hdr.nslots; i, j = i+1, (j+1)&mask {
		s := decodeSlot(rd.slots, j)
		if !s.used() {
			return nil, ErrNoKey
		}

		if s.hash != h || s.keyLen() != klen {
			continue
		}

		k, v, err := rd.record(j, &s)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(k, key) {
			continue
		}

		if v, err = rd.decodeValue(v); err != nil {
			return nil, err
		}

		if rd.cache != nil {
			rd.cache.Add(string(key), v)
		}
		return v, nil
	}
	return nil, ErrNoKey
}

// record returns the key and stored value bytes of slot 'j' after
// checking them against the payload bounds.
func (rd *DBReader) record(j uint64, s *slot) ([]byte, []byte, error) {
	klen := s.keyLen()
	vlen := uint64(s.vlen)
	plen := uint64(len(rd.payload))

	if s.off > plen || klen > plen-s.off || vlen > plen-s.off-klen {
		return nil, nil, corrupt(rd.fn, "slot %d: record at %d (key %d, val %d bytes) past end of payload (%d bytes)",
			j, s.off, klen, vlen, plen)
	}

	k := rd.payload[s.off : s.off+klen]
	v := rd.payload[s.off+klen : s.off+klen+vlen]
	return k, v, nil
}

func (rd *DBReader) decodeValue(v []byte) ([]byte, error) {
	if rd.hdr.flags&_F_Snappy == 0 {
		return v, nil
	}

	d, err := snappy.Decode(nil, v)
	if err != nil {
		return nil, corrupt(rd.fn, "snappy: %s", err)
	}
	return d, nil
}

// IterFunc iterates through every record of the index in slot order and
// calls 'fp' on each. If the called function returns non-nil, it stops
// the iteration and the error is propagated to the caller.
func (rd *DBReader) IterFunc(fp func(k, v []byte) error) error {
	if rd.closed.Load() {
		return ErrClosed
	}

	for j := uint64(0); j < rd.hdr.nslots; j++ {
		s := decodeSlot(rd.slots, j)
		if !s.used() {
			continue
		}

		k, v, err := rd.record(j, &s)
		if err != nil {
			return err
		}
		if v, err = rd.decodeValue(v); err != nil {
			return fmt.Errorf("iter: key %x: %w", k, err)
		}
		if err := fp(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the strong checksum over the slot table and payload and
// walks every slot: each occupied slot must be in bounds, must hash to
// its stored hash and must be reachable from its home slot. The number
// of occupied slots must match the header.
func (rd *DBReader) Verify() error {
	if rd.closed.Load() {
		return ErrClosed
	}

	h := sha512.New512_256()
	h.Write(rd.data[_HeaderSize:])
	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum, rd.hdr.cksum) != 1 {
		return corrupt(rd.fn, "checksum failure; exp %#x, saw %#x", rd.hdr.cksum, csum)
	}

	mask := rd.hdr.nslots - 1

	var n uint64
	for j := uint64(0); j < rd.hdr.nslots; j++ {
		s := decodeSlot(rd.slots, j)
		if !s.used() {
			continue
		}

		n++
		k, _, err := rd.record(j, &s)
		if err != nil {
			return err
		}

		if hv := rd.hash(k); hv != s.hash {
			return corrupt(rd.fn, "slot %d: stored hash %#x, key hashes to %#x", j, s.hash, hv)
		}

		// no empty slot may sit between the home slot and 'j'
		for i := s.hash & mask; i != j; i = (i + 1) & mask {
			if o := decodeSlot(rd.slots, i); !o.used() {
				return corrupt(rd.fn, "slot %d: unreachable from home slot %d", j, s.hash&mask)
			}
		}
	}

	if n != rd.hdr.nkeys {
		return corrupt(rd.fn, "%d occupied slots, header says %d keys", n, rd.hdr.nkeys)
	}
	return nil
}

// DumpMeta dumps the metadata and the slot table to io.Writer 'w'
func (rd *DBReader) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "%s", rd.Desc())

	for j := uint64(0); j < rd.hdr.nslots; j++ {
		s := decodeSlot(rd.slots, j)
		if !s.used() {
			continue
		}
		fmt.Fprintf(w, "  %3d: %#016x, home %d, key %d bytes, val %d bytes at %#x\n",
			j, s.hash, s.hash&(rd.hdr.nslots-1), s.keyLen(), s.vlen, s.off)
	}
}

// Desc provides a human description of the index
func (rd *DBReader) Desc() string {
	var w strings.Builder

	comp := "plain"
	if rd.hdr.flags&_F_Snappy > 0 {
		comp = "snappy"
	}

	fmt.Fprintf(&w, "forkmap v%d: %d keys in %d slots (load %.3f), %s hash, salt %#x\n",
		_Version, rd.hdr.nkeys, rd.hdr.nslots,
		float64(rd.hdr.nkeys)/float64(rd.hdr.nslots), rd.hdr.hash, rd.hdr.salt)
	fmt.Fprintf(&w, "  payload %d bytes at %#x, %s values\n", rd.hdr.paylen, rd.hdr.payoff, comp)
	return w.String()
}
