// registry.go -- opt-in sharing of open readers within a process
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
	"path/filepath"
	"sync"
)

// Registry shares one DBReader per index file among the users of a
// process. Open() hands out the same reader for the same path and counts
// references; Release() closes a reader when its last user is done and
// Close() closes every reader. A Registry is an explicit value: create
// one in main() (before forking workers, if desired) and pass it along.
type Registry struct {
	sync.Mutex
	m    map[string]*regEntry
	opts []ReaderOption
}

type regEntry struct {
	rd   *DBReader
	refs int
}

// NewRegistry returns an empty registry; 'opts' are used for every
// reader it opens.
func NewRegistry(opts ...ReaderOption) *Registry {
	return &Registry{
		m:    make(map[string]*regEntry),
		opts: opts,
	}
}

// Open returns the shared reader for index file 'fn', opening it on
// first use.
func (r *Registry) Open(fn string) (*DBReader, error) {
	nm, err := filepath.Abs(fn)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}

	r.Lock()
	defer r.Unlock()

	if e, ok := r.m[nm]; ok {
		e.refs++
		return e.rd, nil
	}

	rd, err := NewDBReader(nm, r.opts...)
	if err != nil {
		return nil, err
	}

	r.m[nm] = &regEntry{rd: rd, refs: 1}
	return rd, nil
}

// Release drops one reference to 'fn' and closes its reader when no
// references remain.
func (r *Registry) Release(fn string) error {
	nm, err := filepath.Abs(fn)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}

	r.Lock()
	defer r.Unlock()

	e, ok := r.m[nm]
	if !ok {
		return fmt.Errorf("%s: not open in registry", nm)
	}

	e.refs--
	if e.refs > 0 {
		return nil
	}

	delete(r.m, nm)
	return e.rd.Close()
}

// Len returns the number of open indexes
func (r *Registry) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.m)
}

// Close closes every reader regardless of outstanding references.
func (r *Registry) Close() error {
	r.Lock()
	defer r.Unlock()

	var errs []error
	for nm, e := range r.m {
		if err := e.rd.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.m, nm)
	}
	return errors.Join(errs...)
}
