// hash.go -- key hash functions selectable per index
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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/dgryski/go-farm"
	"github.com/opencoff/go-fasthash"
)

// HashKind identifies the hash function used to place keys in the slot
// table. It is recorded in the file header; readers always use the
// function the index was built with.
type HashKind uint32

const (
	// HashSiphash is siphash-2-4 keyed with the per-file salt. This is the
	// default: it resists adversarial keys piling up in one probe run.
	HashSiphash HashKind = iota + 1

	// HashFasthash is fasthash64 seeded from the salt.
	HashFasthash

	// HashFarm is farmhash64 seeded from the salt.
	HashFarm

	// HashXXHash is xxhash64; the salt is mixed into the result.
	HashXXHash
)

var hashNames = map[HashKind]string{
	HashSiphash:  "siphash",
	HashFasthash: "fasthash",
	HashFarm:     "farm",
	HashXXHash:   "xxhash",
}

func (k HashKind) String() string {
	if s, ok := hashNames[k]; ok {
		return s
	}
	return fmt.Sprintf("hash(%d)", uint32(k))
}

func (k HashKind) valid() bool {
	_, ok := hashNames[k]
	return ok
}

// ParseHashKind returns the HashKind named by 's'
func ParseHashKind(s string) (HashKind, error) {
	s = strings.ToLower(s)
	for k, nm := range hashNames {
		if nm == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown hash function '%s'", s)
}

// hasher maps a key to its 64-bit slot hash
type hasher func(key []byte) uint64

// newHasher binds hash function 'k' to the 16 byte 'salt'
func newHasher(k HashKind, salt []byte) (hasher, error) {
	if len(salt) != _SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, saw %d", _SaltSize, len(salt))
	}

	be := binary.BigEndian
	k0 := be.Uint64(salt[:8])
	k1 := be.Uint64(salt[8:])
	seed := k0 ^ k1

	switch k {
	case HashSiphash:
		return func(key []byte) uint64 {
			return siphash.Hash(k0, k1, key)
		}, nil

	case HashFasthash:
		return func(key []byte) uint64 {
			return fasthash.Hash64(seed, key)
		}, nil

	case HashFarm:
		return func(key []byte) uint64 {
			return farm.Hash64WithSeed(key, seed)
		}, nil

	case HashXXHash:
		return func(key []byte) uint64 {
			return mix(xxhash.Sum64(key) ^ seed)
		}, nil
	}

	return nil, fmt.Errorf("unknown hash function %s", k)
}
