// map_test.go -- test suite for typed maps and codecs
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
	"maps"
	"slices"
	"testing"
)

type word struct {
	Word string            `json:"word"`
	Data map[string]string `json:"data"`
}

func TestJSONMap(t *testing.T) {
	assert := newAsserter(t)

	words := []word{
		{"foo", map[string]string{"lang": "en", "kind": "noun"}},
		{"bar", map[string]string{"lang": "en"}},
		{"baz", map[string]string{}},
	}

	key := func(w word) ([]byte, error) {
		return []byte(w.Word), nil
	}

	fn, err := CreateFunc(dbName(t), slices.Values(words), key, JSONEncoder[word]())
	assert(err == nil, "create: %s", err)

	m, err := OpenMap(fn, StringKey, JSONValue[word]())
	assert(err == nil, "open: %s", err)
	defer m.Close()

	assert(m.Len() == len(words), "len: exp %d, saw %d", len(words), m.Len())
	for _, w := range words {
		v, err := m.Find(w.Word)
		assert(err == nil, "find %s: %s", w.Word, err)
		assert(v.Word == w.Word, "%s: saw word %s", w.Word, v.Word)
		assert(maps.Equal(v.Data, w.Data), "%s: exp %v, saw %v", w.Word, w.Data, v.Data)
	}

	_, err = m.Find("qux")
	assert(errors.Is(err, ErrNoKey), "qux: exp ErrNoKey, saw %v", err)

	_, ok := m.Lookup("qux")
	assert(!ok, "lookup found qux")

	d := m.Get("qux", word{Word: "default"})
	assert(d.Word == "default", "get: saw %s", d.Word)
}

// Entries keyed by their word, storing only the encoded data
func TestWordData(t *testing.T) {
	assert := newAsserter(t)

	words := []word{
		{"foo", map[string]string{"lang": "en", "kind": "noun"}},
		{"bar", map[string]string{"lang": "de"}},
	}

	key := func(w word) ([]byte, error) {
		return []byte(w.Word), nil
	}
	val := func(w word) ([]byte, error) {
		return JSONEncoder[map[string]string]()(w.Data)
	}

	fn, err := CreateFunc(dbName(t), slices.Values(words), key, val, WithSnappy())
	assert(err == nil, "create: %s", err)

	m, err := OpenMap(fn, StringKey, JSONValue[map[string]string]())
	assert(err == nil, "open: %s", err)
	defer m.Close()

	v, err := m.Find("foo")
	assert(err == nil, "find foo: %s", err)
	assert(maps.Equal(v, words[0].Data), "foo: exp %v, saw %v", words[0].Data, v)
}

func TestDecodeError(t *testing.T) {
	assert := newAsserter(t)

	fn, err := Create(dbName(t), pairs("good", `{"word":"good"}`, "bad", "{not json"))
	assert(err == nil, "create: %s", err)

	m, err := OpenMap(fn, StringKey, JSONValue[word]())
	assert(err == nil, "open: %s", err)
	defer m.Close()

	_, err = m.Find("bad")
	assert(err != nil && !errors.Is(err, ErrNoKey), "bad: exp decode error, saw %v", err)

	_, ok := m.Lookup("bad")
	assert(!ok, "lookup decoded bad value")

	v, err := m.Find("good")
	assert(err == nil && v.Word == "good", "good: %v %v", v, err)
}

func TestIdentityMap(t *testing.T) {
	assert := newAsserter(t)

	fn, err := Create(dbName(t), maps.All(map[string]string{"foo": "aaa", "bar": "bbbb"}))
	assert(err == nil, "create: %s", err)

	m, err := OpenMap[string, string](fn, nil, nil)
	assert(err == nil, "open: %s", err)
	defer m.Close()

	v, err := m.Find("bar")
	assert(err == nil && v == "bbbb", "bar: %s %v", v, err)

	b := NewMap[[]byte, []byte](m.Reader(), nil, CopyValue)
	bv, err := b.Find([]byte("foo"))
	assert(err == nil && string(bv) == "aaa", "foo: %s %v", bv, err)

	// a type without a codec fails on use, not on open
	f := NewMap[float64, string](m.Reader(), nil, nil)
	_, err = f.Find(1.5)
	assert(err != nil, "float key encoded without an encoder")
}

func TestUint64Map(t *testing.T) {
	assert := newAsserter(t)

	ids := make([]uint64, 0, 500)
	for i := range 500 {
		ids = append(ids, uint64(i)*7919)
	}

	val := func(id uint64) ([]byte, error) {
		return []byte(fmt.Sprintf("id-%d", id)), nil
	}

	fn, err := CreateFunc(dbName(t), slices.Values(ids), Uint64Key, val, WithHash(HashXXHash))
	assert(err == nil, "create: %s", err)

	m, err := OpenMap(fn, Uint64Key, StringValue, WithVerify())
	assert(err == nil, "open: %s", err)
	defer m.Close()

	for _, id := range ids {
		v, err := m.Find(id)
		assert(err == nil, "find %d: %s", id, err)
		assert(v == fmt.Sprintf("id-%d", id), "%d: saw %s", id, v)
	}

	assert(m.Get(1, "none") == "none", "found id 1")
}
