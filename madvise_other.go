// madvise_other.go -- access pattern hints: no-op where madvise(2) is missing
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

//go:build !unix

package forkmap

func adviseRandom(b []byte) error {
	return nil
}
