// make.go -- 'make' command implementation
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
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opencoff/go-forkmap"
	flag "github.com/opencoff/pflag"
)

type makeCommand struct{}

func init() {
	m := makeCommand{}
	registerCommand("make", &m)
}

func (m *makeCommand) run(args []string, opt *Option) (err error) {
	var load float64
	var hash, salt string
	var snappy bool
	var db *forkmap.DBWriter

	defer func(e *error) {
		if *e != nil && db != nil {
			db.Abort()
		}
	}(&err)

	fs := flag.NewFlagSet("make", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Float64VarP(&load, "load", "l", 0.7, "Use `L` as the slot table load factor")
	fs.StringVarP(&hash, "hash", "H", "siphash", "Use hash function `H` (siphash, fasthash, farm, xxhash)")
	fs.StringVarP(&salt, "salt", "s", "", "Use the hex encoded 16 byte `S` as the hash salt")
	fs.BoolVarP(&snappy, "snappy", "z", false, "Compress values with snappy")
	fs.Usage = func() {
		fmt.Printf(`Usage: make [options] DB [INPUT...]

where:
   DB	    is the name of the output index file
   INPUT    is one or more optional input files

The input file(s) must have a name suffix of one of the following:
   .txt	    A key,value per-line delimited by white space 
   .txt     one key per line (no embedded whitespace)
   .csv	    A comma-separated key,value file

With no inputs, white space delimited text is read from stdin.

options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("make: insufficient args")
	}

	hk, err := forkmap.ParseHashKind(hash)
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	wopts := []forkmap.WriterOption{
		forkmap.WithLoad(load),
		forkmap.WithHash(hk),
		forkmap.WithLogger(opt.log),
	}
	if snappy {
		wopts = append(wopts, forkmap.WithSnappy())
	}
	if len(salt) > 0 {
		b, err := hex.DecodeString(salt)
		if err != nil {
			return fmt.Errorf("make: salt: %w", err)
		}
		wopts = append(wopts, forkmap.WithSalt(b))
	}

	fn := args[0]
	args = args[1:]

	db, err = forkmap.NewDBWriter(fn, wopts...)
	if err != nil {
		return fmt.Errorf("make: can't create %s: %w", fn, err)
	}

	var tot uint64
	if len(args) > 0 {
		var n uint64
		for _, f := range args {
			switch {
			case strings.HasSuffix(f, ".txt"):
				n, err = AddTextFile(db, f, " \t")

			case strings.HasSuffix(f, ".csv"):
				n, err = AddCSVFile(db, f, ',', '#', 0, 1)

			default:
				return fmt.Errorf("make: don't know how to add %s", f)
			}

			if err != nil {
				return fmt.Errorf("make: can't add %s: %w", f, err)
			}

			opt.Printf("+ %s: %d records\n", f, n)
			tot += n
		}
	} else {
		var n uint64

		n, err = AddTextStream(db, os.Stdin, " \t")
		if err != nil {
			return fmt.Errorf("make: can't add text from stdin: %w", err)
		}

		opt.Printf("+ <STDIN>: %d records\n", n)
		tot += n
	}

	err = db.Freeze()
	if err != nil {
		return fmt.Errorf("make: can't write db %s: %w", fn, err)
	}

	st := db.Stats()
	speed := float64(tot) / st.Elapsed.Seconds()
	opt.Printf("%d keys in %d slots (load %.3f, mean probe %.2f, max probe %d), %s (%3.1f keys/sec)\n",
		st.Keys, st.Slots, st.Load, st.MeanProbe, st.MaxProbe,
		st.Elapsed.Truncate(time.Millisecond).String(), speed)

	return nil
}
