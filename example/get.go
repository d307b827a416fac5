// get.go -- 'get' command implementation
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
	"errors"
	"fmt"
	"os"

	"github.com/opencoff/go-forkmap"
	flag "github.com/opencoff/pflag"
)

type getCommand struct{}

func init() {
	m := getCommand{}
	registerCommand("get", &m)
}

func (m *getCommand) run(args []string, opt *Option) (err error) {
	var verify bool

	fs := flag.NewFlagSet("get", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.BoolVarP(&verify, "verify", "v", false, "Verify the index checksum before lookups")
	fs.Usage = func() {
		fmt.Printf(`Usage: get [options] DB KEY [KEY...]

where  'DB' is the name of the index and each KEY is looked up in turn.
Missing keys are reported on stderr.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("get: insufficient args")
	}

	ropts := []forkmap.ReaderOption{forkmap.WithReaderLogger(opt.log)}
	if verify {
		ropts = append(ropts, forkmap.WithVerify())
	}

	fn := args[0]
	m2, err := forkmap.OpenMap(fn, forkmap.StringKey, forkmap.StringValue, ropts...)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	defer m2.Close()

	var missing int
	for _, k := range args[1:] {
		v, err := m2.Find(k)
		switch {
		case errors.Is(err, forkmap.ErrNoKey):
			opt.log.Warn("key not found", "file", fn, "key", k)
			missing++
		case err != nil:
			return fmt.Errorf("get: %w", err)
		default:
			fmt.Fprintf(opt.out, "%s\t%s\n", k, v)
		}
	}

	if missing > 0 {
		return fmt.Errorf("get: %d of %d keys not found", missing, len(args)-1)
	}
	return nil
}
