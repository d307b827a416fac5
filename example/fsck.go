// fsck.go -- 'fsck' command implementation
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
	"fmt"
	"os"

	"github.com/opencoff/go-forkmap"
	flag "github.com/opencoff/pflag"
)

type fsckCommand struct{}

func init() {
	m := fsckCommand{}
	registerCommand("fsck", &m)
}

func (m *fsckCommand) run(args []string, opt *Option) (err error) {
	var db *forkmap.DBReader

	fs := flag.NewFlagSet("fsck", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: fsck [options] DB [DB...]

where  'DB' is the name of an index

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("fsck: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("fsck: insufficient args")
	}

	for _, fn := range args {
		// WithVerify checks the checksum and walks every slot
		db, err = forkmap.NewDBReader(fn, forkmap.WithVerify(), forkmap.WithReaderLogger(opt.log))
		if err != nil {
			return fmt.Errorf("fsck: %w", err)
		}

		opt.Printf("%s: %s", fn, db.Desc())
		db.Close()
	}
	return nil
}
