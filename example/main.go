// main.go -- build and query forkmap indexes from the command line
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

// This program is an example of using forkmap's DBWriter and DBReader.
// One can construct the on-disk index using a variety of input:
//   - white space delimited text file: first field is key, the rest of the
//     line is value
//   - Comma Separated text file (CSV): first field is key, second field is value

package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/opencoff/pflag"
)

func main() {
	var verbose bool

	usage := fmt.Sprintf(
		`%s - make and query forkmap indexes

Usage: %s [global-options] CMD CMD-ARGS...

CMD is an operation to be performed and CMD-ARGS are operation specific 
arguments. The list of supported operations are:

  make [options] DB [INPUTS...]  -- Make a new index from the inputs
  get [options] DB KEY...        -- Print the values of one or more keys
  dump [options] DB              -- Dump an index
  fsck [options] DB              -- Verify the integrity of an index

Options:
`, os.Args[0], os.Args[0])

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(os.Stdout)
	fs.BoolVarP(&verbose, "verbose", "V", false, "Show verbose output")
	fs.Usage = func() {
		fmt.Print(usage)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		die("%s", err)
	}

	args := fs.Args()
	if len(args) < 2 {
		fmt.Print(usage)
		fs.PrintDefaults()
		os.Exit(0)
	}

	opt := newOption(os.Stdout, verbose)
	err := runCommand(args, opt)
	if err != nil {
		die("%s", err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// die with error
func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", os.Args[0], f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); s[n-1] != '\n' {
		s += "\n"
	}

	os.Stderr.WriteString(s)
	os.Stderr.Sync()
}

// vim: ft=go:sw=4:ts=4:noexpandtab:tw=78:
