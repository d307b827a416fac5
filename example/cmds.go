// cmds.go -- commands abstraction
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
	"io"
	"log/slog"
	"sync"
)

type command interface {
	run(args []string, opt *Option) error
}

var cmds = struct {
	sync.Mutex
	m map[string]command
}{
	m: make(map[string]command),
}

func registerCommand(nm string, cmd command) {
	cmds.Lock()
	if _, ok := cmds.m[nm]; ok {
		panic(fmt.Sprintf("%s already registered", nm))
	}
	cmds.m[nm] = cmd
	cmds.Unlock()
}

func runCommand(args []string, o *Option) error {
	nm := args[0]

	cmds.Lock()
	cmd, ok := cmds.m[nm]
	cmds.Unlock()
	if !ok {
		return fmt.Errorf("unknown command %s", nm)
	}

	return cmd.run(args, o)
}

// Option holds the global options shared by every command
type Option struct {
	verbose bool
	out     io.Writer
	log     *slog.Logger
}

func newOption(out io.Writer, verbose bool) *Option {
	return &Option{
		verbose: verbose,
		out:     out,
		log:     newLogger(verbose),
	}
}

// Printf writes to the command output only in verbose mode
func (o *Option) Printf(s string, v ...interface{}) {
	if o.verbose {
		fmt.Fprintf(o.out, s, v...)
	}
}
