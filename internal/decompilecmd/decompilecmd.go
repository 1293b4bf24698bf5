// Package decompilecmd wires decompiler and fixture into a mainer.Parser-driven
// CLI, following internal/maincmd's Cmd-struct-plus-reflection-dispatch shape
// scaled down to this module's single command.
package decompilecmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/pybcdecomp/decompiler"
	"github.com/mna/pybcdecomp/internal/fixture"
)

const binName = "pybcdecomp"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> <path>...
       %[1]s -h|--help
       %[1]s -v|--version

Recovers Python-like pseudo-source from Python bytecode code objects.

The <command> can be one of:
       decompile                 Decode, evaluate and emit each <path> JSON
                                  code-object fixture as recovered source.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <decompile> command are:
       --indent <string>         Per-depth-level indentation string (default
                                  a single tab).
`, binName)
)

// Cmd is the root command, parsed by mainer.Parser and dispatched by method
// name via buildCmds, exactly as internal/maincmd.Cmd does for its own
// compiler pipeline commands.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Indent string `flag:"indent"`

	args  []string
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}
	if len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one fixture path must be provided", cmdName)
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// Decompile loads each path as a fixture.Load JSON code object and writes its
// recovered source to stdout, one trailing blank line between fixtures when
// more than one path is given.
func (c *Cmd) Decompile(ctx context.Context, stdio mainer.Stdio, paths []string) error {
	var opts []decompiler.Option
	if c.Indent != "" {
		opts = append(opts, decompiler.WithIndent(c.Indent))
	}

	var failed bool
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(stdio.Stdout)
		}
		co, err := fixture.Load(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
			continue
		}
		if err := decompiler.DecompileCode(stdio.Stdout, co, opts...); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more fixtures failed to decompile")
	}
	return nil
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output, mirroring internal/maincmd's
// reflection-based dispatch exactly.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
