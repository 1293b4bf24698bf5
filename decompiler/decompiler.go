package decompiler

import "io"

// Options configures Decompile's output. The zero value is ready to use.
type Options struct {
	indent string
}

// Option sets one field of Options.
type Option func(*Options)

// WithIndent overrides the per-depth-level indentation string. The default
// is a single tab, matching ast.Printer's depth-based indentation style
// (adapted from ". " per level to a tab per level, per DESIGN.md).
func WithIndent(s string) Option {
	return func(o *Options) { o.indent = s }
}

// Decompile runs a function body's raw bytecode through all five stages —
// decode, block-build, symbolic-evaluate, resolve, emit — and writes
// recovered pseudo-source to w. locals, globals and consts are the code
// object's own name and constant tables.
func Decompile(w io.Writer, code []byte, locals, globals []Name, consts []*Constant, opts ...Option) error {
	o := Options{indent: "\t"}
	for _, opt := range opts {
		opt(&o)
	}

	instrs, err := Decode(code)
	if err != nil {
		return err
	}
	blocks, err := BuildBlocks(instrs)
	if err != nil {
		return err
	}
	annotated, err := EvalInstructions(blocks, locals, globals, consts)
	if err != nil {
		return err
	}
	resolved := ResolveAll(annotated)
	Emit(w, resolved, o.indent)
	return nil
}

// DecompileCode is a convenience wrapper over Decompile for a *CodeObject.
func DecompileCode(w io.Writer, co *CodeObject, opts ...Option) error {
	return Decompile(w, co.Code, co.Locals, co.Globals, co.Consts, opts...)
}
