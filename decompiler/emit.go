package decompiler

import (
	"fmt"
	"io"
	"strings"
)

// emitter walks a resolved block graph and writes indented pseudo-source.
// Sink-write failures are recorded once and every further write is skipped,
// matching ast.Printer's accumulate-first-error behaviour; Decompile itself
// never fails because of them (§7).
type emitter struct {
	w      io.Writer
	graph  *blockMap[*ResolvedBlock]
	indent string
	err    error
}

// Emit renders graph starting from its root block (token 0).
func Emit(w io.Writer, graph *blockMap[*ResolvedBlock], indent string) {
	e := &emitter{w: w, graph: graph, indent: indent}
	e.block(0, 0)
}

func (e *emitter) write(depth int, format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	prefix := strings.Repeat(e.indent, depth)
	_, e.err = fmt.Fprintf(e.w, prefix+format+"\n", args...)
}

func (e *emitter) get(tok BlockToken) *ResolvedBlock {
	rb, ok := e.graph.Get(tok)
	if !ok {
		panic("decompiler: structural invariant violated: emitter reached an unresolved token")
	}
	return rb
}

func (e *emitter) statements(body []Instr, depth int) {
	for _, stmt := range body {
		e.statement(stmt, depth)
	}
}

func (e *emitter) statement(stmt Instr, depth int) {
	switch s := stmt.(type) {
	case StoreFast:
		e.write(depth, "%s = %s", s.Name, e.expr(s.Value))
	case StoreGlobal:
		e.write(depth, "%s = %s", s.Name, e.expr(s.Value))
	case CallInstr:
		e.write(depth, "%s", e.expr(DerivedItem{Stmt: s}))
	default:
		// Any other Instr reaching statement position (a bare binary op,
		// compare, etc. with no surrounding store) is emitted as-is; the
		// decoder's opcode subset never actually produces one, but this
		// keeps the emitter total over Instr rather than panicking.
		e.write(depth, "%s", e.exprInstr(s))
	}
}

// block recurses into tok, emitting it and (depending on its tag) whatever
// follows it.
func (e *emitter) block(tok BlockToken, depth int) {
	if e.err != nil {
		return
	}
	rb := e.get(tok)

	switch t := rb.Tag.(type) {
	case FallsThroughP:
		e.statements(rb.Body, depth)
		e.block(t.To, depth)

	case BreaksP:
		e.statements(rb.Body, depth)
		e.write(depth, "break")

	case ContinuesP:
		e.statements(rb.Body, depth)
		e.write(depth, "continue")

	case WhileHeadP:
		e.statements(rb.Body, depth)
		e.write(depth, "while %s:", e.expr(t.Cond))
		e.loopBody(tok, t.Body, depth+1)
		e.block(t.After, depth)

	case BareIfP:
		e.statements(rb.Body, depth)
		e.write(depth, "if %s:", e.expr(t.Cond))
		e.block(t.Body, depth+1)
		e.block(t.After, depth)

	case IfElseP:
		e.statements(rb.Body, depth)
		e.ifElseChain(t.Cond, t.Then, t.Else, depth)
		e.block(t.After, depth)

	case ForLoopP:
		e.statements(rb.Body, depth)
		store, ok := t.Assignment.(StoreFast)
		if !ok {
			panic("decompiler: structural invariant violated: for loop assignment is not a local store")
		}
		iter := ""
		if next, ok := store.Value.(DerivedItem); ok {
			if fin, ok := next.Stmt.(ForIterNextInstr); ok {
				iter = e.expr(fin.Iter)
			}
		}
		e.write(depth, "for %s in %s:", store.Name, iter)
		e.loopBody(tok, t.Body, depth+1)
		e.block(t.After, depth)

	case ReturnsP:
		e.statements(rb.Body, depth)
		if expr := e.expr(t.Value); expr != "" {
			e.write(depth, "return %s", expr)
		} else {
			e.write(depth, "return")
		}

	case PassesP:
		e.statements(rb.Body, depth)

	default:
		panic("decompiler: structural invariant violated: unrecognised pseudo-AST tag")
	}
}

// loopBody emits a while/for loop's body, starting at bodyTok, whose
// enclosing loop head is headTok. A loop body's own natural last block
// always ends in a jump back to headTok — resolve() has no way to tell that
// apart from a genuine `continue` statement, since both compile to the same
// jump-backward. Only a ContinuesP at bodyTok itself (a body that is a
// single block) is treated as the implicit end-of-iteration edge and emitted
// without `continue`; every other ContinuesP, including the last block of a
// body that spans several blocks, recurses normally and renders as
// `continue`.
func (e *emitter) loopBody(headTok, bodyTok BlockToken, depth int) {
	rb := e.get(bodyTok)
	if cp, ok := rb.Tag.(ContinuesP); ok && cp.To == headTok {
		e.statements(rb.Body, depth)
		return
	}
	e.block(bodyTok, depth)
}

// ifElseChain emits `if`/`elif`/`else` without re-emitting the shared After
// block, which the caller emits exactly once.
func (e *emitter) ifElseChain(cond StackItem, then, els BlockToken, depth int) {
	e.write(depth, "if %s:", e.expr(cond))
	e.block(then, depth+1)
	e.elseBranch(els, depth)
}

func (e *emitter) elseBranch(els BlockToken, depth int) {
	rb := e.get(els)
	switch t := rb.Tag.(type) {
	case BareIfP:
		e.statements(rb.Body, depth)
		e.write(depth, "elif %s:", e.expr(t.Cond))
		e.block(t.Body, depth+1)
		// a bare elif with no further else: nothing more to chain
	case IfElseP:
		e.statements(rb.Body, depth)
		e.write(depth, "elif %s:", e.expr(t.Cond))
		e.block(t.Then, depth+1)
		e.elseBranch(t.Else, depth)
	default:
		e.write(depth, "else:")
		e.block(els, depth+1)
	}
}

// expr renders a stack item as it would appear inline in recovered source.
// Per spec.md Open Question 3, this package always fully parenthesizes a
// derived sub-expression rather than maintaining an operator-precedence
// table: the output is always unambiguous, even where a human author would
// have omitted a pair of parentheses.
func (e *emitter) expr(item StackItem) string {
	switch v := item.(type) {
	case LocalItem:
		return string(v.Name)
	case GlobalItem:
		return string(v.Name)
	case ConstItem:
		return v.Value.SourceText()
	case NullItem, DummyIterItem:
		return ""
	case DerivedItem:
		return e.exprInstr(v.Stmt)
	default:
		return ""
	}
}

func (e *emitter) exprInstr(instr Instr) string {
	switch s := instr.(type) {
	case BinaryOpInstr:
		return fmt.Sprintf("(%s %s %s)", e.expr(s.Lhs), s.Op, e.expr(s.Rhs))
	case CompareOpInstr:
		return fmt.Sprintf("(%s %s %s)", e.expr(s.Lhs), s.Kind, e.expr(s.Rhs))
	case ToBoolInstr:
		return e.expr(s.Value)
	case GetIterInstr:
		return e.expr(s.Value)
	case ForIterNextInstr:
		return e.expr(s.Iter)
	case CallInstr:
		if _, ok := s.Obj.(NullItem); !ok {
			panic("decompiler: structural invariant violated: method call with a non-null receiver is unreachable with this opcode subset")
		}
		args := make([]string, len(s.Args))
		for i, a := range s.Args {
			args[i] = e.expr(a)
		}
		return fmt.Sprintf("%s(%s)", e.expr(s.Meth), strings.Join(args, ", "))
	case StoreFast:
		return fmt.Sprintf("%s = %s", s.Name, e.expr(s.Value))
	case StoreGlobal:
		return fmt.Sprintf("%s = %s", s.Name, e.expr(s.Value))
	default:
		return ""
	}
}
