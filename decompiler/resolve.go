package decompiler

// PseudoASTTag is the structural role the CFG resolver assigns to a block,
// consumed by the emitter. It is a distinct type from ControlFlowTag: the
// resolver adds information (loop/if-else shape, join points) that the
// evaluator has no way to know on a single-block view.
type PseudoASTTag interface {
	pseudoASTTag()
}

// FallsThroughP carries a falls-through block's body straight into To.
type FallsThroughP struct{ To BlockToken }

// BreaksP is a forward jump out of an enclosing loop.
type BreaksP struct{ To BlockToken }

// ContinuesP is a backward jump to an enclosing loop's head.
type ContinuesP struct{ To BlockToken }

// WhileHeadP is a conditional jump recognised as a while loop's test.
type WhileHeadP struct {
	Cond       StackItem
	Body       BlockToken
	After      BlockToken
}

// BareIfP is a conditional jump recognised as an if with no else.
type BareIfP struct {
	Cond  StackItem
	Body  BlockToken
	After BlockToken
}

// IfElseP is a conditional jump recognised as an if with an else (possibly
// chained into elif by the emitter, if Else itself resolves to BareIfP or
// IfElseP).
type IfElseP struct {
	Cond  StackItem
	Then  BlockToken
	Else  BlockToken
	After BlockToken
}

// ForLoopP is a for_iter recognised as a for loop.
type ForLoopP struct {
	Assignment Instr
	Body       BlockToken
	After      BlockToken
}

// ReturnsP carries a return statement; Value is NullItem for an implicit
// (argument-less) return.
type ReturnsP struct{ Value StackItem }

// PassesP marks a join point of an if-else: the block's own body is emitted
// in place, with no further recursion, because the if-else handler already
// emits its After block exactly once.
type PassesP struct{}

func (FallsThroughP) pseudoASTTag() {}
func (BreaksP) pseudoASTTag()       {}
func (ContinuesP) pseudoASTTag()    {}
func (WhileHeadP) pseudoASTTag()    {}
func (BareIfP) pseudoASTTag()       {}
func (IfElseP) pseudoASTTag()       {}
func (ForLoopP) pseudoASTTag()      {}
func (ReturnsP) pseudoASTTag()      {}
func (PassesP) pseudoASTTag()       {}

// ResolvedBlock is a block's recovered body plus its structural role.
type ResolvedBlock struct {
	Body []Instr
	Tag  PseudoASTTag
}

type resolver struct {
	in  *blockMap[*AnnotatedBlock]
	out *blockMap[*ResolvedBlock]
}

// ResolveAll classifies every block the evaluator produced. The output has
// the same key set as the input: every block the evaluator visited gets a
// resolved tag, even when that tag is later overridden to PassesP by an
// enclosing if-else.
func ResolveAll(annotated *blockMap[*AnnotatedBlock]) *blockMap[*ResolvedBlock] {
	r := &resolver{in: annotated, out: newBlockMap[*ResolvedBlock](annotated.Len())}
	for _, tok := range annotated.Keys() {
		r.resolve(tok)
	}
	return r.out
}

func (r *resolver) resolve(tok BlockToken) *ResolvedBlock {
	if rb, ok := r.out.Get(tok); ok {
		return rb
	}
	ab, ok := r.in.Get(tok)
	if !ok {
		panic("decompiler: structural invariant violated: resolver visited an unknown token")
	}

	var tag PseudoASTTag
	switch t := ab.Tag.(type) {
	case FallsThroughTag:
		tag = FallsThroughP{To: t.To}
	case JumpForwardTag:
		tag = BreaksP{To: t.To}
	case JumpBackTag:
		tag = ContinuesP{To: t.To}
	case ReturnsTag:
		tag = ReturnsP{Value: t.Value}
	case ForIterTag:
		tag = ForLoopP{Assignment: t.Assignment, Body: t.Found, After: t.Exhausted}
	case ConditionalJumpTag:
		tag = r.resolveConditional(tok, t)
	case DummyTag:
		panic("decompiler: structural invariant violated: dummy tag reached the resolver")
	default:
		panic("decompiler: structural invariant violated: unrecognised control-flow tag")
	}

	rb := &ResolvedBlock{Body: ab.Body, Tag: tag}
	r.out.Put(tok, rb)
	return rb
}

// thenElse derives which physical branch plays the "then" (condition holds)
// role and which plays "else", from first principles per comparison kind
// rather than mirroring the polarity the original Rust resolver happened to
// use for every kind uniformly (spec.md Open Question 1; see DESIGN.md).
// "Met" is the branch taken when the named test succeeds; for pop_jump_if_false
// that is the failure branch, so Met plays "else" there and "then" everywhere
// else.
func thenElse(kind JumpKind, met, otherwise BlockToken) (then, els BlockToken) {
	if kind == JumpIfFalse {
		return otherwise, met
	}
	return met, otherwise
}

func (r *resolver) resolveConditional(tok BlockToken, t ConditionalJumpTag) PseudoASTTag {
	// 1. While-loop detection: does otherwise (or a block reachable from it,
	// without crossing a jump-back) jump back to this very block?
	visited := make(blockSet)
	if jb, ok := r.searchJumpBack(t.Otherwise, tok, visited); ok {
		// If otherwise itself is the block jumping back (an empty loop body),
		// the body is the other branch instead, and otherwise is the exit.
		body, after := t.Otherwise, t.Met
		if jb == t.Otherwise {
			body, after = t.Met, t.Otherwise
		}
		return WhileHeadP{Cond: t.Cond, Body: body, After: after}
	}

	// 2. If-else detection: a forward-jump join reachable from one branch
	// that the other branch also reaches via a forward jump or fall-through.
	if join, ok := r.findIfElseJoin(t.Met, t.Otherwise); ok {
		then, els := thenElse(t.Kind, t.Met, t.Otherwise)
		passes := make(blockSet)
		r.markPasses(then, join, passes)
		r.markPasses(els, join, passes)
		for p := range passes {
			// Force these blocks' own resolution to PassesP: resolve them now
			// (if not already resolved) so the generic switch above never
			// gets a chance to tag them Breaks/FallsThrough instead.
			if ab, ok := r.in.Get(p); ok {
				r.out.Put(p, &ResolvedBlock{Body: ab.Body, Tag: PassesP{}})
			}
		}
		return IfElseP{Cond: t.Cond, Then: then, Else: els, After: join}
	}

	// 3. Fallback: a plain if with no else.
	body, after := thenElse(t.Kind, t.Met, t.Otherwise)
	return BareIfP{Cond: t.Cond, Body: body, After: after}
}

// searchJumpBack looks for a block reachable from start (via fall-through,
// unconditional-forward, conditional or for-iter edges, never crossing a
// jump-back) whose own tag is a jump back to target. It returns the token of
// that block.
func (r *resolver) searchJumpBack(start, target BlockToken, visited blockSet) (BlockToken, bool) {
	if visited.Has(start) {
		return 0, false
	}
	visited.Add(start)
	ab, ok := r.in.Get(start)
	if !ok {
		return 0, false
	}
	switch t := ab.Tag.(type) {
	case JumpBackTag:
		if t.To == target {
			return start, true
		}
		return 0, false
	case FallsThroughTag:
		return r.searchJumpBack(t.To, target, visited)
	case JumpForwardTag:
		return r.searchJumpBack(t.To, target, visited)
	case ConditionalJumpTag:
		if tok, ok := r.searchJumpBack(t.Met, target, visited); ok {
			return tok, true
		}
		return r.searchJumpBack(t.Otherwise, target, visited)
	case ForIterTag:
		if tok, ok := r.searchJumpBack(t.Found, target, visited); ok {
			return tok, true
		}
		return r.searchJumpBack(t.Exhausted, target, visited)
	default:
		return 0, false
	}
}

// findIfElseJoin looks, symmetrically, for a block reachable from one of a,
// b with tag JumpForward(j) such that j is also reachable (via fall-through
// or forward jump) from the other.
func (r *resolver) findIfElseJoin(a, b BlockToken) (BlockToken, bool) {
	if j, ok := r.findForwardTarget(a, b); ok {
		return j, true
	}
	return r.findForwardTarget(b, a)
}

func (r *resolver) findForwardTarget(from, other BlockToken) (BlockToken, bool) {
	visited := make(blockSet)
	var walk func(tok BlockToken) (BlockToken, bool)
	walk = func(tok BlockToken) (BlockToken, bool) {
		if visited.Has(tok) {
			return 0, false
		}
		visited.Add(tok)
		ab, ok := r.in.Get(tok)
		if !ok {
			return 0, false
		}
		if jf, ok := ab.Tag.(JumpForwardTag); ok {
			if r.reachesViaFallOrForward(other, jf.To, make(blockSet)) {
				return jf.To, true
			}
		}
		switch t := ab.Tag.(type) {
		case FallsThroughTag:
			return walk(t.To)
		case JumpForwardTag:
			return walk(t.To)
		case ConditionalJumpTag:
			if j, ok := walk(t.Met); ok {
				return j, true
			}
			return walk(t.Otherwise)
		case ForIterTag:
			if j, ok := walk(t.Found); ok {
				return j, true
			}
			return walk(t.Exhausted)
		default:
			return 0, false
		}
	}
	return walk(from)
}

func (r *resolver) reachesViaFallOrForward(start, target BlockToken, visited blockSet) bool {
	if visited.Has(start) {
		return false
	}
	visited.Add(start)
	ab, ok := r.in.Get(start)
	if !ok {
		return false
	}
	switch t := ab.Tag.(type) {
	case FallsThroughTag:
		if t.To == target {
			return true
		}
		return r.reachesViaFallOrForward(t.To, target, visited)
	case JumpForwardTag:
		if t.To == target {
			return true
		}
		return r.reachesViaFallOrForward(t.To, target, visited)
	case ConditionalJumpTag:
		return r.reachesViaFallOrForward(t.Met, target, visited) || r.reachesViaFallOrForward(t.Otherwise, target, visited)
	case ForIterTag:
		return r.reachesViaFallOrForward(t.Found, target, visited) || r.reachesViaFallOrForward(t.Exhausted, target, visited)
	default:
		return false
	}
}

// markPasses records every block reachable from start (same edge rules,
// never crossing a jump-back) whose own tag targets target via a forward
// jump or fall-through, without continuing past a match.
func (r *resolver) markPasses(start, target BlockToken, out blockSet) {
	visited := make(blockSet)
	var walk func(tok BlockToken)
	walk = func(tok BlockToken) {
		if visited.Has(tok) {
			return
		}
		visited.Add(tok)
		ab, ok := r.in.Get(tok)
		if !ok {
			return
		}
		switch t := ab.Tag.(type) {
		case JumpForwardTag:
			if t.To == target {
				out.Add(tok)
				return
			}
			walk(t.To)
		case FallsThroughTag:
			if t.To == target {
				out.Add(tok)
				return
			}
			walk(t.To)
		case ConditionalJumpTag:
			walk(t.Met)
			walk(t.Otherwise)
		case ForIterTag:
			walk(t.Found)
			walk(t.Exhausted)
		}
	}
	walk(start)
}
