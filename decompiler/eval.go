package decompiler

// ControlFlowTag is the per-block classification the symbolic evaluator
// attaches to an AnnotatedBlock: what this block's terminal instruction
// means, with its operands already resolved to stack items. The CFG
// resolver re-tags each of these into a PseudoASTTag; the two are kept as
// distinct types (see DESIGN.md) because they serve different stages and
// carry different shapes of information.
type ControlFlowTag interface {
	controlFlowTag()
}

// FallsThroughTag means the block simply continues at To, with no
// instruction of its own causing the transfer.
type FallsThroughTag struct{ To BlockToken }

// JumpBackTag means the block ends in an unconditional backward jump.
type JumpBackTag struct{ To BlockToken }

// JumpForwardTag means the block ends in an unconditional forward jump.
type JumpForwardTag struct{ To BlockToken }

// ConditionalJumpTag means the block ends in one of the four pop_jump_if_*
// tests.
type ConditionalJumpTag struct {
	Kind           JumpKind
	Cond           StackItem
	Met, Otherwise BlockToken
}

// ForIterTag means the block ends in a for_iter test. Assignment is the
// loop variable's store, lifted out of Found's recovered body.
type ForIterTag struct {
	Assignment        Instr
	Found, Exhausted BlockToken
}

// ReturnsTag means the block ends in return_value.
type ReturnsTag struct{ Value StackItem }

// DummyTag marks a block the evaluator never actually classified; seeing one
// reach the resolver is a structural-invariant violation.
type DummyTag struct{}

func (FallsThroughTag) controlFlowTag()    {}
func (JumpBackTag) controlFlowTag()        {}
func (JumpForwardTag) controlFlowTag()     {}
func (ConditionalJumpTag) controlFlowTag() {}
func (ForIterTag) controlFlowTag()         {}
func (ReturnsTag) controlFlowTag()         {}
func (DummyTag) controlFlowTag()           {}

// AnnotatedBlock is a basic block's recovered statements plus its
// control-flow classification.
type AnnotatedBlock struct {
	Body []Instr
	Tag  ControlFlowTag
}

type evaluator struct {
	blocks  *blockMap[*BasicBlock]
	locals  []Name
	globals []Name
	consts  []*Constant

	memo     *blockMap[*AnnotatedBlock]
	visiting blockSet
}

// EvalInstructions walks blocks from its root token (0), recovering each
// block's statements and its control-flow tag. Each block is visited at most
// once: a memo table records finished blocks, and a visiting set breaks
// cycles formed by backward jumps (a loop header reached again via its own
// body's jump-back, before the header's own call has finished) without
// re-running them.
func EvalInstructions(blocks *blockMap[*BasicBlock], locals, globals []Name, consts []*Constant) (*blockMap[*AnnotatedBlock], error) {
	e := &evaluator{
		blocks:   blocks,
		locals:   locals,
		globals:  globals,
		consts:   consts,
		memo:     newBlockMap[*AnnotatedBlock](blocks.Len()),
		visiting: make(blockSet, blocks.Len()),
	}
	if err := e.eval(0, nil); err != nil {
		return nil, err
	}
	return e.memo, nil
}

func (e *evaluator) eval(tok BlockToken, stack []StackItem) error {
	if e.memo.Has(tok) || e.visiting.Has(tok) {
		return nil
	}
	e.visiting.Add(tok)

	bb, ok := e.blocks.Get(tok)
	if !ok {
		return &EvalError{Kind: ErrWrongSuccessorArity, Token: tok, Detail: "no block for token"}
	}

	st := append([]StackItem(nil), stack...)
	var body []Instr
	n := len(bb.Instrs)
	hasTerminal := n > 0 && bb.Instrs[n-1].IsTerminal()

	limit := n
	if hasTerminal {
		limit = n - 1
	}
	for i := 0; i < limit; i++ {
		var err error
		st, body, err = e.step(tok, bb.Instrs[i], st, body)
		if err != nil {
			return err
		}
	}

	if !hasTerminal {
		lt, ok := bb.Succ.(LeadsTo)
		if !ok {
			if _, empty := bb.Succ.(Diverges); empty && n == 0 {
				// Empty buffer boundary case: a block with no instructions at
				// all and nothing to return. Modelled as an implicit `return`
				// of nothing.
				e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: ReturnsTag{Value: NullItem{}}})
				return nil
			}
			panic("decompiler: structural invariant violated: non-terminal block without a fall-through successor")
		}
		e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: FallsThroughTag{To: lt.Target}})
		return e.eval(lt.Target, st)
	}

	term := bb.Instrs[n-1]

	switch {
	case term.Op == OpReturnValue:
		if len(st) == 0 {
			return &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "return_value"}
		}
		val := st[len(st)-1]
		if _, ok := bb.Succ.(Diverges); !ok {
			return &EvalError{Kind: ErrWrongSuccessorArity, Token: tok, Detail: "return_value block must diverge"}
		}
		e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: ReturnsTag{Value: val}})
		return nil

	case term.Op == OpForIter:
		return e.evalForIter(tok, bb, st, body)

	case term.IsCondJump():
		cj, ok := bb.Succ.(CondJump)
		if !ok {
			return &EvalError{Kind: ErrWrongSuccessorArity, Token: tok, Detail: "conditional jump"}
		}
		if len(st) == 0 {
			return &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "pop_jump_if_*"}
		}
		cond := st[len(st)-1]
		st = st[:len(st)-1]
		kind, ok := jumpKindFor(term.Op)
		if !ok {
			return &EvalError{Kind: ErrWrongSuccessorArity, Token: tok, Detail: "unrecognised conditional jump opcode"}
		}
		e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: ConditionalJumpTag{Kind: kind, Cond: cond, Met: cj.Met, Otherwise: cj.Otherwise}})
		if err := e.eval(cj.Met, st); err != nil {
			return err
		}
		return e.eval(cj.Otherwise, st)

	case term.Op == OpJumpForward:
		lt, ok := bb.Succ.(LeadsTo)
		if !ok {
			// Self-loop (Diverges) via an unconditional forward jump: no
			// successor outside the block, nothing further to visit.
			e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: JumpForwardTag{To: BlockToken(bb.jumpTarget)}})
			return nil
		}
		e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: JumpForwardTag{To: lt.Target}})
		return e.eval(lt.Target, st)

	case term.Op == OpJumpBackward:
		target := BlockToken(bb.jumpTarget)
		e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: JumpBackTag{To: target}})
		return e.eval(target, st)

	default:
		panic("decompiler: structural invariant violated: terminal instruction not recognised")
	}
}

// evalForIter handles a for_iter terminal: it pops the iterator, then
// eagerly evaluates the loop body (the found branch) one level deep with an
// augmented stack, lifting the body's first recovered statement out as the
// loop's assignment before continuing past the loop into the exhausted
// branch.
func (e *evaluator) evalForIter(tok BlockToken, bb *BasicBlock, st []StackItem, body []Instr) error {
	cj, ok := bb.Succ.(CondJump)
	if !ok {
		return &EvalError{Kind: ErrWrongSuccessorArity, Token: tok, Detail: "for_iter"}
	}
	if len(st) == 0 {
		return &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "for_iter"}
	}
	iter := st[len(st)-1]
	st = st[:len(st)-1]

	exhausted := cj.Met
	found := cj.Otherwise

	augmented := append(append([]StackItem(nil), st...), DummyIterItem{}, DerivedItem{Stmt: ForIterNextInstr{Iter: iter}})
	if err := e.eval(found, augmented); err != nil {
		return err
	}

	foundAB, ok := e.memo.Get(found)
	if !ok {
		// found was already "visiting" (an ancestor of tok itself, an
		// unreachable shape for a well-formed for loop) rather than finished.
		return &EvalError{Kind: ErrMissingLoopAssignment, Token: tok, Detail: "for loop body never recovered"}
	}
	if len(foundAB.Body) == 0 {
		return &EvalError{Kind: ErrMissingLoopAssignment, Token: tok}
	}
	assignment := foundAB.Body[0]
	if _, ok := assignment.(StoreFast); !ok {
		return &EvalError{Kind: ErrMissingLoopAssignment, Token: tok, Detail: "first statement is not a local store"}
	}
	foundAB.Body = foundAB.Body[1:]

	e.memo.Put(tok, &AnnotatedBlock{Body: body, Tag: ForIterTag{Assignment: assignment, Found: found, Exhausted: exhausted}})
	return e.eval(exhausted, st)
}

// step applies one non-terminal instruction's stack effect, per §4.3.
func (e *evaluator) step(tok BlockToken, instr RawInstruction, stack []StackItem, body []Instr) ([]StackItem, []Instr, error) {
	pop := func() (StackItem, error) {
		if len(stack) == 0 {
			return nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: instr.Op.String()}
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	switch instr.Op {
	case OpLoadConst:
		if int(instr.Arg) < 0 || int(instr.Arg) >= len(e.consts) {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "load_const index out of range"}
		}
		stack = append(stack, ConstItem{Value: e.consts[instr.Arg]})

	case OpLoadSmallInt:
		stack = append(stack, ConstItem{Value: &Constant{Kind: ConstInt, Int: int64(instr.Arg)}})

	case OpLoadGlobal:
		pushNull, idx := decodeNameArg(instr.Arg)
		if idx < 0 || idx >= len(e.globals) {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "load_global index out of range"}
		}
		if pushNull {
			stack = append(stack, NullItem{})
		}
		stack = append(stack, GlobalItem{Name: e.globals[idx]})

	case OpLoadFast, OpLoadFastCheck:
		pushNull, idx := decodeNameArg(instr.Arg)
		if idx < 0 || idx >= len(e.locals) {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "load_fast index out of range"}
		}
		if pushNull {
			stack = append(stack, NullItem{})
		}
		stack = append(stack, LocalItem{Name: e.locals[idx]})

	case OpStoreFast:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		if int(instr.Arg) < 0 || int(instr.Arg) >= len(e.locals) {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "store_fast index out of range"}
		}
		body = append(body, StoreFast{Name: e.locals[instr.Arg], Value: v})

	case OpStoreGlobal:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		if int(instr.Arg) < 0 || int(instr.Arg) >= len(e.globals) {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "store_global index out of range"}
		}
		body = append(body, StoreGlobal{Name: e.globals[instr.Arg], Value: v})

	case OpPopTop:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		if di, ok := v.(DerivedItem); ok {
			if call, ok := di.Stmt.(CallInstr); ok {
				body = append(body, call)
			}
		}

	case OpEndFor, OpPopIter:
		// for_iter already accounts for the iterator's removal from the
		// symbolic stack on both its found and exhausted edges (see
		// evalForIter), so these cleanup opcodes have nothing left to pop
		// here: they fold into that same removal rather than popping again.

	case OpGetIter:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		stack = append(stack, DerivedItem{Stmt: GetIterInstr{Value: v}})

	case OpToBool:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		stack = append(stack, DerivedItem{Stmt: ToBoolInstr{Value: v}})

	case OpBinaryOp:
		rhs, err := pop()
		if err != nil {
			return nil, nil, err
		}
		lhs, err := pop()
		if err != nil {
			return nil, nil, err
		}
		info, ok := binaryOpTable[instr.Arg]
		if !ok {
			return nil, nil, &EvalError{Kind: ErrInvalidBinaryOp, Token: tok}
		}
		stack = append(stack, DerivedItem{Stmt: BinaryOpInstr{Op: info.op, InPlace: info.inPlace, Lhs: lhs, Rhs: rhs}})

	case OpCompareOp:
		rhs, err := pop()
		if err != nil {
			return nil, nil, err
		}
		lhs, err := pop()
		if err != nil {
			return nil, nil, err
		}
		kind, forceBool, ok := decodeCompareOp(instr.Arg)
		if !ok {
			return nil, nil, &EvalError{Kind: ErrInvalidCompareOp, Token: tok}
		}
		stack = append(stack, DerivedItem{Stmt: CompareOpInstr{Kind: kind, ForceBool: forceBool, Lhs: lhs, Rhs: rhs}})

	case OpMakeFunction:
		v, err := pop()
		if err != nil {
			return nil, nil, err
		}
		ci, ok := v.(ConstItem)
		if !ok || ci.Value.Kind != ConstCode {
			return nil, nil, &EvalError{Kind: ErrInvalidMakeFunctionOperand, Token: tok}
		}
		// The resulting callable is not modelled explicitly at this layer.

	case OpCall:
		argc := int(instr.Arg)
		if argc < 0 || len(stack) < argc+2 {
			return nil, nil, &EvalError{Kind: ErrStackUnderflow, Token: tok, Detail: "call"}
		}
		args := make([]StackItem, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		meth := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, DerivedItem{Stmt: CallInstr{Obj: obj, Meth: meth, Args: args}})

	case OpResume, OpNop, OpCache, OpNotTaken:
		// no effect

	default:
		panic("decompiler: structural invariant violated: unclassified non-terminal opcode " + instr.Op.String())
	}

	return stack, body, nil
}
