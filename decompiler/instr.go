// Package decompiler recovers indented pseudo-source from a single
// CPython-flavored stack-machine function body: a decoder, a block builder,
// a symbolic evaluator, a CFG resolver and an emitter, chained together by
// Decompile.
package decompiler

import "fmt"

// Opcode identifies a decoded instruction kind. Values match the CPython
// bytecode numbering for the subset this package understands; any other
// byte value makes Decode fail with a ParseError.
type Opcode uint8

const ( //nolint:revive
	OpCache              Opcode = 0
	OpEndFor             Opcode = 9
	OpGetIter            Opcode = 16
	OpMakeFunction       Opcode = 23
	OpNop                Opcode = 27
	OpNotTaken           Opcode = 28
	OpPopIter            Opcode = 30
	OpPopTop             Opcode = 31
	OpReturnValue        Opcode = 35
	OpToBool             Opcode = 39
	OpBinaryOp           Opcode = 44
	OpCall               Opcode = 51
	OpCompareOp          Opcode = 56
	OpExtendedArg        Opcode = 68
	OpForIter            Opcode = 69
	OpJumpBackward       Opcode = 74
	OpJumpForward        Opcode = 76
	OpLoadConst          Opcode = 81
	OpLoadFast           Opcode = 83
	OpLoadFastCheck      Opcode = 85
	OpLoadGlobal         Opcode = 89
	OpLoadSmallInt       Opcode = 91
	OpPopJumpIfFalse     Opcode = 97
	OpPopJumpIfNone      Opcode = 98
	OpPopJumpIfNotNone   Opcode = 99
	OpPopJumpIfTrue      Opcode = 100
	OpStoreFast          Opcode = 109
	OpStoreGlobal        Opcode = 112
	OpResume             Opcode = 149
)

var opcodeNames = map[Opcode]string{
	OpCache:            "cache",
	OpEndFor:           "end_for",
	OpGetIter:          "get_iter",
	OpMakeFunction:     "make_function",
	OpNop:              "nop",
	OpNotTaken:         "not_taken",
	OpPopIter:          "pop_iter",
	OpPopTop:           "pop_top",
	OpReturnValue:      "return_value",
	OpToBool:           "to_bool",
	OpBinaryOp:         "binary_op",
	OpCall:             "call",
	OpCompareOp:        "compare_op",
	OpExtendedArg:      "extended_arg",
	OpForIter:          "for_iter",
	OpJumpBackward:     "jump_backward",
	OpJumpForward:      "jump_forward",
	OpLoadConst:        "load_const",
	OpLoadFast:         "load_fast",
	OpLoadFastCheck:    "load_fast_check",
	OpLoadGlobal:       "load_global",
	OpLoadSmallInt:     "load_small_int",
	OpPopJumpIfFalse:   "pop_jump_if_false",
	OpPopJumpIfNone:    "pop_jump_if_none",
	OpPopJumpIfNotNone: "pop_jump_if_not_none",
	OpPopJumpIfTrue:    "pop_jump_if_true",
	OpStoreFast:        "store_fast",
	OpStoreGlobal:      "store_global",
	OpResume:           "resume",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// isKnownOpcode reports whether op is part of the supported subset.
func isKnownOpcode(op Opcode) bool {
	_, ok := opcodeNames[op]
	return ok
}

// RawInstruction is a single decoded (opcode, arg) pair, already folded with
// any preceding extended_arg prefix.
type RawInstruction struct {
	Op  Opcode
	Arg int16
}

// Jump reports the relative slot delta of this instruction's jump target, if
// it has one. The target slot is index+1+delta, where index is this
// instruction's position in the decoded stream.
func (r RawInstruction) Jump() (delta int, ok bool) {
	switch r.Op {
	case OpJumpForward, OpForIter,
		OpPopJumpIfFalse, OpPopJumpIfNone, OpPopJumpIfNotNone, OpPopJumpIfTrue:
		return int(r.Arg) + 1, true
	case OpJumpBackward:
		return -int(r.Arg) + 2, true
	default:
		return 0, false
	}
}

// IsCondJump reports whether r has two successors: a taken branch and a
// fall-through branch.
func (r RawInstruction) IsCondJump() bool {
	switch r.Op {
	case OpForIter, OpPopJumpIfFalse, OpPopJumpIfNone, OpPopJumpIfNotNone, OpPopJumpIfTrue:
		return true
	default:
		return false
	}
}

// IsNop reports whether r has no effect on the operand stack or control
// flow and can be dropped from a block's recovered body.
func (r RawInstruction) IsNop() bool {
	switch r.Op {
	case OpCache, OpNotTaken, OpNop:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether r ends a basic block: any jump, or a return.
func (r RawInstruction) IsTerminal() bool {
	if _, ok := r.Jump(); ok {
		return true
	}
	return r.Op == OpReturnValue
}

// JumpKind identifies which of the four pop_jump_if_* tests produced a
// ConditionalJumpTag, used to derive then/else branch labels.
type JumpKind int

const (
	JumpIfFalse JumpKind = iota
	JumpIfTrue
	JumpIfNone
	JumpIfNotNone
)

func jumpKindFor(op Opcode) (JumpKind, bool) {
	switch op {
	case OpPopJumpIfFalse:
		return JumpIfFalse, true
	case OpPopJumpIfTrue:
		return JumpIfTrue, true
	case OpPopJumpIfNone:
		return JumpIfNone, true
	case OpPopJumpIfNotNone:
		return JumpIfNotNone, true
	default:
		return 0, false
	}
}

// ArithOp identifies one of the thirteen binary arithmetic operators binary_op
// can carry, independent of its plain/in-place form.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithFloorDiv
	ArithMod
	ArithMatMul
	ArithPow
	ArithLShift
	ArithRShift
	ArithAnd
	ArithOr
	ArithXor
)

var arithOpSymbols = map[ArithOp]string{
	ArithAdd:      "+",
	ArithSub:      "-",
	ArithMul:      "*",
	ArithDiv:      "/",
	ArithFloorDiv: "//",
	ArithMod:      "%",
	ArithMatMul:   "@",
	ArithPow:      "**",
	ArithLShift:   "<<",
	ArithRShift:   ">>",
	ArithAnd:      "&",
	ArithOr:       "|",
	ArithXor:      "^",
}

func (a ArithOp) String() string { return arithOpSymbols[a] }

type binaryOpInfo struct {
	op      ArithOp
	inPlace bool
}

// binaryOpTable maps a binary_op argument byte to its arithmetic operator and
// whether it is the in-place (augmented-assignment) form.
var binaryOpTable = map[int16]binaryOpInfo{
	0:  {ArithAdd, false},
	13: {ArithAdd, true},
	10: {ArithSub, false},
	23: {ArithSub, true},
	5:  {ArithMul, false},
	18: {ArithMul, true},
	11: {ArithDiv, false},
	24: {ArithDiv, true},
	2:  {ArithFloorDiv, false},
	15: {ArithFloorDiv, true},
	6:  {ArithMod, false},
	19: {ArithMod, true},
	4:  {ArithMatMul, false},
	17: {ArithMatMul, true},
	8:  {ArithPow, false},
	21: {ArithPow, true},
	3:  {ArithLShift, false},
	16: {ArithLShift, true},
	9:  {ArithRShift, false},
	22: {ArithRShift, true},
	1:  {ArithAnd, false},
	14: {ArithAnd, true},
	7:  {ArithOr, false},
	20: {ArithOr, true},
	12: {ArithXor, false},
	25: {ArithXor, true},
}

// CompareKind identifies the relation tested by a compare_op instruction.
type CompareKind int

const (
	CompareLT CompareKind = iota
	CompareLE
	CompareEQ
	CompareNE
	CompareGT
	CompareGE
)

var compareKindSymbols = map[CompareKind]string{
	CompareLT: "<",
	CompareLE: "<=",
	CompareEQ: "==",
	CompareNE: "!=",
	CompareGT: ">",
	CompareGE: ">=",
}

func (c CompareKind) String() string { return compareKindSymbols[c] }

// decodeCompareOp splits a compare_op argument byte into its relation and
// the force-to-bool flag (bit 4).
func decodeCompareOp(arg int16) (kind CompareKind, forceBool bool, ok bool) {
	forceBool = arg&0x10 != 0
	kindIdx := (arg >> 5) & 0x7
	if kindIdx > int16(CompareGE) {
		return 0, false, false
	}
	return CompareKind(kindIdx), forceBool, true
}

// decodeNameArg splits a load_global/load_fast/load_fast_check argument into
// the push-null flag (low bit) and the name-table index (remaining bits).
func decodeNameArg(arg int16) (pushNull bool, idx int) {
	return arg&1 != 0, int(arg >> 1)
}
