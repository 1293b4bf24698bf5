package decompiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestThenElse covers thenElse's per-kind polarity directly (spec.md Open
// Question 1): pop_jump_if_false is the one kind where Met plays "else"
// rather than "then", since it is the only one of the four whose jump fires
// on the *negative* test.
func TestThenElse(t *testing.T) {
	const met, otherwise BlockToken = 10, 20

	cases := []struct {
		kind     JumpKind
		then, el BlockToken
	}{
		{JumpIfFalse, otherwise, met},
		{JumpIfTrue, met, otherwise},
		{JumpIfNone, met, otherwise},
		{JumpIfNotNone, met, otherwise},
	}

	for _, c := range cases {
		then, els := thenElse(c.kind, met, otherwise)
		require.Equal(t, c.then, then, "kind %v then", c.kind)
		require.Equal(t, c.el, els, "kind %v else", c.kind)
	}
}

// TestDecompileBareIfPerJumpKind exercises resolveConditional's bare-if
// fallback through the full pipeline once per pop_jump_if_* opcode, not just
// thenElse in isolation: each program's jump-taken branch recovers `return
// 1` and its fall-through branch recovers `return 2`, despite the four
// opcodes disagreeing on which physical branch is which.
func TestDecompileBareIfPerJumpKind(t *testing.T) {
	locals := []Name{"x"}
	consts := []*Constant{
		{Kind: ConstInt, Int: 1},
		{Kind: ConstInt, Int: 2},
	}
	want := "if x:\n\treturn 1\nreturn 2\n"

	cases := []struct {
		name string
		code []byte
	}{
		{
			// pop_jump_if_false: jump (to "return 2") fires when x is falsy,
			// so the fall-through holds "return 1".
			name: "pop_jump_if_false",
			code: []byte{149, 0, 83, 0, 39, 0, 97, 1, 81, 0, 35, 0, 81, 1, 35, 0},
		},
		{
			// pop_jump_if_true: jump (to "return 1") fires when x is truthy,
			// so the fall-through holds "return 2".
			name: "pop_jump_if_true",
			code: []byte{149, 0, 83, 0, 39, 0, 100, 1, 81, 1, 35, 0, 81, 0, 35, 0},
		},
		{
			// pop_jump_if_none: jump (to "return 1") fires when x is None.
			name: "pop_jump_if_none",
			code: []byte{149, 0, 83, 0, 98, 1, 81, 1, 35, 0, 81, 0, 35, 0},
		},
		{
			// pop_jump_if_not_none: jump (to "return 1") fires when x is not None.
			name: "pop_jump_if_not_none",
			code: []byte{149, 0, 83, 0, 99, 1, 81, 1, 35, 0, 81, 0, 35, 0},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, Decompile(&sb, c.code, locals, nil, consts))
			require.Equal(t, want, sb.String())
		})
	}
}
