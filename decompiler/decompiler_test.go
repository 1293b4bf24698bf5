package decompiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDecompileReturnExpr covers a straight-line body with no control flow:
// return x + 1.
func TestDecompileReturnExpr(t *testing.T) {
	code := []byte{149, 0, 83, 0, 81, 0, 44, 0, 35, 0}
	locals := []Name{"x"}
	consts := []*Constant{{Kind: ConstInt, Int: 1}}

	var sb strings.Builder
	require.NoError(t, Decompile(&sb, code, locals, nil, consts))
	require.Equal(t, "return (x + 1)\n", sb.String())
}

// TestDecompileBareIfBothReturn covers `if x: return 1` followed
// unconditionally by `return 2` — the idiomatic equivalent of an if/else
// where both arms return, so there is no join block and the resolver's
// if-else search correctly falls back to a bare if.
func TestDecompileBareIfBothReturn(t *testing.T) {
	code := []byte{149, 0, 83, 0, 39, 0, 97, 1, 81, 0, 35, 0, 81, 1, 35, 0}
	locals := []Name{"x"}
	consts := []*Constant{
		{Kind: ConstInt, Int: 1},
		{Kind: ConstInt, Int: 2},
	}

	var sb strings.Builder
	require.NoError(t, Decompile(&sb, code, locals, nil, consts))
	require.Equal(t, "if x:\n\treturn 1\nreturn 2\n", sb.String())
}

// TestDecompileForLoop covers a for loop over a local iterable whose body
// calls a global function, verifying the loop head's own implicit
// jump-backward is not rendered as a spurious trailing `continue`.
func TestDecompileForLoop(t *testing.T) {
	code := []byte{
		149, 0, 83, 0, 16, 0, 69, 5, 109, 1, 89, 1, 83, 2, 51, 1, 31, 0, 74, 9, 81, 0, 35, 0,
	}
	locals := []Name{"xs", "i"}
	globals := []Name{"print"}
	consts := []*Constant{{Kind: ConstNone}}

	var sb strings.Builder
	require.NoError(t, Decompile(&sb, code, locals, globals, consts))
	require.Equal(t, "for i in xs:\n\tprint(i)\nreturn None\n", sb.String())
}

func TestDecompileCustomIndent(t *testing.T) {
	code := []byte{149, 0, 83, 0, 39, 0, 97, 1, 81, 0, 35, 0, 81, 1, 35, 0}
	locals := []Name{"x"}
	consts := []*Constant{
		{Kind: ConstInt, Int: 1},
		{Kind: ConstInt, Int: 2},
	}

	var sb strings.Builder
	require.NoError(t, Decompile(&sb, code, locals, nil, consts, WithIndent("  ")))
	require.Equal(t, "if x:\n  return 1\nreturn 2\n", sb.String())
}

func TestDecompileOddByteCount(t *testing.T) {
	var sb strings.Builder
	err := Decompile(&sb, []byte{149}, nil, nil, nil)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecompileEmptyBody(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Decompile(&sb, nil, nil, nil, nil))
	require.Equal(t, "return\n", sb.String())
}
