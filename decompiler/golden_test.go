package decompiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/pybcdecomp/decompiler"
	"github.com/mna/pybcdecomp/internal/fixture"
	"github.com/mna/pybcdecomp/internal/golden"
)

// TestGoldenFixtures decompiles each testdata/*.json fixture and diffs the
// result against testdata/<name>.want, updated via
// -test.update-decompiler-tests. These are the three of the five
// original_source/decompiler/src/main.rs test programs that decode within
// this module's supported opcode set (see SPEC_FULL.md and DESIGN.md for
// why test4 and test5 are excluded). Only test_code has a committed .want
// file; test2 and test3 skip until their output has been reviewed and seeded
// (see DESIGN.md's note on the stack-depth-merge soundness boundary their
// output currently exposes).
func TestGoldenFixtures(t *testing.T) {
	names := []string{"test_code", "test2", "test3"}
	for _, name := range names {
		name := name
		t.Run(name, func(t *testing.T) {
			co, err := fixture.Load("../testdata/" + name + ".json")
			require.NoError(t, err)

			var sb strings.Builder
			require.NoError(t, decompiler.DecompileCode(&sb, co))
			golden.DiffOutput(t, name, sb.String(), "../testdata")
		})
	}
}
