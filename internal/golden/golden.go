// Package golden is internal/filetest's diff-or-update pattern, narrowed to
// the single shape the decompiler package's round-trip tests need: one
// fixture in, one rendered-source .want file out.
package golden

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var update = flag.Bool("test.update-decompiler-tests", false, "update the decompiler package's .want golden files")

// DiffOutput compares got against resultDir/name+".want", updating that file
// in place instead when -test.update-decompiler-tests is set.
func DiffOutput(t *testing.T, name, got, resultDir string) {
	t.Helper()

	wantFile := filepath.Join(resultDir, name+".want")
	if *update {
		if err := os.WriteFile(wantFile, []byte(got), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(wantFile)
	if err != nil {
		if os.IsNotExist(err) {
			t.Skipf("no golden file %s yet; run with -test.update-decompiler-tests to seed it", wantFile)
		}
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got output:\n%s\n", got)
	}
	if patch := diff.Diff(want, got); patch != "" {
		if testing.Verbose() {
			t.Logf("want output:\n%s\n", want)
		}
		t.Errorf("diff output:\n%s\n", patch)
	}
}
