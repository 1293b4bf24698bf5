// Package fixture loads decompiler.CodeObject values from the JSON files
// under testdata/, used both by cmd/decompile and by the decompiler
// package's own golden-file tests. The on-disk shape mirrors what a real
// container-format reader would hand the library, without this module
// taking on any actual container parsing (spec.md's non-goal).
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mna/pybcdecomp/decompiler"
)

// constJSON is the on-disk shape of one constant-pool entry. Kind is the
// lowercase ConstKind name; only the field matching it is read.
type constJSON struct {
	Kind   string `json:"kind"`
	Int    int64  `json:"int,omitempty"`
	BigInt string `json:"bigint,omitempty"`
	Str    string `json:"str,omitempty"`
	Code   *codeJSON `json:"code,omitempty"`
}

// codeJSON is the on-disk shape of a CodeObject. Code is a list of byte
// values (0-255) rather than a base64 blob, so fixtures read the same way
// the original_source main.rs literal arrays do.
type codeJSON struct {
	Name        string      `json:"name"`
	QualName    string      `json:"qualname"`
	ArgCount    int         `json:"argcount"`
	PosArgCount int         `json:"posargcount"`
	KwArgCount  int         `json:"kwargcount"`
	Locals      []string    `json:"locals"`
	CellVars    []string    `json:"cellvars"`
	FreeVars    []string    `json:"freevars"`
	Code        []int       `json:"code"`
	Consts      []constJSON `json:"consts"`
	Globals     []string    `json:"globals"`
	Filename    string      `json:"filename"`
}

// Load reads a single CodeObject fixture from path.
func Load(path string) (*decompiler.CodeObject, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cj codeJSON
	if err := json.Unmarshal(b, &cj); err != nil {
		return nil, fmt.Errorf("fixture: %s: %w", path, err)
	}
	return toCodeObject(&cj)
}

func toCodeObject(cj *codeJSON) (*decompiler.CodeObject, error) {
	code := make([]byte, len(cj.Code))
	for i, v := range cj.Code {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("fixture: code byte %d out of range: %d", i, v)
		}
		code[i] = byte(v)
	}

	consts := make([]*decompiler.Constant, len(cj.Consts))
	for i, c := range cj.Consts {
		cst, err := toConstant(&c)
		if err != nil {
			return nil, fmt.Errorf("fixture: const %d: %w", i, err)
		}
		consts[i] = cst
	}

	return &decompiler.CodeObject{
		Name:        decompiler.Name(cj.Name),
		QualName:    decompiler.Name(cj.QualName),
		ArgCount:    cj.ArgCount,
		PosArgCount: cj.PosArgCount,
		KwArgCount:  cj.KwArgCount,
		Locals:      toNames(cj.Locals),
		CellVars:    toNames(cj.CellVars),
		FreeVars:    toNames(cj.FreeVars),
		Code:        code,
		Consts:      consts,
		Globals:     toNames(cj.Globals),
		Filename:    decompiler.Name(cj.Filename),
	}, nil
}

func toConstant(c *constJSON) (*decompiler.Constant, error) {
	switch c.Kind {
	case "int":
		return &decompiler.Constant{Kind: decompiler.ConstInt, Int: c.Int}, nil
	case "bigint":
		return &decompiler.Constant{Kind: decompiler.ConstBigInt, BigInt: c.BigInt}, nil
	case "str":
		return &decompiler.Constant{Kind: decompiler.ConstStr, Str: c.Str}, nil
	case "none":
		return &decompiler.Constant{Kind: decompiler.ConstNone}, nil
	case "code":
		if c.Code == nil {
			return nil, fmt.Errorf("const kind %q requires a nested code object", c.Kind)
		}
		nested, err := toCodeObject(c.Code)
		if err != nil {
			return nil, err
		}
		return &decompiler.Constant{Kind: decompiler.ConstCode, Code: nested}, nil
	default:
		return nil, fmt.Errorf("unrecognised const kind %q", c.Kind)
	}
}

func toNames(ss []string) []decompiler.Name {
	names := make([]decompiler.Name, len(ss))
	for i, s := range ss {
		names[i] = decompiler.Name(s)
	}
	return names
}
