package decompiler

import "github.com/dolthub/swiss"

// blockMap is the token-keyed table shared by the block builder, the
// symbolic evaluator and the CFG resolver: built once per decompilation,
// probed repeatedly during recursive traversal, never iterated in a
// particular order except for the insertion order this wrapper keeps
// alongside the swiss.Map for the resolver's graph-wide pass. This mirrors
// the role swiss.Map[Value, Value] plays for machine.Map, just keyed on
// BlockToken instead of a Value.
type blockMap[V any] struct {
	m     *swiss.Map[BlockToken, V]
	order []BlockToken
}

func newBlockMap[V any](sizeHint int) *blockMap[V] {
	if sizeHint < 1 {
		sizeHint = 1
	}
	return &blockMap[V]{m: swiss.NewMap[BlockToken, V](uint32(sizeHint))}
}

func (b *blockMap[V]) Put(tok BlockToken, v V) {
	if _, exists := b.m.Get(tok); !exists {
		b.order = append(b.order, tok)
	}
	b.m.Put(tok, v)
}

func (b *blockMap[V]) Get(tok BlockToken) (V, bool) { return b.m.Get(tok) }

func (b *blockMap[V]) Has(tok BlockToken) bool {
	_, ok := b.m.Get(tok)
	return ok
}

func (b *blockMap[V]) Len() int { return len(b.order) }

// Keys returns every token put into b, in the order it was first inserted.
func (b *blockMap[V]) Keys() []BlockToken {
	return append([]BlockToken(nil), b.order...)
}

// blockSet is a scratch visited/patch set used internally by the evaluator
// and resolver. Unlike the three persistent block maps, these are short-lived
// per-call working sets, so a plain map is the right tool here rather than
// swiss.Map.
type blockSet map[BlockToken]struct{}

func (s blockSet) Has(tok BlockToken) bool { _, ok := s[tok]; return ok }
func (s blockSet) Add(tok BlockToken)      { s[tok] = struct{}{} }
