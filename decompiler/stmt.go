package decompiler

// Instr is a recovered statement or expression node: either a block-level
// statement appended to an AnnotatedBlock's body (StoreFast, StoreGlobal, a
// bare Call) or an expression wrapped in a DerivedItem on the operand stack
// (BinaryOpInstr, CompareOpInstr, ToBoolInstr, GetIterInstr, ForIterNextInstr,
// CallInstr). The evaluator only ever produces instructions the decoder's
// opcode subset can justify; there is no unary-operator or attribute-access
// variant because nothing in that subset pushes one.
type Instr interface {
	instr()
}

// StoreFast assigns Value to the local variable Name.
type StoreFast struct {
	Name  Name
	Value StackItem
}

// StoreGlobal assigns Value to the global variable Name.
type StoreGlobal struct {
	Name  Name
	Value StackItem
}

// BinaryOpInstr is a recovered arithmetic expression. InPlace records that
// the bytecode used the augmented form (e.g. `+=`'s binary_op), but it does
// not change how the expression is rendered: the decompiled source always
// reads as a plain binary expression on the right of a store.
type BinaryOpInstr struct {
	Op      ArithOp
	InPlace bool
	Lhs, Rhs StackItem
}

// CompareOpInstr is a recovered comparison expression.
type CompareOpInstr struct {
	Kind      CompareKind
	ForceBool bool
	Lhs, Rhs  StackItem
}

// ToBoolInstr wraps a value coerced to bool, typically an if/while condition.
type ToBoolInstr struct{ Value StackItem }

// GetIterInstr wraps a value turned into an iterator ahead of a for loop.
type GetIterInstr struct{ Value StackItem }

// ForIterNextInstr is the value produced by one step of a for loop's
// iterator; it is the right-hand side of the loop's lifted assignment.
type ForIterNextInstr struct{ Iter StackItem }

// CallInstr is a recovered call expression. Obj is the call-receiver slot;
// it is NullItem for every call this package's opcode subset can produce,
// since there is no bound-method load instruction in that subset.
type CallInstr struct {
	Obj, Meth StackItem
	Args      []StackItem
}

func (StoreFast) instr()        {}
func (StoreGlobal) instr()      {}
func (BinaryOpInstr) instr()    {}
func (CompareOpInstr) instr()   {}
func (ToBoolInstr) instr()      {}
func (GetIterInstr) instr()     {}
func (ForIterNextInstr) instr() {}
func (CallInstr) instr()        {}
