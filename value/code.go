package value

// Opcode identifies a single bytecode instruction (spec.md §4.D). Code
// lives in this package, not interp, because functionObj must embed a
// *Code and interp imports value — putting Code in interp would cycle.
type Opcode uint8

const (
	OpLoadConst Opcode = iota
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpLoadCell
	OpStoreCell
	OpLoadAttr
	OpStoreAttr
	OpLoadSubscr
	OpStoreSubscr
	OpBuildTuple
	OpBuildList
	OpBuildDict
	OpBuildSet
	OpBinaryOp
	OpUnaryOp
	OpCompareOp
	OpCall
	OpCallKw
	OpMakeFunction
	OpReturn
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpPop
	OpDup
	OpSetupTry
	OpPopTry
	OpRaise
	OpReraise
	OpGetIter
	OpForIter
	OpAwait
	OpYield
	OpImportName
	OpListAppend
	OpListExtend
	OpDictSetItem
	OpDictMerge
	OpCallSpread
)

// Instr is one bytecode instruction. A and B are opcode-specific
// operands (const-pool index, jump target, local slot, arg count, ...).
type Instr struct {
	Op   Opcode
	A, B int
	Line int
}

// ExceptHandler describes one `except` clause of a try block (spec.md
// §4.D exception unwinding). The interpreter pushes it at OpSetupTry and
// pops it at OpPopTry; StartPC and EndPC are not set by the compiler nor
// read by the interpreter.
type ExceptHandler struct {
	StartPC   int
	EndPC     int
	ClassName string // "" matches any exception ("bare except")
	TargetPC  int
	FinallyPC int // -1 if this try has no finally
}

// Code is the compiled body of a function or module top level (spec.md
// §4.D). Interp executes Instrs against a Frame; value only needs to
// carry the data, never interpret it, so no cycle to interp is required.
//
// Local slot layout, fixed by convention between compiler and interp:
// [0:len(Params)) positional/keyword params, then len(KwOnly)
// keyword-only params, then one slot for VarArgName if set, then one
// slot for VarKwName if set, then NumLocals-that-many slots for
// ordinary local variables assigned by the compiler.
type Code struct {
	Name        string
	Filename    string
	Params      []string
	KwOnly      []string
	VarArgName  string // "" if the function takes no *args
	VarKwName   string // "" if the function takes no **kwargs
	FreeVars    []string
	CellVars    []string
	Consts      []Value
	CodeConsts  []*Code // nested function bodies, indexed by OpMakeFunction's A operand
	Instrs      []Instr
	Handlers    []ExceptHandler
	NumLocals   int
	IsGenerator bool
	IsAsync     bool
}
