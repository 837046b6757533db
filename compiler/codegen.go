package compiler

import (
	"fmt"
	"math/big"

	"github.com/zond/monty/bigint"
	"github.com/zond/monty/interp"
	"github.com/zond/monty/value"
)

// funcCompiler assembles one value.Code (the module top level, or a
// single function body) by walking the AST and emitting instructions
// directly — a classic single-pass tree-walking codegen, the way a
// small hand-rolled compiler is expected to work (SPEC_FULL.md §10).
type funcCompiler struct {
	heap   *value.Heap
	code   *value.Code
	parent *funcCompiler

	isModule    bool
	locals      map[string]int
	globalNames map[string]bool
	hiddenN     int

	exceptVarStack []int
	loopStack      []loopCtx
}

type loopCtx struct {
	breakJumps     []int
	continueTarget int
}

// Compile parses src and compiles it into a module-level Code, ready to
// run as a top-level Frame (spec.md §4.D). heap is needed to intern
// string constants at compile time.
func Compile(heap *value.Heap, filename, src string) (*value.Code, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, err
	}
	fc := &funcCompiler{
		heap:        heap,
		isModule:    true,
		globalNames: map[string]bool{},
		code: &value.Code{
			Name:     "<module>",
			Filename: filename,
		},
	}
	if err := fc.compileModuleBody(stmts); err != nil {
		return nil, err
	}
	return fc.code, nil
}

// compileModuleBody compiles a module's top-level statements, treating a
// trailing bare expression statement as the module's result the way the
// reference REPL/`exec` treats a script's last expression (spec.md §4.F
// "the script's final expression... is marshalled back"): every
// statement except a final ExprStmt compiles normally (its value
// discarded), but the final ExprStmt's value is left on the stack and
// returned instead of being popped. A module with no trailing
// expression statement returns None, as every function body does.
func (fc *funcCompiler) compileModuleBody(stmts []Stmt) error {
	last := -1
	if n := len(stmts); n > 0 {
		if _, ok := stmts[n-1].(*ExprStmt); ok {
			last = n - 1
		}
	}
	for i, st := range stmts {
		if i == last {
			break
		}
		if err := fc.compileStmt(st); err != nil {
			return err
		}
	}
	if last < 0 {
		fc.emit(value.OpLoadConst, fc.noneConst(), 0, 0)
		fc.emit(value.OpReturn, 0, 0, 0)
		return nil
	}
	final := stmts[last].(*ExprStmt)
	if err := fc.compileExpr(final.X); err != nil {
		return err
	}
	fc.emit(value.OpReturn, 0, 0, final.Line)
	return nil
}

func newFuncCompiler(parent *funcCompiler, fd *FuncDef) *funcCompiler {
	fc := &funcCompiler{
		heap:        parent.heap,
		parent:      parent,
		locals:      map[string]int{},
		globalNames: map[string]bool{},
		code: &value.Code{
			Name:       fd.Name,
			Filename:   parent.code.Filename,
			Params:     append([]string{}, fd.Params...),
			KwOnly:     append([]string{}, fd.KwOnly...),
			VarArgName: fd.VarArg,
			VarKwName:  fd.VarKw,
			IsAsync:    fd.IsAsync,
		},
	}
	slot := 0
	for _, p := range fd.Params {
		fc.locals[p] = slot
		slot++
	}
	for _, p := range fd.KwOnly {
		fc.locals[p] = slot
		slot++
	}
	if fd.VarArg != "" {
		fc.locals[fd.VarArg] = slot
		slot++
	}
	if fd.VarKw != "" {
		fc.locals[fd.VarKw] = slot
		slot++
	}
	return fc
}

func (fc *funcCompiler) emit(op value.Opcode, a, b, line int) int {
	fc.code.Instrs = append(fc.code.Instrs, value.Instr{Op: op, A: a, B: b, Line: line})
	return len(fc.code.Instrs) - 1
}

func (fc *funcCompiler) here() int { return len(fc.code.Instrs) }

func (fc *funcCompiler) patchJump(idx int) {
	fc.code.Instrs[idx].A = fc.here()
}

func (fc *funcCompiler) constIndex(v value.Value) int {
	fc.code.Consts = append(fc.code.Consts, v)
	return len(fc.code.Consts) - 1
}

func (fc *funcCompiler) noneConst() int { return fc.constIndex(value.None) }

func (fc *funcCompiler) strConst(s string) (int, error) {
	v, err := fc.heap.Str(s)
	if err != nil {
		return 0, err
	}
	return fc.constIndex(v), nil
}

// newHiddenLocal allocates a compiler-internal local slot (used for
// comprehension accumulators and the exception value bound across an
// except body), never visible as a script-level name.
func (fc *funcCompiler) newHiddenLocal() int {
	fc.hiddenN++
	name := fmt.Sprintf(" hidden%d", fc.hiddenN)
	return fc.allocLocal(name)
}

func (fc *funcCompiler) allocLocal(name string) int {
	if fc.locals == nil {
		fc.locals = map[string]int{}
	}
	if idx, ok := fc.locals[name]; ok {
		return idx
	}
	idx := len(fc.code.Params) + len(fc.code.KwOnly)
	if fc.code.VarArgName != "" {
		idx++
	}
	if fc.code.VarKwName != "" {
		idx++
	}
	idx += fc.code.NumLocals
	fc.locals[name] = idx
	fc.code.NumLocals++
	return idx
}

// compileBlock compiles a statement list (a function body, a module
// body, or one arm of if/while/for/try) in sequence.
func (fc *funcCompiler) compileBlock(stmts []Stmt) error {
	for _, st := range stmts {
		if err := fc.compileStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCompiler) compileStmt(st Stmt) error {
	switch s := st.(type) {
	case *ExprStmt:
		if err := fc.compileExpr(s.X); err != nil {
			return err
		}
		fc.emit(value.OpPop, 0, 0, s.Line)
		return nil
	case *PassStmt:
		return nil
	case *GlobalStmt:
		for _, n := range s.Names {
			fc.globalNames[n] = true
		}
		return nil
	case *ImportStmt:
		idx, err := fc.strConst(s.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpImportName, idx, 0, s.Line)
		return fc.storeName(s.Name, s.Line)
	case *AssignStmt:
		return fc.compileAssign(s)
	case *AugAssignStmt:
		return fc.compileAugAssign(s)
	case *ReturnStmt:
		if s.Value != nil {
			if err := fc.compileExpr(s.Value); err != nil {
				return err
			}
		} else {
			fc.emit(value.OpLoadConst, fc.noneConst(), 0, s.Line)
		}
		fc.emit(value.OpReturn, 0, 0, s.Line)
		return nil
	case *AssertStmt:
		return fc.compileAssert(s)
	case *RaiseStmt:
		return fc.compileRaise(s)
	case *IfStmt:
		return fc.compileIf(s)
	case *WhileStmt:
		return fc.compileWhile(s)
	case *ForStmt:
		return fc.compileFor(s)
	case *BreakStmt:
		if len(fc.loopStack) == 0 {
			return fmt.Errorf("line %d: 'break' outside loop", s.Line)
		}
		idx := fc.emit(value.OpJump, -1, 0, s.Line)
		top := len(fc.loopStack) - 1
		fc.loopStack[top].breakJumps = append(fc.loopStack[top].breakJumps, idx)
		return nil
	case *ContinueStmt:
		if len(fc.loopStack) == 0 {
			return fmt.Errorf("line %d: 'continue' outside loop", s.Line)
		}
		target := fc.loopStack[len(fc.loopStack)-1].continueTarget
		fc.emit(value.OpJump, target, 0, s.Line)
		return nil
	case *TryStmt:
		return fc.compileTry(s)
	case *FuncDef:
		return fc.compileFuncDef(s)
	}
	return fmt.Errorf("compiler: unhandled statement %T", st)
}

// compileAssert lowers `assert cond, msg` into a conditional construction
// and raise of an AssertionError, since OpRaise expects an exception
// instance on the stack, not a bare string.
func (fc *funcCompiler) compileAssert(s *AssertStmt) error {
	if err := fc.compileExpr(s.Cond); err != nil {
		return err
	}
	okJmp := fc.emit(value.OpJumpIfTrue, -1, 0, s.Line)
	if err := fc.loadName("AssertionError", s.Line); err != nil {
		return err
	}
	nArgs := 0
	if s.Msg != nil {
		if err := fc.compileExpr(s.Msg); err != nil {
			return err
		}
		nArgs = 1
	}
	fc.emit(value.OpCall, nArgs, 0, s.Line)
	fc.emit(value.OpRaise, 0, 0, s.Line)
	fc.patchJump(okJmp)
	return nil
}

func (fc *funcCompiler) compileRaise(s *RaiseStmt) error {
	if s.Exc == nil {
		if len(fc.exceptVarStack) == 0 {
			return fmt.Errorf("line %d: 'raise' outside except with no exception active", s.Line)
		}
		slot := fc.exceptVarStack[len(fc.exceptVarStack)-1]
		fc.emit(value.OpLoadLocal, slot, 0, s.Line)
		fc.emit(value.OpReraise, 0, 0, s.Line)
		return nil
	}
	if err := fc.compileExpr(s.Exc); err != nil {
		return err
	}
	fc.emit(value.OpRaise, 0, 0, s.Line)
	return nil
}

func (fc *funcCompiler) compileIf(s *IfStmt) error {
	if err := fc.compileExpr(s.Cond); err != nil {
		return err
	}
	elseJmp := fc.emit(value.OpJumpIfFalse, -1, 0, s.Line)
	if err := fc.compileBlock(s.Body); err != nil {
		return err
	}
	endJmp := fc.emit(value.OpJump, -1, 0, s.Line)
	fc.patchJump(elseJmp)
	if s.Else != nil {
		if err := fc.compileBlock(s.Else); err != nil {
			return err
		}
	}
	fc.patchJump(endJmp)
	return nil
}

func (fc *funcCompiler) compileWhile(s *WhileStmt) error {
	condPC := fc.here()
	if err := fc.compileExpr(s.Cond); err != nil {
		return err
	}
	exitJmp := fc.emit(value.OpJumpIfFalse, -1, 0, s.Line)
	fc.loopStack = append(fc.loopStack, loopCtx{continueTarget: condPC})
	if err := fc.compileBlock(s.Body); err != nil {
		return err
	}
	fc.emit(value.OpJump, condPC, 0, s.Line)
	fc.patchJump(exitJmp)
	fc.finishLoop()
	return nil
}

func (fc *funcCompiler) compileFor(s *ForStmt) error {
	if err := fc.compileExpr(s.Iter); err != nil {
		return err
	}
	fc.emit(value.OpGetIter, 0, 0, s.Line)
	loopTop := fc.here()
	exitJmp := fc.emit(value.OpForIter, -1, 0, s.Line)
	if err := fc.storeName(s.Target, s.Line); err != nil {
		return err
	}
	fc.loopStack = append(fc.loopStack, loopCtx{continueTarget: loopTop})
	if err := fc.compileBlock(s.Body); err != nil {
		return err
	}
	fc.emit(value.OpJump, loopTop, 0, s.Line)
	fc.patchJump(exitJmp)
	fc.finishLoop()
	return nil
}

// finishLoop pops the current loop context, patching every break jump
// to land exactly where the loop's exit jump already landed.
func (fc *funcCompiler) finishLoop() {
	top := fc.loopStack[len(fc.loopStack)-1]
	fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]
	end := fc.here()
	for _, idx := range top.breakJumps {
		fc.code.Instrs[idx].A = end
	}
}

// compileTry implements try/except*/finally using the handler-stack
// protocol exec.go's handleException walks: except clauses are pushed
// in reverse source order so the first-listed clause ends up checked
// first, and only the last-checked (first-pushed) handler carries a
// FinallyPC, so a non-matching exception falls through every specific
// clause before diverting into the finally block's reraise copy.
func (fc *funcCompiler) compileTry(s *TryStmt) error {
	hasFinally := len(s.Finally) > 0
	n := len(s.Handlers)

	if n == 0 {
		idx := len(fc.code.Handlers)
		fc.code.Handlers = append(fc.code.Handlers, value.ExceptHandler{ClassName: "", FinallyPC: -1})
		fc.emit(value.OpSetupTry, idx, 0, s.Line)
		if err := fc.compileBlock(s.Body); err != nil {
			return err
		}
		fc.emit(value.OpPopTry, 0, 0, s.Line)
		if err := fc.compileBlock(s.Finally); err != nil {
			return err
		}
		after := fc.emit(value.OpJump, -1, 0, s.Line)
		fc.code.Handlers[idx].TargetPC = fc.here()
		hidden := fc.newHiddenLocal()
		fc.emit(value.OpStoreLocal, hidden, 0, s.Line)
		if err := fc.compileBlock(s.Finally); err != nil {
			return err
		}
		fc.emit(value.OpLoadLocal, hidden, 0, s.Line)
		fc.emit(value.OpReraise, 0, 0, s.Line)
		fc.patchJump(after)
		return nil
	}

	handlerIdx := make([]int, n)
	for i, h := range s.Handlers {
		handlerIdx[i] = len(fc.code.Handlers)
		fc.code.Handlers = append(fc.code.Handlers, value.ExceptHandler{ClassName: h.ClassName, FinallyPC: -1})
	}
	for i := n - 1; i >= 0; i-- {
		fc.emit(value.OpSetupTry, handlerIdx[i], 0, s.Line)
	}
	if err := fc.compileBlock(s.Body); err != nil {
		return err
	}
	for range handlerIdx {
		fc.emit(value.OpPopTry, 0, 0, s.Line)
	}
	if hasFinally {
		if err := fc.compileBlock(s.Finally); err != nil {
			return err
		}
	}
	after := fc.emit(value.OpJump, -1, 0, s.Line)

	for i, h := range s.Handlers {
		fc.code.Handlers[handlerIdx[i]].TargetPC = fc.here()
		hidden := fc.newHiddenLocal()
		fc.emit(value.OpStoreLocal, hidden, 0, s.Line)
		if h.AsName != "" {
			fc.emit(value.OpLoadLocal, hidden, 0, s.Line)
			if err := fc.storeName(h.AsName, s.Line); err != nil {
				return err
			}
		}
		fc.exceptVarStack = append(fc.exceptVarStack, hidden)
		if err := fc.compileBlock(h.Body); err != nil {
			return err
		}
		fc.exceptVarStack = fc.exceptVarStack[:len(fc.exceptVarStack)-1]
		if hasFinally {
			if err := fc.compileBlock(s.Finally); err != nil {
				return err
			}
		}
		fc.emit(value.OpJump, after, 0, s.Line)
	}

	if hasFinally {
		fc.code.Handlers[handlerIdx[n-1]].FinallyPC = fc.here()
		hidden := fc.newHiddenLocal()
		fc.emit(value.OpStoreLocal, hidden, 0, s.Line)
		if err := fc.compileBlock(s.Finally); err != nil {
			return err
		}
		fc.emit(value.OpLoadLocal, hidden, 0, s.Line)
		fc.emit(value.OpReraise, 0, 0, s.Line)
	}
	fc.patchJump(after)
	return nil
}

func (fc *funcCompiler) compileFuncDef(fd *FuncDef) error {
	child := newFuncCompiler(fc, fd)
	if err := child.compileBlock(fd.Body); err != nil {
		return err
	}
	child.emit(value.OpLoadConst, child.noneConst(), 0, fd.Line)
	child.emit(value.OpReturn, 0, 0, fd.Line)

	codeIdx := len(fc.code.CodeConsts)
	fc.code.CodeConsts = append(fc.code.CodeConsts, child.code)

	for _, def := range fd.Defaults {
		if err := fc.compileExpr(def); err != nil {
			return err
		}
	}
	nDefaults := len(fd.Defaults)
	fc.emit(value.OpMakeFunction, codeIdx, nDefaults, fd.Line)
	return fc.storeName(fd.Name, fd.Line)
}

func (fc *funcCompiler) compileAssign(s *AssignStmt) error {
	if err := fc.compileExpr(s.Value); err != nil {
		return err
	}
	return fc.compileStoreTarget(s.Target, s.Line)
}

func (fc *funcCompiler) compileStoreTarget(target Expr, line int) error {
	switch t := target.(type) {
	case *NameExpr:
		return fc.storeName(t.Name, line)
	case *AttrExpr:
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		idx, err := fc.strConst(t.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpStoreAttr, idx, 0, line)
		return nil
	case *SubscrExpr:
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		if err := fc.compileExpr(t.Idx); err != nil {
			return err
		}
		fc.emit(value.OpStoreSubscr, 0, 0, line)
		return nil
	}
	return fmt.Errorf("line %d: invalid assignment target", line)
}

var binOpCodes = map[string]interp.BinOp{
	"+": interp.BinAdd, "-": interp.BinSub, "*": interp.BinMul,
	"/": interp.BinTrueDiv, "//": interp.BinFloorDiv, "%": interp.BinMod,
	"**": interp.BinPow, "<<": interp.BinLShift, ">>": interp.BinRShift,
	"&": interp.BinAnd, "|": interp.BinOr, "^": interp.BinXor,
}

var compareOpCodes = map[string]interp.CompareOp{
	"==": interp.CmpEq, "!=": interp.CmpNe, "<": interp.CmpLt,
	"<=": interp.CmpLe, ">": interp.CmpGt, ">=": interp.CmpGe,
}

func (fc *funcCompiler) compileAugAssign(s *AugAssignStmt) error {
	op, ok := binOpCodes[s.Op]
	if !ok {
		return fmt.Errorf("line %d: unsupported augmented assignment operator %q", s.Line, s.Op)
	}
	switch t := s.Target.(type) {
	case *NameExpr:
		if err := fc.loadName(t.Name, s.Line); err != nil {
			return err
		}
		if err := fc.compileExpr(s.Value); err != nil {
			return err
		}
		fc.emit(value.OpBinaryOp, int(op), 0, s.Line)
		return fc.storeName(t.Name, s.Line)
	case *AttrExpr:
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		idx, err := fc.strConst(t.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpLoadAttr, idx, 0, s.Line)
		if err := fc.compileExpr(s.Value); err != nil {
			return err
		}
		fc.emit(value.OpBinaryOp, int(op), 0, s.Line)
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		fc.emit(value.OpStoreAttr, idx, 0, s.Line)
		return nil
	case *SubscrExpr:
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		if err := fc.compileExpr(t.Idx); err != nil {
			return err
		}
		fc.emit(value.OpLoadSubscr, 0, 0, s.Line)
		if err := fc.compileExpr(s.Value); err != nil {
			return err
		}
		fc.emit(value.OpBinaryOp, int(op), 0, s.Line)
		if err := fc.compileExpr(t.X); err != nil {
			return err
		}
		if err := fc.compileExpr(t.Idx); err != nil {
			return err
		}
		fc.emit(value.OpStoreSubscr, 0, 0, s.Line)
		return nil
	}
	return fmt.Errorf("line %d: invalid augmented assignment target", s.Line)
}

func (fc *funcCompiler) storeName(name string, line int) error {
	if fc.isModule || fc.globalNames[name] {
		idx, err := fc.strConst(name)
		if err != nil {
			return err
		}
		fc.emit(value.OpStoreGlobal, idx, 0, line)
		return nil
	}
	slot := fc.allocLocal(name)
	fc.emit(value.OpStoreLocal, slot, 0, line)
	return nil
}

func (fc *funcCompiler) loadName(name string, line int) error {
	if !fc.isModule && !fc.globalNames[name] {
		if slot, ok := fc.locals[name]; ok {
			fc.emit(value.OpLoadLocal, slot, 0, line)
			return nil
		}
	}
	idx, err := fc.strConst(name)
	if err != nil {
		return err
	}
	fc.emit(value.OpLoadGlobal, idx, 0, line)
	return nil
}

func (fc *funcCompiler) compileExpr(e Expr) error {
	switch x := e.(type) {
	case *NameExpr:
		return fc.loadName(x.Name, 0)
	case *IntExpr:
		bi, ok := new(big.Int).SetString(x.Lit, 10)
		if !ok {
			return fmt.Errorf("compiler: invalid int literal %q", x.Lit)
		}
		fc.emit(value.OpLoadConst, fc.constIndex(value.BigInt(bigint.FromBig(bi))), 0, 0)
		return nil
	case *FloatExpr:
		var f float64
		if _, err := fmt.Sscanf(x.Lit, "%g", &f); err != nil {
			return fmt.Errorf("compiler: invalid float literal %q", x.Lit)
		}
		fc.emit(value.OpLoadConst, fc.constIndex(value.Float(f)), 0, 0)
		return nil
	case *StrExpr:
		idx, err := fc.strConst(x.Val)
		if err != nil {
			return err
		}
		fc.emit(value.OpLoadConst, idx, 0, 0)
		return nil
	case *BoolExpr:
		fc.emit(value.OpLoadConst, fc.constIndex(value.Bool(x.Val)), 0, 0)
		return nil
	case *NoneExpr:
		fc.emit(value.OpLoadConst, fc.noneConst(), 0, 0)
		return nil
	case *FStrExpr:
		return fc.compileFString(x)
	case *TupleExpr:
		for _, it := range x.Items {
			if err := fc.compileExpr(it); err != nil {
				return err
			}
		}
		fc.emit(value.OpBuildTuple, len(x.Items), 0, 0)
		return nil
	case *ListExpr:
		for _, it := range x.Items {
			if err := fc.compileExpr(it); err != nil {
				return err
			}
		}
		fc.emit(value.OpBuildList, len(x.Items), 0, 0)
		return nil
	case *SetExpr:
		for _, it := range x.Items {
			if err := fc.compileExpr(it); err != nil {
				return err
			}
		}
		fc.emit(value.OpBuildSet, len(x.Items), 0, 0)
		return nil
	case *DictExpr:
		for i := range x.Keys {
			if err := fc.compileExpr(x.Keys[i]); err != nil {
				return err
			}
			if err := fc.compileExpr(x.Vals[i]); err != nil {
				return err
			}
		}
		fc.emit(value.OpBuildDict, len(x.Keys), 0, 0)
		return nil
	case *UnaryExpr:
		return fc.compileUnary(x)
	case *BinExpr:
		if err := fc.compileExpr(x.L); err != nil {
			return err
		}
		if err := fc.compileExpr(x.R); err != nil {
			return err
		}
		op, ok := binOpCodes[x.Op]
		if !ok {
			return fmt.Errorf("compiler: unsupported operator %q", x.Op)
		}
		fc.emit(value.OpBinaryOp, int(op), 0, 0)
		return nil
	case *CompareExpr:
		if err := fc.compileExpr(x.L); err != nil {
			return err
		}
		if err := fc.compileExpr(x.R); err != nil {
			return err
		}
		op, ok := compareOpCodes[x.Op]
		if !ok {
			return fmt.Errorf("compiler: unsupported comparison %q", x.Op)
		}
		fc.emit(value.OpCompareOp, int(op), 0, 0)
		return nil
	case *BoolOpExpr:
		return fc.compileBoolOp(x)
	case *CallExpr:
		return fc.compileCall(x)
	case *AttrExpr:
		if err := fc.compileExpr(x.X); err != nil {
			return err
		}
		idx, err := fc.strConst(x.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpLoadAttr, idx, 0, 0)
		return nil
	case *SubscrExpr:
		if err := fc.compileExpr(x.X); err != nil {
			return err
		}
		if err := fc.compileExpr(x.Idx); err != nil {
			return err
		}
		fc.emit(value.OpLoadSubscr, 0, 0, 0)
		return nil
	case *AwaitExpr:
		if err := fc.compileExpr(x.X); err != nil {
			return err
		}
		fc.emit(value.OpAwait, 0, 0, 0)
		return nil
	case *ListCompExpr:
		return fc.compileListComp(x)
	}
	return fmt.Errorf("compiler: unhandled expression %T", e)
}

func (fc *funcCompiler) compileUnary(x *UnaryExpr) error {
	if err := fc.compileExpr(x.X); err != nil {
		return err
	}
	var op interp.UnaryOp
	switch x.Op {
	case "-":
		op = interp.UnaryNeg
	case "+":
		op = interp.UnaryPos
	case "not":
		op = interp.UnaryNot
	case "~":
		op = interp.UnaryInvert
	default:
		return fmt.Errorf("compiler: unsupported unary operator %q", x.Op)
	}
	fc.emit(value.OpUnaryOp, int(op), 0, 0)
	return nil
}

// compileBoolOp implements short-circuit and/or: the left operand is
// duplicated so its truth value can gate the jump without evaluating it
// twice, matching the reference language's short-circuit semantics.
func (fc *funcCompiler) compileBoolOp(x *BoolOpExpr) error {
	if err := fc.compileExpr(x.L); err != nil {
		return err
	}
	fc.emit(value.OpDup, 0, 0, 0)
	var jmp int
	if x.Op == "and" {
		jmp = fc.emit(value.OpJumpIfFalse, -1, 0, 0)
	} else {
		jmp = fc.emit(value.OpJumpIfTrue, -1, 0, 0)
	}
	fc.emit(value.OpPop, 0, 0, 0)
	if err := fc.compileExpr(x.R); err != nil {
		return err
	}
	fc.patchJump(jmp)
	return nil
}

// callNeedsSpread reports whether x has a `*expr` positional argument or
// a `**expr` keyword argument, requiring the general CALL_FUNCTION_EX-
// style calling convention instead of the fixed-arity one.
func callNeedsSpread(x *CallExpr) bool {
	for _, a := range x.Args {
		if _, ok := a.(*StarArg); ok {
			return true
		}
	}
	for _, kw := range x.KwArgs {
		if kw.Name == "" {
			return true
		}
	}
	return false
}

func (fc *funcCompiler) compileCall(x *CallExpr) error {
	if err := fc.compileExpr(x.Fn); err != nil {
		return err
	}
	if callNeedsSpread(x) {
		return fc.compileSpreadCall(x)
	}
	for _, a := range x.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	if len(x.KwArgs) == 0 {
		fc.emit(value.OpCall, len(x.Args), 0, 0)
		return nil
	}
	for _, kw := range x.KwArgs {
		idx, err := fc.strConst(kw.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpLoadConst, idx, 0, 0)
		if err := fc.compileExpr(kw.Value); err != nil {
			return err
		}
	}
	fc.emit(value.OpCallKw, len(x.Args), len(x.KwArgs), 0)
	return nil
}

// compileSpreadCall lowers a call carrying `*xs`/`**d` arguments: it
// assembles the positional arguments into a list (OpListAppend for a
// plain argument, OpListExtend splicing in an iterable) and the keyword
// arguments into a dict (OpDictSetItem for `name=value`, OpDictMerge
// splicing in a mapping), then issues a single OpCallSpread — the
// analogue of CPython's CALL_FUNCTION_EX (spec.md §4.D "positional
// unpacking in call sites... dict unpacking").
func (fc *funcCompiler) compileSpreadCall(x *CallExpr) error {
	fc.emit(value.OpBuildList, 0, 0, 0)
	for _, a := range x.Args {
		if sa, ok := a.(*StarArg); ok {
			if err := fc.compileExpr(sa.X); err != nil {
				return err
			}
			fc.emit(value.OpListExtend, 0, 0, 0)
		} else {
			if err := fc.compileExpr(a); err != nil {
				return err
			}
			fc.emit(value.OpListAppend, 0, 0, 0)
		}
	}
	fc.emit(value.OpBuildDict, 0, 0, 0)
	for _, kw := range x.KwArgs {
		if kw.Name == "" {
			if err := fc.compileExpr(kw.Value); err != nil {
				return err
			}
			fc.emit(value.OpDictMerge, 0, 0, 0)
			continue
		}
		idx, err := fc.strConst(kw.Name)
		if err != nil {
			return err
		}
		fc.emit(value.OpLoadConst, idx, 0, 0)
		if err := fc.compileExpr(kw.Value); err != nil {
			return err
		}
		fc.emit(value.OpDictSetItem, 0, 0, 0)
	}
	fc.emit(value.OpCallSpread, 0, 0, 0)
	return nil
}

// compileFString lowers an f-string into a chain of str()-call-and-concat
// operations (spec.md "f-strings" — no dedicated opcode is needed since
// string concatenation and a global str() builtin already cover it).
func (fc *funcCompiler) compileFString(x *FStrExpr) error {
	empty, err := fc.strConst("")
	if err != nil {
		return err
	}
	fc.emit(value.OpLoadConst, empty, 0, 0)
	for _, part := range x.Parts {
		if part.Expr == nil {
			idx, err := fc.strConst(part.Lit)
			if err != nil {
				return err
			}
			fc.emit(value.OpLoadConst, idx, 0, 0)
		} else {
			if err := fc.loadName("str", 0); err != nil {
				return err
			}
			if err := fc.compileExpr(part.Expr); err != nil {
				return err
			}
			fc.emit(value.OpCall, 1, 0, 0)
		}
		fc.emit(value.OpBinaryOp, int(interp.BinAdd), 0, 0)
	}
	return nil
}

// compileListComp lowers `[elt for target in iter if cond]` into a loop
// accumulating into a hidden local via list concatenation (list+list
// does the job, so OpListAppend is not used here).
func (fc *funcCompiler) compileListComp(x *ListCompExpr) error {
	acc := fc.newHiddenLocal()
	fc.emit(value.OpBuildList, 0, 0, 0)
	fc.emit(value.OpStoreLocal, acc, 0, 0)

	if err := fc.compileExpr(x.Iter); err != nil {
		return err
	}
	fc.emit(value.OpGetIter, 0, 0, 0)
	loopTop := fc.here()
	exitJmp := fc.emit(value.OpForIter, -1, 0, 0)
	if err := fc.storeName(x.Target, 0); err != nil {
		return err
	}

	var condFalseJmp int
	hasCond := x.Cond != nil
	if hasCond {
		if err := fc.compileExpr(x.Cond); err != nil {
			return err
		}
		condFalseJmp = fc.emit(value.OpJumpIfFalse, -1, 0, 0)
	}

	fc.emit(value.OpLoadLocal, acc, 0, 0)
	if err := fc.compileExpr(x.Elt); err != nil {
		return err
	}
	fc.emit(value.OpBuildList, 1, 0, 0)
	fc.emit(value.OpBinaryOp, int(interp.BinAdd), 0, 0)
	fc.emit(value.OpStoreLocal, acc, 0, 0)

	if hasCond {
		fc.patchJump(condFalseJmp)
	}
	fc.emit(value.OpJump, loopTop, 0, 0)
	fc.patchJump(exitJmp)
	fc.emit(value.OpLoadLocal, acc, 0, 0)
	return nil
}
