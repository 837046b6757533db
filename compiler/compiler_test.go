package compiler

import (
	"testing"

	"github.com/zond/monty/limits"
	"github.com/zond/monty/value"
)

func newTestHeap(t *testing.T) *value.Heap {
	t.Helper()
	tr := limits.New(limits.Config{})
	tr.Start()
	return value.NewHeap(tr)
}

func TestParseFuncDefWithDefaultsAndVarArgs(t *testing.T) {
	stmts, err := Parse("def f(a, b=1, *args, c, d=2, **kwargs):\n    pass\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected one statement, got %d", len(stmts))
	}
	fd, ok := stmts[0].(*FuncDef)
	if !ok {
		t.Fatalf("expected *FuncDef, got %T", stmts[0])
	}
	if fd.IsAsync {
		t.Fatalf("plain def should not be marked async")
	}
	if len(fd.Params) != 2 || fd.VarArg != "args" || fd.VarKw != "kwargs" {
		t.Fatalf("unexpected binding shape: %+v", fd)
	}
	if len(fd.KwOnly) != 2 || fd.KwOnly[0] != "c" || fd.KwOnly[1] != "d" {
		t.Fatalf("unexpected keyword-only params: %+v", fd.KwOnly)
	}
}

func TestParseAsyncDef(t *testing.T) {
	stmts, err := Parse("async def f():\n    return await g()\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	fd, ok := stmts[0].(*FuncDef)
	if !ok || !fd.IsAsync {
		t.Fatalf("expected an async FuncDef, got %+v", stmts[0])
	}
}

func TestParseCallSpreadArgs(t *testing.T) {
	stmts, err := Parse("f(*xs, a, **kw)\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", stmts[0])
	}
	call, ok := es.X.(*CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", es.X)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 positional args (StarArg + a), got %d", len(call.Args))
	}
	if _, ok := call.Args[0].(*StarArg); !ok {
		t.Fatalf("expected first arg to be a StarArg, got %T", call.Args[0])
	}
	if len(call.KwArgs) != 1 || call.KwArgs[0].Name != "" {
		t.Fatalf("expected one bare **kw argument, got %+v", call.KwArgs)
	}
}

func TestCompileModuleReturnsTrailingExpression(t *testing.T) {
	h := newTestHeap(t)
	code, err := Compile(h, "t.monty", "x = 1\nx + 41\n")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	last := code.Instrs[len(code.Instrs)-1]
	if last.Op != value.OpReturn {
		t.Fatalf("expected the module to end with OpReturn, got %v", last.Op)
	}
	// The instruction immediately before OpReturn must not be OpPop —
	// that would mean the trailing expression's value was discarded
	// instead of becoming the module's result.
	prev := code.Instrs[len(code.Instrs)-2]
	if prev.Op == value.OpPop {
		t.Fatalf("trailing expression statement must not be popped before return")
	}
}

func TestCompileModuleWithNoTrailingExpressionReturnsNone(t *testing.T) {
	h := newTestHeap(t)
	code, err := Compile(h, "t.monty", "x = 1\n")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	// x = 1 then an implicit `None; return`.
	n := len(code.Instrs)
	if code.Instrs[n-1].Op != value.OpReturn || code.Instrs[n-2].Op != value.OpLoadConst {
		t.Fatalf("expected a None-then-return tail, got %+v", code.Instrs[n-3:])
	}
}

func TestParseFString(t *testing.T) {
	stmts, err := Parse("f'hello {name}!'\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", stmts[0])
	}
	if _, ok := es.X.(*FStrExpr); !ok {
		t.Fatalf("expected *FStrExpr, got %T", es.X)
	}
}

func TestParseListComprehension(t *testing.T) {
	stmts, err := Parse("[x * 2 for x in xs if x > 0]\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", stmts[0])
	}
	lc, ok := es.X.(*ListCompExpr)
	if !ok {
		t.Fatalf("expected *ListCompExpr, got %T", es.X)
	}
	if lc.Target != "x" || lc.Cond == nil {
		t.Fatalf("unexpected comprehension shape: %+v", lc)
	}
}
