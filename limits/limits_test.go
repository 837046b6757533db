package limits

import "testing"

func TestChargeAllocRespectsMemoryLimit(t *testing.T) {
	cfg := Config{}.WithMaxMemory(1000)
	tr := New(cfg)
	if err := tr.ChargeAlloc(500); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if err := tr.ChargeAlloc(600); err == nil {
		t.Fatalf("expected memory fault")
	} else if f, ok := err.(*Fault); !ok || f.Class != "MemoryError" {
		t.Fatalf("expected MemoryError fault, got %v", err)
	}
}

func TestChargeFreeCredits(t *testing.T) {
	tr := New(Config{}.WithMaxMemory(1000))
	if err := tr.ChargeAlloc(900); err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	tr.ChargeFree(900)
	if err := tr.ChargeAlloc(900); err != nil {
		t.Fatalf("expected charge to succeed after free, got %v", err)
	}
}

func TestRecursionPerTask(t *testing.T) {
	tr := New(Config{}.WithMaxRecursionDepth(5))
	tr.SetActiveTask("task-a")
	for i := 0; i < 5; i++ {
		if err := tr.EnterFrame(); err != nil {
			t.Fatalf("unexpected fault at depth %d: %v", i, err)
		}
	}
	if err := tr.EnterFrame(); err == nil {
		t.Fatalf("expected RecursionError at depth 6")
	}

	tr.SetActiveTask("task-b")
	if err := tr.EnterFrame(); err != nil {
		t.Fatalf("task-b should have its own depth counter: %v", err)
	}
}

func TestRepresentationOnlyShowsSetFields(t *testing.T) {
	cfg := Config{}.WithMaxMemory(42)
	r := cfg.Repr()
	if r != "ResourceLimits(max_memory=42)" {
		t.Fatalf("unexpected repr: %q", r)
	}
}

func TestChargeAllocCountLimit(t *testing.T) {
	tr := New(Config{}.WithMaxAllocations(2))
	if err := tr.ChargeAlloc(1); err != nil {
		t.Fatal(err)
	}
	if err := tr.ChargeAlloc(1); err != nil {
		t.Fatal(err)
	}
	if err := tr.ChargeAlloc(1); err == nil {
		t.Fatalf("expected allocation-count fault")
	}
}
