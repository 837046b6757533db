package bigint

import (
	"math"
	"testing"

	"github.com/bxcodec/faker/v4"
)

func TestPromotionDemotion(t *testing.T) {
	a := FromInt64(math.MaxInt64)
	b := FromInt64(1)
	sum := a.Add(b)
	if sum.IsSmall() {
		t.Fatalf("expected promotion to big form")
	}
	back := sum.Sub(b)
	if !back.IsSmall() || back.Int64() != math.MaxInt64 {
		t.Fatalf("expected demotion back to int64, got %v (small=%v)", back, back.IsSmall())
	}
}

func TestNegMinInt64(t *testing.T) {
	min := FromInt64(math.MinInt64)
	neg := min.Neg()
	if neg.IsSmall() {
		t.Fatalf("expected -MinInt64 to promote to big form")
	}
	abs := min.Abs()
	if abs.Cmp(FromInt64(math.MaxInt64)) != 1 {
		t.Fatalf("abs(MinInt64) should exceed MaxInt64, got %v", abs)
	}
}

func TestFlooredDivMod(t *testing.T) {
	cases := []struct{ a, b, q, r int64 }{
		{5, -3, -2, -1},
		{-5, 3, -2, 1},
		{-5, -3, 1, -2},
		{5, 3, 1, 2},
	}
	for _, c := range cases {
		q, r := FromInt64(c.a).DivMod(FromInt64(c.b))
		if q.Int64() != c.q || r.Int64() != c.r {
			t.Fatalf("%d divmod %d = (%v, %v), want (%d, %d)", c.a, c.b, q, r, c.q, c.r)
		}
		recon := q.Mul(FromInt64(c.b)).Add(r)
		if recon.Int64() != c.a {
			t.Fatalf("invariant a == q*b+r broken for %d, %d", c.a, c.b)
		}
	}
}

func TestPowBoundary(t *testing.T) {
	p := FromInt64(2).Pow(FromInt64(63))
	if p.IsSmall() {
		t.Fatalf("2**63 should not fit in int64")
	}
	maxPlus1 := FromInt64(math.MaxInt64).Add(FromInt64(1))
	if p.Cmp(maxPlus1) != 0 {
		t.Fatalf("2**63 should equal MaxInt64+1, got %v vs %v", p, maxPlus1)
	}
	if p.Sub(FromInt64(1)).Hash() != FromInt64(math.MaxInt64).Hash() {
		t.Fatalf("hash((2**63)-1) must equal hash(MaxInt64)")
	}
}

func TestPowSpecialCases(t *testing.T) {
	if FromInt64(0).Pow(FromInt64(0)).Int64() != 1 {
		t.Fatalf("0**0 must be 1")
	}
	if FromInt64(0).Pow(FromInt64(5)).Int64() != 0 {
		t.Fatalf("0**n must be 0 for n>0")
	}
	if FromInt64(1).Pow(FromInt64(100)).Int64() != 1 {
		t.Fatalf("1**n must be 1")
	}
	neg1 := FromInt64(-1).Pow(FromInt64(7))
	if neg1.Int64() != -1 {
		t.Fatalf("(-1)**odd must be -1")
	}
}

func TestHashConsistentAcrossRepresentation(t *testing.T) {
	small := FromInt64(42)
	big := small.Add(FromInt64(1 << 62)).Sub(FromInt64(1 << 62))
	if big.Hash() != small.Hash() {
		t.Fatalf("hash mismatch between representations of 42")
	}
}

func TestEstimatePowBitsFailsFast(t *testing.T) {
	bits := EstimatePowBits(FromInt64(2), FromInt64(10000000))
	if bits < 10000000 {
		t.Fatalf("expected huge bit estimate for 2**10000000, got %d", bits)
	}
}

// fakeOperandPair is faked in batches to exercise Add/Sub/Cmp invariants
// against a spread of random int64 pairs, the same faker.FakeData-driven
// randomized-fixture style the teacher uses for its storage layer.
type fakeOperandPair struct {
	A int64
	B int64
}

func TestAddSubRoundTripOnRandomPairs(t *testing.T) {
	for i := 0; i < 200; i++ {
		var pair fakeOperandPair
		if err := faker.FakeData(&pair); err != nil {
			t.Fatalf("faker.FakeData: %v", err)
		}
		a, b := FromInt64(pair.A), FromInt64(pair.B)
		sum := a.Add(b)
		back := sum.Sub(b)
		if back.Cmp(a) != 0 {
			t.Fatalf("(%d + %d) - %d = %v, want %d", pair.A, pair.B, pair.B, back, pair.A)
		}
		if a.Cmp(a) != 0 {
			t.Fatalf("Cmp must be reflexive for %d", pair.A)
		}
	}
}
