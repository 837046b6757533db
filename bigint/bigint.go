// Package bigint implements Monty's arbitrary-precision integer, with an
// unboxed int64 fast path that every operator promotes out of or demotes
// into automatically.
package bigint

import (
	"math/big"
)

// Int is either an unboxed int64 (big == nil) or an arbitrary-precision
// value backed by math/big. Demote to the unboxed form whenever a result
// fits, so two numerically equal Ints always compare and hash equal
// regardless of which form produced them.
type Int struct {
	small int64
	big   *big.Int
}

var (
	minI64 = big.NewInt(math_MinInt64)
	maxI64 = big.NewInt(math_MaxInt64)
)

const (
	math_MinInt64 = -1 << 63
	math_MaxInt64 = 1<<63 - 1
)

// FromInt64 wraps a native int64 as an Int.
func FromInt64(v int64) Int {
	return Int{small: v}
}

// FromBig normalizes a *big.Int, demoting to the unboxed form when it
// fits in int64. b is not retained; callers may mutate it afterward.
func FromBig(b *big.Int) Int {
	if b.IsInt64() {
		return Int{small: b.Int64()}
	}
	return Int{big: new(big.Int).Set(b)}
}

// IsSmall reports whether the value is stored unboxed.
func (i Int) IsSmall() bool { return i.big == nil }

// Int64 returns the unboxed value. Valid only when IsSmall is true.
func (i Int) Int64() int64 { return i.small }

// Big materializes a *big.Int view of i. The caller must not mutate the
// returned value when i is already in unboxed form (it is a fresh copy
// either way, so mutation is actually always safe, but treat it as
// read-only to keep the contract simple).
func (i Int) Big() *big.Int {
	if i.big != nil {
		return new(big.Int).Set(i.big)
	}
	return big.NewInt(i.small)
}

func normalize(b *big.Int) Int {
	if b.IsInt64() {
		return Int{small: b.Int64()}
	}
	return Int{big: b}
}

// Sign returns -1, 0, or 1.
func (i Int) Sign() int {
	if i.big != nil {
		return i.big.Sign()
	}
	switch {
	case i.small < 0:
		return -1
	case i.small > 0:
		return 1
	default:
		return 0
	}
}

// Cmp compares i and j.
func (i Int) Cmp(j Int) int {
	if i.big == nil && j.big == nil {
		switch {
		case i.small < j.small:
			return -1
		case i.small > j.small:
			return 1
		default:
			return 0
		}
	}
	return i.Big().Cmp(j.Big())
}

// addOverflows reports whether a+b overflows int64.
func addOverflows(a, b int64) bool {
	sum := a + b
	return ((a ^ sum) & (b ^ sum)) < 0
}

// Add returns i+j, promoting to big form on int64 overflow.
func (i Int) Add(j Int) Int {
	if i.big == nil && j.big == nil && !addOverflows(i.small, j.small) {
		return Int{small: i.small + j.small}
	}
	return normalize(new(big.Int).Add(i.Big(), j.Big()))
}

// Sub returns i-j.
func (i Int) Sub(j Int) Int {
	return i.Add(j.Neg())
}

// Neg returns -i, correctly promoting -i64Min to big form.
func (i Int) Neg() Int {
	if i.big == nil {
		if i.small != math_MinInt64 {
			return Int{small: -i.small}
		}
		return normalize(new(big.Int).Neg(big.NewInt(i.small)))
	}
	return normalize(new(big.Int).Neg(i.big))
}

// Abs returns |i|.
func (i Int) Abs() Int {
	if i.Sign() < 0 {
		return i.Neg()
	}
	return i
}

// mulOverflows reports whether a*b overflows int64.
func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if (a == -1 && b == math_MinInt64) || (b == -1 && a == math_MinInt64) {
		return true
	}
	p := a * b
	return p/b != a
}

// Mul returns i*j, promoting on overflow.
func (i Int) Mul(j Int) Int {
	if i.big == nil && j.big == nil && !mulOverflows(i.small, j.small) {
		return Int{small: i.small * j.small}
	}
	return normalize(new(big.Int).Mul(i.Big(), j.Big()))
}

// DivMod returns floored division and modulo: quotient = floor(i/j),
// remainder has the sign of j, and i == quotient*j + remainder.
// Division by zero is the caller's concern (interp raises
// ZeroDivisionError before calling when j is zero); here j==0 returns
// zero values to keep the arithmetic total — callers must check first.
func (i Int) DivMod(j Int) (q, r Int) {
	if j.Sign() == 0 {
		return Int{}, Int{}
	}
	bq, br := new(big.Int), new(big.Int)
	bq.DivMod(i.Big(), j.Big(), br)
	// big.Int.DivMod implements Euclidean division (remainder always
	// non-negative); Python's floor division wants remainder with the
	// sign of the divisor. Adjust when divisor is negative and the
	// Euclidean remainder is nonzero.
	if j.Sign() < 0 && br.Sign() != 0 {
		bq.Sub(bq, big.NewInt(1))
		br.Add(br, j.Big())
	}
	return normalize(bq), normalize(br)
}

// TrueDiv returns i/j as a float64 (Python's `/`).
func (i Int) TrueDiv(j Int) float64 {
	fi := new(big.Float).SetInt(i.Big())
	fj := new(big.Float).SetInt(j.Big())
	fq := new(big.Float).Quo(fi, fj)
	f, _ := fq.Float64()
	return f
}

// Pow returns i**n for n >= 0. Negative exponents must be handled by the
// caller (they promote to float per spec.md §4.B).
func (i Int) Pow(n Int) Int {
	if n.Sign() < 0 {
		return Int{}
	}
	return normalize(new(big.Int).Exp(i.Big(), n.Big(), nil))
}

// Shl returns i << n.
func (i Int) Shl(n uint) Int {
	return normalize(new(big.Int).Lsh(i.Big(), n))
}

// Shr returns i >> n (arithmetic, matching two's-complement semantics
// for negative i).
func (i Int) Shr(n uint) Int {
	return normalize(new(big.Int).Rsh(i.Big(), n))
}

// And, Or, Xor, Not implement bitwise ops with two's-complement
// semantics at arbitrary width, matching Python's integer bit
// operations on negative operands.
func (i Int) And(j Int) Int { return normalize(new(big.Int).And(i.Big(), j.Big())) }
func (i Int) Or(j Int) Int  { return normalize(new(big.Int).Or(i.Big(), j.Big())) }
func (i Int) Xor(j Int) Int { return normalize(new(big.Int).Xor(i.Big(), j.Big())) }
func (i Int) Not() Int      { return normalize(new(big.Int).Not(i.Big())) }

// String renders the base-10 representation.
func (i Int) String() string {
	if i.big != nil {
		return i.big.String()
	}
	return bigIntString(i.small)
}

func bigIntString(v int64) string {
	return big.NewInt(v).String()
}

// Float64 converts to the nearest float64.
func (i Int) Float64() float64 {
	if i.big == nil {
		return float64(i.small)
	}
	f, _ := new(big.Float).SetInt(i.big).Float64()
	return f
}

// FitsInt returns (count, true) if i fits a small non-negative int used
// for sequence repeat counts, clamping negative counts to 0 per
// spec.md §4.B. A BigInt operand that demotes to a small value is
// accepted.
func (i Int) FitsInt() (int, bool) {
	if i.Sign() < 0 {
		return 0, true
	}
	if i.big == nil {
		if i.small > int64(int(^uint(0)>>1)) {
			return 0, false
		}
		return int(i.small), true
	}
	if i.big.IsInt64() {
		return int(i.big.Int64()), true
	}
	return 0, false
}
