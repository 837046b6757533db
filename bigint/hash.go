package bigint

import "math/big"

// hashPrime is a Mersenne prime (2^61 - 1) used to fold arbitrarily large
// integers into a 64-bit hash that agrees with the plain int64 hash
// whenever the two values are numerically equal (spec.md §4.B, §9).
const hashPrime = (1 << 61) - 1

var bigHashPrime = big.NewInt(hashPrime)

// Hash returns a hash that is equal for any two Ints (boxed or unboxed)
// that compare numerically equal, and equal to the plain int64 hash
// (see value.HashInt64) whenever the value fits in an int64.
func (i Int) Hash() uint64 {
	if i.big == nil {
		return hashSmall(i.small)
	}
	mod := new(big.Int).Mod(i.big, bigHashPrime)
	v := mod.Int64()
	neg := i.big.Sign() < 0
	if neg && v != 0 {
		// big.Int.Mod always returns a non-negative result; recover the
		// sign so negative bigints hash consistently with negative
		// int64s of the same residue.
		v -= hashPrime
	}
	return hashSmall(v)
}

// hashSmall is the canonical int64 hash: the value itself unless it's
// -1, which is reserved (mirrors the reference language's convention
// that hash(x) never returns the CPython sentinel -1).
func hashSmall(v int64) uint64 {
	h := uint64(v)
	if int64(h) == -1 {
		h = ^uint64(1)
	}
	return h
}

// EstimatePowBits upper-bounds the bit length of base**exp without
// computing it, for limits.Tracker to charge against max_memory before
// performing the operation (spec.md §4.C).
func EstimatePowBits(base Int, exp Int) int {
	if exp.Sign() <= 0 {
		return 64
	}
	baseBits := base.Big().BitLen()
	if baseBits == 0 {
		baseBits = 1
	}
	e := exp.Big()
	if !e.IsInt64() {
		// An exponent this large already implies an astronomically
		// large result; report a huge bound so the tracker fails fast.
		return 1 << 30
	}
	bits := int64(baseBits) * e.Int64()
	if bits > 1<<30 {
		return 1 << 30
	}
	return int(bits)
}

// EstimateShlBits upper-bounds the bit length of x << n.
func EstimateShlBits(x Int, n uint) int {
	bits := x.Big().BitLen() + int(n)
	if bits > 1<<30 {
		return 1 << 30
	}
	return bits
}

// EstimateMulBits upper-bounds the bit length of x*y.
func EstimateMulBits(x, y Int) int {
	return x.Big().BitLen() + y.Big().BitLen() + 1
}

// BitsToBytes converts a bit-length bound to a byte-count bound for
// limits.Tracker.ChargeAlloc.
func BitsToBytes(bits int) int {
	return (bits + 7) / 8
}
