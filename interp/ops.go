package interp

import (
	"math"

	"github.com/zond/monty/bigint"
	"github.com/zond/monty/value"
)

// BinOp identifies a binary operator opcode's operand A value.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinTrueDiv
	BinFloorDiv
	BinMod
	BinPow
	BinLShift
	BinRShift
	BinAnd
	BinOr
	BinXor
)

// CompareOp identifies a comparison opcode's operand A value.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// UnaryOp identifies a unary opcode's operand A value.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryPos
	UnaryNot
	UnaryInvert
)

func (in *Interp) binaryOp(op BinOp, a, b value.Value) (value.Value, error) {
	switch op {
	case BinAdd:
		return in.add(a, b)
	case BinSub:
		return in.numeric(a, b, bigint.Int.Sub, func(x, y float64) float64 { return x - y })
	case BinMul:
		return in.mul(a, b)
	case BinTrueDiv:
		return in.trueDiv(a, b)
	case BinFloorDiv:
		return in.divmod(a, b, false)
	case BinMod:
		return in.divmod(a, b, true)
	case BinPow:
		return in.pow(a, b)
	case BinLShift:
		return in.shift(a, b, true)
	case BinRShift:
		return in.shift(a, b, false)
	case BinAnd:
		return in.bitop(a, b, bigint.Int.And)
	case BinOr:
		return in.bitop(a, b, bigint.Int.Or)
	case BinXor:
		return in.bitop(a, b, bigint.Int.Xor)
	}
	return value.Value{}, in.Raisef("TypeError", "unsupported binary operator")
}

func (in *Interp) add(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.KindStr && b.Kind() == value.KindStr {
		return in.Heap.Str(a.AsStr() + b.AsStr())
	}
	if a.Kind() == value.KindList && b.Kind() == value.KindList {
		items := append(append([]value.Value{}, a.AsList()...), b.AsList()...)
		return in.Heap.List(items)
	}
	if a.Kind() == value.KindTuple && b.Kind() == value.KindTuple {
		items := append(append([]value.Value{}, a.AsTuple()...), b.AsTuple()...)
		return in.Heap.Tuple(items)
	}
	return in.numeric(a, b, bigint.Int.Add, func(x, y float64) float64 { return x + y })
}

func (in *Interp) numeric(a, b value.Value, biOp func(bigint.Int, bigint.Int) bigint.Int, fOp func(float64, float64) float64) (value.Value, error) {
	if a.Kind() == value.KindFloat || b.Kind() == value.KindFloat {
		return value.Float(fOp(numF(a), numF(b))), nil
	}
	if a.Kind() != value.KindInt || b.Kind() != value.KindInt {
		return value.Value{}, in.Raisef("TypeError", "unsupported operand type(s)")
	}
	return value.BigInt(biOp(a.AsBigInt(), b.AsBigInt())), nil
}

func numF(v value.Value) float64 {
	if v.Kind() == value.KindFloat {
		return v.AsFloat()
	}
	return v.AsBigInt().Float64()
}

func (in *Interp) mul(a, b value.Value) (value.Value, error) {
	if (a.Kind() == value.KindList || a.Kind() == value.KindTuple) && b.Kind() == value.KindInt {
		return in.repeatSeq(a, b)
	}
	if (b.Kind() == value.KindList || b.Kind() == value.KindTuple) && a.Kind() == value.KindInt {
		return in.repeatSeq(b, a)
	}
	if a.Kind() == value.KindStr && b.Kind() == value.KindInt {
		n, _ := b.AsBigInt().FitsInt()
		out := ""
		for i := 0; i < n; i++ {
			out += a.AsStr()
		}
		return in.Heap.Str(out)
	}
	return in.numeric(a, b, bigint.Int.Mul, func(x, y float64) float64 { return x * y })
}

func (in *Interp) repeatSeq(seq, n value.Value) (value.Value, error) {
	count, _ := n.AsBigInt().FitsInt()
	bits := bigint.EstimateMulBits(bigint.FromInt64(int64(seq.Len())), n.AsBigInt())
	if err := in.Tracker.ChargeBulk(bigint.BitsToBytes(bits)); err != nil {
		return value.Value{}, in.raiseFault(err)
	}
	var src []value.Value
	if seq.Kind() == value.KindList {
		src = seq.AsList()
	} else {
		src = seq.AsTuple()
	}
	out := make([]value.Value, 0, len(src)*max(count, 0))
	for i := 0; i < count; i++ {
		out = append(out, src...)
	}
	if seq.Kind() == value.KindList {
		return in.Heap.List(out)
	}
	return in.Heap.Tuple(out)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (in *Interp) trueDiv(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.KindFloat || b.Kind() == value.KindFloat {
		bf := numF(b)
		if bf == 0 {
			return value.Value{}, in.Raisef("ZeroDivisionError", "float division by zero")
		}
		return value.Float(numF(a) / bf), nil
	}
	if b.AsBigInt().Sign() == 0 {
		return value.Value{}, in.Raisef("ZeroDivisionError", "division by zero")
	}
	return value.Float(a.AsBigInt().TrueDiv(b.AsBigInt())), nil
}

func (in *Interp) divmod(a, b value.Value, wantMod bool) (value.Value, error) {
	if a.Kind() == value.KindFloat || b.Kind() == value.KindFloat {
		af, bf := numF(a), numF(b)
		if bf == 0 {
			return value.Value{}, in.Raisef("ZeroDivisionError", "float floor division by zero")
		}
		q := math.Floor(af / bf)
		if wantMod {
			return value.Float(af - q*bf), nil
		}
		return value.Float(q), nil
	}
	if b.AsBigInt().Sign() == 0 {
		if wantMod {
			return value.Value{}, in.Raisef("ZeroDivisionError", "integer division or modulo by zero")
		}
		return value.Value{}, in.Raisef("ZeroDivisionError", "integer division or modulo by zero")
	}
	q, r := a.AsBigInt().DivMod(b.AsBigInt())
	if wantMod {
		return value.BigInt(r), nil
	}
	return value.BigInt(q), nil
}

func (in *Interp) pow(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.KindFloat || b.Kind() == value.KindFloat {
		return value.Float(math.Pow(numF(a), numF(b))), nil
	}
	bb := b.AsBigInt()
	if bb.Sign() < 0 {
		return value.Float(math.Pow(numF(a), numF(b))), nil
	}
	if bits := bigint.EstimatePowBits(a.AsBigInt(), bb); bits > 0 {
		if err := in.Tracker.ChargeBulk(bigint.BitsToBytes(bits)); err != nil {
			return value.Value{}, in.raiseFault(err)
		}
	}
	return value.BigInt(a.AsBigInt().Pow(bb)), nil
}

func (in *Interp) shift(a, b value.Value, left bool) (value.Value, error) {
	n, fits := b.AsBigInt().FitsInt()
	if b.AsBigInt().Sign() < 0 {
		return value.Value{}, in.Raisef("ValueError", "negative shift count")
	}
	if !fits {
		return value.Value{}, in.Raisef("OverflowError", "shift count too large")
	}
	un := uint(n)
	if left {
		bits := bigint.EstimateShlBits(a.AsBigInt(), un)
		if err := in.Tracker.ChargeBulk(bigint.BitsToBytes(bits)); err != nil {
			return value.Value{}, in.raiseFault(err)
		}
		return value.BigInt(a.AsBigInt().Shl(un)), nil
	}
	return value.BigInt(a.AsBigInt().Shr(un)), nil
}

func (in *Interp) bitop(a, b value.Value, op func(bigint.Int, bigint.Int) bigint.Int) (value.Value, error) {
	if a.Kind() != value.KindInt || b.Kind() != value.KindInt {
		return value.Value{}, in.Raisef("TypeError", "unsupported operand type(s)")
	}
	return value.BigInt(op(a.AsBigInt(), b.AsBigInt())), nil
}

func (in *Interp) unaryOp(op UnaryOp, a value.Value) (value.Value, error) {
	switch op {
	case UnaryNeg:
		if a.Kind() == value.KindFloat {
			return value.Float(-a.AsFloat()), nil
		}
		return value.BigInt(a.AsBigInt().Neg()), nil
	case UnaryPos:
		return a, nil
	case UnaryNot:
		return value.Bool(!a.Truthy()), nil
	case UnaryInvert:
		return value.BigInt(a.AsBigInt().Not()), nil
	}
	return value.Value{}, in.Raisef("TypeError", "unsupported unary operator")
}

func (in *Interp) compareOp(op CompareOp, a, b value.Value) (value.Value, error) {
	if op == CmpEq || op == CmpNe {
		eq, err := value.Eq(a, b, in.Tracker)
		if err != nil {
			return value.Value{}, in.raiseFault(err)
		}
		if op == CmpNe {
			eq = !eq
		}
		return value.Bool(eq), nil
	}
	c, err := in.ordCompare(a, b)
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case CmpLt:
		return value.Bool(c < 0), nil
	case CmpLe:
		return value.Bool(c <= 0), nil
	case CmpGt:
		return value.Bool(c > 0), nil
	case CmpGe:
		return value.Bool(c >= 0), nil
	}
	return value.Value{}, in.Raisef("TypeError", "unsupported comparison")
}

func (in *Interp) ordCompare(a, b value.Value) (int, error) {
	if (a.Kind() == value.KindInt || a.Kind() == value.KindFloat) &&
		(b.Kind() == value.KindInt || b.Kind() == value.KindFloat) {
		af, bf := numF(a), numF(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.Kind() == value.KindStr && b.Kind() == value.KindStr {
		switch {
		case a.AsStr() < b.AsStr():
			return -1, nil
		case a.AsStr() > b.AsStr():
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, in.Raisef("TypeError", "'<' not supported between instances of '%s' and '%s'", a.Kind().String(), b.Kind().String())
}
