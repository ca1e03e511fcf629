package verinum

import (
	"math/big"
)

func maxWidth(a, b *Verinum) int {
	if a.Width() > b.Width() {
		return a.Width()
	}
	return b.Width()
}

// operands extends both values to a common width and reports whether
// the operation is signed.
func operands(a, b *Verinum) (*Verinum, *Verinum, bool) {
	signed := a.signed && b.signed
	w := maxWidth(a, b)
	if !signed {
		a = a.WithSigned(false)
		b = b.WithSigned(false)
	}
	return a.Resize(w), b.Resize(w), signed
}

func allX(width int, signed bool) *Verinum {
	v := New(width, Vx)
	v.signed = signed
	return v
}

type bigOp func(a, b *big.Int) (*big.Int, bool)

func arith(a, b *Verinum, op bigOp) *Verinum {
	a, b, signed := operands(a, b)
	w := a.Width()
	x, ok1 := a.BigInt()
	y, ok2 := b.BigInt()
	if !ok1 || !ok2 {
		return allX(w, signed)
	}
	r, ok := op(x, y)
	if !ok {
		return allX(w, signed)
	}
	return FromBigInt(r, w, signed)
}

// Add returns a + b at the wider operand width.
func Add(a, b *Verinum) *Verinum {
	return arith(a, b, func(x, y *big.Int) (*big.Int, bool) { return new(big.Int).Add(x, y), true })
}

// Sub returns a - b.
func Sub(a, b *Verinum) *Verinum {
	return arith(a, b, func(x, y *big.Int) (*big.Int, bool) { return new(big.Int).Sub(x, y), true })
}

// Mul returns a * b.
func Mul(a, b *Verinum) *Verinum {
	return arith(a, b, func(x, y *big.Int) (*big.Int, bool) { return new(big.Int).Mul(x, y), true })
}

// Div returns a / b truncated toward zero; division by zero yields x.
func Div(a, b *Verinum) *Verinum {
	return arith(a, b, func(x, y *big.Int) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(x, y), true
	})
}

// Mod returns a % b with the sign of a; modulus by zero yields x.
func Mod(a, b *Verinum) *Verinum {
	return arith(a, b, func(x, y *big.Int) (*big.Int, bool) {
		if y.Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(x, y), true
	})
}

// Pow returns a ** b at the width of a.
func Pow(a, b *Verinum) *Verinum {
	w := a.Width()
	signed := a.signed && b.signed
	x, ok1 := a.BigInt()
	y, ok2 := b.BigInt()
	if !ok1 || !ok2 {
		return allX(w, signed)
	}
	if y.Sign() < 0 {
		switch {
		case x.Sign() == 0:
			return allX(w, signed)
		case x.CmpAbs(big.NewInt(1)) == 0:
			if x.Sign() < 0 && y.Bit(0) == 1 {
				return FromInt64(-1, w, signed)
			}
			return FromInt64(1, w, signed)
		default:
			return FromInt64(0, w, signed)
		}
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
	return FromBigInt(new(big.Int).Exp(x, y, mod), w, signed)
}

// Neg returns the two's complement negation of a.
func Neg(a *Verinum) *Verinum {
	return Sub(FromInt64(0, a.Width(), a.signed), a)
}

var andTable = [4][4]Bit{
	{V0, V0, V0, V0},
	{V0, V1, Vx, Vx},
	{V0, Vx, Vx, Vx},
	{V0, Vx, Vx, Vx},
}

var orTable = [4][4]Bit{
	{V0, V1, Vx, Vx},
	{V1, V1, V1, V1},
	{Vx, V1, Vx, Vx},
	{Vx, V1, Vx, Vx},
}

var xorTable = [4][4]Bit{
	{V0, V1, Vx, Vx},
	{V1, V0, Vx, Vx},
	{Vx, Vx, Vx, Vx},
	{Vx, Vx, Vx, Vx},
}

func notBit(b Bit) Bit {
	switch b {
	case V0:
		return V1
	case V1:
		return V0
	}
	return Vx
}

func bitwise(a, b *Verinum, table *[4][4]Bit) *Verinum {
	a, b, signed := operands(a, b)
	res := New(a.Width(), V0)
	res.signed = signed
	for i := range res.bits {
		res.bits[i] = table[a.bits[i]][b.bits[i]]
	}
	return res
}

// And returns the bitwise AND.
func And(a, b *Verinum) *Verinum { return bitwise(a, b, &andTable) }

// Or returns the bitwise OR.
func Or(a, b *Verinum) *Verinum { return bitwise(a, b, &orTable) }

// Xor returns the bitwise XOR.
func Xor(a, b *Verinum) *Verinum { return bitwise(a, b, &xorTable) }

// Xnor returns the bitwise XNOR.
func Xnor(a, b *Verinum) *Verinum { return Not(Xor(a, b)) }

// Not returns the bitwise complement.
func Not(a *Verinum) *Verinum {
	res := a.clone()
	res.str = false
	for i, b := range res.bits {
		res.bits[i] = notBit(b)
	}
	return res
}

func reduce(a *Verinum, table *[4][4]Bit, init Bit) Bit {
	acc := init
	for _, b := range a.bits {
		acc = table[acc][b]
	}
	return acc
}

func bit1(b Bit) *Verinum {
	v := New(1, b)
	return v
}

// RedAnd returns the 1-bit AND reduction.
func RedAnd(a *Verinum) *Verinum { return bit1(reduce(a, &andTable, V1)) }

// RedOr returns the 1-bit OR reduction.
func RedOr(a *Verinum) *Verinum { return bit1(reduce(a, &orTable, V0)) }

// RedXor returns the 1-bit XOR reduction.
func RedXor(a *Verinum) *Verinum { return bit1(reduce(a, &xorTable, V0)) }

// Truth returns the logical value of a: 1 if any bit is 1, 0 if all
// bits are 0, otherwise x.
func Truth(a *Verinum) Bit {
	return reduce(a, &orTable, V0)
}

// LogicalNot returns !a.
func LogicalNot(a *Verinum) *Verinum { return bit1(notBit(Truth(a))) }

// LogicalAnd returns a && b.
func LogicalAnd(a, b *Verinum) *Verinum { return bit1(andTable[Truth(a)][Truth(b)]) }

// LogicalOr returns a || b.
func LogicalOr(a, b *Verinum) *Verinum { return bit1(orTable[Truth(a)][Truth(b)]) }

// Eq returns the 4-state equality a == b.
func Eq(a, b *Verinum) *Verinum {
	a, b, _ = operands(a, b)
	res := V1
	for i := range a.bits {
		x, y := a.bits[i], b.bits[i]
		if x > V1 || y > V1 {
			res = Vx
			continue
		}
		if x != y {
			return bit1(V0)
		}
	}
	return bit1(res)
}

// Ne returns a != b.
func Ne(a, b *Verinum) *Verinum { return bit1(notBit(Eq(a, b).bits[0])) }

// CaseEq returns a === b.
func CaseEq(a, b *Verinum) *Verinum {
	a, b, _ = operands(a, b)
	return FromBool(a.Equal(b))
}

// WildEq compares with x and z in b treated as wildcards (casex/==?),
// or only z when zOnly is set (casez).
func WildEq(a, b *Verinum, zOnly bool) bool {
	a, b, _ = operands(a, b)
	for i := range a.bits {
		x, y := a.bits[i], b.bits[i]
		if y == Vz || (!zOnly && y == Vx) {
			continue
		}
		if x == Vz || (!zOnly && x == Vx) {
			continue
		}
		if x != y {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 comparing a and b. ok is false when either
// value has x or z bits.
func Compare(a, b *Verinum) (int, bool) {
	a, b, _ = operands(a, b)
	x, ok1 := a.BigInt()
	y, ok2 := b.BigInt()
	if !ok1 || !ok2 {
		return 0, false
	}
	return x.Cmp(y), true
}

func relational(a, b *Verinum, pred func(int) bool) *Verinum {
	c, ok := Compare(a, b)
	if !ok {
		return bit1(Vx)
	}
	return FromBool(pred(c))
}

// Lt returns a < b.
func Lt(a, b *Verinum) *Verinum { return relational(a, b, func(c int) bool { return c < 0 }) }

// Le returns a <= b.
func Le(a, b *Verinum) *Verinum { return relational(a, b, func(c int) bool { return c <= 0 }) }

// Gt returns a > b.
func Gt(a, b *Verinum) *Verinum { return relational(a, b, func(c int) bool { return c > 0 }) }

// Ge returns a >= b.
func Ge(a, b *Verinum) *Verinum { return relational(a, b, func(c int) bool { return c >= 0 }) }

// Shl shifts left by n, filling with zero.
func Shl(a *Verinum, n int) *Verinum {
	res := New(a.Width(), V0)
	res.signed = a.signed
	for i := n; i < a.Width(); i++ {
		res.bits[i] = a.bits[i-n]
	}
	return res
}

// Shr shifts right by n. Arithmetic shifts of signed values replicate
// the sign bit.
func Shr(a *Verinum, n int, arithmetic bool) *Verinum {
	fill := V0
	if arithmetic && a.signed && a.Width() > 0 {
		fill = a.bits[a.Width()-1]
	}
	res := New(a.Width(), fill)
	res.signed = a.signed
	for i := 0; i+n < a.Width(); i++ {
		res.bits[i] = a.bits[i+n]
	}
	return res
}

// ShiftAmount decodes a shift count; undefined counts make the whole
// result x.
func ShiftAmount(b *Verinum) (int, bool) {
	n, ok := b.WithSigned(false).AsUint64()
	if !ok {
		return 0, false
	}
	if n > 1<<30 {
		n = 1 << 30
	}
	return int(n), true
}

// Clog2 returns ceil(log2(a)) as a 32-bit integer, $clog2 semantics.
func Clog2(a *Verinum) *Verinum {
	n, ok := a.WithSigned(false).BigInt()
	if !ok {
		return allX(32, true)
	}
	if n.Sign() == 0 {
		return Int(0)
	}
	m := new(big.Int).Sub(n, big.NewInt(1))
	return Int(int64(m.BitLen()))
}
