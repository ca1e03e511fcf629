// Package verinum implements four-state constant values as they appear
// in Verilog source and in constant-folded expressions.
package verinum

import (
	"fmt"
	"math/big"
	"strings"
)

// Bit is a single four-state bit.
type Bit uint8

const (
	V0 Bit = iota
	V1
	Vx
	Vz
)

func (b Bit) String() string {
	return string("01xz"[b])
}

// Verinum is an immutable-by-convention vector of four-state bits, least
// significant bit first.
type Verinum struct {
	bits   []Bit
	signed bool
	sized  bool
	str    bool
	fill   bool
}

// New makes a sized vector of width bits, all set to fill.
func New(width int, fill Bit) *Verinum {
	v := &Verinum{bits: make([]Bit, width), sized: true}
	for i := range v.bits {
		v.bits[i] = fill
	}
	return v
}

// FromBits makes a sized vector from LSB-first bits.
func FromBits(bits []Bit, signed bool) *Verinum {
	v := &Verinum{bits: append([]Bit(nil), bits...), signed: signed, sized: true}
	return v
}

// FromInt64 makes a sized vector holding the low width bits of val.
func FromInt64(val int64, width int, signed bool) *Verinum {
	v := New(width, V0)
	v.signed = signed
	for i := 0; i < width; i++ {
		var b int64
		if i < 64 {
			b = (val >> uint(i)) & 1
		} else if val < 0 {
			b = 1
		}
		if b != 0 {
			v.bits[i] = V1
		}
	}
	return v
}

// FromUint64 makes a sized unsigned vector holding the low width bits of val.
func FromUint64(val uint64, width int) *Verinum {
	v := New(width, V0)
	for i := 0; i < width && i < 64; i++ {
		if (val>>uint(i))&1 != 0 {
			v.bits[i] = V1
		}
	}
	return v
}

// Int makes the unsized, signed 32-bit integer that a plain decimal
// literal denotes.
func Int(val int64) *Verinum {
	v := FromInt64(val, 32, true)
	v.sized = false
	return v
}

// FromBool makes a 1-bit unsigned value.
func FromBool(b bool) *Verinum {
	if b {
		return FromUint64(1, 1)
	}
	return FromUint64(0, 1)
}

// FromString packs a string literal 8 bits per character, first
// character in the most significant byte.
func FromString(s string) *Verinum {
	width := len(s) * 8
	if width == 0 {
		width = 8
	}
	v := New(width, V0)
	v.str = true
	for i := 0; i < len(s); i++ {
		c := s[len(s)-1-i]
		for b := 0; b < 8; b++ {
			if (c>>uint(b))&1 != 0 {
				v.bits[i*8+b] = V1
			}
		}
	}
	return v
}

// FromBigInt makes a sized vector from the low width bits of n.
func FromBigInt(n *big.Int, width int, signed bool) *Verinum {
	v := New(width, V0)
	v.signed = signed
	tmp := new(big.Int).Set(n)
	if tmp.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
		tmp.Mod(tmp, mod)
	}
	for i := 0; i < width; i++ {
		if tmp.Bit(i) != 0 {
			v.bits[i] = V1
		}
	}
	return v
}

func (v *Verinum) clone() *Verinum {
	c := *v
	c.bits = append([]Bit(nil), v.bits...)
	return &c
}

// Width returns the number of bits.
func (v *Verinum) Width() int { return len(v.bits) }

// Signed reports whether the value is to be treated as signed.
func (v *Verinum) Signed() bool { return v.signed }

// Sized reports whether the literal carried an explicit size.
func (v *Verinum) Sized() bool { return v.sized }

// IsFill reports whether the value is an unbased unsized literal such
// as '1, which fills whatever width its context gives it.
func (v *Verinum) IsFill() bool { return v.fill }

// IsString reports whether the value came from a string literal.
func (v *Verinum) IsString() bool { return v.str }

// WithSigned returns a copy with the signed flag set to s.
func (v *Verinum) WithSigned(s bool) *Verinum {
	c := v.clone()
	c.signed = s
	return c
}

// WithSized returns a copy with the sized flag set to s.
func (v *Verinum) WithSized(s bool) *Verinum {
	c := v.clone()
	c.sized = s
	return c
}

// Bit returns bit i, or x when i is outside the vector.
func (v *Verinum) Bit(i int) Bit {
	if i < 0 || i >= len(v.bits) {
		return Vx
	}
	return v.bits[i]
}

// Bits returns a copy of the LSB-first bits.
func (v *Verinum) Bits() []Bit {
	return append([]Bit(nil), v.bits...)
}

// IsDefined reports whether every bit is 0 or 1.
func (v *Verinum) IsDefined() bool {
	for _, b := range v.bits {
		if b > V1 {
			return false
		}
	}
	return true
}

// IsZero reports whether every bit is 0.
func (v *Verinum) IsZero() bool {
	for _, b := range v.bits {
		if b != V0 {
			return false
		}
	}
	return true
}

// IsNonZero reports whether at least one bit is 1.
func (v *Verinum) IsNonZero() bool {
	for _, b := range v.bits {
		if b == V1 {
			return true
		}
	}
	return false
}

// IsNegative reports whether a signed, defined value is below zero.
func (v *Verinum) IsNegative() bool {
	return v.signed && len(v.bits) > 0 && v.bits[len(v.bits)-1] == V1
}

// BigInt returns the value as a big integer, honoring the signed flag.
// ok is false if any bit is x or z.
func (v *Verinum) BigInt() (n *big.Int, ok bool) {
	if !v.IsDefined() {
		return nil, false
	}
	n = new(big.Int)
	for i := len(v.bits) - 1; i >= 0; i-- {
		n.Lsh(n, 1)
		if v.bits[i] == V1 {
			n.SetBit(n, 0, 1)
		}
	}
	if v.IsNegative() {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(v.bits)))
		n.Sub(n, mod)
	}
	return n, true
}

// AsInt64 returns the value as an int64. ok is false for undefined
// values or values that do not fit.
func (v *Verinum) AsInt64() (int64, bool) {
	n, ok := v.BigInt()
	if !ok || !n.IsInt64() {
		return 0, false
	}
	return n.Int64(), true
}

// AsUint64 returns the unsigned interpretation of the low 64 bits.
func (v *Verinum) AsUint64() (uint64, bool) {
	if !v.IsDefined() {
		return 0, false
	}
	var res uint64
	for i := 0; i < len(v.bits) && i < 64; i++ {
		if v.bits[i] == V1 {
			res |= 1 << uint(i)
		}
	}
	return res, true
}

// AsFloat returns the value converted to a real number.
func (v *Verinum) AsFloat() float64 {
	n, ok := v.BigInt()
	if !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// AsString decodes a string-valued vector, dropping leading NUL bytes.
func (v *Verinum) AsString() string {
	var sb strings.Builder
	nbytes := (len(v.bits) + 7) / 8
	for i := nbytes - 1; i >= 0; i-- {
		var c byte
		for b := 0; b < 8; b++ {
			if v.Bit(i*8+b) == V1 {
				c |= 1 << uint(b)
			}
		}
		if c == 0 && sb.Len() == 0 {
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Resize extends or truncates the value to width. Extension replicates
// the sign bit of signed values, and replicates a leading x or z of
// unsized values; otherwise it fills with zero.
func (v *Verinum) Resize(width int) *Verinum {
	if width == len(v.bits) {
		return v
	}
	c := v.clone()
	if v.fill {
		c.fill = false
		c.sized = true
	}
	if width < len(v.bits) {
		c.bits = c.bits[:width]
		return c
	}
	fill := V0
	if len(v.bits) > 0 {
		top := v.bits[len(v.bits)-1]
		switch {
		case v.fill, v.signed:
			fill = top
		case !v.sized && (top == Vx || top == Vz):
			fill = top
		}
	}
	for len(c.bits) < width {
		c.bits = append(c.bits, fill)
	}
	return c
}

// Slice returns width bits starting at lsb. Bits outside the value
// read as x.
func (v *Verinum) Slice(lsb, width int) *Verinum {
	res := New(width, Vx)
	for i := 0; i < width; i++ {
		res.bits[i] = v.Bit(lsb + i)
	}
	return res
}

// Concat concatenates values, first argument most significant.
func Concat(parts ...*Verinum) *Verinum {
	width := 0
	for _, p := range parts {
		width += p.Width()
	}
	res := New(width, V0)
	pos := 0
	for i := len(parts) - 1; i >= 0; i-- {
		copy(res.bits[pos:], parts[i].bits)
		pos += parts[i].Width()
	}
	return res
}

// Repeat replicates v count times.
func (v *Verinum) Repeat(count int) *Verinum {
	parts := make([]*Verinum, count)
	for i := range parts {
		parts[i] = v
	}
	if count == 0 {
		return New(0, V0)
	}
	return Concat(parts...)
}

// Equal reports bitwise identity, including x and z positions and width.
func (v *Verinum) Equal(o *Verinum) bool {
	if len(v.bits) != len(o.bits) {
		return false
	}
	for i := range v.bits {
		if v.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// String renders the value in Verilog binary notation, e.g. 4'b10x1.
func (v *Verinum) String() string {
	if v.str {
		return fmt.Sprintf("%q", v.AsString())
	}
	var sb strings.Builder
	if v.sized {
		sb.WriteString(fmt.Sprint(len(v.bits)))
	}
	sb.WriteByte('\'')
	if v.signed {
		sb.WriteByte('s')
	}
	sb.WriteByte('b')
	for i := len(v.bits) - 1; i >= 0; i-- {
		sb.WriteString(v.bits[i].String())
	}
	return sb.String()
}

// Text renders a value for messages: defined numbers in decimal, strings,
// fills and values with x or z bits as String does.
func (v *Verinum) Text() string {
	if v.str || v.fill {
		return v.String()
	}
	return v.Decimal()
}

// Decimal renders defined values in decimal, falling back to String.
func (v *Verinum) Decimal() string {
	if n, ok := v.BigInt(); ok {
		return n.String()
	}
	return v.String()
}
