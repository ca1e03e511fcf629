package verinum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		lit    string
		width  int
		signed bool
		sized  bool
		text   string
	}{
		{"4'hF", 4, false, true, "4'b1111"},
		{"4'b10x1", 4, false, true, "4'b10x1"},
		{"8'sd3", 8, true, true, "8'sb00000011"},
		{"3'b1", 3, false, true, "3'b001"},
		{"4'bz", 4, false, true, "4'bzzzz"},
		{"2'hF", 2, false, true, "2'b11"},
		{"12", 32, true, false, "'sb00000000000000000000000000001100"},
		{"16'h_ff_00", 16, false, true, "16'b1111111100000000"},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			v, err := Parse(tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.width, v.Width())
			assert.Equal(t, tt.signed, v.Signed())
			assert.Equal(t, tt.sized, v.Sized())
			assert.Equal(t, tt.text, v.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, lit := range []string{"", "4'", "4'q1", "0'b1", "4'b2", "abc"} {
		_, err := Parse(lit)
		assert.Error(t, err, lit)
	}
}

func TestFillLiteral(t *testing.T) {
	v := MustParse("'1")
	assert.True(t, v.IsFill())
	assert.Equal(t, "8'b11111111", v.Resize(8).String())
	assert.False(t, v.Resize(8).IsFill())

	z := MustParse("'z")
	assert.Equal(t, "3'bzzz", z.Resize(3).String())
}

func TestResize(t *testing.T) {
	neg := FromInt64(-2, 4, true)
	assert.Equal(t, "8'sb11111110", neg.Resize(8).String())

	pos := FromUint64(0xA, 4)
	assert.Equal(t, "8'b00001010", pos.Resize(8).String())
	assert.Equal(t, "2'b10", pos.Resize(2).String())
}

func TestArithmetic(t *testing.T) {
	a := FromUint64(14, 4)
	b := FromUint64(3, 4)

	sum := Add(a, b)
	assert.Equal(t, 4, sum.Width())
	n, ok := sum.AsUint64()
	require.True(t, ok)
	assert.Equal(t, uint64(1), n) // wraps at 4 bits

	q, _ := Div(a, b).AsInt64()
	assert.Equal(t, int64(4), q)
	r, _ := Mod(a, b).AsInt64()
	assert.Equal(t, int64(2), r)

	assert.False(t, Div(a, FromUint64(0, 4)).IsDefined())
	assert.False(t, Add(a, MustParse("4'bx")).IsDefined())

	p, _ := Pow(FromInt64(2, 32, true), FromInt64(10, 32, true)).AsInt64()
	assert.Equal(t, int64(1024), p)

	m, _ := Neg(FromInt64(5, 8, true)).AsInt64()
	assert.Equal(t, int64(-5), m)
}

func TestSignedness(t *testing.T) {
	a := FromInt64(-1, 8, true)
	b := FromInt64(1, 8, true)
	lt := Lt(a, b)
	assert.Equal(t, "1'b1", lt.String())

	// Mixed signedness compares unsigned.
	lt = Lt(a, FromUint64(1, 8))
	assert.Equal(t, "1'b0", lt.String())
}

func TestBitwiseAndReduce(t *testing.T) {
	a := MustParse("4'b10x1")
	b := MustParse("4'b1100")
	assert.Equal(t, "4'b1000", And(a, b).String())
	assert.Equal(t, "4'b11x1", Or(a, b).String())
	assert.Equal(t, "4'b01x0", Not(MustParse("4'b10x1")).String())
	assert.Equal(t, "1'b0", RedAnd(b).String())
	assert.Equal(t, "1'b1", RedOr(b).String())
	assert.Equal(t, "1'bx", RedXor(a).String())
}

func TestEquality(t *testing.T) {
	a := MustParse("4'b10x1")
	assert.Equal(t, "1'bx", Eq(a, MustParse("4'b1001")).String())
	assert.Equal(t, "1'b0", Eq(a, MustParse("4'b0001")).String())
	assert.Equal(t, "1'b1", CaseEq(a, MustParse("4'b10x1")).String())
	assert.True(t, WildEq(MustParse("4'b1011"), MustParse("4'b10z1"), true))
	assert.False(t, WildEq(MustParse("4'b1011"), MustParse("4'b10x0"), false))
}

func TestShifts(t *testing.T) {
	a := FromInt64(-8, 8, true)
	assert.Equal(t, "8'sb11100000", Shl(a, 2).String())
	assert.Equal(t, "8'sb00111110", Shr(a, 2, false).String())
	assert.Equal(t, "8'sb11111110", Shr(a, 2, true).String())
}

func TestConcatSliceRepeat(t *testing.T) {
	c := Concat(MustParse("2'b10"), MustParse("3'b011"))
	assert.Equal(t, "5'b10011", c.String())
	assert.Equal(t, "2'b01", c.Slice(1, 2).String())
	assert.Equal(t, "3'bx10", c.Slice(3, 3).String())
	assert.Equal(t, "6'b101010", MustParse("2'b10").Repeat(3).String())
}

func TestClog2(t *testing.T) {
	for in, want := range map[int64]int64{0: 0, 1: 0, 2: 1, 3: 2, 8: 3, 9: 4} {
		got, ok := Clog2(Int(in)).AsInt64()
		require.True(t, ok)
		assert.Equal(t, want, got, "clog2(%d)", in)
	}
}

func TestStrings(t *testing.T) {
	s := FromString("hi")
	assert.True(t, s.IsString())
	assert.Equal(t, 16, s.Width())
	assert.Equal(t, "hi", s.AsString())
	assert.Equal(t, `"hi"`, s.String())
	assert.Equal(t, `"hi"`, s.Text())
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		v    *Verinum
		want string
	}{
		{"unsized", Int(4), "4"},
		{"negative", FromInt64(-3, 8, true), "-3"},
		{"wide unsigned", FromInt64(0xFFFFFFFF, 32, false), "4294967295"},
		{"undefined", New(1, Vx), "1'bx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Text())
		})
	}
}
