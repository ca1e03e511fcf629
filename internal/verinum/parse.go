package verinum

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Parse decodes a Verilog integer literal: 12, 'hFF, 4'b10x1, 8'sd3,
// and the unbased unsized fills '0 '1 'x 'z.
func Parse(lit string) (*Verinum, error) {
	s := strings.ReplaceAll(lit, "_", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty number literal")
	}

	tick := strings.IndexByte(s, '\'')
	if tick < 0 {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("malformed number %q", lit)
		}
		width := 32
		if n.BitLen()+1 > width {
			width = n.BitLen() + 1
		}
		v := FromBigInt(n, width, true)
		v.sized = false
		return v, nil
	}

	width := -1
	if tick > 0 {
		w, err := strconv.Atoi(s[:tick])
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("malformed size in %q", lit)
		}
		width = w
	}
	rest := s[tick+1:]
	if rest == "" {
		return nil, fmt.Errorf("malformed number %q", lit)
	}

	if width < 0 && len(rest) == 1 {
		var b Bit
		switch rest[0] {
		case '0':
			b = V0
		case '1':
			b = V1
		case 'x', 'X':
			b = Vx
		case 'z', 'Z', '?':
			b = Vz
		default:
			return nil, fmt.Errorf("malformed fill literal %q", lit)
		}
		v := New(1, b)
		v.sized = false
		v.fill = true
		return v, nil
	}

	signed := false
	if rest[0] == 's' || rest[0] == 'S' {
		signed = true
		rest = rest[1:]
	}
	if rest == "" {
		return nil, fmt.Errorf("malformed number %q", lit)
	}
	base := rest[0]
	digits := rest[1:]
	if digits == "" {
		return nil, fmt.Errorf("missing digits in %q", lit)
	}

	var bits []Bit
	var err error
	switch base {
	case 'b', 'B':
		bits, err = radixBits(digits, 1)
	case 'o', 'O':
		bits, err = radixBits(digits, 3)
	case 'h', 'H':
		bits, err = radixBits(digits, 4)
	case 'd', 'D':
		bits, err = decimalBits(digits)
	default:
		return nil, fmt.Errorf("unknown base %q in %q", base, lit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, lit)
	}

	v := &Verinum{bits: bits, signed: signed, sized: width > 0}
	if width < 0 {
		width = len(bits)
		if width < 32 {
			width = 32
		}
	}
	// Left padding of based literals extends x and z, never the sign.
	top := V0
	if len(bits) > 0 && bits[len(bits)-1] > V1 {
		top = bits[len(bits)-1]
	}
	res := &Verinum{bits: make([]Bit, width), signed: signed, sized: v.sized}
	for i := range res.bits {
		if i < len(bits) {
			res.bits[i] = bits[i]
		} else {
			res.bits[i] = top
		}
	}
	return res, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(lit string) *Verinum {
	v, err := Parse(lit)
	if err != nil {
		panic(err)
	}
	return v
}

func radixBits(digits string, per int) ([]Bit, error) {
	bits := make([]Bit, 0, len(digits)*per)
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		switch {
		case c == 'x' || c == 'X':
			for k := 0; k < per; k++ {
				bits = append(bits, Vx)
			}
		case c == 'z' || c == 'Z' || c == '?':
			for k := 0; k < per; k++ {
				bits = append(bits, Vz)
			}
		default:
			d, err := strconv.ParseUint(string(c), 16, 8)
			if err != nil || int(d) >= 1<<uint(per) {
				return nil, fmt.Errorf("invalid digit %q", c)
			}
			for k := 0; k < per; k++ {
				if (d>>uint(k))&1 != 0 {
					bits = append(bits, V1)
				} else {
					bits = append(bits, V0)
				}
			}
		}
	}
	return bits, nil
}

func decimalBits(digits string) ([]Bit, error) {
	switch digits {
	case "x", "X":
		return []Bit{Vx}, nil
	case "z", "Z", "?":
		return []Bit{Vz}, nil
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal digits %q", digits)
	}
	width := n.BitLen()
	if width == 0 {
		width = 1
	}
	return FromBigInt(n, width, false).bits, nil
}
