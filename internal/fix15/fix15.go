// Package fix15 implements signed 16.15 fixed-point arithmetic.
//
// A Fix15 stores a real number x as round-toward-zero(x * 2^15) in a signed
// 32-bit integer, giving 16 integer bits (including sign) and 15 fractional
// bits.
package fix15

import "math"

// Fix15 is a signed 16.15 fixed-point number.
type Fix15 int32

// One is 1.0 in fixed point.
const One Fix15 = 1 << 15

const (
	// Max is the largest representable value.
	Max Fix15 = math.MaxInt32
	// Min is the smallest representable value.
	Min Fix15 = math.MinInt32
)

// Mul multiplies a and b with a 64-bit intermediate product.
func Mul(a, b Fix15) Fix15 {
	return Fix15((int64(a) * int64(b)) >> 15)
}

// MulSat is like Mul, except the result is clamped to [Min, Max] instead of
// wrapping.
func MulSat(a, b Fix15) Fix15 {
	p := (int64(a) * int64(b)) >> 15
	switch {
	case p > int64(Max):
		return Max
	case p < int64(Min):
		return Min
	default:
		return Fix15(p)
	}
}

// MulUnit multiplies a and b using only 32-bit intermediates. It is only
// correct when |a| <= 1.
func MulUnit(a, b Fix15) Fix15 {
	bh := int32(b) >> 15
	bl := int32(b) & 0x7fff
	return Fix15(((int32(a) * bl) >> 15) + int32(a)*bh)
}

// FromInt converts an integer to fixed point.
func FromInt(i int) Fix15 {
	return Fix15(int32(i) << 15)
}

// FromFloat converts a float to fixed point, truncating toward zero.
func FromFloat(f float64) Fix15 {
	return Fix15(f * 32768)
}

// Int returns the integer part of f, rounding toward negative infinity.
func (f Fix15) Int() int {
	return int(f >> 15)
}

// Float returns f as a float.
func (f Fix15) Float() float64 {
	return float64(f) / 32768
}

// Abs returns the absolute value of f.
func (f Fix15) Abs() Fix15 {
	if f < 0 {
		return -f
	}
	return f
}

// ToInt is the function form of Fix15.Int.
func ToInt(f Fix15) int { return f.Int() }

// ToFloat is the function form of Fix15.Float.
func ToFloat(f Fix15) float64 { return f.Float() }
