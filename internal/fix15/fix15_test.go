package fix15

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	assert.Equal(t, Fix15(32768), FromInt(1))
	assert.Equal(t, Fix15(-32768), FromInt(-1))
	assert.Equal(t, 7, FromInt(7).Int())
	assert.Equal(t, Fix15(16384), FromFloat(0.5))
	assert.InDelta(t, 0.25, FromFloat(0.25).Float(), 1e-9)
	// Truncation toward zero.
	assert.Equal(t, Fix15(13107), FromFloat(0.4))
}

func TestMul(t *testing.T) {
	tests := []struct {
		name string
		a, b Fix15
		want Fix15
	}{
		{"half of two", FromFloat(0.5), FromInt(2), FromInt(1)},
		{"negative", FromInt(-3), FromInt(4), FromInt(-12)},
		{"large", FromInt(1000), FromInt(20), FromInt(20000)},
		{"zero", 0, FromInt(1234), 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Mul(test.a, test.b))
		})
	}
}

func TestMulSat(t *testing.T) {
	assert.Equal(t, Max, MulSat(FromInt(30000), FromInt(30000)))
	assert.Equal(t, Min, MulSat(FromInt(-30000), FromInt(30000)))
	assert.Equal(t, FromInt(6), MulSat(FromInt(2), FromInt(3)))
}

func TestMulUnitAgreesWithMul(t *testing.T) {
	units := []Fix15{FromFloat(0.77), FromFloat(-0.3), One, FromFloat(0.001), 0}
	values := []Fix15{FromInt(5000), FromFloat(123.456), FromInt(-17), 1, FromInt(60000)}

	for _, a := range units {
		for _, b := range values {
			got := MulUnit(a, b)
			want := Mul(a, b)
			// The split multiply may differ from the 64-bit path by one LSB
			// of rounding in the low half.
			assert.InDelta(t, int64(want), int64(got), 1, "MulUnit(%d, %d)", a, b)
		}
	}
}

func TestAbs(t *testing.T) {
	assert.Equal(t, FromInt(3), FromInt(-3).Abs())
	assert.Equal(t, FromInt(3), FromInt(3).Abs())
}
