package spectrum

import (
	"math/bits"

	"libdb.so/matrixglow/internal/fix15"
)

// BitReverse permutes re and im into bit-reversed index order. Both slices
// must have length Size.
func BitReverse(re, im []fix15.Fix15) {
	shift := 16 - log2Size
	for m := 1; m < Size-1; m++ {
		mr := int(bits.Reverse16(uint16(m)) >> shift)
		// Each pair is swapped once, from its lower index.
		if mr <= m {
			continue
		}
		re[m], re[mr] = re[mr], re[m]
		im[m], im[mr] = im[mr], im[m]
	}
}

// FFT computes an in-place forward transform of (re, im) using a half
// amplitude sine table of Size entries. Every butterfly stage halves its
// inputs, so the output is the true DFT divided by Size.
func FFT(re, im, sine []fix15.Fix15) {
	BitReverse(re, im)

	k := log2Size - 1
	for l := 1; l < Size; l <<= 1 {
		istep := l << 1
		for m := 0; m < l; m++ {
			j := m << k
			wr := sine[j+Size/4]
			wi := -sine[j]

			for i := m; i < Size; i += istep {
				j := i + l
				tr := fix15.Mul(wr, re[j]) - fix15.Mul(wi, im[j])
				ti := fix15.Mul(wr, im[j]) + fix15.Mul(wi, re[j])
				qr := re[i] >> 1
				qi := im[i] >> 1
				re[j] = qr - tr
				im[j] = qi - ti
				re[i] = qr + tr
				im[i] = qi + ti
			}
		}
		k--
	}
}

// SineTable returns the half amplitude sine table used by FFT.
func SineTable() []fix15.Fix15 {
	a := New(1)
	out := make([]fix15.Fix15, Size)
	copy(out, a.sine[:])
	return out
}
