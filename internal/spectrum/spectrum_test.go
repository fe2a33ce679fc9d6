package spectrum

import (
	"math"
	"math/bits"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/argusdusty/gofft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
	"libdb.so/matrixglow/internal/fix15"
)

func tone(bin int, amplitude float64) []int16 {
	samples := make([]int16, Size)
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*float64(bin)*float64(i)/Size))
	}
	return samples
}

func reverse(i int) int {
	return int(bits.Reverse16(uint16(i)) >> (16 - log2Size))
}

func TestBitReverse(t *testing.T) {
	re := make([]fix15.Fix15, Size)
	im := make([]fix15.Fix15, Size)
	for i := range re {
		re[i] = fix15.Fix15(i)
		im[i] = fix15.Fix15(-i)
	}

	BitReverse(re, im)

	seen := make(map[fix15.Fix15]bool, Size)
	for i := range re {
		assert.Equal(t, fix15.Fix15(reverse(i)), re[i], "re[%d]", i)
		assert.Equal(t, -re[i], im[i], "im[%d]", i)
		seen[re[i]] = true
	}
	assert.Len(t, seen, Size, "permutation must be a bijection")

	BitReverse(re, im)

	for i := range re {
		assert.Equal(t, fix15.Fix15(i), re[i], "involution at %d", i)
	}
}

func TestFFTLinearity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sine := SineTable()

	var (
		ar, ai = make([]fix15.Fix15, Size), make([]fix15.Fix15, Size)
		br, bi = make([]fix15.Fix15, Size), make([]fix15.Fix15, Size)
		sr, si = make([]fix15.Fix15, Size), make([]fix15.Fix15, Size)
	)
	for i := 0; i < Size; i++ {
		ar[i] = fix15.FromInt(rng.Intn(2000) - 1000)
		br[i] = fix15.FromInt(rng.Intn(2000) - 1000)
		sr[i] = ar[i] + br[i]
	}

	FFT(ar, ai, sine)
	FFT(br, bi, sine)
	FFT(sr, si, sine)

	const tolerance = 64
	for i := 0; i < Size; i++ {
		assert.InDelta(t, int64(ar[i]+br[i]), int64(sr[i]), tolerance, "re[%d]", i)
		assert.InDelta(t, int64(ai[i]+bi[i]), int64(si[i]), tolerance, "im[%d]", i)
	}
}

func TestAnalyzerAgreesWithFloatFFT(t *testing.T) {
	const bin = 32
	samples := tone(bin, 8000)

	a := New(44100)
	a.Push(samples)
	a.Update()

	assert.Equal(t, bin, a.MaxBin())
	assert.InDelta(t, float64(bin)*44100/Size, a.MaxFrequency(), 1e-9)

	hann := windowTable(HannWindow, Size)
	windowed := make([]float64, Size)
	for i, s := range samples {
		windowed[i] = float64(s) * hann[i].Float()
	}

	ref := gofft.Float64ToComplex128Array(windowed)
	require.NoError(t, gofft.FFT(ref))

	// The fixed-point transform is scaled by 1/Size and uses an approximate
	// magnitude that may overshoot by up to ~8%.
	want := cmplx.Abs(ref[bin]) / Size
	got := a.Magnitude(bin).Float()
	assert.InEpsilon(t, want, got, 0.1)
}

func TestAnalyzerPeakMatchesGonum(t *testing.T) {
	low := tone(20, 3000)
	high := tone(100, 9000)
	mixed := make([]int16, Size)
	seq := make([]float64, Size)
	for i := range mixed {
		mixed[i] = low[i] + high[i]
		seq[i] = float64(mixed[i])
	}

	a := New(48000)
	a.Push(mixed)
	a.Update()

	coeffs := fourier.NewFFT(Size).Coefficients(nil, seq)
	wantBin := 0
	for i := minPeakBin; i < Bins; i++ {
		if cmplx.Abs(coeffs[i]) > cmplx.Abs(coeffs[wantBin]) {
			wantBin = i
		}
	}

	assert.Equal(t, 100, wantBin)
	assert.Equal(t, wantBin, a.MaxBin())
	assert.Greater(t, a.Magnitude(100), a.Magnitude(20))
	assert.Greater(t, a.Magnitude(20), a.Magnitude(60))
}

func TestMagnitudeMonotonicInAmplitude(t *testing.T) {
	var last fix15.Fix15
	for _, amplitude := range []float64{500, 1000, 2000, 4000, 8000, 16000} {
		a := New(44100)
		a.Push(tone(40, amplitude))
		a.Update()

		m := a.Magnitude(40)
		assert.Greater(t, m, last, "amplitude %v", amplitude)
		last = m
	}
}

func TestPushSlidesByStride(t *testing.T) {
	fill := func(v int16) []int16 {
		s := make([]int16, Stride)
		for i := range s {
			s[i] = v
		}
		return s
	}

	a := New(44100)
	a.Push(fill(1))
	a.Push(fill(2))

	samples := a.Samples()
	assert.Equal(t, int16(1), samples[0])
	assert.Equal(t, int16(1), samples[Stride-1])
	assert.Equal(t, int16(2), samples[Stride])
	assert.Equal(t, int16(2), samples[Size-1])

	a.Push(fill(3))
	assert.Equal(t, int16(2), samples[0])
	assert.Equal(t, int16(3), samples[Size-1])
}

func TestScaledQueries(t *testing.T) {
	a := New(44100)
	a.Push(tone(64, 10000))
	a.Update()

	m := a.Magnitude(64)
	assert.Equal(t, m.Int(), a.GetScaled(64, 1))
	assert.Equal(t, fix15.Mul(m, fix15.FromInt(3)).Int(), a.GetScaled(64, 3))
	assert.Equal(t, fix15.Mul(m, fix15.FromFloat(2.5)).Int(), a.GetScaledFix15(64, fix15.FromFloat(2.5)))
	assert.Equal(t, fix15.Mul(m, fix15.FromFloat(2.5)), a.GetScaledAsFix15(64, fix15.FromFloat(2.5)))
	assert.Equal(t, fix15.Max, a.GetScaledAsFix15(64, fix15.FromInt(30000)))
	assert.Equal(t, fix15.Max.Int(), a.GetScaledFix15(64, fix15.FromInt(30000)))

	// Scales past the Fix15 integer range still saturate.
	assert.Equal(t, 65535, a.GetScaled(64, 30000))
	assert.Equal(t, 65535, a.GetScaled(64, 1<<20))
	assert.Equal(t, -65536, a.GetScaled(64, -30000))
}

func TestLoudnessMultiplier(t *testing.T) {
	assert.InDelta(t, 0.2232641215, LoudnessMultiplier(20), 1e-9)
	assert.InDelta(t, 0.9995002499, LoudnessMultiplier(1000), 1e-9)
	assert.InDelta(t, (0.2232641215+0.241984271)/2, LoudnessMultiplier(22.5), 1e-9)
	assert.InDelta(t, 0, LoudnessMultiplier(20000), 1e-9)
	assert.Equal(t, 0.0, LoudnessMultiplier(30000))
}

func TestLoudnessCompensation(t *testing.T) {
	const columns = 53
	adjust := LoudnessCompensation(88200, columns, 1, 11*0.318)
	require.Len(t, adjust, columns)

	// Column 0 reads bin 1 at 86 Hz, between the 80 Hz and 100 Hz points.
	want := 11 * 0.318 * LoudnessMultiplier(86)
	assert.InDelta(t, want, adjust[0].Float(), 1e-4)

	for i, v := range adjust {
		assert.Greater(t, v, fix15.Fix15(0), "column %d", i)
	}
}

func TestLanczosWindow(t *testing.T) {
	w := windowTable(LanczosWindow, Size)
	require.Len(t, w, Size)

	assert.InDelta(t, 0, w[0].Float(), 1e-4)
	assert.InDelta(t, 2/math.Pi, w[Size/4].Float(), 1e-4)
	assert.InDelta(t, w[Size/4].Float(), w[3*Size/4].Float(), 1e-4)
}
