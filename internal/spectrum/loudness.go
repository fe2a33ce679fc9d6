package spectrum

import "libdb.so/matrixglow/internal/fix15"

type loudnessPoint struct {
	freq       float64
	multiplier float64
}

// loudnessCurve maps frequency to the amplitude multiplier that makes a tone
// sound equally loud at 20 phons.
var loudnessCurve = []loudnessPoint{
	{20, 0.2232641215},
	{25, 0.241984271},
	{31, 0.263227165},
	{40, 0.2872737719},
	{50, 0.3124023743},
	{63, 0.341588386},
	{80, 0.3760105283},
	{100, 0.4133939644},
	{125, 0.4551661356},
	{160, 0.508001016},
	{200, 0.5632216277},
	{250, 0.6251953736},
	{315, 0.6971070059},
	{400, 0.7791195949},
	{500, 0.8536064874},
	{630, 0.9310986965},
	{800, 0.9950248756},
	{1000, 0.9995002499},
	{1250, 0.9319664492},
	{1600, 0.9345794393},
	{2000, 1.101928375},
	{2500, 1.300390117},
	{3150, 1.402524544},
	{4000, 1.321003963},
	{5000, 1.073537305},
	{6300, 0.7993605116},
	{8000, 0.6345177665},
	{10000, 0.5808887598},
	{12500, 0.6053268765},
	{20000, 0},
}

// LoudnessMultiplier returns the interpolated loudness multiplier for the
// given frequency. Frequencies outside the curve are extrapolated from the
// nearest segment and never go below zero.
func LoudnessMultiplier(freq float64) float64 {
	j := 0
	for j < len(loudnessCurve)-2 && loudnessCurve[j+1].freq < freq {
		j++
	}

	lo := loudnessCurve[j]
	hi := loudnessCurve[j+1]

	t := (freq - lo.freq) / (hi.freq - lo.freq)
	m := t*hi.multiplier + (1-t)*lo.multiplier
	if m < 0 {
		return 0
	}
	return m
}

// LoudnessCompensation computes one fixed-point scale factor per column. The
// column at index i reads bin i+skipBins, and its factor is the loudness
// multiplier at that bin's frequency times scale.
func LoudnessCompensation(sampleRate float64, columns, skipBins int, scale float64) []fix15.Fix15 {
	adjust := make([]fix15.Fix15, columns)
	for i := range adjust {
		freq := float64(int(sampleRate) * (i + skipBins) / Size)
		adjust[i] = fix15.FromFloat(scale * LoudnessMultiplier(freq))
	}
	return adjust
}
