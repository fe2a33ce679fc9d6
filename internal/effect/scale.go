package effect

import (
	"fmt"
	"math"

	"libdb.so/matrixglow/internal/fix15"
)

// ScaleMode is how a bar's magnitude is reduced from one lit row to the next.
type ScaleMode string

const (
	// LogScale divides the magnitude by a constant factor per row.
	LogScale ScaleMode = "log"
	// SqrtScale subtracts a step that grows by the same amount every row.
	SqrtScale ScaleMode = "sqrt"
	// LinearScale subtracts a constant step per row.
	LinearScale ScaleMode = "linear"
)

// DefaultScale is the scale mode used when none is configured.
const DefaultScale = LogScale

// Validate returns an error if the scale mode is unknown. An empty mode is
// valid and means DefaultScale.
func (m ScaleMode) Validate() error {
	switch m {
	case "", LogScale, SqrtScale, LinearScale:
		return nil
	default:
		return fmt.Errorf("unknown scale mode %q", m)
	}
}

// scaler reduces a bar's remaining magnitude after each lit row.
type scaler struct {
	mode     ScaleMode
	multiple fix15.Fix15
	step     fix15.Fix15
}

// newScaler derives the per-row reduction so that a magnitude of maxSample
// reaches lower after height-1 rows.
func newScaler(mode ScaleMode, maxSample float64, lower int, height int) scaler {
	s := scaler{mode: mode}
	span := maxSample - float64(lower)
	rows := float64(height - 1)

	switch mode {
	case SqrtScale:
		s.step = fix15.FromFloat(span * 2 / (float64(height) * rows))
	case LinearScale:
		s.step = fix15.FromFloat(span / rows)
	default:
		s.mode = LogScale
		s.multiple = fix15.FromFloat(math.Pow(maxSample/float64(lower), -1/rows))
	}

	return s
}

// reduce returns what is left of sample after lighting row y, where rows
// 0 to y-1 were lit before it.
func (s scaler) reduce(sample fix15.Fix15, y int) fix15.Fix15 {
	switch s.mode {
	case SqrtScale:
		return max(1, sample-s.step*fix15.Fix15(y+1))
	case LinearScale:
		return max(1, sample-s.step)
	default:
		return fix15.MulUnit(s.multiple, sample)
	}
}
