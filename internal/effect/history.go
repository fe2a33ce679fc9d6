package effect

// HistoryLen is the number of ticks a peak marker is held for.
const HistoryLen = 21

// History keeps, per column, the rows at which the bar ran out over the last
// HistoryLen ticks. A single cursor is shared by all columns.
type History struct {
	rows [][HistoryLen]uint8
	idx  int
}

// NewHistory creates an empty history for the given number of columns.
func NewHistory(columns int) *History {
	return &History{rows: make([][HistoryLen]uint8, columns)}
}

// Begin clears the current tick's slot of col and returns the highest row
// recorded over the remaining ticks.
func (h *History) Begin(col int) int {
	ring := &h.rows[col]
	ring[h.idx] = 0

	var maxy uint8
	for _, y := range ring {
		if y > maxy {
			maxy = y
		}
	}
	return int(maxy)
}

// Record records row y for col in the current tick's slot.
func (h *History) Record(col, y int) {
	h.rows[col][h.idx] = uint8(y)
}

// Advance moves the cursor to the next tick.
func (h *History) Advance() {
	h.idx = (h.idx + 1) % HistoryLen
}
