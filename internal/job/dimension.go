package job

import "fmt"

// Dimension is one axis of the index space: a cursor position and the extent
// of the axis. Index == Span means the axis is exhausted.
type Dimension struct {
	Index int
	Span  int
}

// NewDimension creates a dimension with the cursor at zero.
//
// Returns ErrZeroSizedDimension when span is not positive.
func NewDimension(span int) (Dimension, error) {
	if span <= 0 {
		return Dimension{}, ErrZeroSizedDimension
	}
	return Dimension{Index: 0, Span: span}, nil
}

// HasJob reports whether the cursor still points at a valid cell.
func (d Dimension) HasJob() bool {
	return d.Index < d.Span
}

// IsFinished reports whether the cursor has run off the end of the axis.
func (d Dimension) IsFinished() bool {
	return !d.HasJob()
}

// Reset rewinds the cursor to the start of the axis.
func (d *Dimension) Reset() {
	d.Index = 0
}

// Next emits the current cursor position and advances.
// The second return value is false once the axis is exhausted.
func (d *Dimension) Next() (int, bool) {
	if !d.HasJob() {
		return 0, false
	}
	result := d.Index
	d.Index++
	return result, true
}

// Bounds returns the fractional interval [lo, hi) covered by the current
// cell. The final cell's upper bound collapses to exactly 1.0 so callers
// never see floating drift at the top of the axis.
func (d Dimension) Bounds() (float64, float64) {
	lower := float64(d.Index) / float64(d.Span)
	if d.Index+1 == d.Span {
		return lower, 1.0
	}
	return lower, float64(d.Index+1) / float64(d.Span)
}

// AsFraction returns the midpoint of Bounds, a telemetry-friendly progress
// value in [0, 1].
func (d Dimension) AsFraction() float64 {
	lower, upper := d.Bounds()
	return (lower + upper) / 2.0
}

// String renders the dimension in its wire form, "index/span".
func (d Dimension) String() string {
	return fmt.Sprintf("%d/%d", d.Index, d.Span)
}
