// Package interval implements subtraction over half-open scalar ranges.
package interval

import "fmt"

// Range is the half-open interval [Start, End). A Range with Start == End is empty.
type Range struct {
	Start float64
	End   float64
}

// New returns the range [start, end). If end < start the range is collapsed to
// an empty range at start.
func New(start, end float64) Range {
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

// Length returns End - Start.
func (r Range) Length() float64 {
	return r.End - r.Start
}

// Empty reports whether the range covers nothing.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Overlaps reports whether r and other share any interior point. Touching
// ranges do not overlap.
func (r Range) Overlaps(other Range) bool {
	return other.End > r.Start && other.Start < r.End
}

// Intersect returns the overlap of r and other, or an empty range at r.Start
// when they do not overlap.
func (r Range) Intersect(other Range) Range {
	if !r.Overlaps(other) {
		return Range{Start: r.Start, End: r.Start}
	}
	return Range{Start: max(r.Start, other.Start), End: min(r.End, other.End)}
}

// Subtract removes other from r and returns what is left.
//
// The result has one or two elements. When other covers r completely the
// result is a single zero-length range at r.Start rather than an empty slice,
// so callers must filter empty ranges themselves.
func (r Range) Subtract(other Range) []Range {
	switch {
	case !r.Overlaps(other):
		return []Range{r}
	case other.Start <= r.Start && other.End >= r.End:
		return []Range{{Start: r.Start, End: r.Start}}
	case other.Start <= r.Start:
		return []Range{{Start: other.End, End: r.End}}
	case other.End >= r.End:
		return []Range{{Start: r.Start, End: other.Start}}
	default:
		return []Range{{Start: r.Start, End: other.Start}, {Start: other.End, End: r.End}}
	}
}

// SubtractAll removes other from every range in rs.
func SubtractAll(rs []Range, other Range) []Range {
	out := make([]Range, 0, len(rs)+1)
	for _, r := range rs {
		out = append(out, r.Subtract(other)...)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("%g - %g", r.Start, r.End)
}
