package ijstack

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSeries expands a series selection such as "0", "1,3-5" or "all"
// against a file holding n series. Ranges are inclusive.
func ParseSeries(spec string, n int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "all" {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if spec == "" {
		return nil, fmt.Errorf("%w: empty", ErrSeriesSpec)
	}

	var out []int
	for _, tok := range strings.Split(spec, ",") {
		bounds := strings.Split(strings.TrimSpace(tok), "-")
		switch len(bounds) {
		case 1:
			v, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrSeriesSpec, tok)
			}
			out = append(out, v)
		case 2:
			lo, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			hi, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil || hi < lo {
				return nil, fmt.Errorf("%w: %q", ErrSeriesSpec, tok)
			}
			for v := lo; v <= hi; v++ {
				out = append(out, v)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrSeriesSpec, tok)
		}
	}

	for _, v := range out {
		if v < 0 || v >= n {
			return nil, fmt.Errorf("%w: series %d out of range [0, %d)", ErrSeriesSpec, v, n)
		}
	}
	return out, nil
}

// ParseIndices parses a comma-separated list of non-negative integers.
func ParseIndices(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []int
	for _, tok := range strings.Split(list, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid index %q", tok)
		}
		out = append(out, v)
	}
	return out, nil
}

// Span is a half-open index range. A nil bound means "from the start" or
// "to the end".
type Span struct {
	Min *int
	Max *int
}

// Resolve clamps the span to [0, size).
func (s Span) Resolve(size int) (lo, hi int) {
	lo, hi = 0, size
	if s.Min != nil {
		lo = max(*s.Min, 0)
	}
	if s.Max != nil {
		hi = min(*s.Max, size)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
