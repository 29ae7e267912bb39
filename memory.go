package ijstack

import (
	"context"
	"fmt"
)

// MemorySeries is a series with planes held in memory, indexed [c][z][t].
type MemorySeries struct {
	Series
	Planes [][][]*Plane
}

// MemoryReader serves series from memory.
type MemoryReader struct {
	series []MemorySeries
}

// NewMemoryReader returns a reader over the given series. Series indexes
// are assigned in order.
func NewMemoryReader(series ...MemorySeries) *MemoryReader {
	for i := range series {
		series[i].Index = i
	}
	return &MemoryReader{series: series}
}

// Series implements Reader.
func (m *MemoryReader) Series(context.Context) ([]Series, error) {
	out := make([]Series, len(m.series))
	for i, s := range m.series {
		out[i] = s.Series
	}
	return out, nil
}

// ReadPlane implements Reader.
func (m *MemoryReader) ReadPlane(ctx context.Context, series, c, z, t int) (*Plane, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if series < 0 || series >= len(m.series) {
		return nil, fmt.Errorf("series %d: %w", series, ErrNotFound)
	}
	s := m.series[series]
	if c < 0 || c >= len(s.Planes) || z < 0 || z >= len(s.Planes[c]) || t < 0 || t >= len(s.Planes[c][z]) {
		return nil, fmt.Errorf("plane c=%d z=%d t=%d of series %d: %w", c, z, t, series, ErrNotFound)
	}
	p := s.Planes[c][z][t]
	if p == nil {
		return nil, fmt.Errorf("plane c=%d z=%d t=%d of series %d: %w", c, z, t, series, ErrNotFound)
	}
	return p, nil
}

// Close implements Reader.
func (m *MemoryReader) Close() error { return nil }
