package ijstack

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Validate checks that Pix matches the plane geometry.
func (p *Plane) Validate() error {
	size := p.Type.Size()
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrPixelType, p.Type)
	}
	if p.Width <= 0 || p.Height <= 0 || len(p.Pix) != p.Width*p.Height*size {
		return fmt.Errorf("%w: %dx%d %s with %d bytes", ErrPlaneShape, p.Width, p.Height, p.Type, len(p.Pix))
	}
	return nil
}

// Len returns the number of samples.
func (p *Plane) Len() int { return p.Width * p.Height }

// At returns sample i as float64.
func (p *Plane) At(i int) float64 {
	be := binary.BigEndian
	switch p.Type {
	case PixelUint8:
		return float64(p.Pix[i])
	case PixelInt8:
		return float64(int8(p.Pix[i]))
	case PixelUint16:
		return float64(be.Uint16(p.Pix[2*i:]))
	case PixelInt16:
		return float64(int16(be.Uint16(p.Pix[2*i:])))
	case PixelUint32:
		return float64(be.Uint32(p.Pix[4*i:]))
	case PixelInt32:
		return float64(int32(be.Uint32(p.Pix[4*i:])))
	case PixelFloat32:
		return float64(math.Float32frombits(be.Uint32(p.Pix[4*i:])))
	default:
		return 0
	}
}

func (p *Plane) set(i int, v float64) {
	be := binary.BigEndian
	switch p.Type {
	case PixelUint8:
		p.Pix[i] = uint8(v)
	case PixelInt8:
		p.Pix[i] = byte(int8(v))
	case PixelUint16:
		be.PutUint16(p.Pix[2*i:], uint16(v))
	case PixelInt16:
		be.PutUint16(p.Pix[2*i:], uint16(int16(v)))
	case PixelUint32:
		be.PutUint32(p.Pix[4*i:], uint32(v))
	case PixelInt32:
		be.PutUint32(p.Pix[4*i:], uint32(int32(v)))
	case PixelFloat32:
		be.PutUint32(p.Pix[4*i:], math.Float32bits(float32(v)))
	}
}

// Bounds returns the minimum and maximum sample values, ignoring NaN.
func (p *Plane) Bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < p.Len(); i++ {
		v := p.At(i)
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func typeRange(t PixelType) (lo, hi float64) {
	switch t {
	case PixelUint8:
		return 0, math.MaxUint8
	case PixelInt8:
		return math.MinInt8, math.MaxInt8
	case PixelUint16:
		return 0, math.MaxUint16
	case PixelInt16:
		return math.MinInt16, math.MaxInt16
	case PixelUint32:
		return 0, math.MaxUint32
	case PixelInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return -math.MaxFloat32, math.MaxFloat32
	}
}

// Convert returns the plane cast to type t. Float samples are scaled by the
// maximum of an integer target, so [0, 1] maps to the full range. Values
// are rounded toward zero and clamped to the target range.
func (p *Plane) Convert(t PixelType) (*Plane, error) {
	if t == PixelUnspecified || t == p.Type {
		return p, nil
	}
	if t.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPixelType, t)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	lo, hi := typeRange(t)
	scale := 1.0
	if p.Type == PixelFloat32 && t != PixelFloat32 {
		scale = hi
	}

	out := &Plane{Width: p.Width, Height: p.Height, Type: t, Pix: make([]byte, p.Len()*t.Size())}
	for i := 0; i < p.Len(); i++ {
		v := p.At(i) * scale
		if math.IsNaN(v) {
			v = 0
		}
		if t != PixelFloat32 {
			v = math.Trunc(v)
		}
		out.set(i, math.Max(lo, math.Min(hi, v)))
	}
	return out, nil
}
