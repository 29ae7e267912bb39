package ijstack

import (
	"context"
	"fmt"
	"strings"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// PixelType identifies a sample type.
type PixelType int

const (
	PixelUnspecified PixelType = iota
	PixelUint8
	PixelUint16
	PixelUint32
	PixelInt8
	PixelInt16
	PixelInt32
	PixelFloat32
)

var pixelTypeNames = map[PixelType]string{
	PixelUint8:   "uint8",
	PixelUint16:  "uint16",
	PixelUint32:  "uint32",
	PixelInt8:    "int8",
	PixelInt16:   "int16",
	PixelInt32:   "int32",
	PixelFloat32: "float32",
}

// ParsePixelType accepts names such as "uint16" or "float".
func ParsePixelType(s string) (PixelType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "float" {
		return PixelFloat32, nil
	}
	for t, name := range pixelTypeNames {
		if name == s {
			return t, nil
		}
	}
	return PixelUnspecified, fmt.Errorf("%w: %q", ErrPixelType, s)
}

func (t PixelType) String() string {
	if name, ok := pixelTypeNames[t]; ok {
		return name
	}
	return "unspecified"
}

// Size returns bytes per sample.
func (t PixelType) Size() int {
	switch t {
	case PixelUint8, PixelInt8:
		return 1
	case PixelUint16, PixelInt16:
		return 2
	case PixelUint32, PixelInt32, PixelFloat32:
		return 4
	default:
		return 0
	}
}

func (t PixelType) sampleFormat() tiffw.SampleFormat {
	switch t {
	case PixelInt8, PixelInt16, PixelInt32:
		return tiffw.SampleInt
	case PixelFloat32:
		return tiffw.SampleFloat
	default:
		return tiffw.SampleUint
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t PixelType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PixelType) UnmarshalText(b []byte) error {
	v, err := ParsePixelType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Plane is one 2D image plane.
type Plane struct {
	Width  int
	Height int
	Type   PixelType
	// Pix holds row-major samples in big-endian order.
	Pix []byte
}

// Series describes one multi-dimensional image of a dataset.
type Series struct {
	Index          int       `json:"index" yaml:"-"`
	Name           string    `json:"name" yaml:"name"`
	SizeX          int       `json:"size_x" yaml:"size_x"`
	SizeY          int       `json:"size_y" yaml:"size_y"`
	SizeC          int       `json:"size_c" yaml:"size_c"`
	SizeZ          int       `json:"size_z" yaml:"size_z"`
	SizeT          int       `json:"size_t" yaml:"size_t"`
	PhysicalSizeX  float64   `json:"physical_size_x,omitempty" yaml:"physical_size_x"`
	PhysicalSizeY  float64   `json:"physical_size_y,omitempty" yaml:"physical_size_y"`
	PhysicalSizeZ  float64   `json:"physical_size_z,omitempty" yaml:"physical_size_z"`
	Unit           string    `json:"unit,omitempty" yaml:"unit"`
	DimensionOrder string    `json:"dimension_order,omitempty" yaml:"dimension_order"`
	PixelType      PixelType `json:"pixel_type" yaml:"pixel_type"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	ChannelNames   []string  `json:"channel_names,omitempty" yaml:"channel_names"`
}

// Planes returns the number of planes in the series.
func (s Series) Planes() int { return s.SizeC * s.SizeZ * s.SizeT }

// Reader supplies planes of multi-dimensional series.
type Reader interface {
	Series(ctx context.Context) ([]Series, error)
	ReadPlane(ctx context.Context, series, c, z, t int) (*Plane, error)
	Close() error
}
