package ijstack

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func float32Plane(vals ...float32) *Plane {
	pix := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		pix = binary.BigEndian.AppendUint32(pix, math.Float32bits(v))
	}
	return &Plane{Width: len(vals), Height: 1, Type: PixelFloat32, Pix: pix}
}

func TestPlaneConvertFloatToUint16(t *testing.T) {
	p := float32Plane(0, 0.5, 1, 2, -1)
	out, err := p.Convert(PixelUint16)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := []float64{0, 32767, 65535, 65535, 0}
	for i, w := range want {
		if got := out.At(i); got != w {
			t.Fatalf("sample %d: got %v want %v", i, got, w)
		}
	}
}

func TestPlaneConvertClampsIntegers(t *testing.T) {
	p := &Plane{Width: 3, Height: 1, Type: PixelUint16, Pix: []byte{0, 10, 1, 0, 255, 255}}
	out, err := p.Convert(PixelUint8)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out.Pix[0] != 10 || out.Pix[1] != 255 || out.Pix[2] != 255 {
		t.Fatalf("clamped samples: %v", out.Pix)
	}

	f, err := p.Convert(PixelFloat32)
	if err != nil {
		t.Fatalf("convert to float: %v", err)
	}
	if f.At(1) != 256 {
		t.Fatalf("float sample: %v", f.At(1))
	}
}

func TestPlaneConvertSameTypeIsNoop(t *testing.T) {
	p := &Plane{Width: 1, Height: 1, Type: PixelUint8, Pix: []byte{7}}
	out, err := p.Convert(PixelUint8)
	if err != nil || out != p {
		t.Fatalf("expected same plane, got %v %v", out, err)
	}
}

func TestPlaneValidate(t *testing.T) {
	p := &Plane{Width: 2, Height: 2, Type: PixelUint16, Pix: make([]byte, 6)}
	if err := p.Validate(); !errors.Is(err, ErrPlaneShape) {
		t.Fatalf("expected ErrPlaneShape, got %v", err)
	}
	p.Type = PixelUnspecified
	if err := p.Validate(); !errors.Is(err, ErrPixelType) {
		t.Fatalf("expected ErrPixelType, got %v", err)
	}
}

func TestPlaneBounds(t *testing.T) {
	p := float32Plane(3, float32(math.NaN()), -2, 8)
	lo, hi := p.Bounds()
	if lo != -2 || hi != 8 {
		t.Fatalf("bounds: %v %v", lo, hi)
	}
}

func TestParsePixelType(t *testing.T) {
	for in, want := range map[string]PixelType{"uint8": PixelUint8, "UINT16": PixelUint16, "float": PixelFloat32, "int16": PixelInt16} {
		got, err := ParsePixelType(in)
		if err != nil || got != want {
			t.Fatalf("ParsePixelType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePixelType("complex64"); !errors.Is(err, ErrPixelType) {
		t.Fatalf("expected ErrPixelType, got %v", err)
	}
}
