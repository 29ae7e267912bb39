package ijstack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"
)

// Manifest file names looked up by OpenDataset, in order.
const (
	DatasetManifestYAML = "dataset.yaml"
	DatasetManifestJSON = "dataset.json"
)

// DatasetManifest describes a directory of per-plane TIFF files.
type DatasetManifest struct {
	Series []DatasetSeries `json:"series" yaml:"series"`
}

// DatasetSeries is a series entry of a manifest. Planes is a pattern
// relative to the dataset directory with fields c, z, t, srs and name.
type DatasetSeries struct {
	Series `yaml:",inline"`
	Planes string `json:"planes" yaml:"planes"`
}

// Dataset reads series from a directory holding a manifest and 8 or 16-bit
// grayscale TIFF planes.
type Dataset struct {
	dir      string
	series   []Series
	patterns []*Pattern
}

// OpenDataset loads the manifest of dir.
func OpenDataset(dir string) (*Dataset, error) {
	var (
		m   DatasetManifest
		err error
	)

	data, err := os.ReadFile(filepath.Join(dir, DatasetManifestYAML))
	switch {
	case err == nil:
		err = yaml.Unmarshal(data, &m)
	case errors.Is(err, os.ErrNotExist):
		data, err = os.ReadFile(filepath.Join(dir, DatasetManifestJSON))
		if err == nil {
			err = json.Unmarshal(data, &m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dataset manifest in %s: %w", dir, err)
	}

	return NewDataset(dir, m)
}

// NewDataset validates a manifest for the planes under dir.
func NewDataset(dir string, m DatasetManifest) (*Dataset, error) {
	if len(m.Series) == 0 {
		return nil, fmt.Errorf("dataset %s: no series", dir)
	}

	d := &Dataset{dir: dir}
	for i, ds := range m.Series {
		s := ds.Series
		s.Index = i
		if s.Name == "" {
			s.Name = fmt.Sprintf("Series%03d", i)
		}
		if s.SizeX <= 0 || s.SizeY <= 0 || s.SizeC <= 0 || s.SizeZ <= 0 || s.SizeT <= 0 {
			return nil, fmt.Errorf("dataset %s series %d: sizes must be positive", dir, i)
		}
		if s.PixelType == PixelUnspecified {
			s.PixelType = PixelUint16
		}
		if s.PixelType != PixelUint8 && s.PixelType != PixelUint16 {
			return nil, fmt.Errorf("dataset %s series %d: %w: %s", dir, i, ErrPixelType, s.PixelType)
		}
		if s.DimensionOrder == "" {
			s.DimensionOrder = "XYCZT"
		}

		p, err := ParsePattern(ds.Planes)
		if err != nil {
			return nil, fmt.Errorf("dataset %s series %d: %w", dir, i, err)
		}
		if len(p.Fields()) == 0 && s.Planes() > 1 {
			return nil, fmt.Errorf("dataset %s series %d: %w: plane pattern %q has no fields", dir, i, ErrPattern, ds.Planes)
		}

		d.series = append(d.series, s)
		d.patterns = append(d.patterns, p)
	}
	return d, nil
}

// Series implements Reader.
func (d *Dataset) Series(context.Context) ([]Series, error) {
	return append([]Series(nil), d.series...), nil
}

// PlanePath returns the file holding a plane.
func (d *Dataset) PlanePath(series, c, z, t int) (string, error) {
	if series < 0 || series >= len(d.series) {
		return "", fmt.Errorf("series %d: %w", series, ErrNotFound)
	}
	name, err := d.patterns[series].Format(map[string]any{
		"c": c, "z": z, "t": t, "srs": series, "name": d.series[series].Name,
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(d.dir, filepath.FromSlash(name)), nil
}

// ReadPlane implements Reader.
func (d *Dataset) ReadPlane(ctx context.Context, series, c, z, t int) (*Plane, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.PlanePath(series, c, z, t)
	if err != nil {
		return nil, err
	}
	s := d.series[series]
	if c < 0 || c >= s.SizeC || z < 0 || z >= s.SizeZ || t < 0 || t >= s.SizeT {
		return nil, fmt.Errorf("plane c=%d z=%d t=%d of series %d: %w", c, z, t, series, ErrNotFound)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	p, err := decodePlane(data, s.PixelType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Width != s.SizeX || p.Height != s.SizeY {
		return nil, fmt.Errorf("%s: %w: %dx%d, series is %dx%d", path, ErrPlaneShape, p.Width, p.Height, s.SizeX, s.SizeY)
	}
	return p, nil
}

// Close implements Reader.
func (d *Dataset) Close() error { return nil }

// decodePlane decodes a TIFF into a grayscale plane of type pt.
func decodePlane(data []byte, pt PixelType) (*Plane, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.New("invalid TIFF dimensions")
	}

	p := &Plane{Width: w, Height: h, Type: pt}
	switch {
	case pt == PixelUint8:
		g, ok := img.(*image.Gray)
		if !ok {
			g = image.NewGray(b)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					g.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
				}
			}
		}
		p.Pix = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			p.Pix = append(p.Pix, g.Pix[y*g.Stride:y*g.Stride+w]...)
		}
	default:
		g, ok := img.(*image.Gray16)
		if !ok {
			g = image.NewGray16(b)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					g.Set(x, y, color.Gray16Model.Convert(img.At(x, y)))
				}
			}
		}
		p.Pix = make([]byte, 0, 2*w*h)
		for y := 0; y < h; y++ {
			p.Pix = append(p.Pix, g.Pix[y*g.Stride:y*g.Stride+2*w]...)
		}
	}
	return p, nil
}
