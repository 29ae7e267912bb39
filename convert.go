package ijstack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// ConvertOptions controls Convert.
type ConvertOptions struct {
	Series   string // selection for ParseSeries, default "0"
	Channels []int  // default all channels
	Z        Span
	T        Span

	// Stack writes one hyperstack per series to Output instead of one file
	// per plane under OutputDir.
	Stack         bool
	OutputDir     string
	OutputPattern string
	Output        string

	Compression int       // zlib level, 0 for none
	PixelType   PixelType // cast planes, PixelUnspecified keeps the source type
	ByteOrder   ByteOrder // default BigEndian for stacks, LittleEndian for planes
	AutoRange   bool
	LUTs        LUTs // channel colors for stacks, default cycle

	// OnPlane is called after each plane with the number of planes done and
	// the total of the series.
	OnPlane func(s Series, done, total int)
}

// ConvertResult lists what was written.
type ConvertResult struct {
	Series []SeriesResult
}

// SeriesResult lists the files written for a series.
type SeriesResult struct {
	Series Series
	Planes int
	Files  []string
}

func (o *ConvertOptions) setDefaults() {
	if o.Series == "" {
		o.Series = DefaultSeries
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.OutputPattern == "" {
		o.OutputPattern = DefaultOutputPattern
	}
	if o.Output == "" {
		o.Output = DefaultStackOutput
	}
	if o.ByteOrder == 0 {
		o.ByteOrder = LittleEndian
		if o.Stack {
			o.ByteOrder = BigEndian
		}
	}
}

// SelectSeries returns the series of r chosen by spec.
func SelectSeries(ctx context.Context, r Reader, spec string) ([]Series, error) {
	all, err := r.Series(ctx)
	if err != nil {
		return nil, err
	}
	if spec == "" {
		spec = DefaultSeries
	}
	idx, err := ParseSeries(spec, len(all))
	if err != nil {
		return nil, err
	}
	out := make([]Series, 0, len(idx))
	for _, i := range idx {
		out = append(out, all[i])
	}
	return out, nil
}

// Convert writes the selected series of r as TIFF files.
func Convert(ctx context.Context, r Reader, opts ConvertOptions) (*ConvertResult, error) {
	opts.setDefaults()

	series, err := SelectSeries(ctx, r, opts.Series)
	if err != nil {
		return nil, err
	}

	res := &ConvertResult{}
	for _, s := range series {
		start := time.Now()
		var sr *SeriesResult
		if opts.Stack {
			sr, err = convertStack(ctx, r, s, opts)
		} else {
			sr, err = convertPlanes(ctx, r, s, opts)
		}
		if err != nil {
			return res, fmt.Errorf("series %d (%s): %w", s.Index, s.Name, err)
		}
		res.Series = append(res.Series, *sr)

		Logger().Info("series converted",
			zap.Int("series", s.Index),
			zap.String("name", s.Name),
			zap.Int("planes", sr.Planes),
			zap.Int("files", len(sr.Files)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return res, nil
}

type selection struct {
	channels     []int
	z0, z1       int
	t0, t1       int
	target       PixelType
	total        int
	sliceCount   int
	frameCount   int
	channelCount int
}

func selectPlanes(s Series, opts ConvertOptions) (selection, error) {
	sel := selection{channels: opts.Channels}
	if len(sel.channels) == 0 {
		for c := 0; c < s.SizeC; c++ {
			sel.channels = append(sel.channels, c)
		}
	}
	for _, c := range sel.channels {
		if c < 0 || c >= s.SizeC {
			return sel, fmt.Errorf("channel %d out of range [0, %d)", c, s.SizeC)
		}
	}
	sel.z0, sel.z1 = opts.Z.Resolve(s.SizeZ)
	sel.t0, sel.t1 = opts.T.Resolve(s.SizeT)

	sel.channelCount = len(sel.channels)
	sel.sliceCount = sel.z1 - sel.z0
	sel.frameCount = sel.t1 - sel.t0
	sel.total = sel.channelCount * sel.sliceCount * sel.frameCount

	sel.target = opts.PixelType
	if sel.target == PixelUnspecified {
		sel.target = s.PixelType
	}
	return sel, nil
}

func readPlane(ctx context.Context, r Reader, s Series, c, z, t int, target PixelType) (*Plane, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.ReadPlane(ctx, s.Index, c, z, t)
	if err != nil {
		return nil, fmt.Errorf("read c=%d z=%d t=%d: %w", c, z, t, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("read c=%d z=%d t=%d: %w", c, z, t, err)
	}
	return p.Convert(target)
}

func convertPlanes(ctx context.Context, r Reader, s Series, opts ConvertOptions) (*SeriesResult, error) {
	sel, err := selectPlanes(s, opts)
	if err != nil {
		return nil, err
	}
	pattern, err := ParsePattern(opts.OutputPattern)
	if err != nil {
		return nil, err
	}

	sr := &SeriesResult{Series: s}
	for _, c := range sel.channels {
		for z := sel.z0; z < sel.z1; z++ {
			for t := sel.t0; t < sel.t1; t++ {
				p, err := readPlane(ctx, r, s, c, z, t, sel.target)
				if err != nil {
					return sr, err
				}

				name, err := pattern.Format(map[string]any{"c": c, "z": z, "t": t, "srs": s.Index, "name": s.Name})
				if err != nil {
					return sr, err
				}
				path := filepath.Join(opts.OutputDir, s.Name, filepath.FromSlash(name))
				if err := writePlaneFile(path, p, opts); err != nil {
					return sr, err
				}

				sr.Files = append(sr.Files, path)
				sr.Planes++
				Logger().Debug("plane written", zap.String("path", path))
				if opts.OnPlane != nil {
					opts.OnPlane(s, sr.Planes, sel.total)
				}
			}
		}
	}
	return sr, nil
}

func writePlaneFile(path string, p *Plane, opts ConvertOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	tw, err := tiffw.NewWriter(f, opts.ByteOrder.Binary(), tiffOptions(opts.Compression, ""))
	if err != nil {
		return err
	}
	if err := tw.WritePage(tiffw.Page{
		Width:         p.Width,
		Height:        p.Height,
		BitsPerSample: 8 * p.Type.Size(),
		SampleFormat:  p.Type.sampleFormat(),
		Pix:           p.Pix,
	}); err != nil {
		return err
	}
	return tw.Close()
}

func convertStack(ctx context.Context, r Reader, s Series, opts ConvertOptions) (sr *SeriesResult, err error) {
	sel, err := selectPlanes(s, opts)
	if err != nil {
		return nil, err
	}
	if sel.total == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrPlaneCount)
	}

	path, err := FormatPattern(opts.Output, map[string]any{"srs": s.Index, "name": s.Name})
	if err != nil {
		return nil, err
	}
	path = filepath.FromSlash(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	luts := opts.LUTs
	if len(luts) == 0 {
		luts = ChannelLUTs(sel.channelCount)
	}
	for len(luts) < sel.channelCount {
		luts = append(luts, ChannelLUT(len(luts)))
	}
	luts = luts[:sel.channelCount]

	var labels []string
	if len(s.ChannelNames) == s.SizeC {
		for _, c := range sel.channels {
			labels = append(labels, s.ChannelNames[c])
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	hw, err := NewHyperstackWriter(f, HyperstackOptions{
		Width:         s.SizeX,
		Height:        s.SizeY,
		PixelType:     sel.target,
		Channels:      sel.channelCount,
		Slices:        sel.sliceCount,
		Frames:        sel.frameCount,
		ByteOrder:     opts.ByteOrder,
		Compression:   opts.Compression,
		PhysicalSizeX: s.PhysicalSizeX,
		PhysicalSizeY: s.PhysicalSizeY,
		PhysicalSizeZ: s.PhysicalSizeZ,
		Unit:          s.Unit,
		LUTs:          luts,
		Info:          s.Description,
		Labels:        labels,
		AutoRange:     opts.AutoRange,
	})
	if err != nil {
		return nil, err
	}

	sr = &SeriesResult{Series: s}
	for t := sel.t0; t < sel.t1; t++ {
		for z := sel.z0; z < sel.z1; z++ {
			for _, c := range sel.channels {
				p, err := readPlane(ctx, r, s, c, z, t, sel.target)
				if err != nil {
					return nil, err
				}
				if err := hw.WritePlane(p); err != nil {
					return nil, fmt.Errorf("write c=%d z=%d t=%d: %w", c, z, t, err)
				}
				sr.Planes++
				if opts.OnPlane != nil {
					opts.OnPlane(s, sr.Planes, sel.total)
				}
			}
		}
	}
	if err := hw.Close(); err != nil {
		return nil, err
	}

	sr.Files = []string{path}
	return sr, nil
}

// IsCanceled reports whether err comes from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
