package ijstack

import (
	"fmt"
	"io"
	"math"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// HyperstackOptions describes an ImageJ hyperstack. Planes are written in
// TZC order (channel varies fastest).
type HyperstackOptions struct {
	Width     int
	Height    int
	PixelType PixelType // uint8, uint16 or float32
	Channels  int
	Slices    int
	Frames    int

	ByteOrder   ByteOrder // default BigEndian
	Compression int       // zlib level, 0 for none

	PhysicalSizeX float64
	PhysicalSizeY float64
	PhysicalSizeZ float64
	Unit          string // default "micron"
	Mode          string // default "composite"

	LUTs      LUTs     // default ChannelLUTs(Channels)
	Info      string   // stored as the Info field when not empty
	Labels    []string // one per image, or one per channel repeated over Z and T
	AutoRange bool     // store per-channel min/max as display ranges
	Software  string
}

// Images returns the number of planes of the hyperstack.
func (o HyperstackOptions) Images() int { return o.Channels * o.Slices * o.Frames }

// HyperstackWriter streams planes into an ImageJ hyperstack.
type HyperstackWriter struct {
	tw      *tiffw.Writer
	opts    HyperstackOptions
	written int
	ranges  [][2]float64
}

// NewHyperstackWriter starts a hyperstack on ws.
func NewHyperstackWriter(ws io.WriteSeeker, opts HyperstackOptions) (*HyperstackWriter, error) {
	switch opts.PixelType {
	case PixelUint8, PixelUint16, PixelFloat32:
	default:
		return nil, fmt.Errorf("%w: ImageJ hyperstacks hold uint8, uint16 or float32, not %s", ErrPixelType, opts.PixelType)
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.Channels <= 0 || opts.Slices <= 0 || opts.Frames <= 0 {
		return nil, fmt.Errorf("%w: %dx%d, c=%d z=%d t=%d", ErrPlaneShape,
			opts.Width, opts.Height, opts.Channels, opts.Slices, opts.Frames)
	}
	if opts.ByteOrder == 0 {
		opts.ByteOrder = BigEndian
	}
	if opts.Unit == "" {
		opts.Unit = defaultUnit
	}
	if opts.Mode == "" {
		opts.Mode = defaultMode
	}
	if len(opts.LUTs) == 0 {
		opts.LUTs = ChannelLUTs(opts.Channels)
	}
	labels, err := imageLabels(opts.Labels, opts.Channels, opts.Images())
	if err != nil {
		return nil, err
	}
	opts.Labels = labels

	tw, err := tiffw.NewWriter(ws, opts.ByteOrder.Binary(), tiffOptions(opts.Compression, opts.Software))
	if err != nil {
		return nil, err
	}

	h := &HyperstackWriter{tw: tw, opts: opts}
	if opts.AutoRange {
		h.ranges = make([][2]float64, opts.Channels)
		for i := range h.ranges {
			h.ranges[i] = [2]float64{math.Inf(1), math.Inf(-1)}
		}
	}
	return h, nil
}

func tiffOptions(level int, software string) func(o *tiffw.Options) {
	return func(o *tiffw.Options) {
		o.Software = software
		if level > 0 {
			o.Compression = tiffw.CompressionDeflate
			o.Level = level
		}
	}
}

// Written returns the number of planes written so far.
func (h *HyperstackWriter) Written() int { return h.written }

// WritePlane appends the next plane in TZC order.
func (h *HyperstackWriter) WritePlane(p *Plane) error {
	if h.written >= h.opts.Images() {
		return fmt.Errorf("%w: more than %d planes", ErrPlaneCount, h.opts.Images())
	}
	if p.Type != h.opts.PixelType || p.Width != h.opts.Width || p.Height != h.opts.Height {
		return fmt.Errorf("%w: plane %dx%d %s, hyperstack %dx%d %s", ErrPlaneShape,
			p.Width, p.Height, p.Type, h.opts.Width, h.opts.Height, h.opts.PixelType)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	page := tiffw.Page{
		Width:         p.Width,
		Height:        p.Height,
		BitsPerSample: 8 * p.Type.Size(),
		SampleFormat:  p.Type.sampleFormat(),
		Pix:           p.Pix,
	}
	if h.opts.PhysicalSizeX > 0 && h.opts.PhysicalSizeY > 0 {
		page.XResolution = 1 / h.opts.PhysicalSizeX
		page.YResolution = 1 / h.opts.PhysicalSizeY
		page.ResolutionUnit = tiffw.ResolutionNone
	}
	if h.written == 0 {
		page.Description = h.description().String()
	}
	if err := h.tw.WritePage(page); err != nil {
		return err
	}

	if h.ranges != nil {
		c := h.written % h.opts.Channels
		lo, hi := p.Bounds()
		h.ranges[c][0] = math.Min(h.ranges[c][0], lo)
		h.ranges[c][1] = math.Max(h.ranges[c][1], hi)
	}
	h.written++
	return nil
}

func (h *HyperstackWriter) description() Description {
	return Description{
		Images:   h.opts.Images(),
		Channels: h.opts.Channels,
		Slices:   h.opts.Slices,
		Frames:   h.opts.Frames,
		Mode:     h.opts.Mode,
		Unit:     h.opts.Unit,
		Spacing:  h.opts.PhysicalSizeZ,
	}
}

// Metadata returns the ImageJ metadata fields for the planes written so far.
func (h *HyperstackWriter) Metadata() Metadata {
	meta := Metadata{FieldLUTs: h.opts.LUTs}
	if h.opts.Info != "" {
		meta[FieldInfo] = Text(h.opts.Info)
	}
	if len(h.opts.Labels) > 0 {
		meta[FieldLabels] = Texts(h.opts.Labels)
	}
	if h.ranges != nil {
		r := make(Doubles, 0, 2*len(h.ranges))
		for _, cr := range h.ranges {
			if math.IsInf(cr[0], 0) || math.IsInf(cr[1], 0) {
				cr = [2]float64{0, 0}
			}
			r = append(r, cr[0], cr[1])
		}
		meta[FieldRanges] = r
	}
	return meta
}

// Close attaches the ImageJ metadata tags and finishes the file. It fails
// if fewer planes than declared were written.
func (h *HyperstackWriter) Close() error {
	if h.written != h.opts.Images() {
		return fmt.Errorf("%w: wrote %d of %d", ErrPlaneCount, h.written, h.opts.Images())
	}

	meta := h.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}
	data, counts := ImageJMetadataTags(meta, h.opts.ByteOrder)
	if err := h.tw.AddTags(0, data, counts); err != nil {
		return err
	}
	return h.tw.Close()
}

// imageLabels returns labels with one entry per image. ImageJ reads the
// Labels field as slice labels, so channel names are repeated for every
// slice and frame in TZC order.
func imageLabels(labels []string, channels, images int) ([]string, error) {
	switch len(labels) {
	case 0, images:
		return labels, nil
	case channels:
		out := make([]string, images)
		for i := range out {
			out[i] = labels[i%channels]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d labels for %d channels and %d images", ErrPlaneCount, len(labels), channels, images)
	}
}
