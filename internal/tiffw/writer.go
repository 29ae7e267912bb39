// Package tiffw writes and walks classic TIFF files with arbitrary extra tags
// in either byte order.
package tiffw

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	tiff "github.com/garyhouston/tiff66"
)

var (
	ErrTooLarge = errors.New("tiff: file exceeds 4 GiB classic TIFF limit")
	ErrNoPages  = errors.New("tiff: no pages written")
	ErrClosed   = errors.New("tiff: writer already closed")
	ErrShape    = errors.New("tiff: pixel buffer does not match page geometry")
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Tag is an IFD entry supplied by the caller. Value holds Count values of
// Type, already packed in the byte order of the file.
type Tag struct {
	ID    uint16
	Type  DataType
	Count uint32
	Value []byte
	// WriteOnce limits the tag to the first page it is attached to.
	WriteOnce bool
}

// Page describes one single-channel image plane.
type Page struct {
	Width         int
	Height        int
	BitsPerSample int
	SampleFormat  SampleFormat
	// Pix holds row-major samples in big-endian order, as image.Gray16 does.
	Pix []byte

	Description    string
	XResolution    float64 // pixels per resolution unit, 0 to omit
	YResolution    float64
	ResolutionUnit uint16

	Tags []Tag
}

// Options controls the writer.
type Options struct {
	Compression int // CompressionNone or CompressionDeflate.
	Level       int // zlib level for deflate.
	Software    string
}

// Writer streams pages into a TIFF file.
//
// Pixel data is written as pages arrive. Close serializes the IFD chain with
// tiff66 after the last strip and then rewrites the header.
type Writer struct {
	ws     io.WriteSeeker
	bo     byteOrder
	opts   Options
	pos    int64
	pages  [][]Tag
	once   map[uint16]struct{}
	closed bool
}

// NewWriter writes the TIFF header to ws and returns a writer using byte order bo.
func NewWriter(ws io.WriteSeeker, bo binary.ByteOrder, options ...func(o *Options)) (*Writer, error) {
	if ws == nil {
		return nil, errors.New("tiff: nil writer")
	}
	opts := Options{Compression: CompressionNone}
	for _, o := range options {
		o(&opts)
	}
	if opts.Compression != CompressionNone && opts.Compression != CompressionDeflate {
		return nil, fmt.Errorf("tiff: unsupported compression %d", opts.Compression)
	}
	if opts.Compression == CompressionDeflate && (opts.Level < zlib.HuffmanOnly || opts.Level > zlib.BestCompression) {
		return nil, fmt.Errorf("tiff: invalid deflate level %d", opts.Level)
	}

	var order byteOrder = binary.LittleEndian
	if bo == binary.BigEndian {
		order = binary.BigEndian
	}
	// First IFD offset is patched by Close.
	hdr := make([]byte, tiff.HeaderSize)
	tiff.PutHeader(hdr, order, 0)
	if _, err := ws.Write(hdr); err != nil {
		return nil, err
	}

	return &Writer{
		ws:   ws,
		bo:   order,
		opts: opts,
		pos:  int64(len(hdr)),
		once: make(map[uint16]struct{}),
	}, nil
}

// ByteOrder returns the byte order of the file.
func (w *Writer) ByteOrder() binary.ByteOrder { return w.bo }

// Pages returns the number of pages written so far.
func (w *Writer) Pages() int { return len(w.pages) }

// WritePage writes the pixel data of p and records its directory.
func (w *Writer) WritePage(p Page) error {
	if w.closed {
		return ErrClosed
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShape, p.Width, p.Height)
	}
	if p.BitsPerSample != 8 && p.BitsPerSample != 16 && p.BitsPerSample != 32 {
		return fmt.Errorf("tiff: unsupported bits per sample %d", p.BitsPerSample)
	}
	bps := p.BitsPerSample / 8
	if len(p.Pix) != p.Width*p.Height*bps {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrShape, len(p.Pix), p.Width*p.Height*bps)
	}

	data := p.Pix
	if bps > 1 && w.bo == binary.LittleEndian {
		data = swapSamples(p.Pix, bps)
	}
	if w.opts.Compression == CompressionDeflate {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, w.opts.Level)
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}

	if err := w.align(); err != nil {
		return err
	}
	offset := w.pos
	if err := w.write(data); err != nil {
		return err
	}

	sampleFormat := p.SampleFormat
	if sampleFormat == 0 {
		sampleFormat = SampleUint
	}

	entries := []Tag{
		w.longTag(TagImageWidth, uint32(p.Width)),
		w.longTag(TagImageLength, uint32(p.Height)),
		w.shortTag(TagBitsPerSample, uint16(p.BitsPerSample)),
		w.shortTag(TagCompression, uint16(w.opts.Compression)),
		w.shortTag(TagPhotometricInterpretation, photometricBlackIsZero),
		w.longTag(TagStripOffsets, uint32(offset)),
		w.shortTag(TagSamplesPerPixel, 1),
		w.longTag(TagRowsPerStrip, uint32(p.Height)),
		w.longTag(TagStripByteCounts, uint32(len(data))),
		w.shortTag(TagSampleFormat, uint16(sampleFormat)),
	}
	if p.Description != "" {
		entries = append(entries, asciiTag(TagImageDescription, p.Description))
	}
	if len(w.pages) == 0 && w.opts.Software != "" {
		entries = append(entries, asciiTag(TagSoftware, w.opts.Software))
	}
	if p.XResolution > 0 && p.YResolution > 0 {
		unit := p.ResolutionUnit
		if unit == 0 {
			unit = ResolutionNone
		}
		entries = append(entries,
			w.rationalTag(TagXResolution, p.XResolution),
			w.rationalTag(TagYResolution, p.YResolution),
			w.shortTag(TagResolutionUnit, unit),
		)
	}

	w.pages = append(w.pages, entries)
	return w.AddTags(len(w.pages)-1, p.Tags...)
}

// AddTags attaches tags to an already written page. A tag replaces an
// existing entry with the same ID.
func (w *Writer) AddTags(page int, tags ...Tag) error {
	if w.closed {
		return ErrClosed
	}
	if page < 0 || page >= len(w.pages) {
		return fmt.Errorf("tiff: page %d out of range [0, %d)", page, len(w.pages))
	}
	entries := w.pages[page]
	for _, t := range tags {
		if t.WriteOnce {
			if _, ok := w.once[t.ID]; ok {
				continue
			}
			w.once[t.ID] = struct{}{}
		}
		replaced := false
		for i := range entries {
			if entries[i].ID == t.ID {
				entries[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, t)
		}
	}
	w.pages[page] = entries
	return nil
}

// Close writes the IFD chain and patches the header. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if len(w.pages) == 0 {
		return ErrNoPages
	}
	if err := w.align(); err != nil {
		return err
	}
	w.closed = true

	var root *tiff.IFDNode
	for i := len(w.pages) - 1; i >= 0; i-- {
		entries := w.pages[i]
		if len(entries) > math.MaxUint16 {
			return fmt.Errorf("tiff: page %d has too many tags", i)
		}
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].ID < entries[b].ID })

		node := &tiff.IFDNode{Space: tiff.TIFFSpace, Next: root}
		node.Fields = make([]tiff.Field, len(entries))
		for j, e := range entries {
			node.Fields[j] = tiff.Field{Tag: tiff.Tag(e.ID), Type: tiff.Type(e.Type), Count: e.Count, Data: e.Value}
		}
		root = node
	}

	size := int64(root.TreeSize())
	if w.pos+size > math.MaxUint32 {
		return ErrTooLarge
	}
	buf := make([]byte, size)
	n, err := root.PutIFDTree(buf, 0, w.bo)
	if err != nil {
		return err
	}
	buf = buf[:n]

	first := w.pos
	relocate(buf, w.bo, uint32(first))
	if err := w.write(buf); err != nil {
		return err
	}

	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hdr := make([]byte, tiff.HeaderSize)
	tiff.PutHeader(hdr, w.bo, uint32(first))
	if _, err := w.ws.Write(hdr); err != nil {
		return err
	}
	_, err = w.ws.Seek(w.pos, io.SeekStart)
	return err
}

// relocate moves a directory chain serialized at offset zero to base by
// shifting its next-IFD pointers and out-of-line value offsets.
func relocate(buf []byte, bo binary.ByteOrder, base uint32) {
	var ifd uint32
	for {
		n := uint32(bo.Uint16(buf[ifd:]))
		for i := uint32(0); i < n; i++ {
			e := buf[ifd+2+i*entryLen:]
			if uint64(DataType(bo.Uint16(e[2:])).Size())*uint64(bo.Uint32(e[4:])) > 4 {
				bo.PutUint32(e[8:], bo.Uint32(e[8:])+base)
			}
		}
		p := buf[ifd+2+n*entryLen:]
		next := bo.Uint32(p)
		if next == 0 {
			return
		}
		bo.PutUint32(p, next+base)
		ifd = next
	}
}

func (w *Writer) align() error {
	if w.pos%2 == 0 {
		return nil
	}
	return w.write([]byte{0})
}

func (w *Writer) write(p []byte) error {
	if w.pos+int64(len(p)) > math.MaxUint32 {
		return ErrTooLarge
	}
	n, err := w.ws.Write(p)
	w.pos += int64(n)
	return err
}

func (w *Writer) shortTag(id uint16, v uint16) Tag {
	return Tag{ID: id, Type: Short, Count: 1, Value: w.bo.AppendUint16(nil, v)}
}

func (w *Writer) longTag(id uint16, v uint32) Tag {
	return Tag{ID: id, Type: Long, Count: 1, Value: w.bo.AppendUint32(nil, v)}
}

func (w *Writer) rationalTag(id uint16, v float64) Tag {
	num, den := Rat(v)
	b := w.bo.AppendUint32(nil, num)
	b = w.bo.AppendUint32(b, den)
	return Tag{ID: id, Type: Rational, Count: 1, Value: b}
}

func asciiTag(id uint16, s string) Tag {
	b := append([]byte(s), 0)
	return Tag{ID: id, Type: ASCII, Count: uint32(len(b)), Value: b}
}

// Rat approximates a non-negative v as a fraction of two uint32 values.
func Rat(v float64) (num, den uint32) {
	if v <= 0 || math.IsNaN(v) {
		return 0, 1
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32, 1
	}
	d := uint64(1_000_000)
	for d > 1 && v*float64(d) > math.MaxUint32 {
		d /= 10
	}
	n := uint64(math.Round(v * float64(d)))
	g := gcd(n, d)
	if g > 1 {
		n, d = n/g, d/g
	}
	return uint32(n), uint32(d)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func swapSamples(pix []byte, size int) []byte {
	out := make([]byte, len(pix))
	for i := 0; i+size <= len(pix); i += size {
		for j := 0; j < size; j++ {
			out[i+j] = pix[i+size-1-j]
		}
	}
	return out
}
