package tiffw

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	tiff "github.com/garyhouston/tiff66"
)

// ErrFormat reports a malformed TIFF structure.
var ErrFormat = errors.New("tiff: malformed file")

const (
	maxDirectories = 1 << 20

	// Upper bound of the deflate expansion ratio.
	maxInflateRatio = 1032
)

// Entry is a decoded IFD entry with its raw value bytes in file byte order.
type Entry struct {
	ID    uint16
	Type  DataType
	Count uint32
	Value []byte
}

// Directory is one IFD.
type Directory struct {
	Entries []Entry
}

// File is the directory chain of a TIFF file held in memory.
type File struct {
	ByteOrder   binary.ByteOrder
	Directories []Directory

	data []byte
}

// Entry returns the entry with the given tag.
func (d Directory) Entry(id uint16) (Entry, bool) {
	for _, e := range d.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Uints returns integer values of a Byte, Short or Long entry.
func (e Entry) Uints(bo binary.ByteOrder) []uint64 {
	if uint64(len(e.Value)) < uint64(e.Count)*uint64(e.Type.Size()) {
		return nil
	}
	out := make([]uint64, 0, e.Count)
	for i := 0; i < int(e.Count); i++ {
		switch e.Type {
		case Byte, Undefined:
			out = append(out, uint64(e.Value[i]))
		case Short:
			out = append(out, uint64(bo.Uint16(e.Value[2*i:])))
		case Long:
			out = append(out, uint64(bo.Uint32(e.Value[4*i:])))
		default:
			return nil
		}
	}
	return out
}

// Uint returns the first integer value of the entry with the given tag.
func (d Directory) Uint(id uint16, bo binary.ByteOrder) (uint64, bool) {
	e, ok := d.Entry(id)
	if !ok {
		return 0, false
	}
	v := e.Uints(bo)
	if len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Text returns an ASCII entry without its trailing NUL.
func (e Entry) Text() string {
	return strings.TrimRight(string(e.Value), "\x00")
}

// ReadFirst returns the byte order and the first IFD of a TIFF file of the
// given size.
func ReadFirst(r io.ReaderAt, size int64) (binary.ByteOrder, Directory, error) {
	f, err := ReadFile(r, size)
	if err != nil {
		return nil, Directory{}, err
	}
	if len(f.Directories) == 0 {
		return nil, Directory{}, fmt.Errorf("%w: no IFD", ErrFormat)
	}
	return f.ByteOrder, f.Directories[0], nil
}

// ReadFile loads a TIFF file of the given size and decodes its IFD chain.
func ReadFile(r io.ReaderAt, size int64) (*File, error) {
	if size < int64(tiff.HeaderSize) || size > math.MaxUint32 {
		return nil, fmt.Errorf("%w: size %d", ErrFormat, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, size), buf); err != nil {
		return nil, err
	}

	valid, order, ifdPos := tiff.GetHeader(buf)
	if !valid {
		return nil, fmt.Errorf("%w: bad header %q", ErrFormat, buf[:4])
	}
	if ifdPos == 0 {
		return nil, fmt.Errorf("%w: no IFD", ErrFormat)
	}
	root, err := tiff.GetIFDTree(buf, order, ifdPos, tiff.TIFFSpace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	f := &File{ByteOrder: order, data: buf}
	for node := root; node != nil; node = node.Next {
		if len(f.Directories) >= maxDirectories {
			return nil, fmt.Errorf("%w: too many IFDs", ErrFormat)
		}
		dir := Directory{Entries: make([]Entry, 0, len(node.Fields))}
		for _, fd := range node.Fields {
			dir.Entries = append(dir.Entries, Entry{
				ID:    uint16(fd.Tag),
				Type:  DataType(fd.Type),
				Count: fd.Count,
				Value: fd.Data,
			})
		}
		f.Directories = append(f.Directories, dir)
	}
	return f, nil
}

// Pixels returns the decompressed samples of a single-sample directory in
// big-endian order.
func (f *File) Pixels(dir Directory) ([]byte, error) {
	offsets, ok1 := dir.Entry(TagStripOffsets)
	counts, ok2 := dir.Entry(TagStripByteCounts)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: missing strip tags", ErrFormat)
	}
	offs := offsets.Uints(f.ByteOrder)
	lens := counts.Uints(f.ByteOrder)
	if len(offs) == 0 || len(offs) != len(lens) {
		return nil, fmt.Errorf("%w: strip tag length mismatch", ErrFormat)
	}

	width, _ := dir.Uint(TagImageWidth, f.ByteOrder)
	height, _ := dir.Uint(TagImageLength, f.ByteOrder)
	if width == 0 || height == 0 || width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrFormat, width, height)
	}
	bps, ok := dir.Uint(TagBitsPerSample, f.ByteOrder)
	if !ok {
		bps = 8
	}
	if bps != 8 && bps != 16 && bps != 32 {
		return nil, fmt.Errorf("tiff: unsupported bits per sample %d", bps)
	}
	compression, ok := dir.Uint(TagCompression, f.ByteOrder)
	if !ok {
		compression = CompressionNone
	}

	size := uint64(len(f.data))
	want := width * height * (bps / 8)
	if want > maxInflateRatio*size {
		return nil, fmt.Errorf("%w: image size %dx%d exceeds file data", ErrFormat, width, height)
	}

	var out bytes.Buffer
	for i := range offs {
		if offs[i] > size || lens[i] > size-offs[i] {
			return nil, fmt.Errorf("%w: strip %d out of bounds", ErrFormat, i)
		}
		strip := f.data[offs[i] : offs[i]+lens[i]]
		left := int64(want) - int64(out.Len())

		switch compression {
		case CompressionNone:
			if int64(len(strip)) > left {
				return nil, fmt.Errorf("%w: strip %d exceeds image size", ErrFormat, i)
			}
			out.Write(strip)
		case CompressionDeflate:
			zr, err := zlib.NewReader(bytes.NewReader(strip))
			if err != nil {
				return nil, err
			}
			n, err := io.Copy(&out, io.LimitReader(zr, left+1))
			_ = zr.Close()
			if err != nil {
				return nil, err
			}
			if n > left {
				return nil, fmt.Errorf("%w: strip %d inflates beyond image size", ErrFormat, i)
			}
		default:
			return nil, fmt.Errorf("tiff: unsupported compression %d", compression)
		}
	}
	if uint64(out.Len()) != want {
		return nil, fmt.Errorf("%w: have %d sample bytes, want %d", ErrFormat, out.Len(), want)
	}

	pix := out.Bytes()
	if bps > 8 && f.ByteOrder == binary.LittleEndian {
		pix = swapSamples(pix, int(bps/8))
	}
	return pix, nil
}
