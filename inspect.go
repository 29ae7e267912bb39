package ijstack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// HyperstackInfo summarizes a TIFF file written as an ImageJ hyperstack.
type HyperstackInfo struct {
	ByteOrder     ByteOrder         `json:"byte_order"`
	Pages         int               `json:"pages"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	BitsPerSample int               `json:"bits_per_sample"`
	Compression   int               `json:"compression"`
	Description   map[string]string `json:"description,omitempty"`

	Info   string    `json:"info,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Ranges []float64 `json:"ranges,omitempty"`
	LUTs   int       `json:"luts"`

	Metadata *DecodedMetadata `json:"-"`
}

// Inspect reads the first page of a TIFF file and its ImageJ metadata.
func Inspect(path string) (*HyperstackInfo, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path.
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return InspectReader(f, st.Size())
}

// InspectReader is Inspect for an open file of the given size.
func InspectReader(r io.ReaderAt, size int64) (*HyperstackInfo, error) {
	tf, err := tiffw.ReadFile(r, size)
	if err != nil {
		return nil, err
	}
	if len(tf.Directories) == 0 {
		return nil, fmt.Errorf("%w: no pages", tiffw.ErrFormat)
	}

	info := &HyperstackInfo{
		ByteOrder: LittleEndian,
		Pages:     len(tf.Directories),
	}
	if tf.ByteOrder == binary.BigEndian {
		info.ByteOrder = BigEndian
	}

	first := tf.Directories[0]
	uint1 := func(id uint16) int {
		v, _ := first.Uint(id, tf.ByteOrder)
		return int(v)
	}
	info.Width = uint1(tiffw.TagImageWidth)
	info.Height = uint1(tiffw.TagImageLength)
	info.BitsPerSample = uint1(tiffw.TagBitsPerSample)
	info.Compression = uint1(tiffw.TagCompression)

	if e, ok := first.Entry(tiffw.TagImageDescription); ok {
		info.Description = ParseDescription(e.Text())
	}

	block, ok1 := first.Entry(TagIJMetadata)
	counts, ok2 := first.Entry(TagIJMetadataByteCounts)
	if ok1 != ok2 {
		return nil, fmt.Errorf("%w: only one of the IJMetadata tags present", ErrCorruptMetadata)
	}
	if !ok1 {
		return info, nil
	}

	meta, err := DecodeImageJMetadata(block.Value, counts.Value)
	if err != nil {
		return nil, err
	}
	if meta.ByteOrder != info.ByteOrder {
		return nil, fmt.Errorf("%w: metadata is %s in a %s file", ErrByteOrder, meta.ByteOrder, info.ByteOrder)
	}

	info.Metadata = meta
	info.Info, _ = meta.Info()
	info.Labels = meta.Labels()
	info.Ranges = meta.Ranges()
	info.LUTs = len(meta.LUTs())
	return info, nil
}

// ReadHyperstackPlane returns the samples of page i of a hyperstack file.
func ReadHyperstackPlane(path string, i int) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path.
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	tf, err := tiffw.ReadFile(f, st.Size())
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(tf.Directories) {
		return nil, errors.Join(ErrNotFound, fmt.Errorf("page %d of %d", i, len(tf.Directories)))
	}
	return tf.Pixels(tf.Directories[i])
}
