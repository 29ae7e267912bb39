package ijstack

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// ImageJ private tags.
const (
	TagIJMetadataByteCounts = 50838
	TagIJMetadata           = 50839
)

// ByteOrder selects big- or little-endian packing of the metadata block.
type ByteOrder byte

const (
	BigEndian    ByteOrder = '>'
	LittleEndian ByteOrder = '<'
)

// ParseByteOrder accepts ">", "<", "big", "little", "be" and "le".
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case ">", "big", "be", "MM":
		return BigEndian, nil
	case "<", "little", "le", "II":
		return LittleEndian, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrByteOrder, s)
	}
}

func (o ByteOrder) String() string { return string(rune(o)) }

// MarshalText renders the byte order as "big" or "little".
func (o ByteOrder) MarshalText() ([]byte, error) {
	if o == BigEndian {
		return []byte("big"), nil
	}
	return []byte("little"), nil
}

// UnmarshalText accepts the forms of ParseByteOrder.
func (o *ByteOrder) UnmarshalText(b []byte) error {
	v, err := ParseByteOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Binary returns the encoding/binary counterpart, little-endian for any
// value other than BigEndian.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (o ByteOrder) appender() binary.AppendByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// FieldKind is one of the ImageJ metadata field kinds, declared in the
// canonical emission order.
type FieldKind int

const (
	FieldInfo FieldKind = iota
	FieldLabels
	FieldRanges
	FieldLUTs
	FieldPlot
	FieldROI
	FieldOverlays

	numFieldKinds
)

type fieldKind struct {
	name       string
	code       [4]byte
	repeatable bool
}

var fieldKinds = [numFieldKinds]fieldKind{
	FieldInfo:     {name: "Info", code: [4]byte{'i', 'n', 'f', 'o'}},
	FieldLabels:   {name: "Labels", code: [4]byte{'l', 'a', 'b', 'l'}, repeatable: true},
	FieldRanges:   {name: "Ranges", code: [4]byte{'r', 'a', 'n', 'g'}},
	FieldLUTs:     {name: "LUTs", code: [4]byte{'l', 'u', 't', 's'}, repeatable: true},
	FieldPlot:     {name: "Plot", code: [4]byte{'p', 'l', 'o', 't'}},
	FieldROI:      {name: "ROI", code: [4]byte{'r', 'o', 'i', ' '}},
	FieldOverlays: {name: "Overlays", code: [4]byte{'o', 'v', 'e', 'r'}, repeatable: true},
}

// FieldKinds returns all kinds in canonical order.
func FieldKinds() []FieldKind {
	out := make([]FieldKind, numFieldKinds)
	for i := range out {
		out[i] = FieldKind(i)
	}
	return out
}

// ParseFieldKind resolves a field name such as "LUTs".
func ParseFieldKind(name string) (FieldKind, bool) {
	for k, fk := range fieldKinds {
		if fk.name == name {
			return FieldKind(k), true
		}
	}
	return 0, false
}

func (k FieldKind) valid() bool { return k >= 0 && k < numFieldKinds }

func (k FieldKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
	return fieldKinds[k].name
}

// Code returns the tag code as stored in a big-endian block.
func (k FieldKind) Code() string {
	if !k.valid() {
		return ""
	}
	return string(fieldKinds[k].code[:])
}

// Repeatable reports whether the kind carries one value per item.
func (k FieldKind) Repeatable() bool {
	return k.valid() && fieldKinds[k].repeatable
}

// FieldValue is the content of one metadata field. Each value type carries
// its own serialization.
type FieldValue interface {
	items(o ByteOrder) [][]byte
}

type (
	// Text is a single string, stored as UTF-16.
	Text string
	// Texts is a list of strings, one UTF-16 item each.
	Texts []string
	// Doubles is a single sequence of 8-byte floats.
	Doubles []float64
	// Blob is a single raw byte blob.
	Blob []byte
	// Blobs is a list of raw byte blobs.
	Blobs [][]byte
	// LUTs is a list of lookup tables, 768 raw bytes each.
	LUTs []LUT
)

func (v Text) items(o ByteOrder) [][]byte { return [][]byte{encodeUTF16(string(v), o)} }

func (v Texts) items(o ByteOrder) [][]byte {
	out := make([][]byte, len(v))
	for i, s := range v {
		out[i] = encodeUTF16(s, o)
	}
	return out
}

func (v Doubles) items(o ByteOrder) [][]byte {
	b := make([]byte, 0, 8*len(v))
	ap := o.appender()
	for _, f := range v {
		b = ap.AppendUint64(b, math.Float64bits(f))
	}
	return [][]byte{b}
}

func (v Blob) items(ByteOrder) [][]byte { return [][]byte{v} }

func (v Blobs) items(ByteOrder) [][]byte { return v }

func (v LUTs) items(ByteOrder) [][]byte {
	out := make([][]byte, len(v))
	for i, l := range v {
		out[i] = l.Bytes()
	}
	return out
}

func encodeUTF16(s string, o ByteOrder) []byte {
	endian := unicode.LittleEndian
	if o == BigEndian {
		endian = unicode.BigEndian
	}
	b, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Invalid UTF-8 input is replaced rune by rune and never fails.
		return nil
	}
	return b
}

// Metadata maps field kinds to values. Kinds missing from the map are not
// emitted.
type Metadata map[FieldKind]FieldValue

// MetadataFromNames builds Metadata from field names, dropping names that
// are not ImageJ field kinds.
func MetadataFromNames(fields map[string]FieldValue) Metadata {
	m := make(Metadata, len(fields))
	for name, v := range fields {
		if k, ok := ParseFieldKind(name); ok {
			m[k] = v
		}
	}
	return m
}

// EncodeImageJMetadata serializes meta into an IJMetadata block and its byte
// counts. The first byte count is the header length, followed by one count
// per serialized value in emission order.
func EncodeImageJMetadata(meta Metadata, o ByteOrder) (block []byte, byteCounts []uint32) {
	ap := o.appender()

	header := make([]byte, 0, 4+8*len(meta))
	if o == BigEndian {
		header = append(header, "IJIJ"...)
	} else {
		header = append(header, "JIJI"...)
	}
	byteCounts = []uint32{0}

	var body []byte
	for k := FieldKind(0); k < numFieldKinds; k++ {
		v, ok := meta[k]
		if !ok || v == nil {
			continue
		}
		fk := fieldKinds[k]

		items := v.items(o)
		if !fk.repeatable {
			items = [][]byte{joinItems(items)}
		}

		code := fk.code
		if o != BigEndian {
			code[0], code[1], code[2], code[3] = code[3], code[2], code[1], code[0]
		}
		header = append(header, code[:]...)
		header = ap.AppendUint32(header, uint32(len(items)))

		for _, item := range items {
			body = append(body, item...)
			byteCounts = append(byteCounts, uint32(len(item)))
		}
	}

	byteCounts[0] = uint32(len(header))
	return append(header, body...), byteCounts
}

func joinItems(items [][]byte) []byte {
	if len(items) == 1 {
		return items[0]
	}
	var out []byte
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// ExtraTag is an auxiliary TIFF tag: (id, type, count, value, write once).
type ExtraTag = tiffw.Tag

// ImageJMetadataTags returns the IJMetadata and IJMetadataByteCounts tags for
// meta, ready to be attached to the first page of a TIFF written in byte
// order o.
func ImageJMetadataTags(meta Metadata, o ByteOrder) (data, counts ExtraTag) {
	block, byteCounts := EncodeImageJMetadata(meta, o)

	ap := o.appender()
	packed := make([]byte, 0, 4*len(byteCounts))
	for _, c := range byteCounts {
		packed = ap.AppendUint32(packed, c)
	}

	data = ExtraTag{
		ID:        TagIJMetadata,
		Type:      tiffw.Byte,
		Count:     uint32(len(block)),
		Value:     block,
		WriteOnce: true,
	}
	counts = ExtraTag{
		ID:        TagIJMetadataByteCounts,
		Type:      tiffw.Long,
		Count:     uint32(len(byteCounts)),
		Value:     packed,
		WriteOnce: true,
	}
	return data, counts
}

// Validate checks that every value has a shape ImageJ understands for its
// kind. The encoder itself accepts anything.
func (m Metadata) Validate() error {
	for k := FieldKind(0); k < numFieldKinds; k++ {
		v, ok := m[k]
		if !ok {
			continue
		}
		if err := validateField(k, v); err != nil {
			return err
		}
	}
	for k := range m {
		if !k.valid() {
			return &FieldError{Kind: k, Reason: "unknown field kind"}
		}
	}
	return nil
}

func validateField(k FieldKind, v FieldValue) error {
	bad := func(format string, args ...any) error {
		return &FieldError{Kind: k, Reason: fmt.Sprintf(format, args...)}
	}
	if v == nil {
		return bad("nil value")
	}

	switch k {
	case FieldInfo:
		if _, ok := v.(Text); !ok {
			return bad("want Text, have %T", v)
		}
	case FieldLabels:
		if _, ok := v.(Texts); !ok {
			return bad("want Texts, have %T", v)
		}
	case FieldRanges:
		d, ok := v.(Doubles)
		if !ok {
			return bad("want Doubles, have %T", v)
		}
		if len(d)%2 != 0 {
			return bad("odd number of range bounds: %d", len(d))
		}
	case FieldLUTs:
		switch lv := v.(type) {
		case LUTs:
		case Blobs:
			for i, b := range lv {
				if len(b) != lutSize {
					return bad("item %d has %d bytes, want %d", i, len(b), lutSize)
				}
			}
		default:
			return bad("want LUTs or Blobs, have %T", v)
		}
	case FieldPlot:
		switch v.(type) {
		case Blob, Doubles:
		default:
			return bad("want Blob or Doubles, have %T", v)
		}
	case FieldROI:
		if _, ok := v.(Blob); !ok {
			return bad("want Blob, have %T", v)
		}
	case FieldOverlays:
		if _, ok := v.(Blobs); !ok {
			return bad("want Blobs, have %T", v)
		}
	}
	return nil
}
