package ijstack

import (
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// DecodedField is one header entry of an IJMetadata block with its values.
type DecodedField struct {
	Kind  FieldKind // -1 for an unrecognized code
	Code  string    // as written in a big-endian block
	Count uint32
	Items [][]byte
}

// DecodedMetadata is the content of an IJMetadata block.
type DecodedMetadata struct {
	ByteOrder  ByteOrder
	HeaderSize int
	Fields     []DecodedField
}

// DecodeImageJMetadata parses an IJMetadata block using the byte counts of
// the IJMetadataByteCounts tag (packed 4-byte values). The byte order is
// taken from the block magic.
func DecodeImageJMetadata(block, byteCounts []byte) (*DecodedMetadata, error) {
	if len(block) < 4 {
		return nil, fmt.Errorf("%w: block too short", ErrCorruptMetadata)
	}

	d := &DecodedMetadata{}
	switch string(block[:4]) {
	case "IJIJ":
		d.ByteOrder = BigEndian
	case "JIJI":
		d.ByteOrder = LittleEndian
	default:
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptMetadata, block[:4])
	}
	bo := d.ByteOrder.Binary()

	if len(byteCounts) == 0 || len(byteCounts)%4 != 0 {
		return nil, fmt.Errorf("%w: byte counts length %d", ErrCorruptMetadata, len(byteCounts))
	}
	counts := make([]int, len(byteCounts)/4)
	for i := range counts {
		counts[i] = int(bo.Uint32(byteCounts[4*i:]))
	}

	hdrLen := counts[0]
	if hdrLen < 4 || hdrLen > len(block) || (hdrLen-4)%8 != 0 {
		return nil, fmt.Errorf("%w: header length %d", ErrCorruptMetadata, hdrLen)
	}
	d.HeaderSize = hdrLen

	pos := hdrLen
	next := 1
	for off := 4; off < hdrLen; off += 8 {
		code := [4]byte(block[off : off+4])
		if d.ByteOrder != BigEndian {
			code[0], code[1], code[2], code[3] = code[3], code[2], code[1], code[0]
		}
		f := DecodedField{
			Kind:  -1,
			Code:  string(code[:]),
			Count: bo.Uint32(block[off+4:]),
		}
		for k, fk := range fieldKinds {
			if fk.code == code {
				f.Kind = FieldKind(k)
				break
			}
		}

		for i := uint32(0); i < f.Count; i++ {
			if next >= len(counts) {
				return nil, fmt.Errorf("%w: missing byte count for %s item %d", ErrCorruptMetadata, f.Code, i)
			}
			n := counts[next]
			next++
			if n < 0 || pos+n > len(block) {
				return nil, fmt.Errorf("%w: %s item %d overruns block", ErrCorruptMetadata, f.Code, i)
			}
			f.Items = append(f.Items, block[pos:pos+n])
			pos += n
		}
		d.Fields = append(d.Fields, f)
	}

	if next != len(counts) {
		return nil, fmt.Errorf("%w: %d unused byte counts", ErrCorruptMetadata, len(counts)-next)
	}
	if pos != len(block) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptMetadata, len(block)-pos)
	}
	return d, nil
}

// Field returns the decoded field of kind k.
func (d *DecodedMetadata) Field(k FieldKind) (DecodedField, bool) {
	for _, f := range d.Fields {
		if f.Kind == k {
			return f, true
		}
	}
	return DecodedField{}, false
}

// Info returns the Info string, if present.
func (d *DecodedMetadata) Info() (string, bool) {
	f, ok := d.Field(FieldInfo)
	if !ok || len(f.Items) == 0 {
		return "", false
	}
	s, err := d.decodeUTF16(f.Items[0])
	return s, err == nil
}

// Labels returns the slice labels.
func (d *DecodedMetadata) Labels() []string {
	f, ok := d.Field(FieldLabels)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		s, err := d.decodeUTF16(it)
		if err != nil {
			return nil
		}
		out = append(out, s)
	}
	return out
}

// Ranges returns the display ranges as min/max pairs.
func (d *DecodedMetadata) Ranges() []float64 {
	f, ok := d.Field(FieldRanges)
	if !ok || len(f.Items) == 0 {
		return nil
	}
	bo := d.ByteOrder.Binary()
	b := f.Items[0]
	out := make([]float64, 0, len(b)/8)
	for i := 0; i+8 <= len(b); i += 8 {
		out = append(out, math.Float64frombits(bo.Uint64(b[i:])))
	}
	return out
}

// LUTs returns the lookup tables that have the expected size.
func (d *DecodedMetadata) LUTs() LUTs {
	f, ok := d.Field(FieldLUTs)
	if !ok {
		return nil
	}
	var out LUTs
	for _, it := range f.Items {
		if len(it) != lutSize {
			continue
		}
		var l LUT
		for c := 0; c < 3; c++ {
			copy(l[c][:], it[c*256:(c+1)*256])
		}
		out = append(out, l)
	}
	return out
}

func (d *DecodedMetadata) decodeUTF16(b []byte) (string, error) {
	endian := unicode.LittleEndian
	if d.ByteOrder == BigEndian {
		endian = unicode.BigEndian
	}
	out, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
