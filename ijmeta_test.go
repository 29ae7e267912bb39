package ijstack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeLUTsBigEndian(t *testing.T) {
	block, counts := EncodeImageJMetadata(Metadata{FieldLUTs: LUTs{Blue, Red}}, BigEndian)

	want := []byte("IJIJluts\x00\x00\x00\x02")
	if !bytes.Equal(block[:len(want)], want) {
		t.Fatalf("header: got %q want %q", block[:len(want)], want)
	}
	body := block[len(want):]
	if len(body) != 2*768 {
		t.Fatalf("body length: got %d want %d", len(body), 2*768)
	}
	if !bytes.Equal(body[:768], Blue.Bytes()) || !bytes.Equal(body[768:], Red.Bytes()) {
		t.Fatalf("LUT bytes not passed through")
	}
	if len(counts) != 3 || counts[0] != 12 || counts[1] != 768 || counts[2] != 768 {
		t.Fatalf("byte counts: %v", counts)
	}

	data, bc := ImageJMetadataTags(Metadata{FieldLUTs: LUTs{Blue, Red}}, BigEndian)
	if data.ID != 50839 || data.Type.Char() != 'B' || data.Count != uint32(len(block)) || !data.WriteOnce {
		t.Fatalf("data tag: %+v", data)
	}
	if !bytes.Equal(data.Value, block) {
		t.Fatalf("data tag value differs from block")
	}
	wantCounts := []byte{0, 0, 0, 12, 0, 0, 3, 0, 0, 0, 3, 0}
	if bc.ID != 50838 || bc.Type.Char() != 'I' || bc.Count != 3 || !bytes.Equal(bc.Value, wantCounts) {
		t.Fatalf("byte counts tag: %+v", bc)
	}
}

func TestEncodeInfoLittleEndian(t *testing.T) {
	block, counts := EncodeImageJMetadata(Metadata{FieldInfo: Text("hello")}, LittleEndian)

	want := []byte("JIJIofni\x01\x00\x00\x00h\x00e\x00l\x00l\x00o\x00")
	if !bytes.Equal(block, want) {
		t.Fatalf("block: got %q want %q", block, want)
	}
	if len(counts) != 2 || counts[0] != 12 || counts[1] != 10 {
		t.Fatalf("byte counts: %v", counts)
	}
}

func TestEncodeEmpty(t *testing.T) {
	for _, o := range []ByteOrder{BigEndian, LittleEndian} {
		block, counts := EncodeImageJMetadata(Metadata{}, o)
		if len(block) != 4 {
			t.Fatalf("%s: block %q", o, block)
		}
		if len(counts) != 1 || counts[0] != 4 {
			t.Fatalf("%s: counts %v", o, counts)
		}
	}
}

func TestEncodeCanonicalOrderAndCounts(t *testing.T) {
	meta := Metadata{
		FieldOverlays: Blobs{{1, 2, 3}, {4}},
		FieldRanges:   Doubles{0, 255, 10, 4095},
		FieldInfo:     Text("info"),
		FieldLabels:   Texts{"a", "bc", "def"},
		FieldROI:      Blob{9, 9},
		FieldPlot:     Doubles{1.5},
		FieldLUTs:     ChannelLUTs(2),
	}

	for _, o := range []ByteOrder{BigEndian, LittleEndian} {
		block, counts := EncodeImageJMetadata(meta, o)

		wantHeader := 4 + 7*8
		if int(counts[0]) != wantHeader {
			t.Fatalf("%s: header length record %d, want %d", o, counts[0], wantHeader)
		}
		body := 0
		for _, c := range counts[1:] {
			body += int(c)
		}
		if int(counts[0])+body != len(block) {
			t.Fatalf("%s: header+body %d != block %d", o, int(counts[0])+body, len(block))
		}
		// info, 3 labels, ranges, 2 luts, plot, roi, 2 overlays
		if len(counts) != 1+1+3+1+2+1+1+2 {
			t.Fatalf("%s: %d byte counts", o, len(counts))
		}

		bo := o.Binary()
		var codes []string
		var itemCounts []uint32
		for off := 4; off < int(counts[0]); off += 8 {
			code := append([]byte(nil), block[off:off+4]...)
			if o == LittleEndian {
				code[0], code[1], code[2], code[3] = code[3], code[2], code[1], code[0]
			}
			codes = append(codes, string(code))
			itemCounts = append(itemCounts, bo.Uint32(block[off+4:]))
		}
		wantCodes := []string{"info", "labl", "rang", "luts", "plot", "roi ", "over"}
		wantItems := []uint32{1, 3, 1, 2, 1, 1, 2}
		for i := range wantCodes {
			if codes[i] != wantCodes[i] || itemCounts[i] != wantItems[i] {
				t.Fatalf("%s: entry %d = %q/%d, want %q/%d", o, i, codes[i], itemCounts[i], wantCodes[i], wantItems[i])
			}
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	meta := Metadata{
		FieldInfo:   Text("series 1: µm"),
		FieldLabels: Texts{"c0", "c1"},
		FieldRanges: Doubles{0, 255, 12.5, 1000},
		FieldLUTs:   LUTs{Green, Magenta},
		FieldROI:    Blob{1, 2, 3},
	}

	for _, o := range []ByteOrder{BigEndian, LittleEndian} {
		data, counts := ImageJMetadataTags(meta, o)
		d, err := DecodeImageJMetadata(data.Value, counts.Value)
		if err != nil {
			t.Fatalf("%s: decode: %v", o, err)
		}
		if d.ByteOrder != o {
			t.Fatalf("%s: decoded order %s", o, d.ByteOrder)
		}
		if len(d.Fields) != len(meta) {
			t.Fatalf("%s: %d fields, want %d", o, len(d.Fields), len(meta))
		}
		if info, ok := d.Info(); !ok || info != "series 1: µm" {
			t.Fatalf("%s: info %q", o, info)
		}
		if l := d.Labels(); len(l) != 2 || l[0] != "c0" || l[1] != "c1" {
			t.Fatalf("%s: labels %v", o, l)
		}
		if r := d.Ranges(); len(r) != 4 || r[2] != 12.5 || r[3] != 1000 {
			t.Fatalf("%s: ranges %v", o, r)
		}
		if l := d.LUTs(); len(l) != 2 || l[0] != Green || l[1] != Magenta {
			t.Fatalf("%s: luts mismatch", o)
		}
		roi, ok := d.Field(FieldROI)
		if !ok || roi.Count != 1 || !bytes.Equal(roi.Items[0], []byte{1, 2, 3}) {
			t.Fatalf("%s: roi %+v", o, roi)
		}
	}
}

func TestDecodeRejectsCorruptBlocks(t *testing.T) {
	data, counts := ImageJMetadataTags(Metadata{FieldLUTs: LUTs{Blue}}, BigEndian)

	for _, tc := range []struct {
		name   string
		block  []byte
		counts []byte
	}{
		{name: "short block", block: []byte("IJ"), counts: counts.Value},
		{name: "bad magic", block: append([]byte("XXXX"), data.Value[4:]...), counts: counts.Value},
		{name: "truncated body", block: data.Value[:100], counts: counts.Value},
		{name: "missing count", block: data.Value, counts: counts.Value[:4]},
		{name: "extra count", block: data.Value, counts: append(append([]byte(nil), counts.Value...), 0, 0, 0, 0)},
		{name: "ragged counts", block: data.Value, counts: counts.Value[:5]},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeImageJMetadata(tc.block, tc.counts); !errors.Is(err, ErrCorruptMetadata) {
				t.Fatalf("expected ErrCorruptMetadata, got %v", err)
			}
		})
	}
}

func TestMetadataFromNamesIgnoresUnknown(t *testing.T) {
	m := MetadataFromNames(map[string]FieldValue{
		"LUTs":    LUTs{Red},
		"spacing": Text("2.0"),
		"luts":    LUTs{Blue},
	})
	if len(m) != 1 {
		t.Fatalf("got %d fields, want 1", len(m))
	}
	if _, ok := m[FieldLUTs]; !ok {
		t.Fatalf("LUTs missing")
	}

	block, counts := EncodeImageJMetadata(m, BigEndian)
	if len(counts) != 2 || len(block) != 12+768 {
		t.Fatalf("unexpected encoding: %d counts, %d bytes", len(counts), len(block))
	}
}

func TestSingularKindJoinsItems(t *testing.T) {
	// A list value under a singular kind is emitted as one value.
	block, counts := EncodeImageJMetadata(Metadata{FieldROI: Blobs{{1}, {2, 3}}}, BigEndian)
	if len(counts) != 2 || counts[1] != 3 {
		t.Fatalf("counts: %v", counts)
	}
	if binary.BigEndian.Uint32(block[8:]) != 1 {
		t.Fatalf("singular count must be 1")
	}
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{
		FieldInfo:     Text("x"),
		FieldLabels:   Texts{"a"},
		FieldRanges:   Doubles{0, 1},
		FieldLUTs:     Blobs{Gray.Bytes()},
		FieldPlot:     Blob{1},
		FieldROI:      Blob{1},
		FieldOverlays: Blobs{{1}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid metadata: %v", err)
	}

	for _, tc := range []struct {
		name string
		meta Metadata
		kind FieldKind
	}{
		{name: "info list", meta: Metadata{FieldInfo: Texts{"a", "b"}}, kind: FieldInfo},
		{name: "short lut", meta: Metadata{FieldLUTs: Blobs{make([]byte, 767)}}, kind: FieldLUTs},
		{name: "odd ranges", meta: Metadata{FieldRanges: Doubles{1, 2, 3}}, kind: FieldRanges},
		{name: "nil value", meta: Metadata{FieldROI: nil}, kind: FieldROI},
		{name: "unknown kind", meta: Metadata{FieldKind(42): Blob{1}}, kind: FieldKind(42)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.meta.Validate()
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FieldError, got %v", err)
			}
			if fe.Kind != tc.kind {
				t.Fatalf("kind: got %s want %s", fe.Kind, tc.kind)
			}
		})
	}
}

func TestParseByteOrder(t *testing.T) {
	for in, want := range map[string]ByteOrder{">": BigEndian, "big": BigEndian, "<": LittleEndian, "le": LittleEndian} {
		got, err := ParseByteOrder(in)
		if err != nil || got != want {
			t.Fatalf("ParseByteOrder(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseByteOrder("="); !errors.Is(err, ErrByteOrder) {
		t.Fatalf("expected ErrByteOrder, got %v", err)
	}
}

func TestFieldKindNames(t *testing.T) {
	for _, k := range FieldKinds() {
		got, ok := ParseFieldKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseFieldKind(%q) = %v, %v", k.String(), got, ok)
		}
		if len(k.Code()) != 4 {
			t.Fatalf("code of %s: %q", k, k.Code())
		}
	}
	if !FieldLUTs.Repeatable() || FieldInfo.Repeatable() {
		t.Fatalf("repeatable flags wrong")
	}
}
