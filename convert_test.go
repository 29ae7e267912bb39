package ijstack

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

// planeValue encodes plane coordinates into a sample value.
func planeValue(c, z, t int) uint16 { return uint16(1000*t + 100*z + 10*c) }

func testSeries(name string, w, h, sc, sz, st int) MemorySeries {
	s := MemorySeries{Series: Series{
		Name:          name,
		SizeX:         w,
		SizeY:         h,
		SizeC:         sc,
		SizeZ:         sz,
		SizeT:         st,
		PhysicalSizeX: 0.25,
		PhysicalSizeY: 0.25,
		PhysicalSizeZ: 1.5,
		Unit:          "µm",
		PixelType:     PixelUint16,
		Description:   "acquired on a test rig",
	}}
	for c := 0; c < sc; c++ {
		s.ChannelNames = append(s.ChannelNames, "ch"+string(rune('A'+c)))
		var zs [][]*Plane
		for z := 0; z < sz; z++ {
			var ts []*Plane
			for t := 0; t < st; t++ {
				p := &Plane{Width: w, Height: h, Type: PixelUint16, Pix: make([]byte, 2*w*h)}
				for i := 0; i < w*h; i++ {
					binary.BigEndian.PutUint16(p.Pix[2*i:], planeValue(c, z, t)+uint16(i))
				}
				ts = append(ts, p)
			}
			zs = append(zs, ts)
		}
		s.Planes = append(s.Planes, zs)
	}
	return s
}

func intp(v int) *int { return &v }

func TestConvertStack(t *testing.T) {
	dir := t.TempDir()
	r := NewMemoryReader(testSeries("first", 4, 3, 1, 1, 1), testSeries("second", 4, 3, 2, 3, 2))

	var calls []int
	res, err := Convert(context.Background(), r, ConvertOptions{
		Series:    "1",
		Z:         Span{Min: intp(1)},
		Stack:     true,
		Output:    filepath.Join(dir, "stacks", "out{srs:03d}.tiff"),
		AutoRange: true,
		OnPlane: func(_ Series, done, total int) {
			calls = append(calls, done)
			if total != 8 {
				t.Errorf("total = %d, want 8", total)
			}
		},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Series) != 1 || res.Series[0].Planes != 8 || len(calls) != 8 {
		t.Fatalf("unexpected result %+v, calls %v", res, calls)
	}

	path := filepath.Join(dir, "stacks", "out001.tiff")
	if res.Series[0].Files[0] != path {
		t.Fatalf("file = %s, want %s", res.Series[0].Files[0], path)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.ByteOrder != BigEndian || info.Pages != 8 || info.Width != 4 || info.Height != 3 || info.BitsPerSample != 16 {
		t.Fatalf("unexpected info %+v", info)
	}
	d := info.Description
	if d["images"] != "8" || d["channels"] != "2" || d["slices"] != "2" || d["frames"] != "2" ||
		d["unit"] != "micron" || d["spacing"] != "1.5" || d["mode"] != "composite" {
		t.Fatalf("unexpected description %v", d)
	}
	if info.Info != "acquired on a test rig" {
		t.Fatalf("info = %q", info.Info)
	}
	// One label per image, channel names repeated in TZC order.
	if len(info.Labels) != 8 {
		t.Fatalf("labels = %v", info.Labels)
	}
	for i, l := range info.Labels {
		if want := []string{"chA", "chB"}[i%2]; l != want {
			t.Fatalf("label %d = %q, want %q", i, l, want)
		}
	}
	if info.LUTs != 2 {
		t.Fatalf("luts = %d", info.LUTs)
	}
	luts := info.Metadata.LUTs()
	if luts[0] != Blue || luts[1] != Red {
		t.Fatalf("channel colors do not follow the cycle")
	}

	// Channel 0 covers z 1..2 and t 0..1 with 12 samples per plane.
	wantRanges := []float64{
		float64(planeValue(0, 1, 0)), float64(planeValue(0, 2, 1) + 11),
		float64(planeValue(1, 1, 0)), float64(planeValue(1, 2, 1) + 11),
	}
	if len(info.Ranges) != len(wantRanges) {
		t.Fatalf("ranges = %v", info.Ranges)
	}
	for i := range wantRanges {
		if info.Ranges[i] != wantRanges[i] {
			t.Fatalf("ranges = %v, want %v", info.Ranges, wantRanges)
		}
	}

	// Pages follow TZC order with the selection starting at z=1.
	for i, want := range []struct{ c, z, t int }{
		{0, 1, 0}, {1, 1, 0}, {0, 2, 0}, {1, 2, 0}, {0, 1, 1},
	} {
		pix, err := ReadHyperstackPlane(path, i)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		if got := binary.BigEndian.Uint16(pix); got != planeValue(want.c, want.z, want.t) {
			t.Fatalf("page %d starts with %d, want plane %+v", i, got, want)
		}
	}
}

func TestConvertPlanes(t *testing.T) {
	dir := t.TempDir()
	r := NewMemoryReader(testSeries("pos1", 5, 2, 2, 2, 1))

	res, err := Convert(context.Background(), r, ConvertOptions{
		Channels:    []int{1},
		OutputDir:   dir,
		PixelType:   PixelUint8,
		Compression: 6,
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	files := res.Series[0].Files
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}
	if want := filepath.Join(dir, "pos1", "img_z0001_c1_t0000.tiff"); files[1] != want {
		t.Fatalf("file = %s, want %s", files[1], want)
	}

	data, err := os.ReadFile(files[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("II")) {
		t.Fatalf("per-plane files default to little-endian")
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray", img)
	}
	if g.Pix[0] != byte(planeValue(1, 1, 0)) || g.Pix[9] != byte(planeValue(1, 1, 0)+9) || g.Bounds().Dx() != 5 || g.Bounds().Dy() != 2 {
		t.Fatalf("unexpected plane %v %v", g.Bounds(), g.Pix)
	}

	info, err := Inspect(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if info.Metadata != nil || info.Description != nil || info.Compression != 8 {
		t.Fatalf("per-plane files carry no ImageJ metadata: %+v", info)
	}
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	s := testSeries("broken", 2, 2, 1, 2, 1)
	s.Planes[0][1][0] = nil
	r := NewMemoryReader(s)

	out := filepath.Join(dir, "broken.tiff")
	_, err := Convert(context.Background(), r, ConvertOptions{Stack: true, Output: out})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("partial hyperstack must be removed, stat: %v", err)
	}

	if _, err := Convert(context.Background(), r, ConvertOptions{Series: "3"}); !errors.Is(err, ErrSeriesSpec) {
		t.Fatalf("err = %v, want ErrSeriesSpec", err)
	}
	if _, err := Convert(context.Background(), r, ConvertOptions{Channels: []int{4}, OutputDir: dir}); err == nil {
		t.Fatalf("expected channel range error")
	}
	if _, err := Convert(context.Background(), r, ConvertOptions{Stack: true, Output: out, PixelType: PixelInt16}); !errors.Is(err, ErrPixelType) {
		t.Fatalf("err = %v, want ErrPixelType", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Convert(ctx, NewMemoryReader(testSeries("ok", 2, 2, 1, 1, 1)), ConvertOptions{OutputDir: dir})
	if !IsCanceled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
}

func TestHyperstackWriterPlaneCount(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "short.tiff"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	hw, err := NewHyperstackWriter(f, HyperstackOptions{Width: 1, Height: 1, PixelType: PixelUint8, Channels: 2, Slices: 1, Frames: 1})
	if err != nil {
		t.Fatal(err)
	}
	p := &Plane{Width: 1, Height: 1, Type: PixelUint8, Pix: []byte{7}}
	if err := hw.WritePlane(p); err != nil {
		t.Fatal(err)
	}
	if err := hw.Close(); !errors.Is(err, ErrPlaneCount) {
		t.Fatalf("err = %v, want ErrPlaneCount", err)
	}
	if err := hw.WritePlane(&Plane{Width: 2, Height: 1, Type: PixelUint8, Pix: []byte{1, 2}}); !errors.Is(err, ErrPlaneShape) {
		t.Fatalf("err = %v, want ErrPlaneShape", err)
	}
	if err := hw.WritePlane(p); err != nil {
		t.Fatal(err)
	}
	if err := hw.WritePlane(p); !errors.Is(err, ErrPlaneCount) {
		t.Fatalf("err = %v, want ErrPlaneCount", err)
	}
	if err := hw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHyperstackLittleEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "le.tiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	hw, err := NewHyperstackWriter(f, HyperstackOptions{
		Width: 2, Height: 1, PixelType: PixelFloat32,
		Channels: 1, Slices: 1, Frames: 1,
		ByteOrder: LittleEndian,
		LUTs:      LUTs{Gray},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := &Plane{Width: 2, Height: 1, Type: PixelFloat32, Pix: []byte{0x3f, 0x80, 0, 0, 0x40, 0, 0, 0}}
	if err := hw.WritePlane(p); err != nil {
		t.Fatal(err)
	}
	if err := hw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.ByteOrder != LittleEndian || info.Metadata.ByteOrder != LittleEndian || info.BitsPerSample != 32 {
		t.Fatalf("unexpected info %+v", info)
	}
	pix, err := ReadHyperstackPlane(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pix, p.Pix) {
		t.Fatalf("samples = %x, want %x", pix, p.Pix)
	}
	if _, err := ReadHyperstackPlane(path, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHyperstackLabels(t *testing.T) {
	opts := HyperstackOptions{Width: 1, Height: 1, PixelType: PixelUint8, Channels: 2, Slices: 3, Frames: 1}

	for _, tc := range []struct {
		labels []string
		want   []string
	}{
		{labels: nil, want: nil},
		{labels: []string{"a", "b"}, want: []string{"a", "b", "a", "b", "a", "b"}},
		{labels: []string{"1", "2", "3", "4", "5", "6"}, want: []string{"1", "2", "3", "4", "5", "6"}},
	} {
		path := filepath.Join(t.TempDir(), "labels.tiff")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		o := opts
		o.Labels = tc.labels
		hw, err := NewHyperstackWriter(f, o)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < o.Images(); i++ {
			if err := hw.WritePlane(&Plane{Width: 1, Height: 1, Type: PixelUint8, Pix: []byte{byte(i)}}); err != nil {
				t.Fatal(err)
			}
		}
		if err := hw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		info, err := Inspect(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(info.Labels) != len(tc.want) {
			t.Fatalf("labels = %v, want %v", info.Labels, tc.want)
		}
		for i := range tc.want {
			if info.Labels[i] != tc.want[i] {
				t.Fatalf("labels = %v, want %v", info.Labels, tc.want)
			}
		}
	}

	o := opts
	o.Labels = []string{"a", "b", "c"}
	if _, err := NewHyperstackWriter(discardSeeker{}, o); !errors.Is(err, ErrPlaneCount) {
		t.Fatalf("err = %v, want ErrPlaneCount", err)
	}
}

type discardSeeker struct{}

func (discardSeeker) Write(p []byte) (int, error) {
	return len(p), nil
}

func (discardSeeker) Seek(int64, int) (int64, error) {
	return 0, nil
}
