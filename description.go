package ijstack

import (
	"strconv"
	"strings"
)

const imageJVersion = "1.11a"

// Description holds the ImageJ hyperstack header stored in the
// ImageDescription tag of the first page.
type Description struct {
	Images   int
	Channels int
	Slices   int
	Frames   int
	Mode     string  // "composite", "color" or "grayscale"
	Unit     string  // spatial unit, e.g. "micron"
	Spacing  float64 // z step in Unit, 0 to omit
	Min, Max float64 // display range, omitted when equal
}

// String renders the description in ImageJ key=value form.
func (d Description) String() string {
	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}

	line("ImageJ", imageJVersion)
	line("images", strconv.Itoa(d.Images))
	if d.Channels > 1 {
		line("channels", strconv.Itoa(d.Channels))
	}
	if d.Slices > 1 {
		line("slices", strconv.Itoa(d.Slices))
	}
	if d.Frames > 1 {
		line("frames", strconv.Itoa(d.Frames))
	}
	line("hyperstack", "true")
	if d.Mode != "" {
		line("mode", d.Mode)
	}
	if d.Unit != "" {
		line("unit", escapeUnit(d.Unit))
	}
	if d.Spacing > 0 {
		line("spacing", strconv.FormatFloat(d.Spacing, 'g', -1, 64))
	}
	line("loop", "false")
	if d.Min != d.Max {
		line("min", strconv.FormatFloat(d.Min, 'g', -1, 64))
		line("max", strconv.FormatFloat(d.Max, 'g', -1, 64))
	}
	return b.String()
}

// ImageJ spells the micrometer as "micron"; the µ sign is written escaped.
func escapeUnit(u string) string {
	switch u {
	case "µm", "um", "micrometer", "micrometre":
		return "micron"
	}
	return strings.ReplaceAll(u, "µ", `\u00B5`)
}

// ParseDescription reads an ImageJ ImageDescription into key/value pairs.
// It returns nil when the text is not an ImageJ header.
func ParseDescription(s string) map[string]string {
	if !strings.HasPrefix(s, "ImageJ=") {
		return nil
	}
	out := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
