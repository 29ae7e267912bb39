package ijstack

import (
	"fmt"
	"strings"
)

const lutSize = 3 * 256

// LUT maps 8-bit intensities to RGB. Rows are red, green and blue.
type LUT [3][256]byte

// Bytes returns the 768-byte row-major serialization (all red, then green, then blue).
func (l LUT) Bytes() []byte {
	b := make([]byte, 0, lutSize)
	for _, row := range l {
		b = append(b, row[:]...)
	}
	return b
}

func ramp(r, g, b bool) LUT {
	var l LUT
	for i := 0; i < 256; i++ {
		if r {
			l[0][i] = byte(i)
		}
		if g {
			l[1][i] = byte(i)
		}
		if b {
			l[2][i] = byte(i)
		}
	}
	return l
}

// Primary and secondary color ramps.
var (
	Gray    = ramp(true, true, true)
	Red     = ramp(true, false, false)
	Green   = ramp(false, true, false)
	Blue    = ramp(false, false, true)
	Yellow  = ramp(true, true, false)
	Magenta = ramp(true, false, true)
	Cyan    = ramp(false, true, true)
)

var lutCycle = [...]LUT{Blue, Red, Green, Yellow, Cyan, Magenta, Gray}

var lutNames = map[string]LUT{
	"gray":    Gray,
	"grey":    Gray,
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"yellow":  Yellow,
	"magenta": Magenta,
	"cyan":    Cyan,
}

// ChannelLUT returns the cycle color for channel i, wrapping after seven
// channels.
func ChannelLUT(i int) LUT {
	n := len(lutCycle)
	return lutCycle[((i%n)+n)%n]
}

// ChannelLUTs returns the cycle colors for n channels.
func ChannelLUTs(n int) LUTs {
	out := make(LUTs, n)
	for i := range out {
		out[i] = ChannelLUT(i)
	}
	return out
}

// LUTByName resolves a color name such as "magenta".
func LUTByName(name string) (LUT, error) {
	l, ok := lutNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return LUT{}, fmt.Errorf("unknown LUT %q", name)
	}
	return l, nil
}

// ParseLUTs resolves a comma-separated list of color names.
func ParseLUTs(list string) (LUTs, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out LUTs
	for _, name := range strings.Split(list, ",") {
		l, err := LUTByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
