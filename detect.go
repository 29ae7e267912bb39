package ijstack

import (
	"errors"
	"io"
	"strings"

	"github.com/vearutop/ijstack/internal/tiffw"
)

// IsHyperstack checks the description of the first page of a TIFF file
// for an ImageJ hyperstack header.
// Files that are not TIFF report false with no error.
func IsHyperstack(r io.ReaderAt, size int64) (bool, error) {
	_, dir, err := tiffw.ReadFirst(r, size)
	if err != nil {
		if errors.Is(err, tiffw.ErrFormat) {
			return false, nil
		}
		return false, err
	}

	e, ok := dir.Entry(tiffw.TagImageDescription)
	if !ok {
		return false, nil
	}
	desc := e.Text()
	return strings.HasPrefix(desc, "ImageJ=") && strings.Contains(desc, "\nhyperstack=true"), nil
}
