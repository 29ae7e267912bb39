package ijstack

// Output defaults of Convert.
const (
	DefaultOutputPattern = "img_z{z:04d}_c{c:01d}_t{t:04d}.tiff"
	DefaultStackOutput   = "./output{srs:03d}.tiff"
	DefaultSeries        = "0"
)

const (
	defaultUnit = "micron"
	defaultMode = "composite"
)
