package tiffw

const entryLen = 12 // Length of an IFD entry in bytes.

// DataType is a TIFF field type.
type DataType uint16

// Field types (TIFF 6.0, p. 15-16).
const (
	Byte      DataType = 1
	ASCII     DataType = 2
	Short     DataType = 3
	Long      DataType = 4
	Rational  DataType = 5
	SByte     DataType = 6
	Undefined DataType = 7
	SShort    DataType = 8
	SLong     DataType = 9
	SRational DataType = 10
	Float     DataType = 11
	Double    DataType = 12
)

var typeSizes = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// Size returns the size of one value of the type in bytes, 0 for unknown types.
func (t DataType) Size() uint32 {
	if int(t) >= len(typeSizes) {
		return 0
	}
	return typeSizes[t]
}

// Char returns the struct-format character conventionally used for the type
// in extra tag tuples ('B' for Byte, 'I' for Long, ...).
func (t DataType) Char() byte {
	switch t {
	case Byte, Undefined:
		return 'B'
	case ASCII:
		return 's'
	case Short:
		return 'H'
	case Long:
		return 'I'
	case Rational:
		return '2'
	case SByte:
		return 'b'
	case SShort:
		return 'h'
	case SLong:
		return 'i'
	case Float:
		return 'f'
	case Double:
		return 'd'
	default:
		return 0
	}
}

// Baseline and extension tags used by the writer.
const (
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagImageDescription          = 270
	TagStripOffsets              = 273
	TagSamplesPerPixel           = 277
	TagRowsPerStrip              = 278
	TagStripByteCounts           = 279
	TagXResolution               = 282
	TagYResolution               = 283
	TagResolutionUnit            = 296
	TagSoftware                  = 305
	TagSampleFormat              = 339
)

// Compression schemes supported by the writer.
const (
	CompressionNone    = 1
	CompressionDeflate = 8 // Adobe deflate (zlib).
)

const photometricBlackIsZero = 1

// SampleFormat is the TIFF SampleFormat value.
type SampleFormat uint16

const (
	SampleUint  SampleFormat = 1
	SampleInt   SampleFormat = 2
	SampleFloat SampleFormat = 3
)

// ResolutionNone is the ResolutionUnit for sizes without an absolute unit.
const ResolutionNone = 1
