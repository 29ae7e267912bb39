// Package ijstack converts multi-dimensional microscopy series into TIFF
// files that ImageJ and Fiji open as hyperstacks.
//
// Planes come from a Reader (a directory of per-plane TIFF files described
// by a manifest, or planes held in memory). They are written either one
// file per plane or as a single hyperstack per series. Hyperstacks carry the
// ImageJ ImageDescription header and the private IJMetadata and
// IJMetadataByteCounts tags (50839 and 50838) with channel lookup tables,
// display ranges, labels and free-form info.
package ijstack
