// Package imaging provides the pixel-level building blocks of the mosaic
// pipeline.
//
// This package implements color sampling and quantization, tile grid planning,
// source preparation (crop and resize to an exact grid multiple), named
// resampling backends, and image decoding/encoding with a thread-safe cache.
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Grid cells are half-open: (X0,Y0) is inclusive, (X1,Y1) is exclusive
//
// # Quantized Colors
//
// AverageColor returns the mean color of a region with every channel rounded
// to the nearest multiple of 10. Halves round to even, so a mean of 125 becomes
// 120 and a mean of 255 becomes 260. Quantized channels may therefore exceed
// 255; Hex clamps them for display only.
//
// Colors have a canonical string form "(r, g, b)" which is also the key format
// of the tile-index cache. ParseColor accepts exactly that form.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Sampling, planning and
// resizing are stateless and can be called concurrently. Writes into a shared
// *image.NRGBA are safe as long as callers write disjoint rectangles.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Zero-area regions passed to AverageColor (ErrDegenerateRegion)
//   - Non-positive grid or tile dimensions
//   - Unknown resampler or crop mode names
//   - File I/O and decode errors during image loading
package imaging
