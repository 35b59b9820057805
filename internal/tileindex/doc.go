// Package tileindex builds, persists and loads the reverse index of a tile
// pool: a mapping from quantized average color to the tile images having that
// color.
//
// # Building
//
// Build scans a pool directory (non-recursively) for .jpg, .jpeg and .png
// files, decodes each one on a bounded worker pool and groups the file paths
// by their quantized average color. Results are merged in directory order, so
// the order of paths inside a bucket does not depend on the worker count.
//
// # Cache File
//
// The index is persisted as an indented JSON object with sorted keys:
//
//	{
//	  "(0, 0, 0)": [
//	    "pool/black.png"
//	  ],
//	  "(120, 120, 120)": [
//	    "pool/gray-a.jpg",
//	    "pool/gray-b.jpg"
//	  ]
//	}
//
// Keys use the canonical color form parsed by imaging.ParseColor. The file is
// always rewritten as a whole.
//
// # Rebuild Policy
//
// Ensure loads the cache when it exists and is valid. It rebuilds (and
// rewrites the cache once) when the cache is missing, unreadable or malformed,
// or when a rebuild is forced. Pool changes are not detected; callers force a
// rebuild after changing the pool.
package tileindex
