// Package server implements an MCP (Model Context Protocol) server exposing
// the photo mosaic pipeline as tools.
//
// The server speaks JSON-RPC 2.0 over stdio so an MCP client can inspect
// images, plan grids, build and query the tile index, and compose mosaics.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata, including tile eligibility
//   - image_dimensions: Get width and height
//
// Color and Grid Operations:
//   - mosaic_average_color: Quantized average color of an image or region
//   - mosaic_plan_grid: Tile grid for an image or a width and height
//   - mosaic_grid_overlay: Image with the tile grid drawn over it
//
// Tile Index Operations:
//   - mosaic_build_index: Load or rebuild the cached tile index
//   - mosaic_match_color: Nearest indexed color and its tiles
//
// Composition:
//   - mosaic_compose: Build a mosaic and write it to disk
//
// Settings a call leaves out (pool directory, cache path, tile size, grid
// shape, resampler) come from the config.Config the server was created with.
//
// # Caching
//
// Decoded images are cached by path for the lifetime of the server. Tile
// indexes are kept per cache path, so repeated match calls do not reread the
// cache file; passing rebuild forces a fresh scan of the pool.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
