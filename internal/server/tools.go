package server

import "github.com/ironsheep/image-mosaic/internal/imaging"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

func intProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": desc,
	}
}

// indexProperties are accepted by every tool that needs a tile index.
func indexProperties() map[string]interface{} {
	return map[string]interface{}{
		"pool_dir":   pathProperty("Directory of tile images (.jpg, .jpeg, .png). Defaults to the server's pool."),
		"cache_path": pathProperty("Tile index cache file. Defaults to the server's cache."),
		"rebuild": map[string]interface{}{
			"type":        "boolean",
			"description": "Rebuild the index from the pool even if a cache exists",
			"default":     false,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it can be used as a mosaic tile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},

		// Color and Grid Operations
		{
			Name:        "mosaic_average_color",
			Description: "Compute the quantized average color (each channel rounded to a multiple of 10) of an image or a region of it. This is the color used to index tiles and match grid cells.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"region": map[string]interface{}{
						"type":        "object",
						"description": "Optional region; x2 and y2 are exclusive. Defaults to the whole image.",
						"properties": map[string]interface{}{
							"x1": intProperty("Left edge X coordinate (0-based)"),
							"y1": intProperty("Top edge Y coordinate (0-based)"),
							"x2": intProperty("Right edge X coordinate (exclusive)"),
							"y2": intProperty("Bottom edge Y coordinate (exclusive)"),
						},
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "mosaic_plan_grid",
			Description: "Compute the tile grid covering an image: cells in row-major order with half-open pixel coordinates. Pass either a path or width and height.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Optional image whose dimensions are used"),
					"width":       intProperty("Image width in pixels (ignored when path is given)"),
					"height":      intProperty("Image height in pixels (ignored when path is given)"),
					"tile_width":  intProperty("Tile width in pixels (default from server configuration)"),
					"tile_height": intProperty("Tile height in pixels (default from server configuration)"),
				},
			},
		},
		{
			Name:        "mosaic_grid_overlay",
			Description: "Return the image with the mosaic tile grid drawn over it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty("Absolute path to the image file"),
					"tile_width":  intProperty("Tile width in pixels (default from server configuration)"),
					"tile_height": intProperty("Tile height in pixels (default from server configuration)"),
					"show_coordinates": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether to label each cell with its row,col",
						"default":     false,
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid line color as hex (default #FF000080 - semi-transparent red)",
						"default":     "#FF000080",
					},
				},
				"required": []string{"path"},
			},
		},

		// Tile Index Operations
		{
			Name:        "mosaic_build_index",
			Description: "Load the tile index from its cache, or build it from the pool directory and write the cache when the cache is missing, corrupt or a rebuild is requested.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": indexProperties(),
			},
		},
		{
			Name:        "mosaic_match_color",
			Description: "Find the indexed tile color nearest to a color (Euclidean RGB distance) and list the tiles in that bucket.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(indexProperties(), map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Query color as \"(r, g, b)\" or \"#RRGGBB\"",
					},
				}),
				"required": []string{"color"},
			},
		},

		// Composition
		{
			Name:        "mosaic_compose",
			Description: "Build a photo mosaic of a source image from the tile pool and write it to disk. Returns the output path, grid shape, seed and composition statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(indexProperties(), map[string]interface{}{
					"source":      pathProperty("Absolute path to the source image"),
					"output":      pathProperty("Output image path (default <output_dir>/<source>_Mosaic.jpeg)"),
					"tile_width":  intProperty("Tile width in pixels"),
					"tile_height": intProperty("Tile height in pixels"),
					"tiles_wide":  intProperty("Number of tile columns"),
					"tiles_high":  intProperty("Number of tile rows"),
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for tile selection; omit for a random seed",
					},
					"resampler": map[string]interface{}{
						"type":        "string",
						"description": "Tile resampler (default " + imaging.DefaultResampler + ")",
						"enum":        imaging.ResamplerNames(),
					},
					"crop_mode": map[string]interface{}{
						"type":        "string",
						"description": "How the source is fitted to the mosaic",
						"enum":        []string{"square", "fill", "stretch"},
					},
					"grid_preview": pathProperty("Optional path for a preview of the grid over the prepared source"),
				}),
				"required": []string{"source"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
