package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/image-mosaic/internal/config"
	"github.com/ironsheep/image-mosaic/internal/imaging"
	"github.com/ironsheep/image-mosaic/internal/match"
	"github.com/ironsheep/image-mosaic/internal/mosaic"
	"github.com/ironsheep/image-mosaic/internal/tileindex"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "mosaic_compose").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).WithField("tool", params.Name).Warn("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Fills omitted settings from the server defaults
//  3. Calls the imaging, tileindex, match or mosaic package
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Color and Grid Operations
	case "mosaic_average_color":
		return s.handleAverageColor(args)
	case "mosaic_plan_grid":
		return s.handlePlanGrid(args)
	case "mosaic_grid_overlay":
		return s.handleGridOverlay(args)

	// Tile Index Operations
	case "mosaic_build_index":
		return s.handleBuildIndex(ctx, args)
	case "mosaic_match_color":
		return s.handleMatchColor(ctx, args)

	// Composition
	case "mosaic_compose":
		return s.handleCompose(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as an empty
// object so tools whose parameters are all optional can be called bare.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Color and Grid Handlers ===

type averageColorArgs struct {
	Path   string          `json:"path"`
	Region *imaging.Region `json:"region"`
}

func (s *Server) handleAverageColor(args json.RawMessage) (interface{}, error) {
	var a averageColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.AverageRegionColor(img, a.Region)
}

type planGridArgs struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	TileWidth  int    `json:"tile_width"`
	TileHeight int    `json:"tile_height"`
}

// PlanGridResult is the result of mosaic_plan_grid.
type PlanGridResult struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	TileWidth  int            `json:"tile_width"`
	TileHeight int            `json:"tile_height"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Exact      bool           `json:"exact"` // dimensions are exact multiples of the tile size
	Cells      []imaging.Cell `json:"cells"`
}

func (s *Server) handlePlanGrid(args json.RawMessage) (interface{}, error) {
	var a planGridArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	s.tileDefaults(&a.TileWidth, &a.TileHeight)

	if a.Path != "" {
		dims, err := imaging.GetDimensions(s.cache, a.Path)
		if err != nil {
			return nil, err
		}
		a.Width, a.Height = dims.Width, dims.Height
	}

	cells, err := imaging.PlanGrid(a.Height, a.Width, a.TileHeight, a.TileWidth)
	if err != nil {
		return nil, err
	}
	rows, cols := imaging.GridSize(a.Height, a.Width, a.TileHeight, a.TileWidth)
	return &PlanGridResult{
		Width:      a.Width,
		Height:     a.Height,
		TileWidth:  a.TileWidth,
		TileHeight: a.TileHeight,
		Rows:       rows,
		Cols:       cols,
		Exact:      a.Width%a.TileWidth == 0 && a.Height%a.TileHeight == 0,
		Cells:      cells,
	}, nil
}

type gridOverlayArgs struct {
	Path            string `json:"path"`
	TileWidth       int    `json:"tile_width"`
	TileHeight      int    `json:"tile_height"`
	ShowCoordinates bool   `json:"show_coordinates"`
	GridColor       string `json:"grid_color"`
}

func (s *Server) handleGridOverlay(args json.RawMessage) (interface{}, error) {
	var a gridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	s.tileDefaults(&a.TileWidth, &a.TileHeight)
	if a.GridColor == "" {
		a.GridColor = "#FF000080"
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.GridOverlay(img, a.TileWidth, a.TileHeight, a.ShowCoordinates, a.GridColor)
}

func (s *Server) tileDefaults(width, height *int) {
	if *width == 0 {
		*width = s.defaults.TileWidth
	}
	if *height == 0 {
		*height = s.defaults.TileHeight
	}
}

// === Tile Index Handlers ===

type indexArgs struct {
	PoolDir   string `json:"pool_dir"`
	CachePath string `json:"cache_path"`
	Rebuild   bool   `json:"rebuild"`
}

func (a indexArgs) apply(cfg config.Config) config.Config {
	if a.PoolDir != "" {
		cfg.PoolDir = a.PoolDir
	}
	if a.CachePath != "" {
		cfg.CachePath = a.CachePath
	}
	cfg.ForceRebuild = a.Rebuild
	return cfg
}

// index returns the tile index for cfg, reusing one loaded earlier by this
// server unless a rebuild is forced.
func (s *Server) index(ctx context.Context, cfg config.Config) (*tileindex.Index, *tileindex.EnsureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[cfg.CachePath]; ok && !cfg.ForceRebuild {
		return idx, &tileindex.EnsureResult{
			Reason: "loaded",
			Stats:  tileindex.BuildStats{Indexed: idx.NumTiles(), Buckets: idx.Len()},
		}, nil
	}
	idx, res, err := mosaic.EnsureIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	s.indexes[cfg.CachePath] = idx
	return idx, res, nil
}

// BuildIndexResult is the result of mosaic_build_index.
type BuildIndexResult struct {
	PoolDir   string               `json:"pool_dir"`
	CachePath string               `json:"cache_path"`
	Rebuilt   bool                 `json:"rebuilt"`
	Reason    string               `json:"reason"`
	Stats     tileindex.BuildStats `json:"stats"`
	Buckets   []BucketSummary      `json:"buckets"`
}

// BucketSummary describes one bucket of the tile index.
type BucketSummary struct {
	Color imaging.ColorResult `json:"color"`
	Tiles int                 `json:"tiles"`
}

func (s *Server) handleBuildIndex(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a indexArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	cfg := a.apply(s.defaults)
	idx, res, err := s.index(ctx, cfg)
	if err != nil {
		return nil, err
	}

	records := idx.Records()
	buckets := make([]BucketSummary, len(records))
	for i, r := range records {
		buckets[i] = BucketSummary{Color: imaging.Describe(r.Color), Tiles: len(r.Tiles)}
	}
	return &BuildIndexResult{
		PoolDir:   cfg.PoolDir,
		CachePath: cfg.CachePath,
		Rebuilt:   res.Rebuilt,
		Reason:    res.Reason,
		Stats:     res.Stats,
		Buckets:   buckets,
	}, nil
}

type matchColorArgs struct {
	indexArgs
	Color string `json:"color"`
}

// MatchColorResult is the result of mosaic_match_color.
type MatchColorResult struct {
	Query    imaging.ColorResult `json:"query"`
	Match    imaging.ColorResult `json:"match"`
	Distance float64             `json:"distance"`
	Tiles    []string            `json:"tiles"`
}

func parseQueryColor(s string) (imaging.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return imaging.ParseHexColor(s)
	}
	return imaging.ParseColor(s)
}

func (s *Server) handleMatchColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a matchColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	query, err := parseQueryColor(a.Color)
	if err != nil {
		return nil, err
	}
	idx, _, err := s.index(ctx, a.apply(s.defaults))
	if err != nil {
		return nil, err
	}

	nearest, err := match.Nearest(query, idx.Keys())
	if err != nil {
		return nil, err
	}
	tiles, err := idx.Get(nearest)
	if err != nil {
		return nil, err
	}
	return &MatchColorResult{
		Query:    imaging.Describe(query),
		Match:    imaging.Describe(nearest),
		Distance: query.Distance(nearest),
		Tiles:    tiles,
	}, nil
}

// === Composition Handler ===

type composeArgs struct {
	indexArgs
	Source      string  `json:"source"`
	Output      string  `json:"output"`
	TileWidth   int     `json:"tile_width"`
	TileHeight  int     `json:"tile_height"`
	TilesWide   int     `json:"tiles_wide"`
	TilesHigh   int     `json:"tiles_high"`
	Seed        *uint64 `json:"seed"`
	Resampler   string  `json:"resampler"`
	CropMode    string  `json:"crop_mode"`
	GridPreview string  `json:"grid_preview"`
}

func (a composeArgs) apply(cfg config.Config) config.Config {
	cfg = a.indexArgs.apply(cfg)
	cfg.SourcePath = a.Source
	cfg.OutputPath = a.Output
	cfg.GridPreviewPath = a.GridPreview
	for _, f := range []struct {
		dst *int
		v   int
	}{
		{&cfg.TileWidth, a.TileWidth},
		{&cfg.TileHeight, a.TileHeight},
		{&cfg.TilesWide, a.TilesWide},
		{&cfg.TilesHigh, a.TilesHigh},
	} {
		if f.v != 0 {
			*f.dst = f.v
		}
	}
	if a.Seed != nil {
		cfg.Seed, cfg.Seeded = *a.Seed, true
	} else {
		cfg.Seeded = false
	}
	if a.Resampler != "" {
		cfg.Resampler = a.Resampler
	}
	if a.CropMode != "" {
		cfg.CropMode = a.CropMode
	}
	return cfg
}

func (s *Server) handleCompose(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a composeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg := a.apply(s.defaults)

	res, err := mosaic.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if res.Index.Rebuilt {
		// The cache on disk changed; drop any index held from before.
		s.mu.Lock()
		delete(s.indexes, cfg.CachePath)
		s.mu.Unlock()
	}
	return res, nil
}
