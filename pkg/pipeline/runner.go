package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/strongarm/pkg/cache"
	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/observability"
	"github.com/matzehuels/strongarm/pkg/render"
	"github.com/matzehuels/strongarm/pkg/route"
)

// DefaultRouterName identifies the built-in maze router in cache keys.
const DefaultRouterName = "bfs"

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Process config.Process
	Cache   cache.Cache
	Keyer   cache.Keyer
	Router  route.Router
	// RouterName is part of the mesh cache key. Set it whenever Router is
	// replaced.
	RouterName string
	ViaMaker   route.ViaMaker
	Logger     *log.Logger
}

// NewRunner creates a runner for the given process.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The router is the process-configured BFSRouter.
func NewRunner(proc config.Process, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Process:    proc,
		Cache:      c,
		Keyer:      keyer,
		Router:     &route.BFSRouter{TopLayer: proc.RouteTopLayer, Margin: proc.RouteMargin},
		RouterName: DefaultRouterName,
		ViaMaker:   proc.ViaMaker(),
		Logger:     logger,
	}
}

// Execute runs the complete place → assign → route → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With("cell", opts.Params.Name)

	// Stages 1-2: Place and assign
	cell, err := r.Layout(ctx, opts.Params)
	if err != nil {
		return nil, err
	}
	logger.Info("placed cell",
		"instances", cell.Stats.Instances,
		"duration", cell.Stats.PlaceTime)
	logger.Info("assigned tracks",
		"tracks", cell.Tracks.String(),
		"duration", cell.Stats.TrackTime)

	result := &Result{Cell: cell}

	// Stage 3: Route
	if !opts.SkipRoute {
		start := time.Now()
		mesh, hit, err := r.RouteWithCacheInfo(ctx, cell, opts.Refresh)
		if err != nil {
			return nil, err
		}
		cell.Mesh = mesh
		cell.Stats.RouteTime = time.Since(start)
		cell.Stats.Nets = len(mesh.Nets())
		cell.Stats.Wires = len(mesh.Wires)
		cell.Stats.Vias = len(mesh.Vias)
		result.CacheInfo.MeshHit = hit

		logger.Info("routed cell",
			"nets", cell.Stats.Nets,
			"wires", cell.Stats.Wires,
			"vias", cell.Stats.Vias,
			"cached", hit,
			"duration", cell.Stats.RouteTime)
	}

	// Stage 4: Render
	if len(opts.Formats) > 0 {
		start := time.Now()
		artifacts, hit, err := r.RenderWithCacheInfo(ctx, cell.Document(r.Process), opts.Formats, opts.Refresh)
		if err != nil {
			return nil, err
		}
		result.Artifacts = artifacts
		result.CacheInfo.RenderHit = hit
		cell.Stats.RenderTime = time.Since(start)

		logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", cell.Stats.RenderTime)
	}

	return result, nil
}

// BuildWithCacheInfo places, assigns and routes one cell and reports
// whether the mesh came from cache.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, p comparator.Params) (*Cell, bool, error) {
	res, err := r.Execute(ctx, Options{Params: p})
	if err != nil {
		return nil, false, err
	}
	return res.Cell, res.CacheInfo.MeshHit, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, p comparator.Params) (*Cell, error) {
	c, _, err := r.BuildWithCacheInfo(ctx, p)
	return c, err
}

// RouteWithCacheInfo routes a placed cell, consulting the mesh cache unless
// refresh is set, and returns cache hit info.
func (r *Runner) RouteWithCacheInfo(ctx context.Context, c *Cell, refresh bool) (*route.Mesh, bool, error) {
	key := r.Keyer.MeshKey(c.Params.Hash(), cache.MeshKeyOpts{
		ProcessHash: r.Process.Hash(),
		Router:      r.RouterName,
	})

	// Try cache first (unless refresh requested)
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var mesh route.Mesh
			if err := json.Unmarshal(data, &mesh); err == nil {
				observability.Cache().OnCacheHit(ctx, "mesh")
				return &mesh, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "mesh")
	}

	req, err := r.RouteRequest(c)
	if err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnRouteStart(ctx, c.Name, len(req.Nets))
	start := time.Now()
	mesh, err := r.Router.Route(ctx, req)
	wires := 0
	if mesh != nil {
		wires = len(mesh.Wires)
	}
	hooks.OnRouteComplete(ctx, c.Name, wires, time.Since(start), err)
	if err != nil {
		if apperrors.GetCode(err) == "" {
			err = apperrors.Wrap(apperrors.ErrCodeRouting, err, "route %s", c.Name)
		}
		return nil, false, err
	}
	if mesh == nil {
		return nil, false, apperrors.New(apperrors.ErrCodeRouting, "route %s: router returned no mesh", c.Name)
	}

	// Cache the result
	if data, err := json.Marshal(mesh); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLMesh); err == nil {
			observability.Cache().OnCacheSet(ctx, "mesh", len(data))
		}
	}

	return mesh, false, nil
}

// RenderWithCacheInfo renders doc in every format, consulting the artifact
// cache unless refresh is set. The hit flag is true only when every format
// came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc *cellio.Document, formats []string, refresh bool) (map[string][]byte, bool, error) {
	for _, f := range formats {
		if err := render.ValidateFormat(f); err != nil {
			return nil, false, err
		}
	}

	docData, err := cellio.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("serialize cell for cache key: %w", err)
	}
	cellHash := cache.Hash(docData)

	artifacts := make(map[string][]byte, len(formats))
	allCached := true
	hooks := observability.Pipeline()

	for _, format := range formats {
		key := r.Keyer.ArtifactKey(cellHash, cache.ArtifactKeyOpts{Format: format})
		if !refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}
		allCached = false

		hooks.OnRenderStart(ctx, format)
		start := time.Now()
		data, err := render.Render(ctx, doc, format)
		hooks.OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data

		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return artifacts, allCached, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo for one
// format and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, doc *cellio.Document, format string) ([]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, doc, []string{format}, false)
	if err != nil {
		return nil, err
	}
	return artifacts[format], nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
