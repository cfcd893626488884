package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports pipeline and cache events to a logger at debug level.
// The CLI registers it when running verbosely.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) done(msg string, err error, kv ...any) {
	if err != nil {
		h.logger.Debug(msg+" failed", append(kv, "err", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h *LogHooks) OnPlaceStart(_ context.Context, cell string) {
	h.logger.Debug("placing", "cell", cell)
}

func (h *LogHooks) OnPlaceComplete(_ context.Context, cell string, instances int, d time.Duration, err error) {
	h.done("placed", err, "cell", cell, "instances", instances, "duration", d)
}

func (h *LogHooks) OnTrackComplete(_ context.Context, cell string, tracks int, d time.Duration, err error) {
	h.done("tracks assigned", err, "cell", cell, "tracks", tracks, "duration", d)
}

func (h *LogHooks) OnRouteStart(_ context.Context, cell string, nets int) {
	h.logger.Debug("routing", "cell", cell, "nets", nets)
}

func (h *LogHooks) OnRouteComplete(_ context.Context, cell string, wires int, d time.Duration, err error) {
	h.done("routed", err, "cell", cell, "wires", wires, "duration", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string) {}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.done("rendered", err, "format", format, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
)
