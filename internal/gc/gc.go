// Package gc implements the external-but-adjacent garbage collection pass:
// compacting a target's retained history, then sweeping chunk objects no
// Document reachably references. The core engine never calls this package;
// it consumes only the store adapter's exported surface (available_hashes,
// delete_chunks, Document traversal), matching spec.md's framing of GC as
// an external collaborator.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/chunk"
	"github.com/prn-tf/chunkvault/internal/engineerrors"
	"github.com/prn-tf/chunkvault/internal/manifest"
	"github.com/prn-tf/chunkvault/internal/metrics"
	"github.com/prn-tf/chunkvault/internal/store"
)

// Collector drives compaction and sweep passes against a store adapter.
type Collector struct {
	adapter *store.Adapter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New builds a Collector.
func New(adapter *store.Adapter, logger zerolog.Logger) *Collector {
	return &Collector{adapter: adapter, logger: logger}
}

// WithMetrics attaches a Metrics recorder; Sweep reports to it on
// completion. Passing a nil m leaves metrics off.
func (c *Collector) WithMetrics(m *metrics.Metrics) *Collector {
	c.metrics = m
	return c
}

// Compact rewrites rootName's Document to drop all retained history,
// keeping only the current Blob. Any chunk only reachable through the
// dropped history becomes eligible for the next Sweep.
func (c *Collector) Compact(ctx context.Context, rootName string) error {
	doc, ok, err := c.adapter.GetRoot(ctx, rootName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no document for root %q", engineerrors.ErrNotFound, rootName)
	}
	compacted := manifest.NewDocument(doc.Current())
	if err := c.adapter.PutRoot(ctx, rootName, compacted); err != nil {
		return err
	}
	c.logger.Info().Str("root", rootName).Int("dropped_versions", doc.VersionCount()-1).Msg("gc compact complete")
	return nil
}

// Result reports what a Sweep pass found and removed.
type Result struct {
	Reachable int
	Available int
	Deleted   int
}

// Sweep computes the reachable set across every stored target's full
// retained history (every version GetVersion can still reconstruct, not
// just current — Compact is what narrows that set, not Sweep itself) and
// deletes every stored chunk outside it.
func (c *Collector) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	result, err := c.sweep(ctx)
	if c.metrics != nil {
		c.metrics.RecordGCRun(time.Since(start).Seconds(), result.Deleted, result.Available-result.Reachable, float64(time.Now().Unix()))
	}
	return result, err
}

func (c *Collector) sweep(ctx context.Context) (Result, error) {
	roots, err := c.adapter.ListRoots(ctx)
	if err != nil {
		return Result{}, err
	}

	reachable := make(map[chunk.Digest]struct{})
	for _, name := range roots {
		doc, ok, err := c.adapter.GetRoot(ctx, name)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		for k := 0; k < doc.VersionCount(); k++ {
			blob, ok := doc.GetVersion(k)
			if !ok {
				continue
			}
			for _, h := range blob.ChunkHashes() {
				reachable[h] = struct{}{}
			}
		}
	}

	available, err := c.adapter.AvailableHashes(ctx)
	if err != nil {
		return Result{}, err
	}

	var orphans []chunk.Digest
	for _, h := range available {
		if _, ok := reachable[h]; !ok {
			orphans = append(orphans, h)
		}
	}

	if len(orphans) > 0 {
		if err := c.adapter.DeleteChunks(ctx, orphans); err != nil {
			return Result{}, err
		}
	}

	c.logger.Info().
		Int("reachable", len(reachable)).
		Int("available", len(available)).
		Int("deleted", len(orphans)).
		Msg("gc sweep complete")

	return Result{Reachable: len(reachable), Available: len(available), Deleted: len(orphans)}, nil
}
