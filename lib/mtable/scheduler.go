package mtable

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mergetable/mergetable/lib/logger"
)

// MergeScheduler runs merge tasks produced by selectMergeWindows on a
// bounded worker pool, so the background merge executor runs multiple
// tasks concurrently without starving the foreground ingest path.
type MergeScheduler struct {
	ps     *PartSet
	schema *Schema
	cfg    Config
	writer *MergedPartWriter
}

// NewMergeScheduler returns a scheduler that merges parts tracked by
// ps according to schema and cfg.
func NewMergeScheduler(ps *PartSet, schema *Schema, cfg Config) *MergeScheduler {
	return &MergeScheduler{ps: ps, schema: schema, cfg: cfg, writer: newMergedPartWriter(schema, cfg)}
}

// RunOnce plans merge windows against the current active set and
// executes them concurrently, bounded by cfg.MergeWorkers. A single
// window's failure — including a panic inside the merge itself — is
// contained: it is logged and that window's parts become eligible for
// replanning, without aborting the other windows running alongside it
// or failing RunOnce as a whole.
func (ms *MergeScheduler) RunOnce(ctx context.Context) error {
	active := ms.ps.Active()
	defer func() {
		for _, p := range active {
			ms.ps.Release(p)
		}
	}()

	windows := selectMergeWindows(active, ms.cfg)
	if len(windows) == 0 {
		return ErrNothingToMerge
	}

	for _, w := range windows {
		for _, p := range w.parts {
			p.setMerging(true)
		}
	}

	var g errgroup.Group
	g.SetLimit(ms.cfg.MergeWorkers)
	for _, w := range windows {
		w := w
		g.Go(func() error {
			ms.runWindow(ctx, w)
			return nil
		})
	}
	return g.Wait()
}

// runWindow never lets a failing or panicking merge escape to the
// caller: it logs and leaves the window's parts to be replanned on
// the next round.
func (ms *MergeScheduler) runWindow(ctx context.Context, w mergeWindow) {
	defer func() {
		for _, p := range w.parts {
			p.setMerging(false)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("merge of window starting at part %q panicked: %v", w.parts[0].name, r)
		}
	}()

	select {
	case <-ctx.Done():
		return
	default:
	}

	merged, err := ms.writer.Merge(w.parts)
	if err != nil {
		logger.Warnf("merge of window starting at part %q failed: %s", w.parts[0].name, err)
		return
	}
	ms.ps.Swap(w.parts, merged)
}
