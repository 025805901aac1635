package mtable

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"github.com/mergetable/mergetable/lib/fs"
	"github.com/mergetable/mergetable/lib/logger"
	"github.com/mergetable/mergetable/lib/predicate"
)

// Engine is the table-level façade: it owns the part set, the id
// allocator, and the write/read/merge entry points that make up a
// table's external operations.
type Engine struct {
	schema *Schema
	cfg    Config
	ps     *PartSet
	ids    *incrementAllocator

	writer    *PartWriter
	scheduler *MergeScheduler
	pruner    *RangePruner

	metrics *engineMetrics

	// mergeWG tracks background merge rounds kicked off by Write or a
	// caller of Merge with async=true, so Drop can join them before
	// deleting the table directory.
	mergeWG sync.WaitGroup
}

type engineMetrics struct {
	rowsWritten   *metrics.Counter
	blocksWritten *metrics.Counter
	mergesOK      *metrics.Counter
	mergesFailed  *metrics.Counter
	rowsRead      *metrics.Counter
}

func newEngineMetrics(tableName string) *engineMetrics {
	return &engineMetrics{
		rowsWritten:   metrics.GetOrCreateCounter(`mergetable_rows_written_total{table="` + tableName + `"}`),
		blocksWritten: metrics.GetOrCreateCounter(`mergetable_blocks_written_total{table="` + tableName + `"}`),
		mergesOK:      metrics.GetOrCreateCounter(`mergetable_merges_total{table="` + tableName + `",result="ok"}`),
		mergesFailed:  metrics.GetOrCreateCounter(`mergetable_merges_total{table="` + tableName + `",result="failed"}`),
		rowsRead:      metrics.GetOrCreateCounter(`mergetable_rows_read_total{table="` + tableName + `"}`),
	}
}

// OpenEngine opens (creating if necessary) the table rooted at
// cfg.Dir, loading every existing part and running the startup
// containment sweep: tmp_* leftovers are deleted, and any part whose
// id range is strictly contained in another loaded part's range (the
// remnant of an interrupted merge) is dropped in favor of the
// containing part.
func OpenEngine(tableName string, schema *Schema, cfg Config) (*Engine, error) {
	if err := fs.MkdirAllIfNotExist(cfg.Dir); err != nil {
		return nil, wrapErr(KindIO, err, "cannot create table directory %q", cfg.Dir)
	}
	ids, err := openIncrementAllocator(cfg.Dir)
	if err != nil {
		return nil, err
	}

	ps := NewPartSet()
	loaded, err := loadParts(cfg.Dir, schema.Calendar)
	if err != nil {
		return nil, err
	}
	survivors, contained := pruneContained(loaded)
	for _, p := range survivors {
		ps.Publish(p)
	}
	for _, p := range contained {
		logger.Warnf("part %q is contained within a surviving part from an interrupted merge; retiring it", p.name)
		ps.AddRetired(p)
	}

	e := &Engine{
		schema:    schema,
		cfg:       cfg,
		ps:        ps,
		ids:       ids,
		writer:    newPartWriter(schema, cfg, ids),
		scheduler: NewMergeScheduler(ps, schema, cfg),
		pruner:    NewRangePruner(schema, cfg),
		metrics:   newEngineMetrics(tableName),
	}
	return e, nil
}

// loadParts scans dir for part directories, deletes tmp_* leftovers,
// and builds a Part descriptor for every directory matching the
// canonical name grammar.
func loadParts(dir string, cal monthBucketer) ([]*Part, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapErr(KindIO, err, "cannot list %q", dir)
	}

	var parts []*Part
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		name := ent.Name()
		if len(name) >= len(tmpPrefix) && name[:len(tmpPrefix)] == tmpPrefix {
			logger.Warnf("removing leftover tmp part directory %q", name)
			fs.MustRemoveAll(filepath.Join(dir, name))
			continue
		}
		parsed, err := parsePartName(name)
		if err != nil {
			continue // not a part directory (increment.txt etc.)
		}
		partDir := filepath.Join(dir, name)
		rows, err := readCountFile(partDir)
		if err != nil {
			return nil, wrapErr(KindIO, err, "cannot read row count of part %q", name)
		}
		mrkGlob, err := firstMrkFile(partDir)
		if err != nil {
			return nil, err
		}
		size, err := markCountFromFile(mrkGlob)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(partDir)
		if err != nil {
			return nil, wrapErr(KindIO, err, "cannot stat part %q", name)
		}
		p := newPartDescriptor(partDir, name, parsed.leftDate, parsed.rightDate, parsed.left, parsed.right, parsed.level, size, rows, fi.ModTime(), cal)
		parts = append(parts, p)
	}
	return parts, nil
}

func firstMrkFile(partDir string) (string, error) {
	entries, err := os.ReadDir(partDir)
	if err != nil {
		return "", wrapErr(KindIO, err, "cannot list part directory %q", partDir)
	}
	for _, ent := range entries {
		name := ent.Name()
		if len(name) > 4 && name[len(name)-4:] == ".mrk" {
			return filepath.Join(partDir, name), nil
		}
	}
	return "", newErr(KindLogical, "part directory %q has no mark files", partDir)
}

// pruneContained splits parts into survivors (not contained within
// any other loaded part) and contained (a part whose id range is a
// strict subset of another's — the remnant of an interrupted merge).
// It does not touch disk: the caller keeps contained parts tracked in
// all so they are reclaimed through the ordinary refcount path.
func pruneContained(parts []*Part) (survivors, contained []*Part) {
	isContained := make([]bool, len(parts))
	for i, a := range parts {
		for j, b := range parts {
			if i == j {
				continue
			}
			if b.Contains(a) && !(a.left == b.left && a.right == b.right) {
				isContained[i] = true
				break
			}
		}
	}
	for i, p := range parts {
		if isContained[i] {
			contained = append(contained, p)
		} else {
			survivors = append(survivors, p)
		}
	}
	return survivors, contained
}

// Write ingests block, splitting and sorting it by month, and
// publishes the resulting parts. It then schedules
// cfg.PostWriteMergeAttempts non-blocking merge rounds, keeping the
// part tree close to compact without making the caller wait on them.
func (e *Engine) Write(block *Block) error {
	parts, err := e.writer.Write(block)
	if err != nil {
		return err
	}
	for _, p := range parts {
		e.ps.Publish(p)
	}
	e.metrics.blocksWritten.Inc()
	e.metrics.rowsWritten.Add(block.Len())
	if e.cfg.PostWriteMergeAttempts > 0 {
		e.Merge(context.Background(), e.cfg.PostWriteMergeAttempts, true)
	}
	return nil
}

// Merge runs merge rounds against the active set. iterations == 0
// means keep running rounds until one finds nothing left to merge;
// any positive value runs exactly that many one-shot rounds.
// async=false blocks the caller until the requested rounds finish;
// async=true schedules them on a background goroutine and returns
// immediately. Drop joins any still-running background rounds before
// it deletes the table directory.
func (e *Engine) Merge(ctx context.Context, iterations int, async bool) error {
	run := func() error {
		if iterations == 0 {
			for {
				err := e.RunMergeOnce(ctx)
				if err == ErrNothingToMerge {
					return nil
				}
				if err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
		}
		for i := 0; i < iterations; i++ {
			if err := e.RunMergeOnce(ctx); err != nil && err != ErrNothingToMerge {
				return err
			}
		}
		return nil
	}

	if !async {
		return run()
	}
	e.mergeWG.Add(1)
	go func() {
		defer e.mergeWG.Done()
		if err := run(); err != nil {
			logger.Errorf("background merge pass failed: %s", err)
		}
	}()
	return nil
}

// Read scans every active part whose date range intersects
// [dateLo, dateHi], prunes marks within each by pred, and returns the
// matching rows for columns.
func (e *Engine) Read(columns []string, dateLo, dateHi int32, pred predicate.Predicate) (*Block, error) {
	if pred == nil {
		pred = predicate.Always{}
	}
	active := e.ps.Active()
	defer func() {
		for _, p := range active {
			e.ps.Release(p)
		}
	}()
	b, err := e.pruner.Scan(active, columns, dateLo, dateHi, pred)
	if err != nil {
		return nil, err
	}
	e.metrics.rowsRead.Add(b.Len())
	return b, nil
}

// RunMergeOnce plans and executes one round of background merges.
// ErrNothingToMerge is returned (not treated as failure) when no
// window of active parts currently qualifies.
func (e *Engine) RunMergeOnce(ctx context.Context) error {
	err := e.scheduler.RunOnce(ctx)
	if err != nil && err != ErrNothingToMerge {
		e.metrics.mergesFailed.Inc()
		return err
	}
	if err == nil {
		e.metrics.mergesOK.Inc()
	}
	return err
}

// AddColumn appends a new column to the live schema. Existing parts
// keep reading it back as their type's default value until the next
// merge rewrites them.
func (e *Engine) AddColumn(def ColumnDef) {
	e.schema.AddColumn(def)
}

// Stats summarizes the table's current part set.
type Stats struct {
	ActiveParts int
	TotalRows   int64
	TotalMarks  int64
}

// Stats returns a snapshot of the table's size.
func (e *Engine) Stats() Stats {
	active := e.ps.Active()
	defer func() {
		for _, p := range active {
			e.ps.Release(p)
		}
	}()
	st := Stats{ActiveParts: len(active)}
	for _, p := range active {
		st.TotalRows += p.rows
		st.TotalMarks += p.size
	}
	return st
}

// ActivePartNames returns the canonical names of every active part,
// sorted, for operator inspection.
func (e *Engine) ActivePartNames() []string {
	active := e.ps.Active()
	defer func() {
		for _, p := range active {
			e.ps.Release(p)
		}
	}()
	names := make([]string, len(active))
	for i, p := range active {
		names[i] = p.name
	}
	sort.Strings(names)
	return names
}

// Drop joins any in-flight background merge work, clears the tracked
// part sets, and deletes the entire table directory. The Engine must
// not be used afterward.
func (e *Engine) Drop() error {
	e.mergeWG.Wait()
	e.ps.Clear()
	fs.MustRemoveAll(e.cfg.Dir)
	return nil
}
