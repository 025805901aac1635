package mtable

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mergetable/mergetable/lib/fs"
)

// MergedPartWriter combines a window of existing parts into one new,
// higher-level part: read every source part in full, k-way merge by
// primary key, optionally collapse sign-column pairs, then write the
// result the same way PartWriter writes a fresh ingest.
type MergedPartWriter struct {
	schema *Schema
	cfg    Config
}

func newMergedPartWriter(schema *Schema, cfg Config) *MergedPartWriter {
	return &MergedPartWriter{schema: schema, cfg: cfg}
}

// Merge produces one new Part absorbing all of sources. sources must
// be non-empty and already sorted by date (ascending), as the
// planner's windows always are.
func (w *MergedPartWriter) Merge(sources []*Part) (*Part, error) {
	if len(sources) == 0 {
		return nil, ErrNothingToMerge
	}

	columnNames := make([]string, len(w.schema.Columns))
	for i, cd := range w.schema.Columns {
		columnNames[i] = cd.Name
	}
	keyIdxs, err := w.schema.primaryKeyIndexes()
	if err != nil {
		return nil, err
	}

	blocks := make([]*Block, len(sources))
	for i, p := range sources {
		reader := OpenPartReader(p, w.schema, w.cfg)
		b, err := reader.ReadAll(columnNames)
		if err != nil {
			return nil, wrapErr(KindIO, err, "reading source part %q for merge", p.name)
		}
		blocks[i] = b
	}

	merged, err := mergeBlocks(blocks, w.schema, keyIdxs)
	if err != nil {
		return nil, err
	}
	if w.schema.SignColumn != "" {
		merged, err = collapseMerged(merged, w.schema, keyIdxs)
		if err != nil {
			return nil, err
		}
	}

	leftDate, rightDate := sources[0].leftDate, sources[0].rightDate
	left, right := sources[0].left, sources[0].right
	level := sources[0].level
	for _, p := range sources[1:] {
		if p.leftDate < leftDate {
			leftDate = p.leftDate
		}
		if p.rightDate > rightDate {
			rightDate = p.rightDate
		}
		if p.left < left {
			left = p.left
		}
		if p.right > right {
			right = p.right
		}
		if p.level > level {
			level = p.level
		}
	}
	level++

	name := formatPartName(leftDate, rightDate, left, right, level)
	tmpDir := filepath.Join(w.cfg.Dir, tmpPrefix+uuid.NewString())
	if err := fs.MkdirAllFailIfExist(tmpDir); err != nil {
		return nil, wrapErr(KindIO, err, "cannot create %q", tmpDir)
	}

	boundaries := rowBoundaries(merged.Len(), w.cfg.IndexGranularity)
	for i, cd := range merged.Schema.Columns {
		if err := writeColumnFiles(tmpDir, cd.Name, merged.Columns[i], boundaries, 0, w.cfg.CompressionLevel); err != nil {
			return nil, wrapErr(KindIO, err, "merged part %q: column %q", name, cd.Name)
		}
	}
	idx, err := buildPrimaryIndex(merged, keyIdxs, boundaries)
	if err != nil {
		return nil, err
	}
	if err := writePrimaryIndex(tmpDir, idx); err != nil {
		return nil, err
	}
	writeCountFile(tmpDir, int64(merged.Len()))

	finalDir := filepath.Join(w.cfg.Dir, name)
	if err := fs.MustRenamePublish(tmpDir, finalDir); err != nil {
		return nil, wrapErr(KindIO, err, "cannot publish merged part %q", name)
	}

	var size int64
	if len(merged.Schema.Columns) > 0 {
		size, err = markCountFromFile(filepath.Join(finalDir, merged.Schema.Columns[0].Name+".mrk"))
		if err != nil {
			return nil, err
		}
	}
	modTime := time.Now()
	if fi, statErr := os.Stat(finalDir); statErr == nil {
		modTime = fi.ModTime()
	}
	return newPartDescriptor(finalDir, name, leftDate, rightDate, left, right, level, size, int64(merged.Len()), modTime, w.schema.Calendar), nil
}
