package mtable

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mergetable/mergetable/lib/column"
	"github.com/mergetable/mergetable/lib/fs"
)

// PartWriter turns an in-memory Block into one or more on-disk parts:
// validate against the schema, split by month, sort by primary key
// within each month, then write each month's rows out as a
// freshly-allocated, level-0 part.
type PartWriter struct {
	schema *Schema
	cfg    Config
	ids    *incrementAllocator
}

func newPartWriter(schema *Schema, cfg Config, ids *incrementAllocator) *PartWriter {
	return &PartWriter{schema: schema, cfg: cfg, ids: ids}
}

// Write ingests block, returning the freshly published Part for each
// distinct month the block's rows span. Returned parts are not
// reference-counted for the caller; use the owning Engine/PartSet to
// read them.
func (w *PartWriter) Write(block *Block) ([]*Part, error) {
	if err := block.validateAgainstSchema(w.schema); err != nil {
		return nil, err
	}
	if block.Len() == 0 {
		return nil, nil
	}

	dateIdx, err := w.schema.dateColumnIndex()
	if err != nil {
		return nil, err
	}
	keyIdxs, err := w.schema.primaryKeyIndexes()
	if err != nil {
		return nil, err
	}

	byMonth, order := splitByMonth(block, dateIdx, w.schema.Calendar)

	var parts []*Part
	for _, month := range order {
		sub := byMonth[month]
		p, err := w.writeOneMonth(sub, keyIdxs)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// splitByMonth buckets block's rows by DateColumn's month, preserving
// first-seen month order for deterministic part creation order.
func splitByMonth(block *Block, dateIdx int, cal monthBucketer) (map[int32]*Block, []int32) {
	dateCol := block.Columns[dateIdx].(*column.DateColumn)
	byMonth := make(map[int32]*Block)
	var order []int32
	for i := 0; i < block.Len(); i++ {
		m := cal.MonthBucket(dateCol.Values[i])
		sub, ok := byMonth[m]
		if !ok {
			sub = NewBlock(block.Schema)
			byMonth[m] = sub
			order = append(order, m)
		}
		sub.AppendRowFrom(block, i)
	}
	return byMonth, order
}

func (w *PartWriter) writeOneMonth(block *Block, keyIdxs []int) (*Part, error) {
	keyCols := make([]column.Column, len(keyIdxs))
	for i, ci := range keyIdxs {
		keyCols[i] = block.Columns[ci]
	}
	perm := column.SortPermutation(block.Len(), keyCols)
	sortedCols := column.SortByPermutation(block.Columns, perm)
	sorted := &Block{Schema: block.Schema, Columns: sortedCols}

	dateIdx, err := w.schema.dateColumnIndex()
	if err != nil {
		return nil, err
	}
	dateCol := sorted.Columns[dateIdx].(*column.DateColumn)
	leftDate, rightDate := dateCol.Values[0], dateCol.Values[0]
	for _, v := range dateCol.Values {
		if v < leftDate {
			leftDate = v
		}
		if v > rightDate {
			rightDate = v
		}
	}

	id := w.ids.allocate(1)
	level := uint64(0)
	name := formatPartName(leftDate, rightDate, id, id, level)

	if err := w.writePartDir(sorted, keyIdxs, name); err != nil {
		return nil, err
	}

	finalDir := filepath.Join(w.cfg.Dir, name)
	mrkPath := filepath.Join(finalDir, sorted.Schema.Columns[0].Name+".mrk")
	size, err := markCountFromFile(mrkPath)
	if err != nil {
		return nil, err
	}
	modTime := time.Now()
	if fi, statErr := os.Stat(finalDir); statErr == nil {
		modTime = fi.ModTime()
	}
	return newPartDescriptor(finalDir, name, leftDate, rightDate, id, id, level, size, int64(sorted.Len()), modTime, w.schema.Calendar), nil
}

// writePartDir writes a fully-sorted block's columns, primary index,
// and part header to a tmp directory and atomically publishes it as
// dirName under the table root.
func (w *PartWriter) writePartDir(block *Block, keyIdxs []int, dirName string) error {
	// A uuid-suffixed tmp name, rather than tmp_<dirName>, so a stale
	// tmp directory left behind by a crashed prior attempt at the same
	// part name never collides with this attempt's.
	tmpDir := filepath.Join(w.cfg.Dir, tmpPrefix+uuid.NewString())
	if err := fs.MkdirAllFailIfExist(tmpDir); err != nil {
		return wrapErr(KindIO, err, "cannot create %q", tmpDir)
	}

	boundaries := rowBoundaries(block.Len(), w.cfg.IndexGranularity)
	for i, cd := range block.Schema.Columns {
		if err := writeColumnFiles(tmpDir, cd.Name, block.Columns[i], boundaries, 0, w.cfg.CompressionLevel); err != nil {
			return fmt.Errorf("column %q: %w", cd.Name, err)
		}
	}

	idx, err := buildPrimaryIndex(block, keyIdxs, boundaries)
	if err != nil {
		return err
	}
	if err := writePrimaryIndex(tmpDir, idx); err != nil {
		return err
	}
	writeCountFile(tmpDir, int64(block.Len()))

	finalDir := filepath.Join(w.cfg.Dir, dirName)
	if err := fs.MustRenamePublish(tmpDir, finalDir); err != nil {
		return wrapErr(KindIO, err, "cannot publish part %q", dirName)
	}
	return nil
}
