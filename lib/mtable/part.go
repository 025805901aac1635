package mtable

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mergetable/mergetable/lib/fs"
	"github.com/mergetable/mergetable/lib/logger"
)

// Part is the in-memory descriptor for one on-disk part: date/id
// ranges, level, size (marks), modification time, the merging flag
// and a reference count.
//
// A Part is shared between the PartSet and every reader currently
// holding it; refCount is the mechanism that keeps a part's files
// alive until the last holder releases it.
type Part struct {
	leftDate, rightDate   int32
	leftMonth, rightMonth int32
	left, right           uint64
	level                 uint64

	name string
	dir  string // absolute directory path

	size             int64 // marks count
	rows             int64 // total row count
	modificationTime time.Time

	refCount        int64
	currentlyMerging atomic.Bool
}

// LeftDate, RightDate return the inclusive date bounds of p.
func (p *Part) LeftDate() int32  { return p.leftDate }
func (p *Part) RightDate() int32 { return p.rightDate }

// Left, Right return the inclusive part-id bounds absorbed into p.
func (p *Part) Left() uint64  { return p.left }
func (p *Part) Right() uint64 { return p.right }

// Level returns the number of times p has been rolled up by merges.
func (p *Part) Level() uint64 { return p.level }

// Name returns the canonical directory name of p.
func (p *Part) Name() string { return p.name }

// Dir returns the absolute path to p's directory.
func (p *Part) Dir() string { return p.dir }

// Size returns the number of marks (granules) in p.
func (p *Part) Size() int64 { return p.size }

// Rows returns the total row count of p.
func (p *Part) Rows() int64 { return p.rows }

// Contains reports whether p's id interval fully contains other's.
func (p *Part) Contains(other *Part) bool {
	return p.left <= other.left && p.right >= other.right
}

// Overlaps reports whether p and other's id intervals intersect.
func (p *Part) Overlaps(other *Part) bool {
	return p.left <= other.right && other.left <= p.right
}

func (p *Part) incRef() { atomic.AddInt64(&p.refCount, 1) }

func (p *Part) decRef() int64 {
	n := atomic.AddInt64(&p.refCount, -1)
	if n < 0 {
		logger.Panicf("BUG: Part %q refCount went negative", p.name)
	}
	return n
}

func (p *Part) refs() int64 { return atomic.LoadInt64(&p.refCount) }

func (p *Part) setMerging(v bool) { p.currentlyMerging.Store(v) }
func (p *Part) isMerging() bool   { return p.currentlyMerging.Load() }

// newPartDescriptor builds a Part from its identifying fields and the
// mark count read off disk, computing the month bounds from the
// calendar.
func newPartDescriptor(dir, name string, leftDate, rightDate int32, left, right, level uint64, size, rows int64, modTime time.Time, cal monthBucketer) *Part {
	return &Part{
		leftDate:         leftDate,
		rightDate:        rightDate,
		leftMonth:        cal.MonthBucket(leftDate),
		rightMonth:       cal.MonthBucket(rightDate),
		left:             left,
		right:            right,
		level:            level,
		name:             name,
		dir:              dir,
		size:             size,
		rows:             rows,
		modificationTime: modTime,
	}
}

// monthBucketer is the subset of calendar.Calendar newPartDescriptor needs.
type monthBucketer interface {
	MonthBucket(day int32) int32
}

// markSize is the fixed width of one mark record: two little-endian
// u64 values.
const markSize = 16

// markCountFromFile computes a part's size (mark count) from the byte
// size of an arbitrary column's .mrk file: filesize / markSize.
func markCountFromFile(path string) (int64, error) {
	sz, err := fs.FileSize(path)
	if err != nil {
		return 0, wrapErr(KindIO, err, "cannot stat mark file %q", path)
	}
	if sz%markSize != 0 {
		return 0, newErr(KindLogical, "mark file %q has size %d, not a multiple of %d", path, sz, markSize)
	}
	return sz / markSize, nil
}

// mustRemovePartDir deletes a superseded or unreferenced part's
// directory. Errors are fatal: a partially-deleted part directory
// left behind would be indistinguishable from disk corruption on the
// next load.
func mustRemovePartDir(dir string) {
	fs.MustRemoveAll(dir)
}

const countFileName = "count.txt"

// writeCountFile persists a part's row count alongside its columns,
// so loadParts doesn't need to decode every column just to learn the
// row count of a part with no present columns at all.
func writeCountFile(dir string, rows int64) {
	fs.MustWriteSync(filepath.Join(dir, countFileName), []byte(strconv.FormatInt(rows, 10)))
}

func readCountFile(dir string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(dir, countFileName))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
