package mtable

import (
	"math/rand"
	"sync"

	"github.com/mergetable/mergetable/lib/predicate"
)

// RangePruner implements two-stage pruning: first discard whole parts
// whose date range cannot intersect the query's date condition, then,
// within each surviving part, consult primary.idx to discard whole
// marks whose key range cannot satisfy the key predicate.
type RangePruner struct {
	schema *Schema
	cfg    Config
}

// NewRangePruner returns a pruner for the given schema/config.
func NewRangePruner(schema *Schema, cfg Config) *RangePruner {
	return &RangePruner{schema: schema, cfg: cfg}
}

// SelectParts returns the subset of parts whose [leftDate, rightDate]
// intersects [dateLo, dateHi].
func (rp *RangePruner) SelectParts(parts []*Part, dateLo, dateHi int32) []*Part {
	out := make([]*Part, 0, len(parts))
	for _, p := range parts {
		if p.leftDate <= dateHi && dateLo <= p.rightDate {
			out = append(out, p)
		}
	}
	return out
}

// markRange is a half-open interval of mark indexes, [Start, End).
type markRange struct {
	Start, End int
}

func (mr markRange) rows() int { return mr.End - mr.Start }

// PruneMarks returns the contiguous mark ranges of part that might
// satisfy pred, using the part's dense primary index. It never
// returns a false negative: a mark is only dropped if pred proves it
// cannot match.
func (rp *RangePruner) PruneMarks(part *Part, pred predicate.Predicate) ([]markRange, error) {
	if pred == nil || pred.AlwaysTrue() {
		return []markRange{{Start: 0, End: int(part.size)}}, nil
	}

	numKeys := len(rp.schema.PrimaryKey)
	pi, err := readPrimaryIndex(part.dir, numKeys)
	if err != nil {
		return nil, err
	}

	var ranges []markRange
	inRun := false
	runStart := 0
	n := pi.markCount()
	for i := 0; i < n; i++ {
		lo := pi.tuple(i)
		hi := unboundedHiTuple(numKeys)
		if i+1 < n {
			hi = pi.tuple(i + 1)
		}
		match := pred.MayBeTrueInRange(lo, hi)
		switch {
		case match && !inRun:
			inRun, runStart = true, i
		case !match && inRun:
			inRun = false
			ranges = append(ranges, markRange{Start: runStart, End: i})
		}
	}
	if inRun {
		ranges = append(ranges, markRange{Start: runStart, End: n})
	}
	return ranges, nil
}

func unboundedHiTuple(numKeys int) predicate.Tuple {
	t := make(predicate.Tuple, numKeys)
	for i := range t {
		t[i] = predicate.Value{Valid: false}
	}
	return t
}

// partSegment is a contiguous run of surviving marks within one part,
// the unit the parallelism split slices and reassigns across workers.
type partSegment struct {
	part *Part
	r    markRange
}

// Scan selects parts, prunes marks within each, and reads the
// surviving ranges for columns. Kept marks are summed across parts;
// if that total clears MinRowsForConcurrentRead, the surviving parts
// are shuffled (so hot parts don't all land on one worker) and their
// marks are sliced into effectiveThreads contiguous assignments,
// splitting a part's range across workers when needed but never
// leaving a residual tail smaller than MinRowsForConcurrentRead
// behind in a part — the whole remainder goes to the current worker
// instead. Below that threshold, or with ReadWorkers <= 1, everything
// runs on a single worker in selection order.
func (rp *RangePruner) Scan(parts []*Part, columns []string, dateLo, dateHi int32, pred predicate.Predicate) (*Block, error) {
	selected := rp.SelectParts(parts, dateLo, dateHi)

	var segments []partSegment
	sumMarks := 0
	for _, p := range selected {
		ranges, err := rp.PruneMarks(p, pred)
		if err != nil {
			return nil, err
		}
		for _, r := range ranges {
			segments = append(segments, partSegment{part: p, r: r})
			sumMarks += r.rows()
		}
	}
	if sumMarks == 0 {
		return &Block{Schema: &Schema{Calendar: rp.schema.Calendar}}, nil
	}

	effectiveThreads := 1
	totalRows := sumMarks * rp.cfg.IndexGranularity
	if totalRows >= rp.cfg.MinRowsForConcurrentRead && rp.cfg.ReadWorkers > 1 {
		effectiveThreads = rp.cfg.ReadWorkers
		if effectiveThreads > sumMarks {
			effectiveThreads = sumMarks
		}
		segments = shuffledByPart(segments)
	}

	assignments := splitSegmentsAcrossWorkers(segments, effectiveThreads, sumMarks, rp.cfg)

	results := make([]*Block, len(assignments))
	errs := make([]error, len(assignments))
	readOne := func(i int) {
		var merged *Block
		for _, seg := range assignments[i] {
			reader := OpenPartReader(seg.part, rp.schema, rp.cfg)
			b, err := reader.ReadMarkRange(columns, seg.r.Start, seg.r.End)
			if err != nil {
				errs[i] = err
				return
			}
			if merged == nil {
				merged = b
				continue
			}
			merged.AppendAllRowsFrom(b)
		}
		results[i] = merged
	}

	if effectiveThreads > 1 {
		var wg sync.WaitGroup
		for i := range assignments {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				readOne(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range assignments {
			readOne(i)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var out *Block
	for _, b := range results {
		if b == nil {
			continue
		}
		if out == nil {
			out = b
			continue
		}
		out.AppendAllRowsFrom(b)
	}
	if out == nil {
		out = &Block{Schema: &Schema{Calendar: rp.schema.Calendar}}
	}
	return out, nil
}

// shuffledByPart randomizes the order of parts represented in
// segments while preserving each part's internal mark-range order.
func shuffledByPart(segments []partSegment) []partSegment {
	var order []*Part
	seen := make(map[*Part]bool)
	byPart := make(map[*Part][]partSegment)
	for _, seg := range segments {
		if !seen[seg.part] {
			seen[seg.part] = true
			order = append(order, seg.part)
		}
		byPart[seg.part] = append(byPart[seg.part], seg)
	}
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	out := make([]partSegment, 0, len(segments))
	for _, p := range order {
		out = append(out, byPart[p]...)
	}
	return out
}

// splitSegmentsAcrossWorkers assigns each worker a contiguous run of
// marks drawn from segments in order, splitting a segment across
// workers when the running target is reached, except when doing so
// would leave a tail smaller than cfg.MinRowsForConcurrentRead behind
// in a part — then the whole remainder goes to the current worker.
// The last worker always absorbs whatever remains.
func splitSegmentsAcrossWorkers(segments []partSegment, effectiveThreads, sumMarks int, cfg Config) [][]partSegment {
	assignments := make([][]partSegment, effectiveThreads)
	target := (sumMarks + effectiveThreads - 1) / effectiveThreads
	w, assigned := 0, 0
	for _, seg := range segments {
		start, end := seg.r.Start, seg.r.End
		for start < end {
			if assigned >= target && w < effectiveThreads-1 {
				w++
				assigned = 0
			}
			segLen := end - start
			take := segLen
			if w < effectiveThreads-1 {
				remaining := target - assigned
				if remaining < segLen {
					take = remaining
				}
				if take < segLen {
					tailRows := (segLen - take) * cfg.IndexGranularity
					if tailRows < cfg.MinRowsForConcurrentRead {
						take = segLen
					}
				}
			}
			assignments[w] = append(assignments[w], partSegment{part: seg.part, r: markRange{Start: start, End: start + take}})
			assigned += take
			start += take
		}
	}
	return assignments
}
