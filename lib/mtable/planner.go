package mtable

import "sort"

// mergeWindow is a candidate contiguous run of parts, all from the
// same month, proposed to the scheduler as one merge task.
type mergeWindow struct {
	parts []*Part
}

func (w mergeWindow) maxSize() int64 {
	m := w.parts[0].size
	for _, p := range w.parts[1:] {
		if p.size > m {
			m = p.size
		}
	}
	return m
}

func (w mergeWindow) minSize() int64 {
	m := w.parts[0].size
	for _, p := range w.parts[1:] {
		if p.size < m {
			m = p.size
		}
	}
	return m
}

// selectMergeWindows picks the merge tasks to run next: group
// eligible parts by month, find every window of consecutive parts
// whose length stays within [MinPartsToMerge, MaxPartsToMergeAtOnce]
// and for which max_size / (sum_size - max_size) stays below
// MaxSizeRatioToMergeParts, keep only the windows that are maximal by
// inclusion (no other valid window strictly contains them), then
// greedily take those windows in ascending (max_size, min_size,
// -length) order — smallest, most-lopsided-toward-many-small-parts
// windows first — discarding any window that overlaps one already
// chosen.
func selectMergeWindows(parts []*Part, cfg Config) []mergeWindow {
	byMonth := make(map[int32][]*Part)
	for _, p := range parts {
		if p.isMerging() {
			continue
		}
		byMonth[p.leftMonth] = append(byMonth[p.leftMonth], p)
	}

	var result []mergeWindow
	for _, group := range byMonth {
		sort.Slice(group, func(i, j int) bool { return lessPart(group[i], group[j]) })
		result = append(result, selectWindowsInGroup(group, cfg)...)
	}
	return result
}

type windowCandidate struct {
	start, end       int // half-open [start, end) into group
	maxSize, minSize int64
}

func selectWindowsInGroup(group []*Part, cfg Config) []mergeWindow {
	n := len(group)
	var candidates []windowCandidate
	for start := 0; start < n; start++ {
		maxSize, minSize, sum := group[start].size, group[start].size, group[start].size
		for end := start + 1; end <= n && end-start <= cfg.MaxPartsToMergeAtOnce; end++ {
			if end > start+1 {
				p := group[end-1]
				if p.size > maxSize {
					maxSize = p.size
				}
				if p.size < minSize {
					minSize = p.size
				}
				sum += p.size
			}
			length := end - start
			if length < cfg.MinPartsToMerge {
				continue
			}
			rest := sum - maxSize
			if rest <= 0 || float64(maxSize)/float64(rest) >= cfg.MaxSizeRatioToMergeParts {
				continue
			}
			candidates = append(candidates, windowCandidate{start: start, end: end, maxSize: maxSize, minSize: minSize})
		}
	}

	maximal := candidates[:0:0]
	for i, c := range candidates {
		containedByOther := false
		for j, d := range candidates {
			if i == j {
				continue
			}
			if d.start <= c.start && d.end >= c.end && (d.start < c.start || d.end > c.end) {
				containedByOther = true
				break
			}
		}
		if !containedByOther {
			maximal = append(maximal, c)
		}
	}

	sort.Slice(maximal, func(i, j int) bool {
		a, b := maximal[i], maximal[j]
		if a.maxSize != b.maxSize {
			return a.maxSize < b.maxSize
		}
		if a.minSize != b.minSize {
			return a.minSize < b.minSize
		}
		return (a.end - a.start) > (b.end - b.start)
	})

	taken := make([]bool, n)
	var windows []mergeWindow
	for _, c := range maximal {
		overlap := false
		for i := c.start; i < c.end; i++ {
			if taken[i] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for i := c.start; i < c.end; i++ {
			taken[i] = true
		}
		ps := make([]*Part, c.end-c.start)
		copy(ps, group[c.start:c.end])
		windows = append(windows, mergeWindow{parts: ps})
	}
	return windows
}
