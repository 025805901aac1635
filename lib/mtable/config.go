package mtable

// Config holds every operator-tunable knob for a table.
type Config struct {
	// Dir is the table's root directory; parts live directly under it.
	Dir string

	// IndexGranularity is the number of rows per mark/granule.
	IndexGranularity int

	// CompressionLevel is the zstd level used for every .bin block.
	CompressionLevel int

	// MaxSizeRatioToMergeParts bounds a merge window's
	// max_size / (sum_size - max_size) ratio: the largest part's size
	// relative to the combined size of everything else in the window.
	MaxSizeRatioToMergeParts float64

	// MaxPartsToMergeAtOnce caps the number of parts a single merge
	// task may absorb.
	MaxPartsToMergeAtOnce int

	// MinPartsToMerge is the smallest window selectMergeWindows will propose;
	// below this a window is not worth the merge overhead.
	MinPartsToMerge int

	// MergeWorkers is the number of concurrently running merge tasks.
	MergeWorkers int

	// MinRowsForConcurrentRead is the row-count threshold above which
	// RangePruner splits a read across multiple goroutines.
	MinRowsForConcurrentRead int

	// ReadWorkers bounds how many goroutines a single parallel read
	// may use.
	ReadWorkers int

	// PostWriteMergeAttempts is how many one-shot background merge
	// rounds Write schedules (non-blocking) after publishing new
	// parts, to keep the part tree close to compact. Zero disables
	// the post-write trigger; merges must then be driven manually via
	// Engine.Merge/RunMergeOnce.
	PostWriteMergeAttempts int
}

// DefaultConfig returns a Config with conservative defaults suitable
// for tests and small tables.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                      dir,
		IndexGranularity:         8192,
		CompressionLevel:         3,
		MaxSizeRatioToMergeParts: 5,
		MaxPartsToMergeAtOnce:    100,
		MinPartsToMerge:          2,
		MergeWorkers:             2,
		MinRowsForConcurrentRead: 1 << 20,
		ReadWorkers:              4,
		PostWriteMergeAttempts:   2,
	}
}
