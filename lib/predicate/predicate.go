// Package predicate provides the predicate abstraction consumed by
// lib/mtable's RangePruner: alwaysTrue() reports whether every row
// matches, and mayBeTrueInRange(lo, hi) reports whether any row whose
// key tuple falls in [lo, hi] might match. A real deployment would
// derive these from a SQL WHERE clause; these are the reference
// combinators used to exercise pruning end to end.
package predicate

// Value is a single scalar from a key tuple. Only the comparison
// actually needed by RangePruner is implemented (ordering on a single
// column); richer predicates can be built by composing Predicates.
type Value struct {
	Int64  int64
	Valid  bool // false means "unbounded" (-inf / +inf depending on position)
}

// Tuple is a primary-key (or date) tuple: one Value per key column, in
// key-column order.
type Tuple []Value

// Predicate is the interface lib/mtable.RangePruner consumes.
type Predicate interface {
	// AlwaysTrue reports whether the predicate matches every row,
	// letting RangePruner skip the scan entirely.
	AlwaysTrue() bool

	// MayBeTrueInRange reports whether any row with a key between lo
	// and hi (inclusive) could satisfy the predicate. It must be a
	// sound over-approximation: false means "definitely cannot
	// match", true means "might match".
	MayBeTrueInRange(lo, hi Tuple) bool
}

// Always matches every row.
type Always struct{}

func (Always) AlwaysTrue() bool                      { return true }
func (Always) MayBeTrueInRange(_, _ Tuple) bool      { return true }

// Range restricts column 0 of the tuple to [Lo, Hi] (either bound may
// be marked invalid to mean unbounded on that side).
type Range struct {
	Lo, Hi Value
}

func (r Range) AlwaysTrue() bool {
	return !r.Lo.Valid && !r.Hi.Valid
}

func (r Range) MayBeTrueInRange(lo, hi Tuple) bool {
	if len(lo) == 0 || len(hi) == 0 {
		return true
	}
	if r.Hi.Valid && lo[0].Valid && lo[0].Int64 > r.Hi.Int64 {
		return false
	}
	if r.Lo.Valid && hi[0].Valid && hi[0].Int64 < r.Lo.Int64 {
		return false
	}
	return true
}

// And combines predicates conjunctively: it matches only ranges every
// member predicate agrees might match.
type And struct {
	Preds []Predicate
}

func (a And) AlwaysTrue() bool {
	for _, p := range a.Preds {
		if !p.AlwaysTrue() {
			return false
		}
	}
	return true
}

func (a And) MayBeTrueInRange(lo, hi Tuple) bool {
	for _, p := range a.Preds {
		if !p.MayBeTrueInRange(lo, hi) {
			return false
		}
	}
	return true
}
