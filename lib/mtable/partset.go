package mtable

import (
	"sort"
	"sync"
)

// PartSet tracks two overlapping collections of parts:
//
//   - active: parts visible to readers and eligible for merging.
//   - all: active plus parts still referenced by an in-flight reader
//     after being superseded by a merge. all is always a superset of
//     active.
//
// Lock ordering is fixed: a caller that needs both mutexes always
// takes activeMtx before allMtx, never the reverse.
type PartSet struct {
	activeMtx sync.Mutex
	active    []*Part

	allMtx sync.Mutex
	all    []*Part
}

// NewPartSet returns an empty PartSet.
func NewPartSet() *PartSet {
	return &PartSet{}
}

// Active returns a snapshot slice of the currently active parts,
// sorted by (left_month, left, right, level), with each part's refCount
// incremented. Callers must call Release on every returned part.
func (ps *PartSet) Active() []*Part {
	ps.activeMtx.Lock()
	out := make([]*Part, len(ps.active))
	copy(out, ps.active)
	ps.activeMtx.Unlock()

	for _, p := range out {
		p.incRef()
	}
	return out
}

// Release drops the reference taken by Active. When the refCount
// reaches zero and the part is no longer active (superseded by a
// merge), the part is dropped from all and its on-disk directory is
// reclaimed.
func (ps *PartSet) Release(p *Part) {
	if p.decRef() != 0 {
		return
	}
	ps.activeMtx.Lock()
	stillActive := containsPart(ps.active, p)
	ps.activeMtx.Unlock()
	if stillActive {
		return
	}
	ps.allMtx.Lock()
	if p.refs() > 0 {
		ps.allMtx.Unlock()
		return
	}
	ps.all = removeParts(ps.all, []*Part{p})
	ps.allMtx.Unlock()
	reclaimPart(p)
}

// Publish inserts newPart into both active and all. Used both for
// freshly written parts and for merge outputs.
func (ps *PartSet) Publish(newPart *Part) {
	ps.activeMtx.Lock()
	ps.active = insertSorted(ps.active, newPart)
	ps.activeMtx.Unlock()

	ps.allMtx.Lock()
	ps.all = insertSorted(ps.all, newPart)
	ps.allMtx.Unlock()
}

// Swap atomically replaces olds with newPart in active (the merge
// result becomes visible) while leaving olds in all until every
// existing reader releases them: readers holding strong references to
// old parts may keep reading them to completion.
//
// olds must currently be marked isMerging(); clearing that flag on
// failure paths is the caller's responsibility, not this function's.
func (ps *PartSet) Swap(olds []*Part, newPart *Part) {
	ps.activeMtx.Lock()
	ps.active = removeParts(ps.active, olds)
	ps.active = insertSorted(ps.active, newPart)
	ps.activeMtx.Unlock()

	ps.allMtx.Lock()
	ps.all = insertSorted(ps.all, newPart)
	ps.allMtx.Unlock()

	for _, old := range olds {
		ps.tryReclaimFromAll(old)
	}
}

// tryReclaimFromAll attempts to drop p from all. If a reader still
// holds a reference (p.refs() > 0), p is left in all for that reader
// to release later via Release. allMtx is taken with a plain Lock, but
// the merge that superseded p never waits for readers still draining
// it: a held part is skipped, not waited on.
func (ps *PartSet) tryReclaimFromAll(p *Part) {
	ps.allMtx.Lock()
	if p.refs() > 0 {
		ps.allMtx.Unlock()
		return
	}
	ps.all = removeParts(ps.all, []*Part{p})
	ps.allMtx.Unlock()
	reclaimPart(p)
}

// All returns a snapshot of every tracked part (active ∪ still-referenced
// superseded parts).
func (ps *PartSet) All() []*Part {
	ps.allMtx.Lock()
	out := make([]*Part, len(ps.all))
	copy(out, ps.all)
	ps.allMtx.Unlock()
	return out
}

// RemoveFromAll drops p from all without touching active or deleting
// its directory.
func (ps *PartSet) RemoveFromAll(p *Part) {
	ps.allMtx.Lock()
	ps.all = removeParts(ps.all, []*Part{p})
	ps.allMtx.Unlock()
}

// AddRetired inserts p into all only, not active — used for a part
// found contained within another at load time. p stays tracked in
// all and is reclaimed through the ordinary refcount path rather than
// deleted outright by the containment sweep: since a freshly loaded
// part has no readers yet, that reclamation happens immediately, but
// it goes through tryReclaimFromAll like any other retirement.
func (ps *PartSet) AddRetired(p *Part) {
	ps.allMtx.Lock()
	ps.all = insertSorted(ps.all, p)
	ps.allMtx.Unlock()
	ps.tryReclaimFromAll(p)
}

// Clear empties both active and all without touching any part's
// on-disk directory. Used by Drop, which removes the whole table
// directory in one shot afterward.
func (ps *PartSet) Clear() {
	ps.activeMtx.Lock()
	ps.active = nil
	ps.activeMtx.Unlock()
	ps.allMtx.Lock()
	ps.all = nil
	ps.allMtx.Unlock()
}

func containsPart(parts []*Part, target *Part) bool {
	for _, p := range parts {
		if p == target {
			return true
		}
	}
	return false
}

func removeParts(parts []*Part, olds []*Part) []*Part {
	out := parts[:0:0]
	for _, p := range parts {
		if !containsPart(olds, p) {
			out = append(out, p)
		}
	}
	return out
}

func insertSorted(parts []*Part, p *Part) []*Part {
	out := append(parts, p)
	sort.Slice(out, func(i, j int) bool {
		return lessPart(out[i], out[j])
	})
	return out
}

// lessPart orders parts by (left_month, left, right, level), the
// ordering a month's active parts must satisfy: id ranges are
// pairwise disjoint and totally ordered within a month, so sorting on
// left alone is enough to walk them in id order once grouped by
// month; right and level only break ties between descriptors that
// otherwise compare equal (e.g. the same part reloaded).
func lessPart(a, b *Part) bool {
	if a.leftMonth != b.leftMonth {
		return a.leftMonth < b.leftMonth
	}
	if a.left != b.left {
		return a.left < b.left
	}
	if a.right != b.right {
		return a.right < b.right
	}
	return a.level < b.level
}

// reclaimPart removes p's directory from disk. Called only once p has
// been dropped from both active and all and its refCount is zero.
func reclaimPart(p *Part) {
	mustRemovePartDir(p.dir)
}
