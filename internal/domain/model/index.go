package model

import (
	"fmt"
	"sort"
)

// FormatModelID renders an identifier in the canonical shape
// <prefix>_<parentId>_<5-digit-sequence>.
func FormatModelID(prefix, parentID string, seq int) string {
	return fmt.Sprintf("%s_%s_%05d", prefix, parentID, seq)
}

// Index accumulates the model records of one build pass, grouped by parent
// chemical entity, with an independent monotonic local-sequence counter per
// parent.  Sequence numbers are allocated when a candidate's file path is
// created, before acceptance is confirmed, so they are never reused even if
// the candidate is later dropped.
//
// An Index is owned by a single build worker for its batch of parents and is
// not safe for concurrent use; the coordinator merges worker indexes after
// each batch completes.
type Index struct {
	Entries  map[string][]*ModelRecord `json:"entries"`
	Counters map[string]int            `json:"counters"`
}

// NewIndex constructs an empty Index.
func NewIndex() *Index {
	return &Index{
		Entries:  make(map[string][]*ModelRecord),
		Counters: make(map[string]int),
	}
}

// NextLocalID allocates the next local sequence number for parentID.  The
// counter is monotonic and gaps are never reclaimed within a run.
func (x *Index) NextLocalID(parentID string) int {
	x.Counters[parentID]++
	return x.Counters[parentID]
}

// Add appends an accepted model record under its parent.
func (x *Index) Add(rec *ModelRecord) {
	x.Entries[rec.ParentID] = append(x.Entries[rec.ParentID], rec)
}

// Models returns the records accumulated for parentID.
func (x *Index) Models(parentID string) []*ModelRecord {
	return x.Entries[parentID]
}

// Parents returns all parent identifiers with at least one record, sorted
// for deterministic iteration.
func (x *Index) Parents() []string {
	parents := make([]string, 0, len(x.Entries))
	for p := range x.Entries {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	return parents
}

// Len returns the total number of records across all parents.
func (x *Index) Len() int {
	n := 0
	for _, recs := range x.Entries {
		n += len(recs)
	}
	return n
}

// Merge folds another index into this one.  Worker batches own disjoint
// parent sets, so entry lists never interleave; counters take the maximum so
// a merged index can keep allocating without collisions.
func (x *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	for parent, recs := range other.Entries {
		x.Entries[parent] = append(x.Entries[parent], recs...)
	}
	for parent, c := range other.Counters {
		if c > x.Counters[parent] {
			x.Counters[parent] = c
		}
	}
}
