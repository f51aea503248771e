// Package registry persists parent→child fork relationships as a single blob.
package registry

import (
	"fmt"
	"sort"
)

// BranchRecord is one fork edge stored under its parent conversation.
type BranchRecord struct {
	ChildID      string  `json:"childId"`
	Title        string  `json:"title"`
	FirstMessage string  `json:"firstMessage,omitempty"`
	CreatedAt    float64 `json:"createdAt"` // seconds; 0 when unknown
}

// Registry is the whole persisted blob. Parent lists are append-only and never
// hold the same child twice.
type Registry struct {
	Branches map[string][]BranchRecord `json:"branches"`
	Titles   map[string]string         `json:"titles"`
}

func New() Registry {
	return Registry{
		Branches: map[string][]BranchRecord{},
		Titles:   map[string]string{},
	}
}

// Clone returns a deep copy so a snapshot can be handed to a build without
// sharing maps with later writers.
func (r Registry) Clone() Registry {
	out := New()
	for parent, recs := range r.Branches {
		out.Branches[parent] = append([]BranchRecord(nil), recs...)
	}
	for id, title := range r.Titles {
		out.Titles[id] = title
	}
	return out
}

func (r Registry) IsEmpty() bool {
	return len(r.Branches) == 0 && len(r.Titles) == 0
}

// AddBranch appends rec under parent. It returns false when parent already
// lists rec.ChildID.
func (r *Registry) AddBranch(parent string, rec BranchRecord) bool {
	if r.Branches == nil {
		r.Branches = map[string][]BranchRecord{}
	}
	for _, existing := range r.Branches[parent] {
		if existing.ChildID == rec.ChildID {
			return false
		}
	}
	r.Branches[parent] = append(r.Branches[parent], rec)
	return true
}

// SetTitle records a display title. It reports whether the stored value changed.
func (r *Registry) SetTitle(id, title string) bool {
	if title == "" {
		return false
	}
	if r.Titles == nil {
		r.Titles = map[string]string{}
	}
	if r.Titles[id] == title {
		return false
	}
	r.Titles[id] = title
	return true
}

// Title returns the stored title for id, or fallback.
func (r Registry) Title(id, fallback string) string {
	if t := r.Titles[id]; t != "" {
		return t
	}
	return fallback
}

// Seconds converts a millisecond timestamp to seconds; smaller values are
// already seconds.
func Seconds(t float64) float64 {
	if t > 1e12 {
		return t / 1000
	}
	return t
}

// Children returns a copy of parent's forks sorted by creation time, whether
// stored in seconds or milliseconds. Records created at the same time keep
// their insertion order.
func (r Registry) Children(parent string) []BranchRecord {
	recs := append([]BranchRecord(nil), r.Branches[parent]...)
	sort.SliceStable(recs, func(i, j int) bool {
		return Seconds(recs[i].CreatedAt) < Seconds(recs[j].CreatedAt)
	})
	return recs
}

// Edge is the parent side of a fork relationship.
type Edge struct {
	ParentID string
	Record   BranchRecord
}

// Parents lists parent ids in a stable order.
func (r Registry) Parents() []string {
	parents := make([]string, 0, len(r.Branches))
	for p := range r.Branches {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	return parents
}

// FindParent scans every parent's list for childID.
func (r Registry) FindParent(childID string) (Edge, bool) {
	for _, parent := range r.Parents() {
		for _, rec := range r.Branches[parent] {
			if rec.ChildID == childID {
				return Edge{ParentID: parent, Record: rec}, true
			}
		}
	}
	return Edge{}, false
}

// ParentIndex builds a child→parent lookup. When a corrupted blob lists a
// child under several parents, the first parent in Parents order wins, the
// same answer FindParent gives.
func (r Registry) ParentIndex() map[string]Edge {
	idx := make(map[string]Edge)
	for _, parent := range r.Parents() {
		for _, rec := range r.Branches[parent] {
			if _, ok := idx[rec.ChildID]; !ok {
				idx[rec.ChildID] = Edge{ParentID: parent, Record: rec}
			}
		}
	}
	return idx
}

// Check reports structural problems: duplicate children, children claimed by
// several parents, self forks and cycles.
func (r Registry) Check() []string {
	var issues []string
	owners := map[string][]string{}

	for _, parent := range r.Parents() {
		seen := map[string]bool{}
		for _, rec := range r.Branches[parent] {
			if rec.ChildID == "" {
				issues = append(issues, fmt.Sprintf("%s: record with empty childId", parent))
				continue
			}
			if seen[rec.ChildID] {
				issues = append(issues, fmt.Sprintf("%s: duplicate child %s", parent, rec.ChildID))
			}
			seen[rec.ChildID] = true
			if rec.ChildID == parent {
				issues = append(issues, fmt.Sprintf("%s: forks to itself", parent))
			}
			owners[rec.ChildID] = append(owners[rec.ChildID], parent)
		}
	}

	children := make([]string, 0, len(owners))
	for child, parents := range owners {
		children = append(children, child)
		if len(parents) > 1 {
			issues = append(issues, fmt.Sprintf("%s: claimed by %d parents", child, len(parents)))
		}
	}
	sort.Strings(children)

	idx := r.ParentIndex()
	reported := map[string]bool{}
	for _, child := range children {
		visited := map[string]bool{child: true}
		cur := child
		for {
			edge, ok := idx[cur]
			if !ok {
				break
			}
			if visited[edge.ParentID] {
				if !reported[edge.ParentID] && edge.ParentID != cur {
					issues = append(issues, fmt.Sprintf("%s: cycle in ancestry", edge.ParentID))
					reported[edge.ParentID] = true
				}
				break
			}
			visited[edge.ParentID] = true
			cur = edge.ParentID
		}
	}

	return issues
}
