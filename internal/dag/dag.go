// Package dag implements a predecessor-based directed acyclic graph used to
// represent both the expansion graph built by the expander and the
// execution graph produced by the scheduler.
//
// Vertices are identified by a string uid. The graph stores only
// predecessor edges; the successor index is derived lazily and invalidated
// whenever predecessors change.
package dag

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned by Check (and anything that calls it, such as
// AddVertex and UpdateVertex with checks enabled) when adding or updating an
// edge would introduce a cycle.
type ErrCycle struct {
	UID string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("dag: cycle detected involving vertex %q", e.UID)
}

// ErrUnknownPredecessor is returned when a vertex lists a predecessor uid
// that has never been added to the graph.
type ErrUnknownPredecessor struct {
	UID     string
	Missing string
}

func (e *ErrUnknownPredecessor) Error() string {
	return fmt.Sprintf("dag: vertex %q references unknown predecessor %q", e.UID, e.Missing)
}

// ErrVertexExists is returned by AddVertex when the uid is already present.
type ErrVertexExists struct {
	UID string
}

func (e *ErrVertexExists) Error() string {
	return fmt.Sprintf("dag: vertex %q already exists", e.UID)
}

// DAG is a directed acyclic graph keyed by string vertex ids.
//
// The zero value is not usable; construct with New.
type DAG struct {
	// VertexData holds the caller-supplied payload for each vertex.
	VertexData map[string]any
	// Tags holds an optional annotation per vertex, used by callers to
	// remember why a vertex was added (e.g. the plan line that produced
	// it). Nearest-tag lookups are done with Context.
	Tags map[string]any

	predecessors map[string]map[string]struct{}
	successors   map[string]map[string]struct{}
	hasSuccessor bool

	hasCycle    bool
	cycleCached bool
}

// New returns an empty DAG.
func New() *DAG {
	return &DAG{
		VertexData:   make(map[string]any),
		Tags:         make(map[string]any),
		predecessors: make(map[string]map[string]struct{}),
	}
}

// Len returns the number of vertices in the graph.
func (d *DAG) Len() int { return len(d.predecessors) }

// Contains reports whether uid names a vertex in the graph.
func (d *DAG) Contains(uid string) bool {
	_, ok := d.predecessors[uid]
	return ok
}

// invalidate drops cached derived state. Must be called whenever
// predecessors change.
func (d *DAG) invalidate() {
	d.hasSuccessor = false
	d.successors = nil
	d.cycleCached = false
}

// AddVertex adds a new vertex with the given predecessors. It is an error
// to add a vertex whose uid already exists; use UpdateVertex for the
// idempotent variant.
func (d *DAG) AddVertex(uid string, data any, predecessors ...string) error {
	if d.Contains(uid) {
		return &ErrVertexExists{UID: uid}
	}
	return d.addOrUpdate(uid, data, predecessors, true)
}

// UpdateVertex adds a vertex if absent, or merges the given predecessors
// into an existing vertex's predecessor set. It is idempotent: calling it
// twice with the same arguments has the same effect as calling it once.
//
// When enableChecks is false, predecessor-existence and cycle validation
// are skipped, for callers rebuilding a graph already known to be acyclic.
func (d *DAG) UpdateVertex(uid string, data any, enableChecks bool, predecessors ...string) error {
	return d.addOrUpdate(uid, data, predecessors, enableChecks)
}

func (d *DAG) addOrUpdate(uid string, data any, predecessors []string, enableChecks bool) error {
	set, existed := d.predecessors[uid]
	if !existed {
		set = make(map[string]struct{})
		d.predecessors[uid] = set
		d.VertexData[uid] = data
	} else if data != nil {
		d.VertexData[uid] = data
	}
	changed := false
	for _, p := range predecessors {
		if enableChecks {
			if !d.Contains(p) {
				// Undo partial mutation before reporting the error.
				if !existed {
					delete(d.predecessors, uid)
					delete(d.VertexData, uid)
				}
				return &ErrUnknownPredecessor{UID: uid, Missing: p}
			}
		}
		if _, ok := set[p]; !ok {
			set[p] = struct{}{}
			changed = true
		}
	}
	if changed || !existed {
		d.invalidate()
	}
	if enableChecks {
		if err := d.checkFrom(uid); err != nil {
			return err
		}
	}
	return nil
}

// GetPredecessors returns a defensive copy of uid's direct predecessor set.
func (d *DAG) GetPredecessors(uid string) []string {
	set := d.predecessors[uid]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SetPredecessors replaces uid's predecessor set outright. Invalidates the
// successor index and cycle cache.
func (d *DAG) SetPredecessors(uid string, predecessors ...string) {
	set := make(map[string]struct{}, len(predecessors))
	for _, p := range predecessors {
		set[p] = struct{}{}
	}
	d.predecessors[uid] = set
	d.invalidate()
}

func (d *DAG) rebuildSuccessors() {
	succ := make(map[string]map[string]struct{}, len(d.predecessors))
	for uid := range d.predecessors {
		succ[uid] = make(map[string]struct{})
	}
	for uid, preds := range d.predecessors {
		for p := range preds {
			if succ[p] == nil {
				succ[p] = make(map[string]struct{})
			}
			succ[p][uid] = struct{}{}
		}
	}
	d.successors = succ
	d.hasSuccessor = true
}

// GetSuccessors returns uid's direct successors, lazily rebuilding the
// index from the predecessor map if it has been invalidated.
func (d *DAG) GetSuccessors(uid string) []string {
	if !d.hasSuccessor {
		d.rebuildSuccessors()
	}
	set := d.successors[uid]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AddTag attaches a tag to a vertex, overwriting any existing tag.
func (d *DAG) AddTag(uid string, tag any) { d.Tags[uid] = tag }

// GetTag returns the tag attached to uid, or nil if none.
func (d *DAG) GetTag(uid string) any { return d.Tags[uid] }

// ShortestPath returns the minimum number of edges on a path from source to
// target, following predecessor edges in reverse (i.e. along the direction
// data flows: source -> ... -> target meaning target depends, transitively,
// on source). Returns -1 if no path exists.
//
// When source == target, a virtual extra hop is required to detect a path
// that returns to the start (i.e. a cycle through source), matching the
// "does adding this edge create a cycle" check used by checkFrom.
func (d *DAG) ShortestPath(source, target string) int {
	const virtual = ""
	dist := map[string]int{source: 0}
	pq := &pqueue{{uid: source, dist: 0}}
	heap.Init(pq)
	visited := make(map[string]bool)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqitem)
		if visited[cur.uid] {
			continue
		}
		visited[cur.uid] = true
		if cur.uid == target && (cur.uid != source || cur.dist > 0) {
			return cur.dist
		}
		for _, succ := range d.GetSuccessors(cur.uid) {
			nd := cur.dist + 1
			if succ == source && source == target {
				// Completing a cycle back to the origin: report via the
				// virtual marker so the caller above can see dist>0.
				if nd < orDefault(dist, virtual, 1<<30) {
					dist[virtual] = nd
				}
				continue
			}
			if nd < orDefault(dist, succ, 1<<30) {
				dist[succ] = nd
				heap.Push(pq, pqitem{uid: succ, dist: nd})
			}
		}
	}
	if source == target {
		if v, ok := dist[virtual]; ok {
			return v
		}
		return -1
	}
	if v, ok := dist[target]; ok {
		return v
	}
	return -1
}

func orDefault(m map[string]int, k string, def int) int {
	if v, ok := m[k]; ok {
		return v
	}
	return def
}

type pqitem struct {
	uid  string
	dist int
}

type pqueue []pqitem

func (q pqueue) Len() int            { return len(q) }
func (q pqueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pqueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x any)         { *q = append(*q, x.(pqitem)) }
func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// checkFrom verifies the whole graph is still acyclic after uid's
// predecessor set changed, using the shortest-path self-check: a cycle
// exists iff uid can reach itself via at least one edge.
func (d *DAG) checkFrom(uid string) error {
	if d.ShortestPath(uid, uid) >= 0 {
		d.hasCycle = true
		d.cycleCached = true
		return &ErrCycle{UID: uid}
	}
	return nil
}

// Check validates the entire graph: every predecessor must itself be a
// known vertex, and the graph must contain no cycles. The result is
// cached until the next mutation.
func (d *DAG) Check() error {
	if d.cycleCached {
		if d.hasCycle {
			return &ErrCycle{}
		}
		return nil
	}
	for uid, preds := range d.predecessors {
		for p := range preds {
			if !d.Contains(p) {
				return &ErrUnknownPredecessor{UID: uid, Missing: p}
			}
		}
	}
	it := NewIterator(d, false)
	for {
		_, _, _, err := it.Next()
		if err == ErrDone {
			break
		}
		if err != nil {
			d.hasCycle = true
			d.cycleCached = true
			return err
		}
	}
	d.hasCycle = false
	d.cycleCached = true
	return nil
}

// GetClosure returns every vertex reachable by following predecessor edges
// from uid, i.e. the full transitive predecessor set, excluding uid itself.
func (d *DAG) GetClosure(uid string) []string {
	seen := make(map[string]struct{})
	queue := []string{uid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range d.GetPredecessors(cur) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for uid := range seen {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// Context walks uid's predecessors (or successors, if reverseOrder) breadth
// first looking for tagged vertices, stopping at maxDistance hops or once
// maxElements tags have been collected.
type ContextEntry struct {
	Distance int
	UID      string
	Tag      any
}

func (d *DAG) Context(uid string, maxDistance, maxElements int, reverseOrder bool) []ContextEntry {
	type qitem struct {
		uid  string
		dist int
	}
	var out []ContextEntry
	seen := map[string]bool{uid: true}
	queue := []qitem{{uid, 0}}
	for len(queue) > 0 && (maxElements <= 0 || len(out) < maxElements) {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist > 0 {
			if tag := d.GetTag(cur.uid); tag != nil {
				out = append(out, ContextEntry{Distance: cur.dist, UID: cur.uid, Tag: tag})
				continue // don't walk past a tagged vertex on this branch
			}
		}
		if maxDistance > 0 && cur.dist >= maxDistance {
			continue
		}
		var next []string
		if reverseOrder {
			next = d.GetSuccessors(cur.uid)
		} else {
			next = d.GetPredecessors(cur.uid)
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, qitem{n, cur.dist + 1})
			}
		}
	}
	return out
}

// Merge returns a new DAG containing the union of vertices and predecessor
// edges of d and other. Tags from both are preserved; where both graphs tag
// the same vertex, other's tag wins. Returns an error if the merged graph
// contains a cycle.
func (d *DAG) Merge(other *DAG) (*DAG, error) {
	out := New()
	for uid, data := range d.VertexData {
		out.VertexData[uid] = data
		out.predecessors[uid] = make(map[string]struct{})
	}
	for uid, data := range other.VertexData {
		out.VertexData[uid] = data
		if out.predecessors[uid] == nil {
			out.predecessors[uid] = make(map[string]struct{})
		}
	}
	for uid, preds := range d.predecessors {
		for p := range preds {
			out.predecessors[uid][p] = struct{}{}
		}
	}
	for uid, preds := range other.predecessors {
		if out.predecessors[uid] == nil {
			out.predecessors[uid] = make(map[string]struct{})
		}
		for p := range preds {
			out.predecessors[uid][p] = struct{}{}
		}
	}
	for uid, tag := range d.Tags {
		out.Tags[uid] = tag
	}
	for uid, tag := range other.Tags {
		out.Tags[uid] = tag
	}
	out.invalidate()
	if err := out.Check(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReverseGraph returns a new DAG with every edge direction flipped: a
// vertex's predecessors become its successors and vice versa. Tags are
// preserved. The source graph is assumed already acyclic; pass
// enableChecks=false (the common case, used by the scheduler) to skip
// re-validating during the rebuild.
func (d *DAG) ReverseGraph(enableChecks bool) (*DAG, error) {
	out := New()
	for uid, data := range d.VertexData {
		out.VertexData[uid] = data
		out.predecessors[uid] = make(map[string]struct{})
	}
	for uid, preds := range d.predecessors {
		for p := range preds {
			out.predecessors[p][uid] = struct{}{}
		}
	}
	for uid, tag := range d.Tags {
		out.Tags[uid] = tag
	}
	out.invalidate()
	if enableChecks {
		if err := out.Check(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Prune returns a new DAG with every vertex for which keep returns false
// removed; each pruned vertex's predecessors are reattached directly to its
// successors, preserving reachability through the removed vertex.
//
// If preserveContext is true, Prune returns an error rather than removing a
// vertex that carries a tag.
func (d *DAG) Prune(keep func(uid string, data any) bool, preserveContext bool) (*DAG, error) {
	out := New()
	removed := make(map[string]bool)
	for uid, data := range d.VertexData {
		if !keep(uid, data) {
			if preserveContext {
				if _, tagged := d.Tags[uid]; tagged {
					return nil, fmt.Errorf("dag: cannot prune tagged vertex %q", uid)
				}
			}
			removed[uid] = true
			continue
		}
		out.VertexData[uid] = data
		out.predecessors[uid] = make(map[string]struct{})
		out.Tags[uid] = d.Tags[uid]
	}
	// reattachedPreds returns the nearest non-removed ancestors of uid.
	var reattached func(uid string, seen map[string]bool) []string
	reattached = func(uid string, seen map[string]bool) []string {
		var out []string
		for _, p := range d.GetPredecessors(uid) {
			if seen[p] {
				continue
			}
			seen[p] = true
			if removed[p] {
				out = append(out, reattached(p, seen)...)
			} else {
				out = append(out, p)
			}
		}
		return out
	}
	for uid := range out.VertexData {
		preds := reattached(uid, map[string]bool{uid: true})
		for _, p := range preds {
			out.predecessors[uid][p] = struct{}{}
		}
	}
	out.invalidate()
	return out, nil
}

// AsDOT renders the graph as a GraphViz dot document, for debugging.
func (d *DAG) AsDOT(name func(uid string) string) string {
	if name == nil {
		name = func(uid string) string { return uid }
	}
	var b strings.Builder
	b.WriteString("digraph G {\n")
	uids := make([]string, 0, len(d.predecessors))
	for uid := range d.predecessors {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	for _, uid := range uids {
		fmt.Fprintf(&b, "  %q;\n", name(uid))
	}
	for _, uid := range uids {
		for _, p := range d.GetPredecessors(uid) {
			fmt.Fprintf(&b, "  %q -> %q;\n", name(p), name(uid))
		}
	}
	b.WriteString("}\n")
	return b.String()
}
