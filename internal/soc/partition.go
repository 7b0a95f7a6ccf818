package soc

import (
	"sort"

	"cell-pressure/internal/model"
)

// GroupKey identifies one (cycle, direction) group.
type GroupKey struct {
	CycleID   int
	Direction model.Direction
}

// Group lists the row indices of one group in time order. Rows of a group need
// not be contiguous: rest rows inside a cycle belong to no group.
type Group struct {
	Key  GroupKey
	Rows []int
}

func (g Group) Len() int { return len(g.Rows) }

// Partition maps (cycle, direction) to the rows of that group. Only charge and
// discharge rows are partitioned.
type Partition struct {
	groups []Group
	index  map[GroupKey]int
}

// BuildPartition groups active rows by (cycle, direction).
func BuildPartition(cycleIDs []int, dirs []model.Direction) Partition {
	p := Partition{index: map[GroupKey]int{}}
	for i, d := range dirs {
		if !d.Active() {
			continue
		}
		key := GroupKey{CycleID: cycleIDs[i], Direction: d}
		gi, ok := p.index[key]
		if !ok {
			gi = len(p.groups)
			p.index[key] = gi
			p.groups = append(p.groups, Group{Key: key})
		}
		p.groups[gi].Rows = append(p.groups[gi].Rows, i)
	}
	sort.SliceStable(p.groups, func(i, j int) bool {
		a, b := p.groups[i].Key, p.groups[j].Key
		if a.CycleID != b.CycleID {
			return a.CycleID < b.CycleID
		}
		return a.Direction < b.Direction
	})
	for i, g := range p.groups {
		p.index[g.Key] = i
	}
	return p
}

// Groups returns the groups ordered by cycle id, then direction.
func (p Partition) Groups() []Group { return p.groups }

func (p Partition) Len() int { return len(p.groups) }

func (p Partition) Lookup(key GroupKey) (Group, bool) {
	gi, ok := p.index[key]
	if !ok {
		return Group{}, false
	}
	return p.groups[gi], true
}

// Count returns the number of groups in the given direction.
func (p Partition) Count(d model.Direction) int {
	n := 0
	for _, g := range p.groups {
		if g.Key.Direction == d {
			n++
		}
	}
	return n
}

// Gather copies the values at the group's rows.
func (g Group) Gather(xs []float64) []float64 {
	out := make([]float64, len(g.Rows))
	for i, r := range g.Rows {
		out[i] = xs[r]
	}
	return out
}

// Scatter writes vals back to the group's rows of dst.
func (g Group) Scatter(dst, vals []float64) {
	for i, r := range g.Rows {
		dst[r] = vals[i]
	}
}
