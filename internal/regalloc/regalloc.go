// Package regalloc implements linear-scan register allocation over an
// architecture-agnostic pool of physical register indices, generalized from
// the teacher's RegisterAllocator (register_allocator.go): variable names
// become VRegID values, and the string-keyed callee/caller-saved register
// lists become an ordered []int pool supplied by the caller. It deliberately
// knows nothing about rtasm.Reg or any instruction encoding — the Compiler
// variant translates to and from its own Reg type, keeping this package free
// of any import back on the root module (avoiding the cycle a direct
// dependency would create).
package regalloc

import "sort"

// VRegID identifies a virtual register within one Compiler function body.
type VRegID int

// Interval is the live range of one virtual register, computed from the
// def/use positions the Compiler records while walking its node list —
// the same Start/End/Defs/Uses shape as the teacher's LiveInterval.
type Interval struct {
	VReg    VRegID
	Start   int
	End     int
	Defs    []int
	Uses    []int
	Phys    int // index into the allocator's physical register pool
	Spilled bool
	Slot    int
}

// Allocator runs linear-scan allocation over a fixed pool of physical
// register indices (the Compiler backend maps indices to concrete Reg
// values). Construction mirrors NewRegisterAllocator's per-arch freeRegs
// seeding, generalized to a caller-supplied pool so this package stays
// arch-agnostic.
type Allocator struct {
	poolSize int

	intervals []*Interval
	byVReg    map[VRegID]*Interval
	active    []*Interval
	free      []int // indices into the physical pool, LIFO like the teacher's slice-as-stack freeRegs

	position   int
	spillSlots int
}

// NewAllocator constructs an allocator with poolSize physical registers
// available, indexed 0..poolSize-1.
func NewAllocator(poolSize int) *Allocator {
	a := &Allocator{poolSize: poolSize}
	a.reset()
	return a
}

func (a *Allocator) reset() {
	a.byVReg = make(map[VRegID]*Interval)
	a.intervals = nil
	a.active = nil
	a.spillSlots = 0
	a.position = 0
	a.free = make([]int, a.poolSize)
	for i := range a.free {
		a.free[i] = a.poolSize - 1 - i
	}
}

func (a *Allocator) interval(v VRegID) *Interval {
	if in, ok := a.byVReg[v]; ok {
		return in
	}
	in := &Interval{VReg: v, Start: a.position, End: a.position, Phys: -1}
	a.byVReg[v] = in
	a.intervals = append(a.intervals, in)
	return in
}

// Def records a definition (assignment) of v at the current position.
func (a *Allocator) Def(v VRegID) {
	in := a.interval(v)
	in.Defs = append(in.Defs, a.position)
	if a.position > in.End {
		in.End = a.position
	}
}

// Use records a use of v at the current position, extending its live range.
func (a *Allocator) Use(v VRegID) {
	in := a.interval(v)
	in.Uses = append(in.Uses, a.position)
	if a.position > in.End {
		in.End = a.position
	}
}

// Advance moves to the next program position; the Compiler calls this once
// per node while scanning its instruction stream.
func (a *Allocator) Advance() {
	a.position++
}

// Allocate runs the linear-scan pass over every interval seen so far,
// assigning physical register indices or spill slots.
func (a *Allocator) Allocate() {
	sort.Slice(a.intervals, func(i, j int) bool {
		return a.intervals[i].Start < a.intervals[j].Start
	})

	for _, in := range a.intervals {
		a.expireOldIntervals(in)

		if len(a.free) > 0 {
			reg := a.free[len(a.free)-1]
			a.free = a.free[:len(a.free)-1]
			in.Phys = reg
			a.active = append(a.active, in)
		} else {
			a.spillAt(in)
		}
	}
}

func (a *Allocator) expireOldIntervals(current *Interval) {
	sort.Slice(a.active, func(i, j int) bool {
		return a.active[i].End < a.active[j].End
	})

	newActive := a.active[:0:0]
	for _, in := range a.active {
		if in.End >= current.Start {
			newActive = append(newActive, in)
		} else if in.Phys >= 0 {
			a.free = append(a.free, in.Phys)
		}
	}
	a.active = newActive
}

func (a *Allocator) spillAt(current *Interval) {
	if len(a.active) == 0 {
		current.Spilled = true
		current.Slot = a.allocSlot()
		return
	}

	last := a.active[len(a.active)-1]
	if last.End > current.End {
		current.Phys = last.Phys
		last.Phys = -1
		last.Spilled = true
		last.Slot = a.allocSlot()

		a.active = a.active[:len(a.active)-1]
		a.active = append(a.active, current)
		sort.Slice(a.active, func(i, j int) bool {
			return a.active[i].End < a.active[j].End
		})
		return
	}

	current.Spilled = true
	current.Slot = a.allocSlot()
}

func (a *Allocator) allocSlot() int {
	slot := a.spillSlots
	a.spillSlots++
	return slot
}

// PhysReg returns the physical register index assigned to v, or (-1, false)
// if v was spilled or never seen.
func (a *Allocator) PhysReg(v VRegID) (int, bool) {
	in, ok := a.byVReg[v]
	if !ok || in.Spilled {
		return -1, false
	}
	return in.Phys, true
}

// SpillSlot returns the stack slot assigned to v, or (-1, false) if v holds
// a physical register.
func (a *Allocator) SpillSlot(v VRegID) (int, bool) {
	in, ok := a.byVReg[v]
	if !ok || !in.Spilled {
		return -1, false
	}
	return in.Slot, true
}

// SpillSlotCount returns the number of stack slots the allocation used.
func (a *Allocator) SpillSlotCount() int { return a.spillSlots }

// UsedPhysRegs returns, in ascending order, every physical register index
// the allocation assigned to at least one non-spilled interval.
func (a *Allocator) UsedPhysRegs() []int {
	seen := make(map[int]bool)
	for _, in := range a.intervals {
		if !in.Spilled && in.Phys >= 0 {
			seen[in.Phys] = true
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
