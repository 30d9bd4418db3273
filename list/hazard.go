package list

import (
	"math/bits"
	"sync/atomic"
)

// HazardSlots is the fixed capacity of the per-list hazard registry (spec
// §4.2: "N=32 in the reference; implementations may raise this as a build
// constant"). One uint64 bitmask tracks occupancy, so this must stay <= 64.
const HazardSlots = 32

// slot is one hazard-registry row: two hazard pointers (for holding prev and
// curr during a traversal) plus one active-snapshot cell.
type slot[E comparable] struct {
	hz0, hz1 atomic.Pointer[node[E]]
	snapshot atomic.Uint64
}

func (s *slot[E]) clear() {
	s.hz0.Store(nil)
	s.hz1.Store(nil)
	s.snapshot.Store(0)
}

func (s *slot[E]) guards(n *node[E]) bool {
	return s.hz0.Load() == n || s.hz1.Load() == n
}

// registry is a fixed-capacity table of hazard slots shared by one List.
//
// Go has no persistent thread-local storage (goroutines are not pinned to
// OS threads), so "registration is first-access" from spec §4.2 is adapted:
// a participant borrows a slot for the duration of one logical session (a
// single list operation call, or the full life of a Txn/Iterator) and
// releases it back to the pool when that session ends. This is the
// Go-idiomatic analogue spec §9's "Replacing thread-locals" note sanctions.
type registry[E comparable] struct {
	occupied atomic.Uint64 // bit i set => slots[i] is claimed
	slots    [HazardSlots]slot[E]
}

// participant is a claimed registry slot, held by exactly one goroutine for
// the duration of one session.
type participant[E comparable] struct {
	reg   *registry[E]
	index int
}

// acquire claims a free slot, or reports registry exhaustion. Exhaustion is
// a resource-exhaustion condition per spec §4.6, not memory corruption: the
// caller must fail the enclosing operation cleanly.
func (r *registry[E]) acquire() (*participant[E], bool) {
	for {
		cur := r.occupied.Load()
		free := ^cur
		if free == 0 {
			return nil, false
		}
		idx := bits.TrailingZeros64(free)
		if idx >= HazardSlots {
			return nil, false
		}
		next := cur | (uint64(1) << uint(idx))
		if r.occupied.CompareAndSwap(cur, next) {
			return &participant[E]{reg: r, index: idx}, true
		}
	}
}

func (p *participant[E]) slot() *slot[E] {
	return &p.reg.slots[p.index]
}

// publishHazard0 and publishHazard1 publish a pointer the participant is about to dereference,
// using a release store as required by spec §5's ordering rules.
func (p *participant[E]) publishHazard0(n *node[E]) { p.slot().hz0.Store(n) }
func (p *participant[E]) publishHazard1(n *node[E]) { p.slot().hz1.Store(n) }

// publishSnapshot publishes the oldest snapshot version this participant
// still needs, pinning every node visible at or after it against reclaim.
func (p *participant[E]) publishSnapshot(s uint64) { p.slot().snapshot.Store(s) }

// release clears the slot and returns it to the pool. Safe to call once per
// acquire; callers (Txn.Commit/Rollback, Iterator.Close, defer in list ops)
// are responsible for calling it exactly once.
func (p *participant[E]) release() {
	p.slot().clear()
	for {
		cur := p.reg.occupied.Load()
		next := cur &^ (uint64(1) << uint(p.index))
		if p.reg.occupied.CompareAndSwap(cur, next) {
			return
		}
	}
}

// minActiveSnapshot returns the minimum nonzero snapshot published across
// every slot, or math.MaxUint64 ("infinity") if none is active. Need not be
// linearizable with respect to concurrent acquire/publish — spec §4.2 calls
// this a safe under-approximation, used only by the reclaimer.
func (r *registry[E]) minActiveSnapshot() uint64 {
	min := uint64(maxUint64)
	occ := r.occupied.Load()
	for occ != 0 {
		idx := bits.TrailingZeros64(occ)
		occ &^= uint64(1) << uint(idx)
		if s := r.slots[idx].snapshot.Load(); s != 0 && s < min {
			min = s
		}
	}
	return min
}

// guardedByAny reports whether any slot's hazard pointers still reference n.
// The reclaimer must not free a node while this holds (spec I5).
func (r *registry[E]) guardedByAny(n *node[E]) bool {
	occ := r.occupied.Load()
	for occ != 0 {
		idx := bits.TrailingZeros64(occ)
		occ &^= uint64(1) << uint(idx)
		if r.slots[idx].guards(n) {
			return true
		}
	}
	return false
}

// occupancy reports current slot usage for Stats()/metrics, not used by any
// correctness path.
func (r *registry[E]) occupancy() int {
	return bits.OnesCount64(r.occupied.Load())
}

const maxUint64 = ^uint64(0)
