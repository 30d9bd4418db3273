// Package list implements a concurrent, linearizable, singly-linked list
// with multi-version concurrency control snapshots and optimistic
// transactions: many goroutines may insert, remove, search, and traverse
// the shared list without mutual exclusion, a reader may take a
// point-in-time snapshot unaffected by concurrent mutation, and a writer
// may stage a batch of changes applied atomically-in-effect on commit.
//
// Identity, not equality, is what this list compares: E is constrained to
// comparable and every membership/anchor check uses the == operator against
// the caller-supplied handle, exactly as spec.md's opaque element handle.
package list

import (
	"context"
	"sync/atomic"
	"time"
)

// List is the lock-free MVCC list described in spec.md §2-§6.
type List[E comparable] struct {
	head atomic.Pointer[node[E]]
	clk  *clock
	reg  registry[E]

	retire retireStack[E]

	cfg config[E]

	cancel      context.CancelFunc
	reclaimDone chan struct{}
}

// NewList constructs an empty list. The background reclaim loop (spec §4.5,
// "called opportunistically... from any list operation") starts immediately
// and runs until Close.
func NewList[E comparable](opts ...Option[E]) *List[E] {
	cfg := defaultConfig[E]()
	for _, o := range opts {
		o(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &List[E]{
		clk:         newClock(),
		cfg:         cfg,
		cancel:      cancel,
		reclaimDone: make(chan struct{}),
	}
	go l.runReclaimLoop(ctx)
	return l
}

// Close stops the background reclaim loop and blocks until it exits. It
// does not otherwise mutate the list; outstanding iterators and
// transactions remain valid until they're closed/committed/rolled back.
func (l *List[E]) Close() {
	l.cancel()
	<-l.reclaimDone
}

func (l *List[E]) runReclaimLoop(ctx context.Context) {
	defer close(l.reclaimDone)
	ticker := time.NewTicker(l.cfg.reclaimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reclaim()
		}
	}
}

// InsertHead allocates a node and installs it as the new head. No hazard
// slot is required: the node is private until the CAS publishes it (spec
// §4.3). Go has no recoverable allocation-failure path (make/new panic
// rather than return an error on OOM), so the "alloc fail: silent" case
// from spec §4.6 has no observable branch here.
func (l *List[E]) InsertHead(e E) bool {
	t0 := l.now()
	n := newNode(e, l.clk.next())
	for {
		h := l.head.Load()
		n.next.Store(h)
		if l.head.CompareAndSwap(h, n) {
			l.recordInsert("head", t0, true)
			return true
		}
	}
}

// InsertTail walks to the last reachable node under hazard protection and
// CASes its next pointer from nil to the new node, per spec §4.3. Tombstoned
// nodes are still valid chain elements for linkage purposes and are walked
// through like any other node.
func (l *List[E]) InsertTail(e E) bool {
	t0 := l.now()
	n := newNode(e, l.clk.next())

	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "insert_tail")
		l.recordInsert("tail", t0, false)
		return false
	}
	defer p.release()

	for {
		h := l.head.Load()
		if h == nil {
			if l.head.CompareAndSwap(nil, n) {
				l.recordInsert("tail", t0, true)
				return true
			}
			continue
		}
		last, ok := l.walkToLast(p, h)
		if !ok {
			continue
		}
		if last.next.CompareAndSwap(nil, n) {
			l.recordInsert("tail", t0, true)
			return true
		}
		// Another tail-insert won the race on the same last node; restart.
	}
}

// walkToLast walks from start to the last node reachable via next,
// publishing hazard0 on the current candidate and hazard1 on the next one
// before dereferencing it (publish-then-validate: a node is only ever
// dereferenced after its hazard is visible to the reclaimer). Returns
// (nil, false) if the chain changed under the walk and the caller should
// restart from head.
func (l *List[E]) walkToLast(p *participant[E], start *node[E]) (*node[E], bool) {
	p.publishHazard0(start)
	if l.head.Load() != start {
		return nil, false
	}
	cur := start
	for {
		next := cur.next.Load()
		if next == nil {
			return cur, true
		}
		p.publishHazard1(next)
		if cur.next.Load() != next {
			return nil, false
		}
		cur = next
		p.publishHazard0(cur)
	}
}

// InsertAfter links e immediately after the first node visible at this
// call's snapshot whose element is identity-equal to anchor. Returns false
// if no such anchor exists (spec §4.3/§4.6: a no-op, not an error).
func (l *List[E]) InsertAfter(anchor, e E) bool {
	t0 := l.now()
	s := l.clk.next()
	n := newNode(e, s)

	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "insert_after")
		l.recordInsert("after", t0, false)
		return false
	}
	defer p.release()

	for {
		cur := l.head.Load()
		if cur == nil {
			l.recordInsert("after", t0, false)
			return false
		}
		p.publishHazard0(cur)
		if l.head.Load() != cur {
			continue
		}

		found := false
		for {
			if cur.elm == anchor && cur.visibleAt(s) {
				found = true
				break
			}
			next := cur.next.Load()
			if next == nil {
				break
			}
			p.publishHazard1(next)
			if cur.next.Load() != next {
				cur = nil
				break
			}
			cur = next
			p.publishHazard0(cur)
		}
		if cur == nil {
			continue // chain changed underneath us; restart from head
		}
		if !found {
			l.recordInsert("after", t0, false)
			return false
		}

		for {
			next := cur.next.Load()
			n.next.Store(next)
			if cur.next.CompareAndSwap(next, n) {
				l.recordInsert("after", t0, true)
				return true
			}
			// Anchor's next changed; retry the link from the same anchor,
			// per spec §4.3 ("retry from the anchor on CAS failure").
		}
	}
}

// RemoveHead removes and returns the first node visible at this call's
// snapshot, per spec §4.3. "Empty" means logically empty at the snapshot
// even if tombstones remain physically linked.
func (l *List[E]) RemoveHead() (E, bool) {
	t0 := l.now()
	s := l.clk.current()

	for {
		h := l.head.Load()
		if h == nil {
			var zero E
			l.recordRemove("head", t0, false)
			return zero, false
		}
		if h.visibleAt(s) {
			if l.head.CompareAndSwap(h, h.next.Load()) {
				l.retire.push(h)
				l.recordRemove("head", t0, true)
				return h.elm, true
			}
			continue
		}

		e, ok, retry := l.removeFirstVisibleTombstonedHead(h, s)
		if retry {
			continue
		}
		l.recordRemove("head", t0, ok)
		return e, ok
	}
}

// removeFirstVisibleTombstonedHead handles the case where the current head
// is already tombstoned: it walks forward holding prev/curr hazards to find
// the first node visible at s and unlinks it.
func (l *List[E]) removeFirstVisibleTombstonedHead(h *node[E], s uint64) (e E, ok bool, retry bool) {
	p, acquired := l.reg.acquire()
	if !acquired {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "remove_head")
		var zero E
		return zero, false, false
	}
	defer p.release()

	prev := h
	p.publishHazard0(prev)
	if l.head.Load() != prev {
		var zero E
		return zero, false, true
	}

	for {
		cur := prev.next.Load()
		if cur == nil {
			var zero E
			return zero, false, false
		}
		p.publishHazard1(cur)
		if prev.next.Load() != cur {
			var zero E
			return zero, false, true
		}
		if cur.visibleAt(s) {
			next := cur.next.Load()
			if prev.next.CompareAndSwap(cur, next) {
				l.retire.push(cur)
				return cur.elm, true, false
			}
			var zero E
			return zero, false, true
		}
		prev = cur
		p.publishHazard0(prev)
	}
}

// Remove tombstones the first node whose element is identity-equal to e,
// per spec §4.3 remove_by_identity. Physical unlinking is deferred to the
// reclaimer. A node already tombstoned by a racing caller is reported as
// not-found, matching spec §4.6's "double-remove as idempotent no-op".
func (l *List[E]) Remove(e E) bool {
	t0 := l.now()
	c := l.clk.next()

	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "remove")
		l.recordRemove("identity", t0, false)
		return false
	}
	defer p.release()

	for {
		cur := l.head.Load()
		if cur == nil {
			l.recordRemove("identity", t0, false)
			return false
		}
		p.publishHazard0(cur)
		if l.head.Load() != cur {
			continue
		}

		for {
			if cur.elm == e {
				ok := cur.tryTombstone(c)
				l.recordRemove("identity", t0, ok)
				return ok
			}
			next := cur.next.Load()
			if next == nil {
				l.recordRemove("identity", t0, false)
				return false
			}
			p.publishHazard1(next)
			if cur.next.Load() != next {
				cur = nil
				break
			}
			cur = next
			p.publishHazard0(cur)
		}
		if cur == nil {
			continue
		}
	}
}

// Contains reports whether some node identity-equal to e is visible at this
// call's snapshot.
func (l *List[E]) Contains(e E) bool {
	return l.containsAt(l.clk.current(), e)
}

// containsAt reports whether some node identity-equal to e is visible at an
// already-captured snapshot s. Used directly by Txn, which pins its own
// snapshot independently of the list's current commit-counter value.
func (l *List[E]) containsAt(s uint64, e E) bool {
	found := false
	l.forEachVisible(s, func(x E) bool {
		if x == e {
			found = true
			return false
		}
		return true
	})
	return found
}

// Len counts the nodes visible at this call's snapshot.
func (l *List[E]) Len() int {
	s := l.clk.current()
	n := 0
	l.forEachVisible(s, func(E) bool {
		n++
		return true
	})
	return n
}

// IsEmpty reports whether no node is visible at this call's snapshot.
func (l *List[E]) IsEmpty() bool {
	s := l.clk.current()
	empty := true
	l.forEachVisible(s, func(E) bool {
		empty = false
		return false
	})
	return empty
}

// Stats returns a point-in-time snapshot of list-level counters. Additive
// convenience (DESIGN.md), not part of spec §6's operation table.
func (l *List[E]) Stats() Stats {
	return Stats{
		Size:           l.Len(),
		CommitCounter:  l.clk.current(),
		HazardUsed:     l.reg.occupancy(),
		HazardCapacity: HazardSlots,
	}
}

// forEachVisible hazard-walks the chain from head, invoking visit on every
// node visible at s until visit returns false or the chain ends.
func (l *List[E]) forEachVisible(s uint64, visit func(E) bool) {
	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "forEachVisible")
		return
	}
	defer p.release()

	for {
		cur := l.head.Load()
		if cur == nil {
			return
		}
		p.publishHazard0(cur)
		if l.head.Load() != cur {
			continue
		}

		for {
			if cur.visibleAt(s) {
				if !visit(cur.elm) {
					return
				}
			}
			next := cur.next.Load()
			if next == nil {
				return
			}
			p.publishHazard1(next)
			if cur.next.Load() != next {
				break
			}
			cur = next
			p.publishHazard0(cur)
		}
	}
}

func (l *List[E]) now() int64 { return l.cfg.timeProvider.Now() }

func (l *List[E]) recordInsert(kind string, t0 int64, ok bool) {
	l.cfg.metrics.RecordInsert(kind, time.Duration(l.now()-t0), ok)
}

func (l *List[E]) recordRemove(kind string, t0 int64, found bool) {
	l.cfg.metrics.RecordRemove(kind, time.Duration(l.now()-t0), found)
}
