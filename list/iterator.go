package list

// Iterator is a snapshot iterator pinned at the commit-counter value
// observed when it was created (spec §4.3). Per SPEC_FULL.md's resolution
// of the §9 open question, an Iterator publishes its snapshot into a
// dedicated hazard-registry slot for its whole lifetime, so a long-running
// iterator cannot observe a freed node through a stale next pointer even
// while commits and reclaims proceed concurrently. Close releases that
// slot and must be called; it is idempotent and safe to call after the
// iterator is naturally exhausted.
type Iterator[E comparable] struct {
	list      *List[E]
	snapshot  uint64
	part      *participant[E]
	cur       *node[E] // last confirmed node; nil means "before head"
	exhausted bool
	closed    bool
}

// NewIterator captures the current commit-counter value as this iterator's
// snapshot and claims a hazard-registry slot for its lifetime. Returns nil
// if the registry is exhausted (spec §4.6 resource exhaustion).
func (l *List[E]) NewIterator() *Iterator[E] {
	s := l.clk.current()
	p, ok := l.reg.acquire()
	if !ok {
		l.cfg.logger.Warn("hazard registry exhausted", "op", "iter_new")
		return nil
	}
	p.publishSnapshot(s)
	return &Iterator[E]{list: l, snapshot: s, part: p}
}

// Next advances to the next node visible at the iterator's snapshot and
// returns its element, or (zero, false) once exhausted. Safe to call again
// after exhaustion or Close (always returns (zero, false)).
func (it *Iterator[E]) Next() (E, bool) {
	var zero E
	if it.closed || it.exhausted {
		return zero, false
	}

	for {
		next := it.loadNext()
		if next == nil {
			it.exhausted = true
			return zero, false
		}

		// Publish-then-validate, same discipline as every other traversal
		// in this package: only after next's hazard is visible do we trust
		// it still matches the source pointer, and only then may we treat
		// it as safe to dereference on the following iteration.
		it.part.publishHazard0(next)
		if it.loadNext() != next {
			continue // chain changed underneath us; retry from the same position
		}

		it.cur = next
		if next.visibleAt(it.snapshot) {
			return next.elm, true
		}
		// Not visible at our snapshot: skip (e.g. inserted after us) and
		// keep walking from this now hazard-confirmed node.
	}
}

// loadNext reads the next node from the iterator's current position: the
// list head if nothing has been confirmed yet, or cur's next link.
func (it *Iterator[E]) loadNext() *node[E] {
	if it.cur == nil {
		return it.list.head.Load()
	}
	return it.cur.next.Load()
}

// Close releases the iterator's hazard-registry slot. Idempotent.
func (it *Iterator[E]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.part.release()
}

// Drain collects every remaining element and closes the iterator. A
// convenience for tests and callers that don't need incremental iteration.
func (it *Iterator[E]) Drain() []E {
	defer it.Close()
	var out []E
	for {
		e, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}
