package list

// reclaim implements spec §4.5. It is called opportunistically by the
// background reclaim loop and by Txn.Commit; any goroutine may call it
// concurrently with any other list operation.
func (l *List[E]) reclaim() {
	m := l.reg.minActiveSnapshot()
	if m == maxUint64 {
		// No snapshot is pinned: every tombstone stamped with an
		// already-assigned version (rv <= current) is stale.
		m = l.clk.current() + 1
	}

	unlinked := l.unlinkStaleTombstones(m)
	freed, deferred := l.freeRetired()

	l.cfg.metrics.RecordReclaim(unlinked, freed, deferred)
	l.cfg.metrics.RecordHazardOccupancy(l.reg.occupancy(), HazardSlots)
	if unlinked+freed+deferred > 0 {
		l.cfg.logger.Debug("reclaim pass",
			"unlinked", unlinked, "freed", freed, "deferred", deferred, "watermark", m)
	}
}

// unlinkStaleTombstones walks the chain once, CAS-unlinking every node
// whose removedVersion is nonzero and strictly less than m, and pushing it
// onto the shared retire stack. Restarts the whole walk on any CAS failure
// or hazard-validation mismatch, mirroring the rest of the package's
// restart-from-head contention strategy (spec §4.3 design note).
//
// hz0 always guards prev (once one exists) and hz1 always guards cur, the
// same prev/curr pairing removeFirstVisibleTombstonedHead uses: both nodes
// this pass might dereference or CAS through stay hazard-protected for the
// whole time it holds them, including across the advance to the next pair.
func (l *List[E]) unlinkStaleTombstones(m uint64) (unlinked int) {
	p, ok := l.reg.acquire()
	if !ok {
		// Reclamation is opportunistic; skipping this pass under registry
		// pressure is safe; the next scheduled pass will try again.
		return 0
	}
	defer p.release()

restart:
	for {
		var prev *node[E] // nil means "predecessor is the list head"
		cur := l.head.Load()
		if cur == nil {
			return unlinked
		}
		p.publishHazard1(cur)
		if l.head.Load() != cur {
			continue restart
		}

		for {
			rv := cur.removedVersion.Load()
			if rv != 0 && rv < m {
				next := cur.next.Load()
				var casOK bool
				if prev == nil {
					casOK = l.head.CompareAndSwap(cur, next)
				} else {
					casOK = prev.next.CompareAndSwap(cur, next)
				}
				if !casOK {
					continue restart
				}
				unlinked++
				l.retire.push(cur)
				if next == nil {
					return unlinked
				}
				// prev is unchanged (still guarded by hz0, if it exists);
				// only cur moves, so only hz1 needs republishing.
				cur = next
				p.publishHazard1(cur)
				continue
			}

			next := cur.next.Load()
			if next == nil {
				return unlinked
			}
			// cur is becoming the new prev: move its guard from hz1 to hz0
			// first (hz1 still holds it too for the moment, so it's never
			// unguarded), then publish hz1 for the candidate next node and
			// validate before trusting it.
			prev = cur
			p.publishHazard0(prev)
			p.publishHazard1(next)
			if prev.next.Load() != next {
				continue restart
			}
			cur = next
		}
	}
}

// freeRetired drains the retire stack and, for each entry, re-scans every
// hazard slot (spec §4.5 step 3). Anything still guarded is pushed back for
// a future pass; everything else is handed to free_cb, if configured, and
// dropped — Go's GC reclaims the node's memory once this is its last
// reference.
func (l *List[E]) freeRetired() (freed, deferred int) {
	pending := l.retire.drainAll()
	for _, r := range pending {
		if l.reg.guardedByAny(r.n) {
			deferred++
			l.retire.push(r.n)
			continue
		}
		if l.cfg.freeFunc != nil {
			l.cfg.freeFunc(r.n.elm)
		}
		freed++
	}
	return freed, deferred
}
