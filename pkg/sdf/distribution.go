package sdf

// StorageDistribution is one candidate storage allocation: a size per
// channel, its total, the throughput the simulator measured for it, and the
// per-channel storage dependencies of the run.
type StorageDistribution struct {
	// Sp is the storage space per channel. For a plain application graph the
	// vector is indexed by the caller's channel ids; for a pre-modelled or
	// binding-aware graph it spans all channels of that graph.
	Sp []uint64

	// Sz is the total of Sp.
	Sz uint64

	// Thr is the throughput measured for this distribution.
	Thr Ratio

	// Dep marks the channels whose enlargement might raise throughput.
	Dep []bool
}

// clone returns a copy of d with freshly allocated vectors and cleared
// throughput and dependencies.
func (d *StorageDistribution) clone() *StorageDistribution {
	n := &StorageDistribution{
		Sp:  make([]uint64, len(d.Sp)),
		Sz:  d.Sz,
		Dep: make([]bool, len(d.Dep)),
	}
	copy(n.Sp, d.Sp)
	return n
}

// StorageDistributionSet groups the distributions sharing one total size,
// tagged with the maximum throughput observed among them.
type StorageDistributionSet struct {
	Sz            uint64
	Thr           Ratio
	Distributions []*StorageDistribution
}

/*
 * Lattice
 *
 * The checklist of distributions is an ordered sequence of equal-size sets.
 * Sets and distributions live in index-based arenas with integer prev/next
 * links; removal never invalidates an index held elsewhere.
 */

const nilIdx = -1

type distNode struct {
	d          *StorageDistribution
	prev, next int
	removed    bool
}

type setNode struct {
	sz         uint64
	thr        Ratio
	head       int
	prev, next int
	removed    bool
}

type lattice struct {
	dists []distNode
	sets  []setNode
	first int
}

func newLattice() *lattice {
	return &lattice{first: nilIdx}
}

func (l *lattice) newSet(sz uint64, headDist, prev, next int) int {
	l.sets = append(l.sets, setNode{sz: sz, head: headDist, prev: prev, next: next})
	return len(l.sets) - 1
}

func (l *lattice) newDist(d *StorageDistribution) int {
	l.dists = append(l.dists, distNode{d: d, prev: nilIdx, next: nilIdx})
	return len(l.dists) - 1
}

// add inserts d into the checklist, creating or extending the set with
// matching size. It reports whether d was added; a componentwise-equal
// distribution already present suppresses the insert.
func (l *lattice) add(d *StorageDistribution) bool {
	if l.first == nilIdx {
		di := l.newDist(d)
		l.first = l.newSet(d.Sz, di, nilIdx, nilIdx)
		return true
	}

	// Find the last set whose size does not exceed d's.
	si := l.first
	for l.sets[si].next != nilIdx && l.sets[l.sets[si].next].sz <= d.Sz {
		si = l.sets[si].next
	}

	s := &l.sets[si]
	switch {
	case s.sz == d.Sz:
		// Reject a duplicate of any distribution already in the set.
		for di := s.head; di != nilIdx; di = l.dists[di].next {
			if equalVec(l.dists[di].d.Sp, d.Sp) {
				return false
			}
		}
		di := l.newDist(d)
		l.dists[di].next = s.head
		if s.head != nilIdx {
			l.dists[s.head].prev = di
		}
		l.sets[si].head = di

	case s.next == nilIdx:
		di := l.newDist(d)
		ns := l.newSet(d.Sz, di, si, nilIdx)
		l.sets[si].next = ns

	default:
		di := l.newDist(d)
		ns := l.newSet(d.Sz, di, si, l.sets[si].next)
		l.sets[l.sets[si].next].prev = ns
		l.sets[si].next = ns
	}
	return true
}

// removeDist unlinks the distribution at di from the set at si.
func (l *lattice) removeDist(si, di int) {
	dn := &l.dists[di]
	if dn.prev != nilIdx {
		l.dists[dn.prev].next = dn.next
	} else {
		l.sets[si].head = dn.next
	}
	if dn.next != nilIdx {
		l.dists[dn.next].prev = dn.prev
	}
	dn.removed = true
	dn.d = nil
}

// minimizeSet drops the non-minimal distributions of the set: all of them
// when the previous, smaller set already reaches the same throughput, and
// otherwise every distribution below the set's maximum.
func (l *lattice) minimizeSet(si int) {
	s := &l.sets[si]
	if s.prev != nilIdx && l.sets[s.prev].thr.Eq(s.thr) {
		for di := s.head; di != nilIdx; {
			next := l.dists[di].next
			l.removeDist(si, di)
			di = next
		}
		return
	}
	for di := s.head; di != nilIdx; {
		next := l.dists[di].next
		if l.dists[di].d.Thr.Cmp(s.thr) < 0 {
			l.removeDist(si, di)
		}
		di = next
	}
}

// unlinkSet removes an emptied set from the checklist.
func (l *lattice) unlinkSet(si int) {
	s := &l.sets[si]
	if s.prev != nilIdx {
		l.sets[s.prev].next = s.next
	} else {
		l.first = s.next
	}
	if s.next != nilIdx {
		l.sets[s.next].prev = s.prev
	}
	s.removed = true
}

// purgeFrom drops the set at si and everything after it: the exploration
// stopped before reaching them.
func (l *lattice) purgeFrom(si int) {
	if si == nilIdx {
		return
	}
	if prev := l.sets[si].prev; prev != nilIdx {
		l.sets[prev].next = nilIdx
	} else {
		l.first = nilIdx
	}
	for si != nilIdx {
		next := l.sets[si].next
		for di := l.sets[si].head; di != nilIdx; {
			dn := l.dists[di].next
			l.removeDist(si, di)
			di = dn
		}
		l.sets[si].removed = true
		si = next
	}
}

// collapseFirstToZero turns the first set into the all-zero distribution. The
// lower-bound seed is not a minimal distribution when it deadlocks; the
// all-zero point is, meaning the graph deadlocks regardless of storage.
func (l *lattice) collapseFirstToZero() {
	if l.first == nilIdx {
		return
	}
	s := &l.sets[l.first]
	s.sz = 0
	for di := s.head; di != nilIdx; di = l.dists[di].next {
		d := l.dists[di].d
		d.Sz = 0
		for i := range d.Sp {
			d.Sp[i] = 0
		}
	}
}

// results flattens the checklist into the public representation, in strictly
// increasing size order.
func (l *lattice) results() []StorageDistributionSet {
	var out []StorageDistributionSet
	for si := l.first; si != nilIdx; si = l.sets[si].next {
		s := &l.sets[si]
		set := StorageDistributionSet{Sz: s.sz, Thr: s.thr}
		for di := s.head; di != nilIdx; di = l.dists[di].next {
			set.Distributions = append(set.Distributions, l.dists[di].d)
		}
		out = append(out, set)
	}
	return out
}

func equalVec(a, b []uint64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
