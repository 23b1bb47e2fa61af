package sdf

import "fmt"

// infiniteSpace marks an output buffer that can never block, used for actors
// whose space is not constrained by the distribution under test.
const infiniteSpace = ^uint64(0)

// AnalyzeNingGao solves Ning and Gao's buffer sizing problem for the graph:
// every actor owns one shared output buffer, space is claimed when a firing
// starts and released when the last reader consumes the token. The function
// returns a minimal per-actor storage distribution that achieves the graph's
// maximal throughput, together with the start times of a static periodic
// rate-optimal schedule under that allocation.
func AnalyzeNingGao(g *Graph) (*StorageDistribution, []uint64, error) {
	ex, err := newNingGaoExplorer(g)
	if err != nil {
		return nil, nil, err
	}
	if err := ex.findMinimalStorageDistributions(); err != nil {
		return nil, nil, err
	}

	// The last set holds the smallest allocation reaching maximal
	// throughput; replay it to recover the schedule start times.
	si := ex.lat.first
	if si == nilIdx {
		return nil, nil, fmt.Errorf("AnalyzeNingGao: empty trade-off space")
	}
	for ex.lat.sets[si].next != nilIdx {
		si = ex.lat.sets[si].next
	}
	d := ex.lat.dists[ex.lat.sets[si].head].d

	startTime := make([]uint64, g.NrActors())
	clearDep(d.Dep)
	thr, err := ex.ts.executeNingGao(d.Sp, d.Dep, startTime)
	if err != nil {
		return nil, nil, err
	}
	d.Thr = thr
	return d, startTime, nil
}

/*
 * Transition-system entry point
 */

// executeNingGao runs the graph under per-actor output-buffer constraints sp
// and returns the throughput. dep receives the channels with a storage
// dependency; startTime receives, per actor, the start time of its first
// firing in a rate-optimal periodic schedule.
func (ts *TransitionSystem) executeNingGao(sp []uint64, dep []bool, startTime []uint64) (Ratio, error) {
	ts.stored = ts.stored[:0]
	ts.cur.clear()
	ts.prev.clear()

	iterCnt := make([]uint64, ts.g.NrActors())
	var globalTime uint64

	for i := range ts.cur.sp {
		ts.cur.sp[i] = infiniteSpace
	}
	for _, c := range ts.g.Channels {
		if sp[c.Src] < c.InitialTokens {
			dep[c.ID] = true
			return Ratio{}, nil
		}
		ts.cur.ch[c.ID] = c.InitialTokens
		if room := sp[c.Src] - c.InitialTokens; ts.cur.sp[c.Src] > room {
			ts.cur.sp[c.Src] = room
		}
	}

	repCnt := uint64(0)
	for {
		copy(ts.prev.ch, ts.cur.ch)
		copy(ts.prev.sp, ts.cur.sp)

		for a := range ts.g.Actors {
			for ts.actorReadyToEnd(ActorID(a)) {
				if ActorID(a) == ts.output {
					repCnt++
					if repCnt == ts.outputRep {
						pos, added := ts.storeState(&ts.cur)
						if !added {
							ts.analyzePeriodicPhase(dep, nil)
							thr := ts.computeThroughput(pos)
							alignStartTimes(startTime, iterCnt, thr)
							return thr, nil
						}
						if len(ts.stored) > ts.maxStates {
							markAll(dep)
							return Ratio{}, ErrStateLimit
						}
						ts.cur.glbClk = 0
						repCnt = 0
					}
				}
				ts.endActorFiring(ActorID(a))
			}
		}

		// Start firings until no start enables another: space released by a
		// same-time consumer must be visible to its producer in this instant.
		started := true
		starts := 0
		for started {
			started = false
			for a := range ts.g.Actors {
				for ts.actorReadyToFire(ActorID(a)) {
					ts.startActorFiring(ActorID(a))
					startTime[a] = globalTime
					iterCnt[a]++
					started = true
					if starts++; starts > ts.maxStates {
						markAll(dep)
						return Ratio{}, ErrStateLimit
					}
				}
			}
		}

		step, ok := ts.clockStep()
		if !ok {
			ts.analyzeDeadlock(dep, nil)
			return Ratio{}, nil
		}
		globalTime += step
	}
}

// alignStartTimes shifts the recorded start times into one period: actors
// that fired less often than the maximum are moved forward a full period per
// missing firing, and the earliest start is normalised to time zero.
func alignStartTimes(startTime, iterCnt []uint64, thr Ratio) {
	if thr.IsZero() || thr.IsInf() {
		return
	}
	period := thr.Den / thr.Num

	var maxIter uint64
	for _, c := range iterCnt {
		if c > maxIter {
			maxIter = c
		}
	}
	for i := range startTime {
		startTime[i] += (maxIter - iterCnt[i]) * period
	}
	min := startTime[0]
	for _, t := range startTime {
		if t < min {
			min = t
		}
	}
	for i := range startTime {
		startTime[i] -= min
	}
}

/*
 * Explorer over per-actor distributions
 */

type ningGaoExplorer struct {
	g      *Graph
	ts     *TransitionSystem
	maxThr Ratio

	minSz     []uint64
	minSzStep []uint64
	lbSz      uint64

	lat *lattice
}

func newNingGaoExplorer(g *Graph) (*ningGaoExplorer, error) {
	maxThr, err := AnalyzeThroughput(g)
	if err != nil {
		return nil, err
	}
	ts, err := newTransitionSystem(g, nil, modeNingGao, nil)
	if err != nil {
		return nil, err
	}
	ex := &ningGaoExplorer{
		g:         g,
		ts:        ts,
		maxThr:    maxThr,
		minSz:     make([]uint64, g.NrActors()),
		minSzStep: make([]uint64, g.NrActors()),
		lat:       newLattice(),
	}

	// Every actor needs at least one slot; actors holding initial tokens
	// need room for all of them.
	for a := range ex.minSz {
		ex.minSz[a] = 1
		ex.minSzStep[a] = 1
	}
	for _, c := range g.Channels {
		if c.InitialTokens > ex.minSz[c.Src] {
			ex.minSz[c.Src] = c.InitialTokens
		}
	}
	for _, sz := range ex.minSz {
		ex.lbSz += sz
	}
	return ex, nil
}

func (ex *ningGaoExplorer) findMinimalStorageDistributions() error {
	seed := &StorageDistribution{
		Sp:  make([]uint64, ex.g.NrActors()),
		Sz:  ex.lbSz,
		Dep: make([]bool, ex.g.NrChannels()),
	}
	copy(seed.Sp, ex.minSz)
	ex.lat.add(seed)

	si := ex.lat.first
	for si != nilIdx {
		if err := ex.exploreSet(si); err != nil {
			return err
		}
		s := &ex.lat.sets[si]
		if s.thr.Eq(ex.maxThr) {
			break
		}
		next := s.next
		if s.head == nilIdx {
			ex.lat.unlinkSet(si)
		}
		si = next
	}

	if si != nilIdx {
		ex.lat.purgeFrom(ex.lat.sets[si].next)
	}
	if first := ex.lat.first; first != nilIdx && ex.lat.sets[first].thr.IsZero() {
		ex.lat.collapseFirstToZero()
	}
	return nil
}

func (ex *ningGaoExplorer) exploreSet(si int) error {
	var idxs []int
	for di := ex.lat.sets[si].head; di != nilIdx; di = ex.lat.dists[di].next {
		idxs = append(idxs, di)
	}

	startTime := make([]uint64, ex.g.NrActors())
	for _, di := range idxs {
		d := ex.lat.dists[di].d
		clearDep(d.Dep)
		thr, err := ex.ts.executeNingGao(d.Sp, d.Dep, startTime)
		if err != nil {
			return fmt.Errorf("exploreSet: %w", err)
		}
		d.Thr = thr
		if d.Thr.Cmp(ex.lat.sets[si].thr) > 0 {
			ex.lat.sets[si].thr = d.Thr
		}
	}

	for _, di := range idxs {
		d := ex.lat.dists[di].d
		for c := range d.Dep {
			if !d.Dep[c] {
				continue
			}
			src := ex.g.Channel(ChannelID(c)).Src
			dn := d.clone()
			dn.Sp[src] += ex.minSzStep[src]
			dn.Sz += ex.minSzStep[src]
			ex.lat.add(dn)
		}
	}

	ex.lat.minimizeSet(si)
	return nil
}
