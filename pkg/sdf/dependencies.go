package sdf

// depMatrix is the abstract dependency graph: a boolean actor-by-actor
// reachability matrix stored as a flat bitset indexed a*n+b. It is allocated
// once per transition system and cleared per analysis, never per cycle.
type depMatrix struct {
	n     int
	words []uint64
}

func newDepMatrix(n int) *depMatrix {
	return &depMatrix{n: n, words: make([]uint64, (n*n+63)/64)}
}

func (m *depMatrix) set(a, b int) {
	i := a*m.n + b
	m.words[i>>6] |= 1 << uint(i&63)
}

func (m *depMatrix) unset(a, b int) {
	i := a*m.n + b
	m.words[i>>6] &^= 1 << uint(i&63)
}

func (m *depMatrix) get(a, b int) bool {
	i := a*m.n + b
	return m.words[i>>6]&(1<<uint(i&63)) != 0
}

func (m *depMatrix) clear() {
	for i := range m.words {
		m.words[i] = 0
	}
}

// findCausalDependencies records, before actor a starts a firing, which
// neighbouring actors it had to wait for: an input channel that held too few
// tokens in the previous state adds an edge dst->src; in Ning-Gao mode an
// exhausted output buffer adds src->dst.
func (ts *TransitionSystem) findCausalDependencies(a ActorID) {
	for _, p := range ts.in[a] {
		if ts.prev.ch[p.ch] < p.rate {
			c := ts.g.Channel(p.ch)
			ts.adg.set(int(c.Dst), int(c.Src))
		}
	}
	if ts.mode == modeNingGao {
		for _, p := range ts.out[a] {
			c := ts.g.Channel(p.ch)
			if ts.prev.sp[c.Src] < p.rate {
				ts.adg.set(int(c.Src), int(c.Dst))
			}
		}
	}
}

// analyzeDeadlock fills the abstract dependency graph from the deadlocked
// state: every channel whose destination cannot fire for lack of tokens, and
// in Ning-Gao mode every channel whose source is blocked on buffer space,
// contributes an edge. Cycles then indicate storage dependencies.
func (ts *TransitionSystem) analyzeDeadlock(dep []bool, bufferChannels []bool) {
	ts.adg.clear()
	for _, c := range ts.g.Channels {
		if ts.dstMayFire(c) && ts.cur.ch[c.ID] < c.DstRate {
			ts.adg.set(int(c.Dst), int(c.Src))
		}
		if ts.mode == modeNingGao && ts.cur.sp[c.Src] < c.SrcRate {
			ts.adg.set(int(c.Src), int(c.Dst))
		}
	}
	ts.findStorageDependencies(dep, bufferChannels)
}

// dstMayFire reports whether the destination actor of c is allowed to fire at
// all in the current state: always outside binding-aware mode, otherwise only
// when it heads its tile's static-order schedule.
func (ts *TransitionSystem) dstMayFire(c *Channel) bool {
	if ts.b == nil {
		return true
	}
	t := ts.b.Tile(c.Dst)
	if t == TileNotBound {
		return true
	}
	s := &ts.b.Schedules[t]
	return s.Order[ts.cur.schedulePos[t]] == c.Dst
}

// analyzePeriodicPhase replays one period of the steady state from the
// recurrent state, recording causal dependencies before every firing start,
// and derives the storage dependencies from the cycles of the abstract
// dependency graph.
func (ts *TransitionSystem) analyzePeriodicPhase(dep []bool, bufferChannels []bool) {
	periodic := ts.cur.snapshot()
	ts.adg.clear()

	ts.cur.glbClk = 0

	// The last firing of the output actor still has to complete before the
	// period really ends.
	repCnt := -1

	for a := range ts.g.Actors {
		for ts.actorReadyToEnd(ActorID(a)) {
			if ActorID(a) == ts.output {
				repCnt++
				if uint64(repCnt) == ts.outputRep {
					ts.cur.glbClk = 0
					repCnt = 0
				}
			}
			ts.endActorFiring(ActorID(a))
		}
	}

	for {
		if err := ts.startPhase(true); err != nil {
			markAll(dep)
			return
		}

		ts.clockStep()

		copy(ts.prev.ch, ts.cur.ch)
		copy(ts.prev.sp, ts.cur.sp)

		for a := range ts.g.Actors {
			for ts.actorReadyToEnd(ActorID(a)) {
				if ActorID(a) == ts.output {
					repCnt++
					if uint64(repCnt) == ts.outputRep {
						if ts.cur.equal(&periodic) {
							ts.findStorageDependencies(dep, bufferChannels)
							return
						}
						ts.cur.glbClk = 0
						repCnt = 0
					}
				}
				ts.endActorFiring(ActorID(a))
			}
		}
	}
}

// findStorageDependencies finds all cycles in the abstract dependency graph
// and marks the channels along them. When bufferChannels is non-nil, only
// channels that actually model storage space keep the mark.
func (ts *TransitionSystem) findStorageDependencies(dep []bool, bufferChannels []bool) {
	n := ts.g.NrActors()
	color := make([]bool, n)
	pi := make([]int, n)

	for c := range dep {
		dep[c] = false
	}
	for i := 0; i < n; i++ {
		pi[i] = i
		ts.dfsVisitDependencies(i, color, pi, dep)
	}
	if bufferChannels != nil {
		for c := range dep {
			dep[c] = dep[c] && bufferChannels[c]
		}
	}
}

// dfsVisitDependencies searches from actor a for cycles through the abstract
// dependency graph. When a gray node is re-encountered, every channel whose
// endpoints lie along the discovered back-path is marked. The edges of a
// fully explored actor are cleared so each cycle is discovered once.
func (ts *TransitionSystem) dfsVisitDependencies(a int, color []bool, pi []int, dep []bool) {
	color[a] = true

	for b := 0; b < ts.g.NrActors(); b++ {
		if !ts.adg.get(a, b) {
			continue
		}
		if color[b] {
			// Found a cycle through b: walk the predecessor chain back to b
			// and mark the channels between consecutive actors on it.
			c, d := a, b
			for {
				for _, ch := range ts.g.Channels {
					if int(ch.Dst) == d && int(ch.Src) == c {
						dep[ch.ID] = true
					}
				}
				d = c
				c = pi[d]
				if d == b {
					break
				}
			}
		} else {
			pi[b] = a
			ts.dfsVisitDependencies(b, color, pi, dep)
		}
	}

	for i := 0; i < ts.g.NrActors(); i++ {
		ts.adg.unset(i, a)
		ts.adg.unset(a, i)
	}
	color[a] = false
}
