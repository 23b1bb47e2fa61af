package sdf

import "fmt"

// simMode selects the space model of the transition system.
type simMode int

const (
	// modeToken simulates token counts only. Storage space, when bounded, is
	// carried by explicit reverse channels in the graph.
	modeToken simMode = iota

	// modeNingGao adds a shared output buffer per actor, consumed on firing
	// start and released when the last reader consumes the token.
	modeNingGao
)

// portRef is a precomputed channel endpoint used by the inner simulation
// loops.
type portRef struct {
	ch   ChannelID
	rate uint64
}

// SimulatorConfig bounds a simulation run.
type SimulatorConfig struct {
	// MaxStoredStates caps the stored-state list of one run. A run that
	// exceeds the cap returns ErrStateLimit with every channel conservatively
	// marked dependent.
	MaxStoredStates int
}

// DefaultSimulatorConfig returns the default bounds.
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{MaxStoredStates: 1 << 20}
}

// TransitionSystem executes an SDF graph symbolically: it fires every enabled
// actor, advances time to the next firing completion, and repeats until the
// state at an iteration boundary recurs (steady state) or no firing is in
// flight (deadlock). A TransitionSystem is not safe for concurrent use; the
// graph it reads is.
type TransitionSystem struct {
	g    *Graph
	b    *Binding
	mode simMode

	output    ActorID
	outputRep uint64

	maxStates int

	// Per-actor input and output endpoints in channel order.
	in  [][]portRef
	out [][]portRef

	cur    State
	prev   State
	stored []State

	adg *depMatrix
}

// NewTransitionSystem builds a transition system for the graph. A non-nil
// binding adds static-order schedule gating and TDMA waiting to the
// simulation. A nil cfg selects DefaultSimulatorConfig.
func NewTransitionSystem(g *Graph, b *Binding, cfg *SimulatorConfig) (*TransitionSystem, error) {
	return newTransitionSystem(g, b, modeToken, cfg)
}

func newTransitionSystem(g *Graph, b *Binding, mode simMode, cfg *SimulatorConfig) (*TransitionSystem, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if b != nil {
		if err := b.check(g); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = DefaultSimulatorConfig()
	}
	output, rep, err := OutputActor(g)
	if err != nil {
		return nil, err
	}

	ts := &TransitionSystem{
		g:         g,
		b:         b,
		mode:      mode,
		output:    output,
		outputRep: rep,
		maxStates: cfg.MaxStoredStates,
		in:        make([][]portRef, g.NrActors()),
		out:       make([][]portRef, g.NrActors()),
		adg:       newDepMatrix(g.NrActors()),
	}
	for _, c := range g.Channels {
		ts.out[c.Src] = append(ts.out[c.Src], portRef{ch: c.ID, rate: c.SrcRate})
		ts.in[c.Dst] = append(ts.in[c.Dst], portRef{ch: c.ID, rate: c.DstRate})
	}

	nrSpace := 0
	if mode == modeNingGao {
		nrSpace = g.NrActors()
	}
	nrTiles := 0
	if b != nil {
		nrTiles = b.NrTiles()
	}
	ts.cur = newState(g.NrActors(), g.NrChannels(), nrSpace, nrTiles)
	ts.prev = newState(g.NrActors(), g.NrChannels(), nrSpace, nrTiles)
	return ts, nil
}

// OutputActorID returns the actor framing one iteration and its repetition
// count.
func (ts *TransitionSystem) OutputActorID() (ActorID, uint64) {
	return ts.output, ts.outputRep
}

/*
 * State transitions
 */

// actorReadyToFire reports whether the actor can start a firing in the
// current state: sufficient tokens on every input, the head of the tile's
// static-order schedule (binding-aware mode), and output-buffer space
// (Ning-Gao mode).
func (ts *TransitionSystem) actorReadyToFire(a ActorID) bool {
	if ts.b != nil {
		if t := ts.b.Tile(a); t != TileNotBound {
			s := &ts.b.Schedules[t]
			if s.Order[ts.cur.schedulePos[t]] != a {
				return false
			}
		}
	}
	for _, p := range ts.in[a] {
		if ts.cur.ch[p.ch] < p.rate {
			return false
		}
	}
	if ts.mode == modeNingGao {
		for _, p := range ts.out[a] {
			if ts.cur.sp[a] < p.rate {
				return false
			}
		}
	}
	return true
}

// releasesSharedSpace reports whether consuming from channel c frees a slot
// in the shared output buffer of c's source: true when every other outgoing
// channel of the source holds fewer tokens than c, i.e. c is the last reader
// of the token.
func (ts *TransitionSystem) releasesSharedSpace(c *Channel) bool {
	for _, p := range ts.out[c.Src] {
		if p.ch == c.ID {
			continue
		}
		if ts.cur.ch[p.ch] >= ts.cur.ch[c.ID] {
			return false
		}
	}
	return true
}

// startActorFiring consumes input tokens (and output space in Ning-Gao mode)
// and appends the firing's completion time to the actor's clock list.
func (ts *TransitionSystem) startActorFiring(a ActorID) {
	if ts.mode == modeNingGao {
		for _, p := range ts.in[a] {
			c := ts.g.Channel(p.ch)
			if ts.releasesSharedSpace(c) {
				ts.cur.sp[c.Src] += p.rate
			}
			ts.cur.ch[p.ch] -= p.rate
		}
		for _, p := range ts.out[a] {
			ts.cur.sp[a] -= p.rate
			break
		}
	} else {
		for _, p := range ts.in[a] {
			ts.cur.ch[p.ch] -= p.rate
		}
	}
	ts.cur.actClk[a] = append(ts.cur.actClk[a], ts.completionTime(a))
}

// completionTime returns the number of ticks until the firing of a ends. For
// an actor bound to a tile this includes the waiting time imposed by the
// TDMA wheel at its current position.
func (ts *TransitionSystem) completionTime(a ActorID) uint64 {
	exec := ts.g.Actor(a).ExecutionTime()
	if ts.b == nil {
		return exec
	}
	t := ts.b.Tile(a)
	if t == TileNotBound {
		return exec
	}
	wheel := ts.b.WheelSize[t]
	slice := ts.b.Slice[t]
	pos := ts.cur.tdmaPos[t]

	if pos < wheel-slice {
		// The wheel has not yet reached the reserved slice: wait for the
		// slice to start, then complete the required number of full
		// rotations through the non-reserved part.
		tillSlice := wheel - slice - pos
		var rotations uint64
		if exec > 0 {
			rotations = (exec + slice - 1) / slice
			rotations--
		}
		return tillSlice + exec + (wheel-slice)*rotations
	}
	// Execution starts immediately; any execution time that does not fit in
	// the remainder of this slice waits out the non-reserved part once per
	// extra slice.
	if exec+pos < wheel {
		return exec
	}
	remaining := exec + pos - wheel
	return exec + ((remaining+slice-1)/slice)*(wheel-slice)
}

// actorReadyToEnd reports whether the oldest in-flight firing of the actor
// has no execution time left.
func (ts *TransitionSystem) actorReadyToEnd(a ActorID) bool {
	clk := ts.cur.actClk[a]
	return len(clk) > 0 && clk[0] == 0
}

// endActorFiring produces output tokens, retires the oldest firing, and in
// binding-aware mode advances the tile's static-order schedule.
func (ts *TransitionSystem) endActorFiring(a ActorID) {
	for _, p := range ts.out[a] {
		ts.cur.ch[p.ch] += p.rate
	}
	ts.cur.actClk[a] = ts.cur.actClk[a][1:]
	if ts.b != nil {
		if t := ts.b.Tile(a); t != TileNotBound {
			ts.cur.schedulePos[t] = ts.b.Schedules[t].Next(ts.cur.schedulePos[t])
		}
	}
}

// clockStep advances time to the earliest firing completion. It returns the
// step and false when no firing is in flight (deadlock).
func (ts *TransitionSystem) clockStep() (uint64, bool) {
	const noProgress = ^uint64(0)
	step := uint64(noProgress)
	for a := range ts.cur.actClk {
		if clk := ts.cur.actClk[a]; len(clk) > 0 && clk[0] < step {
			step = clk[0]
		}
	}
	if step == 0 {
		return 0, true
	}
	if step == noProgress {
		return 0, false
	}
	for a := range ts.cur.actClk {
		clk := ts.cur.actClk[a]
		for i := range clk {
			clk[i] -= step
		}
	}
	if ts.b != nil {
		for t := 0; t < ts.b.NrTiles(); t++ {
			ts.cur.tdmaPos[t] = (ts.cur.tdmaPos[t] + step) % ts.b.WheelSize[t]
		}
	}
	ts.cur.glbClk += step
	return step, true
}

/*
 * Stored states
 */

// storeState appends a snapshot of s unless an equal state is already stored.
// It returns the position of the state in the list and whether it was added.
func (ts *TransitionSystem) storeState(s *State) (int, bool) {
	for i := range ts.stored {
		if ts.stored[i].equal(s) {
			return i, false
		}
	}
	ts.stored = append(ts.stored, s.snapshot())
	return len(ts.stored) - 1, true
}

// computeThroughput derives the throughput from the cycle of stored states
// starting at the recurrent state: iterations on the cycle over the summed
// boundary-to-boundary times.
func (ts *TransitionSystem) computeThroughput(recurrent int) Ratio {
	var ticks uint64
	for i := recurrent; i < len(ts.stored); i++ {
		ticks += ts.stored[i].glbClk
	}
	return NewRatio(uint64(len(ts.stored)-recurrent), ticks)
}

// startPhase starts every enabled firing. In Ning-Gao mode the scan repeats
// until no start enables another start; without the fix-point, space released
// by a same-time consumer would be missed and causal dependencies would be
// under-reported. When track is set, causal dependencies are recorded against
// the previous state before each start.
func (ts *TransitionSystem) startPhase(track bool) error {
	starts := 0
	for {
		started := false
		for a := range ts.g.Actors {
			for ts.actorReadyToFire(ActorID(a)) {
				if track {
					ts.findCausalDependencies(ActorID(a))
				}
				ts.startActorFiring(ActorID(a))
				started = true
				if starts++; starts > ts.maxStates {
					return fmt.Errorf("startPhase: %w", ErrStateLimit)
				}
			}
		}
		if ts.mode != modeNingGao || !started {
			return nil
		}
	}
}

/*
 * Execution
 */

// execute runs the graph from its initial state until a recurrent state or a
// deadlock is found and returns the throughput. The distribution sp assigns
// the token budget of every channel marked in bufferChannels; dep receives
// the storage dependencies of the run. Passing nil for all three simulates
// the graph as given and skips dependency analysis.
func (ts *TransitionSystem) execute(sp []uint64, dep []bool, bufferChannels []bool) (Ratio, error) {
	ts.stored = ts.stored[:0]
	ts.cur.clear()
	ts.prev.clear()

	// Initial tokens. A buffer channel starts with its allocated storage
	// space; space holding the initial tokens of the channel it represents
	// is claimed up front.
	for _, c := range ts.g.Channels {
		if bufferChannels != nil && bufferChannels[c.ID] {
			ts.cur.ch[c.ID] = sp[c.ID]
			if c.ModelsStorage() {
				rep := ts.g.Channel(c.StorageOf)
				if rep.InitialTokens > 0 && rep.Src == c.Dst {
					if ts.cur.ch[c.ID] < rep.InitialTokens {
						dep[c.ID] = true
						return Ratio{}, nil
					}
					ts.cur.ch[c.ID] -= rep.InitialTokens
				}
			}
		} else {
			ts.cur.ch[c.ID] = c.InitialTokens
		}
	}

	repCnt := uint64(0)
	for {
		copy(ts.prev.ch, ts.cur.ch)

		// Finish firings; every outputRep-th end of the output actor is an
		// iteration boundary.
		for a := range ts.g.Actors {
			for ts.actorReadyToEnd(ActorID(a)) {
				if ActorID(a) == ts.output {
					repCnt++
					if repCnt == ts.outputRep {
						pos, added := ts.storeState(&ts.cur)
						if !added {
							if dep != nil {
								ts.analyzePeriodicPhase(dep, bufferChannels)
							}
							return ts.computeThroughput(pos), nil
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

		if err := ts.startPhase(false); err != nil {
			markAll(dep)
			return Ratio{}, err
		}

		if _, ok := ts.clockStep(); !ok {
			if dep != nil {
				ts.analyzeDeadlock(dep, bufferChannels)
			}
			return Ratio{}, nil
		}
	}
}

// SelfTimedThroughput simulates the graph as given, with unbounded channel
// storage, and returns its self-timed throughput. Deadlock is reported as
// zero throughput.
func (ts *TransitionSystem) SelfTimedThroughput() (Ratio, error) {
	return ts.execute(nil, nil, nil)
}

// markAll conservatively marks every channel as dependent.
func markAll(dep []bool) {
	for i := range dep {
		dep[i] = true
	}
}
