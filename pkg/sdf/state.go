package sdf

// State is a configuration of the transition system. Two states are equal iff
// every field is componentwise equal; equality at an iteration boundary is
// what detects the periodic phase.
type State struct {
	// ch holds the current token count per channel.
	ch []uint64

	// actClk holds, per actor, the remaining firing times of its in-flight
	// firings in start order.
	actClk [][]uint64

	// sp holds the remaining output-buffer space per actor. Only used in
	// Ning-Gao mode; empty otherwise.
	sp []uint64

	// schedulePos and tdmaPos hold, per tile, the current static-order
	// schedule index and the offset in the TDMA wheel. Only used with a
	// Binding; empty otherwise.
	schedulePos []int
	tdmaPos     []uint64

	// glbClk counts the ticks elapsed since the most recent iteration
	// boundary.
	glbClk uint64
}

// newState allocates a state for the given dimensions. nrSpace is the number
// of per-actor space entries (zero outside Ning-Gao mode) and nrTiles the
// number of tiles (zero without a binding).
func newState(nrActors, nrChannels, nrSpace, nrTiles int) State {
	return State{
		ch:          make([]uint64, nrChannels),
		actClk:      make([][]uint64, nrActors),
		sp:          make([]uint64, nrSpace),
		schedulePos: make([]int, nrTiles),
		tdmaPos:     make([]uint64, nrTiles),
	}
}

// clear resets the state to all zeros.
func (s *State) clear() {
	for i := range s.ch {
		s.ch[i] = 0
	}
	for i := range s.actClk {
		s.actClk[i] = s.actClk[i][:0]
	}
	for i := range s.sp {
		s.sp[i] = 0
	}
	for i := range s.schedulePos {
		s.schedulePos[i] = 0
		s.tdmaPos[i] = 0
	}
	s.glbClk = 0
}

// equal reports componentwise equality of two states of the same dimensions.
func (s *State) equal(o *State) bool {
	if s.glbClk != o.glbClk {
		return false
	}
	for i := range s.ch {
		if s.ch[i] != o.ch[i] {
			return false
		}
	}
	for i := range s.sp {
		if s.sp[i] != o.sp[i] {
			return false
		}
	}
	for i := range s.actClk {
		if len(s.actClk[i]) != len(o.actClk[i]) {
			return false
		}
		for j := range s.actClk[i] {
			if s.actClk[i][j] != o.actClk[i][j] {
				return false
			}
		}
	}
	for i := range s.schedulePos {
		if s.schedulePos[i] != o.schedulePos[i] || s.tdmaPos[i] != o.tdmaPos[i] {
			return false
		}
	}
	return true
}

// copyFrom makes s a deep copy of o, reusing s's storage where possible.
func (s *State) copyFrom(o *State) {
	s.glbClk = o.glbClk
	copy(s.ch, o.ch)
	copy(s.sp, o.sp)
	copy(s.schedulePos, o.schedulePos)
	copy(s.tdmaPos, o.tdmaPos)
	for i := range o.actClk {
		s.actClk[i] = append(s.actClk[i][:0], o.actClk[i]...)
	}
}

// snapshot returns a freshly allocated deep copy of s for the stored-state
// list.
func (s *State) snapshot() State {
	n := newState(len(s.actClk), len(s.ch), len(s.sp), len(s.schedulePos))
	n.copyFrom(s)
	return n
}
