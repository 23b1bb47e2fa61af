package platform

// StaticOrderSchedule is the firing order a processor cycles through: a
// sequence of actor ids with a loop-back index marking the start of the
// periodic part. The transient before the loop-back executes once.
type StaticOrderSchedule struct {
	// Order lists actor ids in firing order.
	Order []int

	// StartPeriodic is the position the schedule loops back to after its
	// last entry.
	StartPeriodic int
}

// NewSchedule returns a fully periodic schedule over the given actors.
func NewSchedule(actors ...int) StaticOrderSchedule {
	return StaticOrderSchedule{Order: actors}
}

// Len returns the number of schedule entries.
func (s *StaticOrderSchedule) Len() int {
	return len(s.Order)
}

// Append adds an actor at the end of the schedule.
func (s *StaticOrderSchedule) Append(actor int) {
	s.Order = append(s.Order, actor)
}

// EntryAt returns the actor at the given position.
func (s *StaticOrderSchedule) EntryAt(pos int) int {
	return s.Order[pos]
}

// Next returns the position following pos, looping back into the periodic
// part after the last entry.
func (s *StaticOrderSchedule) Next(pos int) int {
	if pos+1 == len(s.Order) {
		return s.StartPeriodic
	}
	return pos + 1
}

// InsertBefore inserts an actor in front of position pos. The loop-back
// index shifts along when the insertion lands in the transient.
func (s *StaticOrderSchedule) InsertBefore(pos, actor int) {
	s.Order = append(s.Order, 0)
	copy(s.Order[pos+1:], s.Order[pos:])
	s.Order[pos] = actor
	if s.StartPeriodic > pos {
		s.StartPeriodic++
	}
}

// Minimize shrinks the periodic part of the schedule to its shortest
// repeating prefix. A schedule cycling A B A B becomes A B.
func (s *StaticOrderSchedule) Minimize() {
	periodic := s.Order[s.StartPeriodic:]
	n := len(periodic)
	for p := 1; p <= n/2; p++ {
		if n%p != 0 {
			continue
		}
		if repeats(periodic, p) {
			s.Order = append(s.Order[:s.StartPeriodic], periodic[:p]...)
			return
		}
	}
}

// repeats reports whether seq is the prefix of length p repeated.
func repeats(seq []int, p int) bool {
	for i := p; i < len(seq); i++ {
		if seq[i] != seq[i-p] {
			return false
		}
	}
	return true
}
