package sdf

import "testing"

func TestAnalyzeThroughput(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  Ratio
	}{
		// The pipeline is paced by its slowest actor.
		{"pipeline", pipelineGraph(), NewRatio(1, 3)},
		// One token around a two-actor cycle with unit execution times.
		{"feedback", feedbackGraph(), NewRatio(1, 2)},
		// A single serialised actor with unit execution time.
		{"self edge", selfEdgeGraph(), NewRatio(1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thr, err := AnalyzeThroughput(tt.graph)
			if err != nil {
				t.Fatalf("AnalyzeThroughput() error = %v", err)
			}
			if !thr.Eq(tt.want) {
				t.Errorf("AnalyzeThroughput() = %s, want %s", thr, tt.want)
			}
		})
	}
}

func TestAnalyzeThroughputDeadlock(t *testing.T) {
	// Two actors waiting on each other with no initial tokens anywhere.
	g := NewGraph("deadlock")
	a := g.AddActor("A")
	b := g.AddActor("B")
	a.SetExecTime("arm", 1)
	b.SetExecTime("arm", 1)
	a.DefaultProcessor = "arm"
	b.DefaultProcessor = "arm"
	g.AddChannel("ab", a.ID, b.ID, 1, 1, 0)
	g.AddChannel("ba", b.ID, a.ID, 1, 1, 0)

	thr, err := AnalyzeThroughput(g)
	if err != nil {
		t.Fatalf("AnalyzeThroughput() error = %v", err)
	}
	if !thr.IsZero() {
		t.Errorf("AnalyzeThroughput() = %s, want 0 for a deadlocked graph", thr)
	}
}

func TestAnalyzeThroughputDeterminism(t *testing.T) {
	g := pipelineGraph()
	first, err := AnalyzeThroughput(g)
	if err != nil {
		t.Fatalf("AnalyzeThroughput() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		thr, err := AnalyzeThroughput(g)
		if err != nil {
			t.Fatalf("run %d: error = %v", i, err)
		}
		if thr != first {
			t.Fatalf("run %d: throughput %s differs from first run %s", i, thr, first)
		}
	}
}

// singleBoundActor builds a one-actor graph bound to a single tile, used to
// probe the TDMA waiting-time computation.
func singleBoundActor(execTime, wheel, slice uint64) (*TransitionSystem, error) {
	g := NewGraph("tdma")
	a := g.AddActor("A")
	a.SetExecTime("wcrt", execTime)
	a.DefaultProcessor = "wcrt"
	g.AddChannel("self", a.ID, a.ID, 1, 1, 1)

	b := &Binding{
		ActorTile: []int{0},
		Schedules: []TileSchedule{{Order: []ActorID{0}}},
		WheelSize: []uint64{wheel},
		Slice:     []uint64{slice},
	}
	return NewTransitionSystem(g, b, nil)
}

func TestCompletionTimeTDMA(t *testing.T) {
	tests := []struct {
		name   string
		exec   uint64
		wheel  uint64
		slice  uint64
		tdmaPo uint64
		want   uint64
	}{
		// Wheel at the start of the non-reserved part: wait for the slice,
		// then one extra rotation for the second execution tick.
		{"before slice, two ticks", 2, 4, 1, 0, 8},
		// Inside the slice with spill into the next rotation.
		{"inside slice, spill", 2, 4, 1, 3, 5},
		// Inside the slice, fits exactly.
		{"inside slice, fits", 1, 4, 1, 3, 1},
		// No TDMA sharing at all.
		{"full wheel", 5, 4, 4, 2, 5},
		// Zero execution time never waits for the slice rotation count.
		{"zero exec before slice", 0, 4, 1, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := singleBoundActor(tt.exec, tt.wheel, tt.slice)
			if err != nil {
				t.Fatalf("transition system: %v", err)
			}
			ts.cur.tdmaPos[0] = tt.tdmaPo
			if got := ts.completionTime(0); got != tt.want {
				t.Errorf("completionTime = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScheduleGatesFiring(t *testing.T) {
	// Two actors on one tile with schedule B, A: A may not fire first even
	// though its tokens are available.
	g := NewGraph("gated")
	a := g.AddActor("A")
	b := g.AddActor("B")
	a.SetExecTime("wcrt", 1)
	b.SetExecTime("wcrt", 1)
	a.DefaultProcessor = "wcrt"
	b.DefaultProcessor = "wcrt"
	g.AddChannel("ab", a.ID, b.ID, 1, 1, 1)
	g.AddChannel("ba", b.ID, a.ID, 1, 1, 1)

	bind := &Binding{
		ActorTile: []int{0, 0},
		Schedules: []TileSchedule{{Order: []ActorID{b.ID, a.ID}}},
		WheelSize: []uint64{1},
		Slice:     []uint64{1},
	}
	ts, err := NewTransitionSystem(g, bind, nil)
	if err != nil {
		t.Fatalf("transition system: %v", err)
	}
	for _, c := range g.Channels {
		ts.cur.ch[c.ID] = c.InitialTokens
	}
	if ts.actorReadyToFire(a.ID) {
		t.Error("A fires ahead of its schedule position")
	}
	if !ts.actorReadyToFire(b.ID) {
		t.Error("B heads the schedule but is not ready")
	}
}

func TestBindingWithoutScheduleRejected(t *testing.T) {
	g := NewGraph("orphan")
	a := g.AddActor("A")
	a.SetExecTime("wcrt", 1)
	a.DefaultProcessor = "wcrt"
	g.AddChannel("self", a.ID, a.ID, 1, 1, 1)

	b := &Binding{
		ActorTile: []int{0},
		Schedules: []TileSchedule{{}},
		WheelSize: []uint64{4},
		Slice:     []uint64{1},
	}
	if _, err := NewTransitionSystem(g, b, nil); err == nil {
		t.Error("NewTransitionSystem accepted a bound actor without a schedule")
	}
}
