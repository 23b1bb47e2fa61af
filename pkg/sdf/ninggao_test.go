package sdf

import "testing"

func TestAnalyzeNingGaoPipeline(t *testing.T) {
	// One slot per shared output buffer already sustains the bottleneck
	// rate of the pipeline, so the minimal allocation is all ones.
	d, startTime, err := AnalyzeNingGao(pipelineGraph())
	if err != nil {
		t.Fatalf("AnalyzeNingGao() error = %v", err)
	}
	if !d.Thr.Eq(NewRatio(1, 3)) {
		t.Errorf("thr = %s, want 1/3", d.Thr)
	}
	if d.Sz != 3 {
		t.Errorf("sz = %d, want 3", d.Sz)
	}
	for a, sp := range d.Sp {
		if sp != 1 {
			t.Errorf("sp[%d] = %d, want 1", a, sp)
		}
	}
	if len(startTime) != 3 {
		t.Fatalf("got %d start times, want 3", len(startTime))
	}
	zero := false
	for _, st := range startTime {
		zero = zero || st == 0
	}
	if !zero {
		t.Error("no actor starts at time zero in the normalised schedule")
	}
}

func TestAnalyzeNingGaoInitialTokens(t *testing.T) {
	// The source of the feedback channel holds one initial token; its
	// buffer must accommodate it from the start.
	d, _, err := AnalyzeNingGao(feedbackGraph())
	if err != nil {
		t.Fatalf("AnalyzeNingGao() error = %v", err)
	}
	if !d.Thr.Eq(NewRatio(1, 2)) {
		t.Errorf("thr = %s, want 1/2", d.Thr)
	}
	if d.Sp[0] < 1 || d.Sp[1] < 1 {
		t.Errorf("sp = %v, want at least one slot per actor", d.Sp)
	}
}

func TestExecuteNingGaoSpaceRelease(t *testing.T) {
	// With a single slot on every actor the pipeline serialises through the
	// shared buffers; the slot of A frees the moment B starts consuming.
	g := pipelineGraph()
	ts, err := newTransitionSystem(g, nil, modeNingGao, nil)
	if err != nil {
		t.Fatalf("transition system: %v", err)
	}
	sp := []uint64{1, 1, 1}
	dep := make([]bool, g.NrChannels())
	startTime := make([]uint64, g.NrActors())
	thr, err := ts.executeNingGao(sp, dep, startTime)
	if err != nil {
		t.Fatalf("executeNingGao: %v", err)
	}
	if !thr.Eq(NewRatio(1, 3)) {
		t.Errorf("thr = %s, want 1/3", thr)
	}
}

func TestExecuteNingGaoInsufficientSpaceForTokens(t *testing.T) {
	g := feedbackGraph()
	ts, err := newTransitionSystem(g, nil, modeNingGao, nil)
	if err != nil {
		t.Fatalf("transition system: %v", err)
	}
	// Actor B holds one initial token on its output but gets no space.
	sp := []uint64{1, 0}
	dep := make([]bool, g.NrChannels())
	startTime := make([]uint64, g.NrActors())
	thr, err := ts.executeNingGao(sp, dep, startTime)
	if err != nil {
		t.Fatalf("executeNingGao: %v", err)
	}
	if !thr.IsZero() {
		t.Errorf("thr = %s, want 0", thr)
	}
	if !dep[1] {
		t.Error("channel with homeless initial tokens not marked dependent")
	}
}
