package sdf

import (
	"errors"
	"testing"
)

func TestRepetitionVector(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  []uint64
	}{
		{"pipeline", pipelineGraph(), []uint64{1, 1, 1}},
		{"feedback", feedbackGraph(), []uint64{1, 1}},
		{"rate chain", rateChainGraph(), []uint64{2, 1, 3}},
		{"self edge", selfEdgeGraph(), []uint64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := RepetitionVector(tt.graph)
			if err != nil {
				t.Fatalf("RepetitionVector() error = %v", err)
			}
			if len(q) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(q), len(tt.want))
			}
			for i := range q {
				if q[i] != tt.want[i] {
					t.Errorf("q[%d] = %d, want %d", i, q[i], tt.want[i])
				}
			}
			// Balance: srcRate*q[src] == dstRate*q[dst] on every channel.
			for _, c := range tt.graph.Channels {
				if c.SrcRate*q[c.Src] != c.DstRate*q[c.Dst] {
					t.Errorf("channel %q violates balance: %d*%d != %d*%d",
						c.Name, c.SrcRate, q[c.Src], c.DstRate, q[c.Dst])
				}
			}
		})
	}
}

func TestRepetitionVectorInconsistent(t *testing.T) {
	g := NewGraph("inconsistent")
	a := g.AddActor("A")
	b := g.AddActor("B")
	g.AddChannel("ab1", a.ID, b.ID, 1, 1, 0)
	g.AddChannel("ab2", a.ID, b.ID, 1, 2, 0)

	if _, err := RepetitionVector(g); !errors.Is(err, ErrInconsistent) {
		t.Errorf("RepetitionVector() error = %v, want ErrInconsistent", err)
	}
}

func TestRepetitionVectorDisconnected(t *testing.T) {
	g := NewGraph("disconnected")
	a := g.AddActor("A")
	b := g.AddActor("B")
	c := g.AddActor("C")
	d := g.AddActor("D")
	g.AddChannel("ab", a.ID, b.ID, 1, 1, 0)
	g.AddChannel("cd", c.ID, d.ID, 1, 1, 0)

	if _, err := RepetitionVector(g); !errors.Is(err, ErrNotConnected) {
		t.Errorf("RepetitionVector() error = %v, want ErrNotConnected", err)
	}
}

func TestOutputActor(t *testing.T) {
	// The rate chain has q = (2, 1, 3); B is the unique minimum.
	a, rep, err := OutputActor(rateChainGraph())
	if err != nil {
		t.Fatalf("OutputActor() error = %v", err)
	}
	if a != 1 || rep != 1 {
		t.Errorf("OutputActor() = (%d, %d), want (1, 1)", a, rep)
	}

	// All entries equal: the tie breaks on the lowest actor id.
	a, rep, err = OutputActor(pipelineGraph())
	if err != nil {
		t.Fatalf("OutputActor() error = %v", err)
	}
	if a != 0 || rep != 1 {
		t.Errorf("OutputActor() = (%d, %d), want (0, 1)", a, rep)
	}
}
