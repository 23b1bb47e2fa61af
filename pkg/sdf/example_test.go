package sdf_test

import (
	"fmt"

	"github.com/gitrdm/sdflow/pkg/sdf"
)

// ExampleAnalyzeThroughput computes the self-timed throughput of a small
// pipeline. The slowest actor paces the whole graph.
func ExampleAnalyzeThroughput() {
	g := sdf.NewGraph("pipeline")
	a := g.AddActor("A")
	b := g.AddActor("B")
	c := g.AddActor("C")
	a.SetExecTime("arm", 2)
	b.SetExecTime("arm", 3)
	c.SetExecTime("arm", 1)
	a.DefaultProcessor = "arm"
	b.DefaultProcessor = "arm"
	c.DefaultProcessor = "arm"
	g.AddChannel("ab", a.ID, b.ID, 1, 1, 0)
	g.AddChannel("bc", b.ID, c.ID, 1, 1, 0)

	thr, err := sdf.AnalyzeThroughput(g)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("throughput: %s\n", thr)

	// Output:
	// throughput: 1/3
}

// ExampleAnalyzeBufferTradeoff explores the Pareto front between buffer
// space and throughput for the same pipeline.
func ExampleAnalyzeBufferTradeoff() {
	g := sdf.NewGraph("pipeline")
	a := g.AddActor("A")
	b := g.AddActor("B")
	c := g.AddActor("C")
	a.SetExecTime("arm", 2)
	b.SetExecTime("arm", 3)
	c.SetExecTime("arm", 1)
	a.DefaultProcessor = "arm"
	b.DefaultProcessor = "arm"
	c.DefaultProcessor = "arm"
	g.AddChannel("ab", a.ID, b.ID, 1, 1, 0)
	g.AddChannel("bc", b.ID, c.ID, 1, 1, 0)

	sets, err := sdf.AnalyzeBufferTradeoff(g, 0, false)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, s := range sets {
		fmt.Printf("sz=%d thr=%s sp=%v\n", s.Sz, s.Thr, s.Distributions[0].Sp)
	}

	// Output:
	// sz=2 thr=1/5 sp=[1 1]
	// sz=3 thr=1/4 sp=[2 1]
	// sz=4 thr=1/3 sp=[2 2]
}
