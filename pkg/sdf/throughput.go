package sdf

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// AnalyzeThroughput computes the self-timed throughput of the graph: the
// long-run number of iterations of the output actor per tick when every
// actor fires as soon as its input tokens are available. A deadlocked graph
// yields zero throughput.
//
// A strongly connected graph has a finite state space and is simulated as
// given. Any other graph is simulated through a bounded view that serialises
// each actor with a one-token self-loop and closes every channel with a
// back-pressure channel wide enough for one full iteration of decoupling;
// the result is the throughput of the bottleneck.
func AnalyzeThroughput(g *Graph) (Ratio, error) {
	sim := g
	if !isStronglyConnected(g) {
		var err error
		sim, err = boundedView(g)
		if err != nil {
			return Ratio{}, err
		}
	}
	ts, err := NewTransitionSystem(sim, nil, nil)
	if err != nil {
		return Ratio{}, err
	}
	return ts.SelfTimedThroughput()
}

// AnalyzeBoundThroughput computes the self-timed throughput of a
// binding-aware graph, honouring the static-order schedules and TDMA wheels
// of the binding, together with the utilisation of every tile's processor in
// the steady state.
func AnalyzeBoundThroughput(g *Graph, b *Binding) (Ratio, []float64, error) {
	ts, err := NewTransitionSystem(g, b, nil)
	if err != nil {
		return Ratio{}, nil, err
	}
	thr, err := ts.SelfTimedThroughput()
	if err != nil {
		return Ratio{}, nil, err
	}

	// In the steady state every actor fires q[a] times per iteration, so a
	// tile is busy thr * sum(q[a]*execTime(a)) of the time.
	q, err := RepetitionVector(g)
	if err != nil {
		return Ratio{}, nil, err
	}
	busy := make([]uint64, b.NrTiles())
	for _, a := range g.Actors {
		if t := b.Tile(a.ID); t != TileNotBound {
			busy[t] += q[a.ID] * a.ExecutionTime()
		}
	}
	util := make([]float64, b.NrTiles())
	for t := range util {
		util[t] = thr.Float64() * float64(busy[t])
		if util[t] > 1 {
			util[t] = 1
		}
	}
	return thr, util, nil
}

// boundedView clones the graph with a one-token self-loop per actor and a
// reverse channel per channel holding srcRate*q[src] + dstRate*q[dst] tokens
// of slack. The view has a finite state space and reaches the same
// steady-state rate as the unbounded graph.
func boundedView(g *Graph) (*Graph, error) {
	q, err := RepetitionVector(g)
	if err != nil {
		return nil, err
	}
	ng := g.Clone()
	for _, a := range g.Actors {
		ng.AddChannel(a.Name+"_ac", a.ID, a.ID, 1, 1, 1)
	}
	for _, c := range g.Channels {
		if c.IsSelfEdge() {
			continue
		}
		slack := c.SrcRate*q[c.Src] + c.DstRate*q[c.Dst]
		ng.AddChannel(c.Name+"_bp", c.Dst, c.Src, c.DstRate, c.SrcRate, slack)
	}
	return ng, nil
}

// isStronglyConnected reports whether every actor can reach every other
// actor along channel directions.
func isStronglyConnected(g *Graph) bool {
	if g.NrActors() <= 1 {
		return true
	}
	dg := simple.NewDirectedGraph()
	for _, a := range g.Actors {
		dg.AddNode(simple.Node(a.ID))
	}
	for _, c := range g.Channels {
		if c.Src == c.Dst {
			continue
		}
		dg.SetEdge(simple.Edge{F: simple.Node(c.Src), T: simple.Node(c.Dst)})
	}
	return len(topo.TarjanSCC(dg)) == 1
}
