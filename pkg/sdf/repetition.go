package sdf

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// RepetitionVector solves the balance equations of the graph: for every
// channel, srcRate*q[src] = dstRate*q[dst]. The result is the smallest
// strictly positive integer vector satisfying all equations.
//
// The graph must be connected (ErrNotConnected) and consistent
// (ErrInconsistent); both are checked here so every analysis entry point can
// rely on a well-defined vector.
func RepetitionVector(g *Graph) ([]uint64, error) {
	n := g.NrActors()
	if n == 0 {
		return nil, ErrInconsistent
	}
	if !isConnected(g) {
		return nil, ErrNotConnected
	}

	// Fractional firing rates per actor, propagated over the channels with a
	// breadth-first traversal from actor 0.
	num := make([]uint64, n)
	den := make([]uint64, n)
	visited := make([]bool, n)

	num[0], den[0] = 1, 1
	visited[0] = true
	queue := []ActorID{0}

	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]

		for _, p := range g.Actors[a].Ports {
			c := g.Channel(p.Channel)
			var other ActorID
			var rateA, rateOther uint64
			if p.Dir == Out {
				other, rateA, rateOther = c.Dst, c.SrcRate, c.DstRate
			} else {
				other, rateA, rateOther = c.Src, c.DstRate, c.SrcRate
			}

			// rateA*q[a] = rateOther*q[other], so q[other] is
			// q[a] * rateA / rateOther.
			on := num[a] * rateA
			od := den[a] * rateOther
			og := gcd(on, od)
			on, od = on/og, od/og

			if !visited[other] {
				num[other], den[other] = on, od
				visited[other] = true
				queue = append(queue, other)
			} else if num[other]*od != on*den[other] {
				return nil, ErrInconsistent
			}
		}
	}

	// Scale the fractions to the smallest integer vector.
	l := uint64(1)
	for i := 0; i < n; i++ {
		l = l / gcd(l, den[i]) * den[i]
	}
	q := make([]uint64, n)
	var overall uint64
	for i := 0; i < n; i++ {
		q[i] = num[i] * (l / den[i])
		overall = gcd(overall, q[i])
	}
	for i := 0; i < n; i++ {
		q[i] /= overall
	}
	return q, nil
}

// OutputActor selects the actor that frames one iteration of the transition
// system: the actor with the smallest repetition entry, ties broken on the
// lowest id. It returns the actor id and its repetition count.
func OutputActor(g *Graph) (ActorID, uint64, error) {
	q, err := RepetitionVector(g)
	if err != nil {
		return 0, 0, err
	}
	best := ActorID(0)
	for i := 1; i < len(q); i++ {
		if q[i] < q[best] {
			best = ActorID(i)
		}
	}
	return best, q[best], nil
}

// isConnected reports whether the graph is connected when channels are read
// as undirected edges.
func isConnected(g *Graph) bool {
	if g.NrActors() <= 1 {
		return true
	}
	ug := simple.NewUndirectedGraph()
	for _, a := range g.Actors {
		ug.AddNode(simple.Node(a.ID))
	}
	for _, c := range g.Channels {
		if c.Src == c.Dst {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(c.Src), T: simple.Node(c.Dst)})
	}
	return len(topo.ConnectedComponents(ug)) == 1
}
