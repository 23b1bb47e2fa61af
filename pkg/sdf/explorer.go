package sdf

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExplorerOptions tune the trade-off exploration. The zero value selects
// sequential exploration without logging.
type ExplorerOptions struct {
	// Parallelism is the number of simulations run concurrently within one
	// distribution set. Values below 2 select the sequential path. Results
	// are merged in index order, so the outcome does not depend on the
	// setting.
	Parallelism int

	// Logger traces the exploration, one entry per explored set. Nil
	// disables tracing.
	Logger *zap.Logger

	// Simulator bounds each simulation run; nil selects the defaults.
	Simulator *SimulatorConfig
}

func (o *ExplorerOptions) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// AnalyzeBufferTradeoff explores the throughput/storage trade-off space of
// the graph and returns the Pareto-minimal storage distributions in strictly
// increasing size order, each set tagged with the maximum throughput among
// its distributions.
//
// A plain graph is first rewritten into its capacity-constrained form: every
// channel gains a reverse channel modelling its storage space. The returned
// distributions are projected back onto the caller's channels, so Sp[c] is
// the buffer size of channel c and Sz counts buffer space only. A graph that
// already contains storage-modelling channels is explored as-is over those
// channels; useBounds then caps every enlargement at the storage channel's
// pre-assigned token count (it is ignored for plain graphs).
//
// The exploration stops as soon as a set reaches thrBound, or at the graph's
// maximal throughput. A thrBound of zero or below explores to saturation.
func AnalyzeBufferTradeoff(g *Graph, thrBound float64, useBounds bool) ([]StorageDistributionSet, error) {
	return AnalyzeBufferTradeoffOpts(g, thrBound, useBounds, nil)
}

// AnalyzeBufferTradeoffOpts is AnalyzeBufferTradeoff with explorer options.
func AnalyzeBufferTradeoffOpts(g *Graph, thrBound float64, useBounds bool, opts *ExplorerOptions) ([]StorageDistributionSet, error) {
	if g.HasStorageChannels() {
		ex, err := newExplorer(g, nil, storageChannelMarks(g), useBounds, thrBound, RatioInf(), opts)
		if err != nil {
			return nil, err
		}
		if err := ex.findMinimalStorageDistributions(); err != nil {
			return nil, err
		}
		return ex.lat.results(), nil
	}

	// Plain graph: the maximal throughput with unbounded storage is the
	// exact saturation point of the search.
	maxThr, err := AnalyzeThroughput(g)
	if err != nil {
		return nil, err
	}
	cg, storageFor := modelCapacityConstraints(g)
	ex, err := newExplorer(cg, nil, storageChannelMarks(cg), false, thrBound, maxThr, opts)
	if err != nil {
		return nil, err
	}
	ex.boundsFromRepresented(g, storageFor)
	if err := ex.findMinimalStorageDistributions(); err != nil {
		return nil, err
	}
	return projectResults(ex.lat.results(), g, storageFor), nil
}

// AnalyzeBindingAwareBufferTradeoff explores the trade-off space of a
// binding-aware graph. bufferChannels marks the channels whose storage space
// the distribution assigns; nil selects every storage-modelling channel.
func AnalyzeBindingAwareBufferTradeoff(g *Graph, b *Binding, bufferChannels []bool, thrBound float64, useBounds bool, opts *ExplorerOptions) ([]StorageDistributionSet, error) {
	if bufferChannels == nil {
		bufferChannels = storageChannelMarks(g)
	}
	ex, err := newExplorer(g, b, bufferChannels, useBounds, thrBound, RatioInf(), opts)
	if err != nil {
		return nil, err
	}
	if err := ex.findMinimalStorageDistributions(); err != nil {
		return nil, err
	}
	return ex.lat.results(), nil
}

/*
 * Explorer
 */

type explorer struct {
	g              *Graph
	b              *Binding
	bufferChannels []bool
	useBounds      bool

	thrBound float64
	maxThr   Ratio

	minSz     []uint64
	minSzStep []uint64
	lbSz      uint64

	lat *lattice
	ts  *TransitionSystem

	par int
	log *zap.Logger
	cfg *SimulatorConfig
}

func newExplorer(g *Graph, b *Binding, bufferChannels []bool, useBounds bool, thrBound float64, maxThr Ratio, opts *ExplorerOptions) (*explorer, error) {
	if thrBound <= 0 {
		thrBound = math.Inf(1)
	}
	var cfg *SimulatorConfig
	par := 1
	if opts != nil {
		cfg = opts.Simulator
		par = opts.Parallelism
	}
	ts, err := NewTransitionSystem(g, b, cfg)
	if err != nil {
		return nil, err
	}
	ex := &explorer{
		g:              g,
		b:              b,
		bufferChannels: bufferChannels,
		useBounds:      useBounds,
		thrBound:       thrBound,
		maxThr:         maxThr,
		lat:            newLattice(),
		ts:             ts,
		par:            par,
		log:            opts.logger(),
		cfg:            cfg,
	}
	ex.initBoundsSearchSpace()
	return ex, nil
}

// initBoundsSearchSpace computes, per channel, the coarsest step that can
// change feasibility and the lower bound on the size needed for positive
// throughput.
func (ex *explorer) initBoundsSearchSpace() {
	m := ex.g.NrChannels()
	ex.minSz = make([]uint64, m)
	ex.minSzStep = make([]uint64, m)
	ex.lbSz = 0

	for _, c := range ex.g.Channels {
		p, q := c.SrcRate, c.DstRate
		t := c.InitialTokens
		g := gcd(p, q)
		ex.minSzStep[c.ID] = g

		lb := p + q - g + t%g
		if !ex.bufferChannels[c.ID] && lb < t {
			lb = t
		}
		if c.IsSelfEdge() {
			lb = p + q
			if q < t {
				lb = p + t
			}
		}
		ex.minSz[c.ID] = lb
		ex.lbSz += lb
	}
}

// boundsFromRepresented recomputes the bounds for an internally built
// capacity-constrained graph: storage channels take their lower bound from
// the channel they represent, data channels contribute nothing to the
// distribution size.
func (ex *explorer) boundsFromRepresented(orig *Graph, storageFor []ChannelID) {
	ex.lbSz = 0
	for i := range ex.minSz {
		ex.minSz[i] = 0
	}
	for _, c := range orig.Channels {
		sc := storageFor[c.ID]
		p, q := c.SrcRate, c.DstRate
		t := c.InitialTokens
		g := gcd(p, q)

		lb := p + q - g + t%g
		if lb < t {
			lb = t
		}
		if c.IsSelfEdge() {
			lb = p + q
			if q < t {
				lb = p + t
			}
		}
		ex.minSz[sc] = lb
		ex.minSzStep[sc] = g
		ex.lbSz += lb
	}
}

// findMinimalStorageDistributions seeds the checklist with the lower-bound
// distribution and explores the sets in increasing size until the throughput
// bound or the maximal throughput is reached. Sets beyond the stopping point
// are purged; a deadlocking seed is replaced by the all-zero distribution.
func (ex *explorer) findMinimalStorageDistributions() error {
	seed := &StorageDistribution{
		Sp:  make([]uint64, ex.g.NrChannels()),
		Sz:  ex.lbSz,
		Dep: make([]bool, ex.g.NrChannels()),
	}
	copy(seed.Sp, ex.minSz)
	ex.lat.add(seed)

	si := ex.lat.first
	for si != nilIdx {
		if err := ex.exploreSet(si); err != nil {
			return err
		}
		s := &ex.lat.sets[si]
		ex.log.Debug("explored storage distribution set",
			zap.Uint64("size", s.sz),
			zap.String("throughput", s.thr.String()))

		if s.thr.Float64() >= ex.thrBound || (!ex.maxThr.IsInf() && s.thr.Eq(ex.maxThr)) {
			break
		}

		next := s.next
		if s.head == nilIdx {
			ex.lat.unlinkSet(si)
		}
		si = next
	}

	if si != nilIdx {
		ex.lat.purgeFrom(ex.lat.sets[si].next)
	}
	if first := ex.lat.first; first != nilIdx && ex.lat.sets[first].thr.IsZero() {
		ex.lat.collapseFirstToZero()
	}
	return nil
}

// exploreSet simulates every distribution in the set, records the maximum
// throughput, spawns enlarged successors for every storage dependency found,
// and prunes the set to its minimal distributions.
func (ex *explorer) exploreSet(si int) error {
	var idxs []int
	for di := ex.lat.sets[si].head; di != nilIdx; di = ex.lat.dists[di].next {
		idxs = append(idxs, di)
	}

	if err := ex.simulateAll(idxs); err != nil {
		return err
	}

	for _, di := range idxs {
		d := ex.lat.dists[di].d
		if d.Thr.Cmp(ex.lat.sets[si].thr) > 0 {
			ex.lat.sets[si].thr = d.Thr
		}
	}

	for _, di := range idxs {
		d := ex.lat.dists[di].d
		for c := range d.Dep {
			if !d.Dep[c] {
				continue
			}
			ch := ex.g.Channel(ChannelID(c))
			// Self-edges are never enlarged; a larger self-loop cannot add
			// concurrency the actor does not have.
			if ch.IsSelfEdge() {
				continue
			}
			if ex.useBounds && d.Sp[c] >= ch.InitialTokens {
				continue
			}
			dn := d.clone()
			dn.Sp[c] += ex.minSzStep[c]
			dn.Sz += ex.minSzStep[c]
			ex.lat.add(dn)
		}
	}

	ex.lat.minimizeSet(si)
	return nil
}

// simulateAll computes throughput and dependencies for the given
// distributions, concurrently when the explorer is configured for it. Each
// simulation owns a private transition system; the graph is shared read-only.
func (ex *explorer) simulateAll(idxs []int) error {
	if ex.par < 2 || len(idxs) < 2 {
		for _, di := range idxs {
			d := ex.lat.dists[di].d
			clearDep(d.Dep)
			thr, err := ex.ts.execute(d.Sp, d.Dep, ex.bufferChannels)
			if err != nil {
				return fmt.Errorf("exploreSet: %w", err)
			}
			d.Thr = thr
		}
		return nil
	}

	var eg errgroup.Group
	eg.SetLimit(ex.par)
	for _, di := range idxs {
		d := ex.lat.dists[di].d
		eg.Go(func() error {
			ts, err := NewTransitionSystem(ex.g, ex.b, ex.cfg)
			if err != nil {
				return err
			}
			clearDep(d.Dep)
			thr, err := ts.execute(d.Sp, d.Dep, ex.bufferChannels)
			if err != nil {
				return fmt.Errorf("exploreSet: %w", err)
			}
			d.Thr = thr
			return nil
		})
	}
	return eg.Wait()
}

/*
 * Capacity-constrained rewrite
 */

// modelCapacityConstraints clones the graph and adds, for every channel, a
// reverse channel modelling its storage space, plus a one-token self-loop per
// actor serialising its firings. It returns the extended graph and the
// storage channel introduced per original channel.
func modelCapacityConstraints(g *Graph) (*Graph, []ChannelID) {
	ng := g.Clone()
	storageFor := make([]ChannelID, g.NrChannels())
	for _, c := range g.Channels {
		rc := ng.AddChannel(c.Name+"_space", c.Dst, c.Src, c.DstRate, c.SrcRate, 0)
		rc.StorageOf = c.ID
		storageFor[c.ID] = rc.ID
	}
	for _, a := range g.Actors {
		ng.AddChannel(a.Name+"_ac", a.ID, a.ID, 1, 1, 1)
	}
	return ng, storageFor
}

// storageChannelMarks returns the buffer-channel vector of a graph: true for
// every channel that models storage space.
func storageChannelMarks(g *Graph) []bool {
	marks := make([]bool, g.NrChannels())
	for _, c := range g.Channels {
		marks[c.ID] = c.ModelsStorage()
	}
	return marks
}

// projectResults maps distributions over an internally built
// capacity-constrained graph back onto the caller's channels.
func projectResults(sets []StorageDistributionSet, orig *Graph, storageFor []ChannelID) []StorageDistributionSet {
	out := make([]StorageDistributionSet, len(sets))
	for i, s := range sets {
		ps := StorageDistributionSet{Sz: s.Sz, Thr: s.Thr}
		for _, d := range s.Distributions {
			pd := &StorageDistribution{
				Sp:  make([]uint64, orig.NrChannels()),
				Sz:  d.Sz,
				Thr: d.Thr,
				Dep: make([]bool, orig.NrChannels()),
			}
			for c := range storageFor {
				pd.Sp[c] = d.Sp[storageFor[c]]
				pd.Dep[c] = d.Dep[storageFor[c]]
			}
			ps.Distributions = append(ps.Distributions, pd)
		}
		out[i] = ps
	}
	return out
}

func clearDep(dep []bool) {
	for i := range dep {
		dep[i] = false
	}
}
