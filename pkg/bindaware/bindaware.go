// Package bindaware rewrites an application graph bound to a multi-tile
// platform into an equivalent SDF graph whose self-timed execution encodes
// the binding: TDMA waiting, connection latency, and buffer space become
// auxiliary actors, self-edges and token/space channels, so the plain
// state-space engine of package sdf answers the bound question directly.
package bindaware

import (
	"fmt"
	"math"

	"github.com/gitrdm/sdflow/pkg/platform"
	"github.com/gitrdm/sdflow/pkg/sdf"
)

// FlowType selects the platform model the rewrite targets.
type FlowType int

const (
	// NSoC models a network-on-chip platform: one connection actor per
	// inter-tile channel with TDMA synchronisation towards the destination
	// processor.
	NSoC FlowType = iota

	// MPFlow models a shared-bus multi-processor platform: semaphore,
	// credit and communication latency actors with TDMA synchronisation on
	// both sides.
	MPFlow
)

// Graph is a binding-aware SDF graph: the extended application graph plus
// the binding state the transition system simulates it with.
type Graph struct {
	*sdf.Graph
	Binding *sdf.Binding
}

// latency of a semaphore transfer over the shared bus, in ticks.
const busSemaphoreLatency = 11

// New folds the mapping of the application onto the platform into a
// binding-aware graph. Actor ids of the application stay stable; auxiliary
// actors append after them. Invalid mappings fail fast with a
// *platform.MappingError.
func New(app *sdf.Graph, pg *platform.Graph, m *platform.Mapping, flow FlowType) (*Graph, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(pg); err != nil {
		return nil, err
	}
	if len(m.ActorToTile) != app.NrActors() || len(m.ChannelToConnection) != app.NrChannels() {
		return nil, mappingErrorf("mapping does not cover the application graph")
	}

	r := &rewriter{
		app:  app,
		pg:   pg,
		m:    m,
		g:    app.Clone(),
		flow: flow,
	}
	r.b = &sdf.Binding{
		ActorTile: make([]int, app.NrActors()),
		Schedules: make([]sdf.TileSchedule, pg.NrTiles()),
		WheelSize: make([]uint64, pg.NrTiles()),
		Slice:     make([]uint64, pg.NrTiles()),
	}
	copy(r.b.ActorTile, m.ActorToTile)
	for t, tile := range pg.Tiles {
		r.b.WheelSize[t] = tile.WheelSize
		r.b.Slice[t] = tile.Slice
		r.b.Schedules[t] = toTileSchedule(&m.Schedules[t])
	}

	if err := r.rewrite(); err != nil {
		return nil, err
	}
	return &Graph{Graph: r.g, Binding: r.b}, nil
}

// AnalyzeThroughput builds the binding-aware graph for the mapping and
// returns its self-timed throughput and the per-tile processor utilisation.
func AnalyzeThroughput(app *sdf.Graph, pg *platform.Graph, m *platform.Mapping, flow FlowType) (sdf.Ratio, []float64, error) {
	bg, err := New(app, pg, m, flow)
	if err != nil {
		return sdf.Ratio{}, nil, err
	}
	return sdf.AnalyzeBoundThroughput(bg.Graph, bg.Binding)
}

type rewriter struct {
	app  *sdf.Graph
	pg   *platform.Graph
	m    *platform.Mapping
	g    *sdf.Graph
	b    *sdf.Binding
	flow FlowType
}

func (r *rewriter) rewrite() error {
	// Every mapped actor executes at its worst-case response time on the
	// chosen processor and is serialised by a one-token self-loop.
	for _, a := range r.app.Actors {
		t := r.m.ActorToTile[a.ID]
		if t == platform.NotBound {
			return mappingErrorf("actor %q is not bound to a tile", a.Name)
		}
		if err := r.createMappedActor(r.g.Actor(a.ID), r.pg.Tile(platform.TileID(t))); err != nil {
			return err
		}
	}

	for _, c := range r.app.Channels {
		if c.IsSelfEdge() {
			continue
		}
		srcTile := r.m.ActorToTile[c.Src]
		dstTile := r.m.ActorToTile[c.Dst]
		cn := r.m.ChannelToConnection[c.ID]

		if srcTile == dstTile {
			if cn != platform.NotBound {
				return mappingErrorf("intra-tile channel %q bound to a connection", c.Name)
			}
			if err := r.createMappedChannelToTile(r.g.Channel(c.ID)); err != nil {
				return err
			}
			continue
		}
		if cn == platform.NotBound {
			return mappingErrorf("inter-tile channel %q not bound to a connection", c.Name)
		}
		conn := r.pg.Connection(platform.ConnectionID(cn))
		if int(conn.Src) != srcTile || int(conn.Dst) != dstTile {
			return mappingErrorf("channel %q bound to connection %q between the wrong tiles",
				c.Name, conn.Name)
		}
		var err error
		if r.flow == NSoC {
			err = r.createMappedChannelToConnectionNSoC(r.g.Channel(c.ID), conn)
		} else {
			err = r.createMappedChannelToConnectionMPFlow(r.g.Channel(c.ID), conn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// createMappedActor pins the actor's execution time to the tile's processor
// and serialises its firings with a one-token self-loop.
func (r *rewriter) createMappedActor(a *sdf.Actor, t *platform.Tile) error {
	wcrt, ok := a.ExecutionTimeOn(t.ProcessorType)
	if !ok {
		return mappingErrorf("actor %q has no execution time for processor type %q",
			a.Name, t.ProcessorType)
	}
	a.SetExecTime("wcrt", wcrt)
	a.DefaultProcessor = "wcrt"
	r.g.AddChannel(a.Name+"_self", a.ID, a.ID, 1, 1, 1)
	return nil
}

// createMappedChannelToTile models an intra-tile channel: a reverse channel
// whose tokens are the free memory of the tile buffer.
func (r *rewriter) createMappedChannelToTile(c *sdf.Channel) error {
	buf := r.m.BufferSizes[c.ID]
	if buf.Mem < c.InitialTokens {
		return mappingErrorf("channel %q: memory %d cannot hold %d initial tokens",
			c.Name, buf.Mem, c.InitialTokens)
	}
	cMem := r.g.AddChannel(c.Name+"_mem", c.Dst, c.Src, c.DstRate, c.SrcRate,
		buf.Mem-c.InitialTokens)
	cMem.StorageOf = c.ID
	return nil
}

// createMappedChannelToConnectionNSoC expands an inter-tile channel into a
// connection pipeline: source buffer, a connection actor carrying transfer
// latency (one message in flight at a time), TDMA synchronisation towards the
// destination wheel, the destination buffer, and optionally a minimum-latency
// path.
func (r *rewriter) createMappedChannelToConnectionNSoC(ch *sdf.Channel, cn *platform.Connection) error {
	dstProc := r.pg.Tile(cn.Dst)
	buf := r.m.BufferSizes[ch.ID]

	conn := r.addAuxActor(ch.Name+"_connection", "latency",
		cn.Latency+transferTime(ch))
	r.g.AddChannel(conn.Name+"_self", conn.ID, conn.ID, 1, 1, 1)

	if buf.Src < ch.InitialTokens {
		return mappingErrorf("channel %q: source buffer %d cannot hold %d initial tokens",
			ch.Name, buf.Src, ch.InitialTokens)
	}
	cSrc := r.g.AddChannel(ch.Name+"_src", conn.ID, ch.Src, 1, ch.SrcRate,
		buf.Src-ch.InitialTokens)
	cSrc.StorageOf = ch.ID

	cDst := r.g.AddChannel(ch.Name+"_dst", ch.Dst, conn.ID, ch.DstRate, 1, buf.Dst)
	cDst.StorageOf = ch.ID

	r.g.AddChannel(ch.Name+"_conn_in", ch.Src, conn.ID, ch.SrcRate, 1, ch.InitialTokens)

	if dstProc.WheelSize > dstProc.Slice {
		tdma := r.addAuxActor(ch.Name+"_tdma", "tdma", dstProc.WheelSize-dstProc.Slice)
		r.g.AddChannel(ch.Name+"_conn_tdma", conn.ID, tdma.ID, 1, 1, 0)
		r.g.AddChannel(ch.Name+"_tdma_out", tdma.ID, ch.Dst, 1, ch.DstRate, 0)
	} else {
		r.g.AddChannel(ch.Name+"_conn_out", conn.ID, ch.Dst, 1, ch.DstRate, 0)
	}

	if ch.MinLatency > 0 {
		lat := r.addAuxActor(ch.Name+"_latency", "latency", ch.MinLatency)
		r.g.AddChannel(ch.Name+"_lat_in", ch.Src, lat.ID, ch.SrcRate, 1, ch.InitialTokens)
		r.g.AddChannel(ch.Name+"_lat_out", lat.ID, ch.Dst, 1, ch.DstRate, 0)
	}
	return nil
}

// createMappedChannelToConnectionMPFlow expands an inter-tile channel into
// the shared-bus construct: semaphore, communication and credit latency
// actors, TDMA synchronisation on both processors, and credit back-pressure
// towards the source buffer. The destination tile's schedule gains the
// communication actor immediately before each firing of the destination
// actor so slot accounting stays tight.
func (r *rewriter) createMappedChannelToConnectionMPFlow(ch *sdf.Channel, cn *platform.Connection) error {
	srcProc := r.pg.Tile(cn.Src)
	dstProc := r.pg.Tile(cn.Dst)
	buf := r.m.BufferSizes[ch.ID]

	sem := r.addAuxActor(ch.Name+"_semaphore", "latency", busSemaphoreLatency)
	credit := r.addAuxActor(ch.Name+"_credit", "latency", busSemaphoreLatency)
	comm := r.addAuxActor(ch.Name+"_communication", "latency", busTransferLatency(ch.TokenSize))
	tdmaSrc := r.addAuxActor(ch.Name+"_tdma_sync_src", "tdma", srcProc.WheelSize-srcProc.Slice)
	tdmaDst := r.addAuxActor(ch.Name+"_tdma_sync_dst", "tdma", dstProc.WheelSize-dstProc.Slice)

	r.g.AddChannel(ch.Name+"_sem_in", ch.Src, sem.ID, ch.SrcRate, 1, ch.InitialTokens)
	r.g.AddChannel(ch.Name+"_sem_tdma", sem.ID, tdmaDst.ID, 1, 1, 0)
	r.g.AddChannel(ch.Name+"_tdma_comm", tdmaDst.ID, comm.ID, 1, ch.DstRate, 0)
	r.g.AddChannel(ch.Name+"_comm_out", comm.ID, ch.Dst, ch.DstRate, ch.DstRate, 0)
	r.g.AddChannel(ch.Name+"_comm_back", ch.Dst, comm.ID, ch.DstRate, ch.DstRate, ch.DstRate)
	r.g.AddChannel(ch.Name+"_comm_credit", comm.ID, credit.ID, ch.DstRate, 1, 0)
	r.g.AddChannel(ch.Name+"_credit_tdma", credit.ID, tdmaSrc.ID, 1, 1, 0)

	if buf.Src < ch.InitialTokens {
		return mappingErrorf("channel %q: source buffer %d cannot hold %d initial tokens",
			ch.Name, buf.Src, ch.InitialTokens)
	}
	r.g.AddChannel(ch.Name+"_credit_back", tdmaSrc.ID, ch.Src, 1, ch.SrcRate,
		buf.Src-ch.InitialTokens)

	// The bus transfer consumes the destination tile's slot right before the
	// destination actor runs.
	r.b.ActorTile[comm.ID] = int(cn.Dst)
	s := &r.b.Schedules[cn.Dst]
	for i := 0; i < len(s.Order); i++ {
		if s.Order[i] == ch.Dst {
			s.Order = append(s.Order, 0)
			copy(s.Order[i+1:], s.Order[i:])
			s.Order[i] = comm.ID
			if s.StartPeriodic > i {
				s.StartPeriodic++
			}
			i++
		}
	}
	return nil
}

// addAuxActor appends an auxiliary actor with a single execution-time entry.
// Auxiliary actors are unbound unless the caller binds them explicitly.
func (r *rewriter) addAuxActor(name, proc string, execTime uint64) *sdf.Actor {
	a := r.g.AddActor(name)
	a.SetExecTime(proc, execTime)
	a.DefaultProcessor = proc
	r.b.ActorTile = append(r.b.ActorTile, sdf.TileNotBound)
	return a
}

// transferTime is the time to push one token through the connection given
// the channel's token size and minimal bandwidth.
func transferTime(ch *sdf.Channel) uint64 {
	if ch.MinBandwidth <= 0 {
		return 0
	}
	return uint64(math.Ceil(float64(ch.TokenSize) / ch.MinBandwidth))
}

// busTransferLatency is the shared-bus transfer time of a token, from a
// piecewise-linear bus model over the token size rounded up to 32-bit words.
func busTransferLatency(tokenSize uint64) uint64 {
	if tokenSize%32 != 0 {
		tokenSize = tokenSize + 32 - tokenSize%32
	}
	if tokenSize < 1024 {
		return uint64(math.Ceil(0.34144*float64(tokenSize) + 110.592))
	}
	return uint64(math.Ceil(0.36660*float64(tokenSize) + 90.806))
}

func toTileSchedule(s *platform.StaticOrderSchedule) sdf.TileSchedule {
	order := make([]sdf.ActorID, len(s.Order))
	for i, a := range s.Order {
		order[i] = sdf.ActorID(a)
	}
	return sdf.TileSchedule{Order: order, StartPeriodic: s.StartPeriodic}
}

func mappingErrorf(format string, args ...interface{}) error {
	return &platform.MappingError{Reason: fmt.Sprintf(format, args...)}
}
