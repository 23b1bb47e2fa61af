package sdf

import "fmt"

// ActorID identifies an actor within its graph. Ids are dense in [0, N).
type ActorID int

// ChannelID identifies a channel within its graph. Ids are dense in [0, M).
type ChannelID int

// NoChannel marks the absence of a channel reference, used by Channel.StorageOf
// for channels that do not model storage space.
const NoChannel ChannelID = -1

// PortDir distinguishes input from output ports.
type PortDir int

const (
	// In marks a port that consumes tokens; the actor is the channel's
	// destination.
	In PortDir = iota
	// Out marks a port that produces tokens; the actor is the channel's
	// source.
	Out
)

// Port binds one endpoint of a channel to an actor with a fixed token rate.
// Ports are derived from the channel list when a channel is added; callers
// never construct them directly.
type Port struct {
	Dir     PortDir
	Rate    uint64
	Channel ChannelID
}

// Actor is a computation node of an SDF graph. Every firing consumes and
// produces a fixed number of tokens per port and takes a fixed number of
// ticks determined by the processor it runs on.
type Actor struct {
	ID   ActorID
	Name string

	// ExecTimes maps a processor type name to the execution time in ticks.
	ExecTimes map[string]uint64

	// DefaultProcessor names the entry of ExecTimes used when the actor is
	// simulated without an explicit processor choice.
	DefaultProcessor string

	// Ports lists the channel endpoints of the actor, in the order the
	// channels were added to the graph.
	Ports []Port
}

// ExecutionTime returns the execution time of the actor on its default
// processor. Actors without timing information execute in zero ticks.
func (a *Actor) ExecutionTime() uint64 {
	return a.ExecTimes[a.DefaultProcessor]
}

// ExecutionTimeOn returns the execution time of the actor on the named
// processor type and whether such a processor entry exists.
func (a *Actor) ExecutionTimeOn(proc string) (uint64, bool) {
	t, ok := a.ExecTimes[proc]
	return t, ok
}

// SetExecTime records the execution time of the actor on a processor type.
func (a *Actor) SetExecTime(proc string, ticks uint64) {
	if a.ExecTimes == nil {
		a.ExecTimes = make(map[string]uint64)
	}
	a.ExecTimes[proc] = ticks
}

// Channel is a FIFO connection between two actors. Rates are tokens per
// firing and must be positive.
type Channel struct {
	ID   ChannelID
	Name string

	Src ActorID
	Dst ActorID

	SrcRate uint64
	DstRate uint64

	InitialTokens uint64

	// StorageOf names the channel whose storage space this channel models,
	// or NoChannel. Channels with StorageOf set are the reverse channels
	// introduced by the capacity-constrained and binding-aware rewrites.
	StorageOf ChannelID

	// TokenSize, MinBandwidth and MinLatency describe the channel when it is
	// mapped onto a platform connection; they are only read by the
	// binding-aware rewrite.
	TokenSize    uint64
	MinBandwidth float64
	MinLatency   uint64
}

// IsSelfEdge reports whether source and destination are the same actor.
func (c *Channel) IsSelfEdge() bool {
	return c.Src == c.Dst
}

// ModelsStorage reports whether the channel models the storage space of
// another channel.
func (c *Channel) ModelsStorage() bool {
	return c.StorageOf != NoChannel
}

// Graph is a timed SDF graph. It is a plain record: the analyses treat it as
// read-only, so a graph may be shared between engines running in different
// goroutines.
type Graph struct {
	Name     string
	Actors   []*Actor
	Channels []*Channel
}

// NewGraph returns an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddActor appends a new actor and returns it. The id is the next dense id.
func (g *Graph) AddActor(name string) *Actor {
	a := &Actor{
		ID:        ActorID(len(g.Actors)),
		Name:      name,
		ExecTimes: make(map[string]uint64),
	}
	g.Actors = append(g.Actors, a)
	return a
}

// AddChannel appends a channel from src to dst with the given rates and
// initial tokens, derives the endpoint ports, and returns the channel.
func (g *Graph) AddChannel(name string, src, dst ActorID, srcRate, dstRate, initialTokens uint64) *Channel {
	c := &Channel{
		ID:            ChannelID(len(g.Channels)),
		Name:          name,
		Src:           src,
		Dst:           dst,
		SrcRate:       srcRate,
		DstRate:       dstRate,
		InitialTokens: initialTokens,
		StorageOf:     NoChannel,
	}
	g.Channels = append(g.Channels, c)
	g.Actors[src].Ports = append(g.Actors[src].Ports, Port{Dir: Out, Rate: srcRate, Channel: c.ID})
	g.Actors[dst].Ports = append(g.Actors[dst].Ports, Port{Dir: In, Rate: dstRate, Channel: c.ID})
	return c
}

// Actor returns the actor with the given id.
func (g *Graph) Actor(id ActorID) *Actor {
	return g.Actors[int(id)]
}

// Channel returns the channel with the given id.
func (g *Graph) Channel(id ChannelID) *Channel {
	return g.Channels[int(id)]
}

// NrActors returns the number of actors in the graph.
func (g *Graph) NrActors() int {
	return len(g.Actors)
}

// NrChannels returns the number of channels in the graph.
func (g *Graph) NrChannels() int {
	return len(g.Channels)
}

// HasStorageChannels reports whether any channel models storage space.
func (g *Graph) HasStorageChannels() bool {
	for _, c := range g.Channels {
		if c.ModelsStorage() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph. The binding-aware rewrite extends a
// clone so the application graph stays untouched.
func (g *Graph) Clone() *Graph {
	ng := NewGraph(g.Name)
	for _, a := range g.Actors {
		na := ng.AddActor(a.Name)
		na.DefaultProcessor = a.DefaultProcessor
		for proc, t := range a.ExecTimes {
			na.ExecTimes[proc] = t
		}
	}
	for _, c := range g.Channels {
		nc := ng.AddChannel(c.Name, c.Src, c.Dst, c.SrcRate, c.DstRate, c.InitialTokens)
		nc.StorageOf = c.StorageOf
		nc.TokenSize = c.TokenSize
		nc.MinBandwidth = c.MinBandwidth
		nc.MinLatency = c.MinLatency
	}
	return ng
}

// Validate checks the structural invariants the analyses rely on: positive
// rates, endpoint ids in range, and storage back-references that resolve.
func (g *Graph) Validate() error {
	for _, c := range g.Channels {
		if c.SrcRate == 0 || c.DstRate == 0 {
			return fmt.Errorf("Validate: channel %q has a zero rate", c.Name)
		}
		if int(c.Src) >= len(g.Actors) || int(c.Dst) >= len(g.Actors) || c.Src < 0 || c.Dst < 0 {
			return fmt.Errorf("Validate: channel %q references an unknown actor", c.Name)
		}
		if c.StorageOf != NoChannel && (c.StorageOf < 0 || int(c.StorageOf) >= len(g.Channels)) {
			return fmt.Errorf("Validate: channel %q models storage of an unknown channel", c.Name)
		}
	}
	return nil
}
