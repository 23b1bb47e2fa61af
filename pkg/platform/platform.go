// Package platform models the multi-tile target a dataflow graph is bound
// to: tiles with TDMA-arbitrated processors, the connections between them,
// and the mapping that assigns actors to tiles, channels to connections, and
// a static-order schedule per tile.
package platform

import "fmt"

// TileID identifies a tile within a platform graph. Ids are dense in [0, T).
type TileID int

// ConnectionID identifies a connection within a platform graph.
type ConnectionID int

// NotBound marks an unmapped actor or channel.
const NotBound = -1

// Tile is a processing element with a TDMA-arbitrated processor.
type Tile struct {
	ID   TileID
	Name string

	// ProcessorType selects the execution-time entry of actors bound to the
	// tile.
	ProcessorType string

	// WheelSize is the TDMA wheel period of the processor and Slice the part
	// of it reserved for the application, both in ticks.
	WheelSize uint64
	Slice     uint64

	// Memory is the tile-local storage available for channel buffers, in
	// tokens.
	Memory uint64
}

// Connection is a point-to-point link between two tiles.
type Connection struct {
	ID   ConnectionID
	Name string

	Src TileID
	Dst TileID

	// Latency is the transfer delay of the connection in ticks.
	Latency uint64
}

// Graph is a platform: tiles and the connections between them.
type Graph struct {
	Name        string
	Tiles       []*Tile
	Connections []*Connection
}

// NewGraph returns an empty platform graph.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddTile appends a tile and returns it.
func (g *Graph) AddTile(name, processorType string, wheelSize, slice, memory uint64) *Tile {
	t := &Tile{
		ID:            TileID(len(g.Tiles)),
		Name:          name,
		ProcessorType: processorType,
		WheelSize:     wheelSize,
		Slice:         slice,
		Memory:        memory,
	}
	g.Tiles = append(g.Tiles, t)
	return t
}

// AddConnection appends a connection between two tiles and returns it.
func (g *Graph) AddConnection(name string, src, dst TileID, latency uint64) *Connection {
	c := &Connection{
		ID:      ConnectionID(len(g.Connections)),
		Name:    name,
		Src:     src,
		Dst:     dst,
		Latency: latency,
	}
	g.Connections = append(g.Connections, c)
	return c
}

// Tile returns the tile with the given id.
func (g *Graph) Tile(id TileID) *Tile {
	return g.Tiles[int(id)]
}

// Connection returns the connection with the given id.
func (g *Graph) Connection(id ConnectionID) *Connection {
	return g.Connections[int(id)]
}

// NrTiles returns the number of tiles.
func (g *Graph) NrTiles() int {
	return len(g.Tiles)
}

// BufferSize is the storage allocation of one channel under a mapping, in
// tokens: memory on a shared tile, or the source and destination side
// buffers of a connection.
type BufferSize struct {
	Src uint64
	Dst uint64
	Mem uint64
}

// Mapping binds an application graph to a platform graph. Actor and channel
// indices refer to the application graph's dense ids.
type Mapping struct {
	// ActorToTile maps actor id to tile id, NotBound for unmapped actors.
	ActorToTile []int

	// ChannelToConnection maps channel id to connection id, NotBound for
	// channels whose endpoints share a tile.
	ChannelToConnection []int

	// BufferSizes holds the storage allocation per channel id.
	BufferSizes []BufferSize

	// Schedules holds the static-order schedule per tile id.
	Schedules []StaticOrderSchedule
}

// NewMapping returns an empty mapping for an application with the given
// number of actors and channels on a platform with the given number of tiles.
func NewMapping(nrActors, nrChannels, nrTiles int) *Mapping {
	m := &Mapping{
		ActorToTile:         make([]int, nrActors),
		ChannelToConnection: make([]int, nrChannels),
		BufferSizes:         make([]BufferSize, nrChannels),
		Schedules:           make([]StaticOrderSchedule, nrTiles),
	}
	for i := range m.ActorToTile {
		m.ActorToTile[i] = NotBound
	}
	for i := range m.ChannelToConnection {
		m.ChannelToConnection[i] = NotBound
	}
	return m
}

// BindActor binds an actor to a tile. Binding an actor twice is invalid.
func (m *Mapping) BindActor(actor, tile int) error {
	if m.ActorToTile[actor] != NotBound {
		return mappingErrorf("actor %d bound to two tiles", actor)
	}
	m.ActorToTile[actor] = tile
	return nil
}

// BindChannel binds a channel to a connection. Binding a channel twice is
// invalid.
func (m *Mapping) BindChannel(channel, connection int) error {
	if m.ChannelToConnection[channel] != NotBound {
		return mappingErrorf("channel %d bound to two connections", channel)
	}
	m.ChannelToConnection[channel] = connection
	return nil
}

// MappingError reports an invalid binding of an application to a platform.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string {
	return "platform: invalid mapping: " + e.Reason
}

func mappingErrorf(format string, args ...interface{}) error {
	return &MappingError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural part of a mapping against the platform:
// ids in range and schedules naming only actors bound to their tile. The checks that
// need the application graph (endpoint tiles matching connection endpoints,
// memory versus initial tokens) are performed by the binding-aware rewrite.
func (m *Mapping) Validate(pg *Graph) error {
	for a, t := range m.ActorToTile {
		if t == NotBound {
			continue
		}
		if t < 0 || t >= pg.NrTiles() {
			return mappingErrorf("actor %d bound to unknown tile %d", a, t)
		}
	}
	for c, cn := range m.ChannelToConnection {
		if cn == NotBound {
			continue
		}
		if cn < 0 || cn >= len(pg.Connections) {
			return mappingErrorf("channel %d bound to unknown connection %d", c, cn)
		}
	}
	if len(m.Schedules) != pg.NrTiles() {
		return mappingErrorf("mapping carries %d schedules for %d tiles",
			len(m.Schedules), pg.NrTiles())
	}
	for t := range m.Schedules {
		for _, a := range m.Schedules[t].Order {
			if a < 0 || a >= len(m.ActorToTile) || m.ActorToTile[a] != t {
				return mappingErrorf("schedule of tile %d names actor %d, which is not bound to it", t, a)
			}
		}
	}
	return nil
}
