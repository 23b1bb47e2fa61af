// Package sdfio loads application graphs, platform graphs and mappings from
// YAML documents. It exists for the command-line tool; the analyses in
// package sdf consume the in-memory model only.
package sdfio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/sdflow/pkg/platform"
	"github.com/gitrdm/sdflow/pkg/sdf"
)

// GraphDoc is the YAML representation of an application graph.
type GraphDoc struct {
	Name     string       `yaml:"name"`
	Actors   []ActorDoc   `yaml:"actors"`
	Channels []ChannelDoc `yaml:"channels"`
}

// ActorDoc describes one actor.
type ActorDoc struct {
	Name             string            `yaml:"name"`
	ExecTimes        map[string]uint64 `yaml:"execTimes"`
	DefaultProcessor string            `yaml:"defaultProcessor"`
}

// ChannelDoc describes one channel by actor names.
type ChannelDoc struct {
	Name          string  `yaml:"name"`
	Src           string  `yaml:"src"`
	Dst           string  `yaml:"dst"`
	SrcRate       uint64  `yaml:"srcRate"`
	DstRate       uint64  `yaml:"dstRate"`
	InitialTokens uint64  `yaml:"initialTokens"`
	TokenSize     uint64  `yaml:"tokenSize"`
	MinBandwidth  float64 `yaml:"minBandwidth"`
	MinLatency    uint64  `yaml:"minLatency"`
}

// PlatformDoc is the YAML representation of a platform graph.
type PlatformDoc struct {
	Name        string          `yaml:"name"`
	Tiles       []TileDoc       `yaml:"tiles"`
	Connections []ConnectionDoc `yaml:"connections"`
}

// TileDoc describes one tile.
type TileDoc struct {
	Name          string `yaml:"name"`
	ProcessorType string `yaml:"processorType"`
	WheelSize     uint64 `yaml:"wheelSize"`
	Slice         uint64 `yaml:"slice"`
	Memory        uint64 `yaml:"memory"`
}

// ConnectionDoc describes one connection by tile names.
type ConnectionDoc struct {
	Name    string `yaml:"name"`
	Src     string `yaml:"src"`
	Dst     string `yaml:"dst"`
	Latency uint64 `yaml:"latency"`
}

// MappingDoc is the YAML representation of a mapping, by name.
type MappingDoc struct {
	Actors    map[string]string        `yaml:"actors"`
	Channels  map[string]string        `yaml:"channels"`
	Buffers   map[string]BufferSizeDoc `yaml:"buffers"`
	Schedules map[string][]string      `yaml:"schedules"`
}

// BufferSizeDoc describes the storage allocation of one channel.
type BufferSizeDoc struct {
	Src uint64 `yaml:"src"`
	Dst uint64 `yaml:"dst"`
	Mem uint64 `yaml:"mem"`
}

// LoadGraph reads an application graph document.
func LoadGraph(path string) (*sdf.Graph, error) {
	var doc GraphDoc
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	return BuildGraph(&doc)
}

// BuildGraph converts a graph document into the in-memory model.
func BuildGraph(doc *GraphDoc) (*sdf.Graph, error) {
	g := sdf.NewGraph(doc.Name)
	byName := make(map[string]sdf.ActorID, len(doc.Actors))
	for _, ad := range doc.Actors {
		if _, dup := byName[ad.Name]; dup {
			return nil, fmt.Errorf("BuildGraph: duplicate actor %q", ad.Name)
		}
		a := g.AddActor(ad.Name)
		for proc, t := range ad.ExecTimes {
			a.SetExecTime(proc, t)
		}
		a.DefaultProcessor = ad.DefaultProcessor
		byName[ad.Name] = a.ID
	}
	for _, cd := range doc.Channels {
		src, ok := byName[cd.Src]
		if !ok {
			return nil, fmt.Errorf("BuildGraph: channel %q: unknown actor %q", cd.Name, cd.Src)
		}
		dst, ok := byName[cd.Dst]
		if !ok {
			return nil, fmt.Errorf("BuildGraph: channel %q: unknown actor %q", cd.Name, cd.Dst)
		}
		c := g.AddChannel(cd.Name, src, dst, cd.SrcRate, cd.DstRate, cd.InitialTokens)
		c.TokenSize = cd.TokenSize
		c.MinBandwidth = cd.MinBandwidth
		c.MinLatency = cd.MinLatency
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadPlatform reads a platform graph document.
func LoadPlatform(path string) (*platform.Graph, error) {
	var doc PlatformDoc
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	return BuildPlatform(&doc)
}

// BuildPlatform converts a platform document into the in-memory model.
func BuildPlatform(doc *PlatformDoc) (*platform.Graph, error) {
	pg := platform.NewGraph(doc.Name)
	byName := make(map[string]platform.TileID, len(doc.Tiles))
	for _, td := range doc.Tiles {
		if _, dup := byName[td.Name]; dup {
			return nil, fmt.Errorf("BuildPlatform: duplicate tile %q", td.Name)
		}
		t := pg.AddTile(td.Name, td.ProcessorType, td.WheelSize, td.Slice, td.Memory)
		byName[td.Name] = t.ID
	}
	for _, cd := range doc.Connections {
		src, ok := byName[cd.Src]
		if !ok {
			return nil, fmt.Errorf("BuildPlatform: connection %q: unknown tile %q", cd.Name, cd.Src)
		}
		dst, ok := byName[cd.Dst]
		if !ok {
			return nil, fmt.Errorf("BuildPlatform: connection %q: unknown tile %q", cd.Name, cd.Dst)
		}
		pg.AddConnection(cd.Name, src, dst, cd.Latency)
	}
	return pg, nil
}

// LoadMapping reads a mapping document and resolves it against the
// application and platform graphs. Binding the same actor or channel twice
// is rejected.
func LoadMapping(path string, g *sdf.Graph, pg *platform.Graph) (*platform.Mapping, error) {
	var doc MappingDoc
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	return BuildMapping(&doc, g, pg)
}

// BuildMapping converts a mapping document into the in-memory model.
func BuildMapping(doc *MappingDoc, g *sdf.Graph, pg *platform.Graph) (*platform.Mapping, error) {
	actorID := make(map[string]sdf.ActorID)
	for _, a := range g.Actors {
		actorID[a.Name] = a.ID
	}
	channelID := make(map[string]sdf.ChannelID)
	for _, c := range g.Channels {
		channelID[c.Name] = c.ID
	}
	tileID := make(map[string]platform.TileID)
	for _, t := range pg.Tiles {
		tileID[t.Name] = t.ID
	}
	connID := make(map[string]platform.ConnectionID)
	for _, c := range pg.Connections {
		connID[c.Name] = c.ID
	}

	m := platform.NewMapping(g.NrActors(), g.NrChannels(), pg.NrTiles())

	for name, tile := range doc.Actors {
		a, ok := actorID[name]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown actor %q", name)
		}
		t, ok := tileID[tile]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown tile %q", tile)
		}
		if err := m.BindActor(int(a), int(t)); err != nil {
			return nil, err
		}
	}
	for name, conn := range doc.Channels {
		c, ok := channelID[name]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown channel %q", name)
		}
		cn, ok := connID[conn]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown connection %q", conn)
		}
		if err := m.BindChannel(int(c), int(cn)); err != nil {
			return nil, err
		}
	}
	for name, buf := range doc.Buffers {
		c, ok := channelID[name]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown channel %q", name)
		}
		m.BufferSizes[c] = platform.BufferSize{Src: buf.Src, Dst: buf.Dst, Mem: buf.Mem}
	}
	for tile, order := range doc.Schedules {
		t, ok := tileID[tile]
		if !ok {
			return nil, fmt.Errorf("BuildMapping: unknown tile %q", tile)
		}
		var s platform.StaticOrderSchedule
		for _, name := range order {
			a, ok := actorID[name]
			if !ok {
				return nil, fmt.Errorf("BuildMapping: schedule of %q names unknown actor %q", tile, name)
			}
			s.Append(int(a))
		}
		m.Schedules[t] = s
	}
	return m, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sdfio: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("sdfio: %s: %w", path, err)
	}
	return nil
}
