package sdfio

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/sdflow/pkg/platform"
)

const graphYAML = `
name: pipeline
actors:
  - name: A
    execTimes: {arm: 2}
    defaultProcessor: arm
  - name: B
    execTimes: {arm: 3}
    defaultProcessor: arm
channels:
  - name: ab
    src: A
    dst: B
    srcRate: 1
    dstRate: 1
    initialTokens: 0
    tokenSize: 64
    minBandwidth: 32
`

const platformYAML = `
name: plat
tiles:
  - name: t0
    processorType: arm
    wheelSize: 4
    slice: 1
    memory: 16
  - name: t1
    processorType: arm
    wheelSize: 4
    slice: 1
    memory: 16
connections:
  - name: c01
    src: t0
    dst: t1
    latency: 2
`

const mappingYAML = `
actors:
  A: t0
  B: t1
channels:
  ab: c01
buffers:
  ab: {src: 2, dst: 2}
schedules:
  t0: [A]
  t1: [B]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph(writeTemp(t, "g.yaml", graphYAML))
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if g.Name != "pipeline" || g.NrActors() != 2 || g.NrChannels() != 1 {
		t.Fatalf("got %q %d/%d, want pipeline 2/1", g.Name, g.NrActors(), g.NrChannels())
	}
	if g.Actor(0).ExecutionTime() != 2 {
		t.Errorf("A execution time = %d, want 2", g.Actor(0).ExecutionTime())
	}
	c := g.Channel(0)
	if c.Src != 0 || c.Dst != 1 || c.TokenSize != 64 || c.MinBandwidth != 32 {
		t.Errorf("channel = %+v, want resolved A->B with token attributes", c)
	}
}

func TestBuildGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  GraphDoc
	}{
		{"duplicate actor", GraphDoc{Actors: []ActorDoc{{Name: "A"}, {Name: "A"}}}},
		{"unknown source", GraphDoc{
			Actors:   []ActorDoc{{Name: "A"}},
			Channels: []ChannelDoc{{Name: "x", Src: "Z", Dst: "A", SrcRate: 1, DstRate: 1}},
		}},
		{"zero rate", GraphDoc{
			Actors:   []ActorDoc{{Name: "A"}, {Name: "B"}},
			Channels: []ChannelDoc{{Name: "x", Src: "A", Dst: "B", SrcRate: 0, DstRate: 1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildGraph(&tt.doc); err == nil {
				t.Error("BuildGraph() accepted an invalid document")
			}
		})
	}
}

func TestLoadMapping(t *testing.T) {
	g, err := LoadGraph(writeTemp(t, "g.yaml", graphYAML))
	if err != nil {
		t.Fatal(err)
	}
	pg, err := LoadPlatform(writeTemp(t, "p.yaml", platformYAML))
	if err != nil {
		t.Fatal(err)
	}
	m, err := LoadMapping(writeTemp(t, "m.yaml", mappingYAML), g, pg)
	if err != nil {
		t.Fatalf("LoadMapping() error = %v", err)
	}

	if m.ActorToTile[0] != 0 || m.ActorToTile[1] != 1 {
		t.Errorf("actor binding = %v, want [0 1]", m.ActorToTile)
	}
	if m.ChannelToConnection[0] != 0 {
		t.Errorf("channel binding = %v, want [0]", m.ChannelToConnection)
	}
	if m.BufferSizes[0] != (platform.BufferSize{Src: 2, Dst: 2}) {
		t.Errorf("buffer sizes = %+v", m.BufferSizes[0])
	}
	if len(m.Schedules[1].Order) != 1 || m.Schedules[1].Order[0] != 1 {
		t.Errorf("schedule t1 = %+v, want [B]", m.Schedules[1])
	}
	if err := m.Validate(pg); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuildMappingRejectsUnknownNames(t *testing.T) {
	g, _ := BuildGraph(&GraphDoc{
		Actors:   []ActorDoc{{Name: "A"}, {Name: "B"}},
		Channels: []ChannelDoc{{Name: "ab", Src: "A", Dst: "B", SrcRate: 1, DstRate: 1}},
	})
	pg, _ := BuildPlatform(&PlatformDoc{Tiles: []TileDoc{{Name: "t0"}}})

	if _, err := BuildMapping(&MappingDoc{Actors: map[string]string{"Z": "t0"}}, g, pg); err == nil {
		t.Error("unknown actor accepted")
	}
	if _, err := BuildMapping(&MappingDoc{Actors: map[string]string{"A": "tX"}}, g, pg); err == nil {
		t.Error("unknown tile accepted")
	}
	if _, err := BuildMapping(&MappingDoc{Schedules: map[string][]string{"t0": {"Z"}}}, g, pg); err == nil {
		t.Error("unknown schedule actor accepted")
	}
}

func TestDocRoundTrip(t *testing.T) {
	var doc GraphDoc
	if err := yaml.Unmarshal([]byte(graphYAML), &doc); err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		t.Fatal(err)
	}
	var again GraphDoc
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if len(again.Actors) != 2 || len(again.Channels) != 1 {
		t.Errorf("round trip lost entries: %+v", again)
	}
}
