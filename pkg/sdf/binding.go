package sdf

import "fmt"

// TileNotBound marks an actor that is not bound to any tile.
const TileNotBound = -1

// TileSchedule is the static-order schedule of one tile: the sequence of
// actor firings the processor executes, with a loop-back index into the
// periodic part of the schedule.
type TileSchedule struct {
	// Order lists the actors in firing order.
	Order []ActorID

	// StartPeriodic is the index the schedule loops back to after its last
	// entry. A fully periodic schedule uses 0.
	StartPeriodic int
}

// Next returns the schedule position following pos.
func (s *TileSchedule) Next(pos int) int {
	if pos+1 == len(s.Order) {
		return s.StartPeriodic
	}
	return pos + 1
}

// Binding carries the platform state the transition system needs to simulate
// a binding-aware graph: the tile each actor is bound to, the static-order
// schedule per tile, and the TDMA wheel configuration per tile. A nil Binding
// selects plain self-timed simulation.
type Binding struct {
	// ActorTile maps actor id to tile id, or TileNotBound.
	ActorTile []int

	// Schedules, WheelSize and Slice are indexed by tile id.
	Schedules []TileSchedule
	WheelSize []uint64
	Slice     []uint64
}

// NrTiles returns the number of tiles in the binding.
func (b *Binding) NrTiles() int {
	return len(b.Schedules)
}

// Tile returns the tile the actor is bound to, or TileNotBound.
func (b *Binding) Tile(a ActorID) int {
	if int(a) >= len(b.ActorTile) {
		return TileNotBound
	}
	return b.ActorTile[int(a)]
}

// check verifies that every bound actor sits on a tile with a non-empty
// static-order schedule and a sane TDMA configuration.
func (b *Binding) check(g *Graph) error {
	for _, a := range g.Actors {
		t := b.Tile(a.ID)
		if t == TileNotBound {
			continue
		}
		if t < 0 || t >= b.NrTiles() {
			return fmt.Errorf("Binding: actor %q bound to unknown tile %d", a.Name, t)
		}
		if len(b.Schedules[t].Order) == 0 {
			return fmt.Errorf("Binding: actor %q mapped to a tile without a schedule", a.Name)
		}
	}
	for t := 0; t < b.NrTiles(); t++ {
		if b.WheelSize[t] == 0 || b.Slice[t] == 0 || b.Slice[t] > b.WheelSize[t] {
			return fmt.Errorf("Binding: tile %d has an invalid TDMA wheel (%d/%d)",
				t, b.Slice[t], b.WheelSize[t])
		}
	}
	return nil
}
