// Package sdf provides state-space analysis of timed synchronous dataflow
// graphs (SDFGs). The package answers two coupled questions about a graph:
// the maximum long-run throughput achievable under self-timed execution, and
// the set of Pareto-minimal per-channel storage allocations that meet a given
// throughput bound.
//
// The analysis is built from a small number of cooperating components:
//   - Repetition vector: solves the balance equations of a consistent graph
//     and selects the output actor that frames one iteration.
//   - Transition system: a deterministic fire/end/clock-step simulator over a
//     symbolic State. It detects recurrent states at iteration boundaries,
//     derives a rational throughput from the recurrence, and traces causal
//     and deadlock dependencies between actors.
//   - Dependency analyser: a depth-first search over an abstract actor-level
//     reachability matrix that classifies channels on dependency cycles as
//     storage blocking.
//   - Distribution lattice: an ordered collection of storage distributions
//     keyed by total size, with deduplication and pruning of non-minimal
//     points.
//   - Explorer: seeds the lattice with the minimum feasible distribution,
//     simulates each candidate, enlarges channels that showed a storage
//     dependency, and stops on a throughput bound or on saturation.
//
// All analyses are single-threaded and synchronous: one call owns its graph
// view, transition system, and lattice, and there is no shared mutable state
// between calls. Callers may run independent analyses concurrently on
// separate engines. The optional intra-set parallelism of the explorer
// preserves deterministic results by merging simulation outcomes in index
// order.
//
// Graphs that have been bound to a multi-tile platform are analysed by the
// same engine: package bindaware folds the binding back into the graph as
// auxiliary actors and channels and supplies a Binding that adds static-order
// schedule and TDMA wheel state to the simulation.
package sdf
