package sdf

import "errors"

// Sentinel errors returned by the analyses. A deadlocked simulation is not an
// error: the simulator reports it as zero throughput with the dependency
// vector filled in.
var (
	// ErrInconsistent is returned when the balance equations of the graph
	// admit no positive integer solution.
	ErrInconsistent = errors.New("sdf: graph is not consistent")

	// ErrNotConnected is returned when the graph is not connected. The
	// repetition vector of a disconnected graph is not uniquely defined.
	ErrNotConnected = errors.New("sdf: graph is not connected")

	// ErrStateLimit is returned when the stored-state list of a simulation
	// run grows beyond the configured cap. The dependency vector of the
	// aborted run conservatively marks every channel as dependent.
	ErrStateLimit = errors.New("sdf: stored-state limit exceeded")
)
