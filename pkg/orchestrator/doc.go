// Package orchestrator wires catalog lookup, parameter resolution, rendering
// and packet emission into a single entry point.
package orchestrator
