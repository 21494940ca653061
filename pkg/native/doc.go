// Package native describes the capabilities a hierarchical, time-sampled
// archive engine must expose to the cask object graph.
//
// The interfaces mirror the two disjoint views an engine keeps of every node:
// an immutable reader over data already on disk and an append-only writer for
// data being assembled. Engines hand samples across the boundary as flat typed
// slices, one slice per sample, whose element type follows the property's POD.
package native
