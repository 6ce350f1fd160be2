// Package ringbuffer implements the coordination substrate for moving
// events from one or more producers to one or more consumers across
// goroutines without allocating on the hot path: a pre-allocated ring,
// padded sequence counters, single- and multi-producer sequencers, a
// family of wait strategies, a sequence barrier, and batch event
// processors with a pluggable exception policy.
package ringbuffer
