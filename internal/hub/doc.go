// Package hub implements the overlay connection hub using the actor pattern.
//
// A single goroutine owns the connection registry and per-channel subscription
// sets; all mutations arrive over a typed command channel (no mutexes on the
// registry). Per-connection write goroutines absorb slow clients gracefully.
// Subscriber counts are mirrored into a read-optimized side table so count
// queries never block on the actor loop.
package hub
