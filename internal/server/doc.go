// Package server provides the HTTP and websocket surface.
//
// Echo-based routing: the overlay websocket endpoint, control-plane publish
// handlers, subscriber-count queries, health probes, and Prometheus metrics.
// Connection limits (global, per-IP, rate) guard the websocket accept path.
package server
