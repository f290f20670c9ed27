// Package publisher builds control-event envelopes and tracks their
// acknowledgment lifecycle.
//
// Every publish stamps the event with a UUID and epoch-millisecond timestamp,
// hands it to the hub, and records a pending-ack entry bounded by the
// configured ack timeout. Whichever of ack, timeout, or cleanup reaches an
// entry first deletes it; the others are guaranteed no-ops. Delivery is fire
// and forget: callers never observe ack outcomes.
package publisher
