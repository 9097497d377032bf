// Package state implements the TTL-aware key-value store that drives
// observer-visible indicators.
//
// Every mutation publishes a change notification through the event bus:
// writes emit state.changed, removals and discovered expiries emit
// state.cleared. Reads transparently treat entries past their expiry as
// absent, so a background sweep is an optimization for notification
// latency, never a requirement for read freshness.
package state
