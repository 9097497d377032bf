// Package event provides the envelope record and the in-memory pub/sub
// bus at the center of quarterdeck.
//
// An Envelope is the versioned, attributed wrapper around every published
// event: a namespaced type, a {kind, id} source pair, a structured
// payload, a timestamp in seconds since epoch, and a schema version.
// Envelopes are built once and never mutated.
//
// The Bus maintains the set of currently connected observers and fans
// each published envelope out to all of them. Delivery guarantees:
//   - snapshot semantics: a subscriber added during delivery does not
//     receive that envelope
//   - FIFO per subscriber: each subscriber observes envelopes in the
//     order Publish was called
//   - isolation: a slow or failing subscriber never blocks a publisher
//     or delays delivery to other subscribers
//
// Backpressure is an explicit tunable (BusConfig.Policy): a full
// subscriber queue either evicts the oldest envelope, discards the
// newest, or disconnects the subscriber.
package event
