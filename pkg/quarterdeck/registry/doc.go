// Package registry implements the named, schema-validated, concurrency-
// safe command dispatch shared by actions and signals.
//
// Both registries carry the same contract and differ only in the verb
// collaborators use: Actions.Run for client-invoked commands, and
// Signals.Handle for externally originated events. In either case the
// payload is validated against the entry's declared schema before the
// handler is invoked.
package registry
