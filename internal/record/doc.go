// Package record holds the in-memory record engine: immutable element
// value records and the groupable, cacheable Collection that contains them.
//
// Records resolve their station, variable, and timestamp lazily through a
// shared Resolver, which bundles the external lookup collaborator and the
// sub-hour group registry. A Collection builds five independent indexes on
// demand (station, variable, timestamp, station-local day, observation),
// each mapping a key to a nested Collection, and drops all of them whenever
// its backing sequence changes.
//
// Neither Record nor Collection is safe for concurrent use. Callers that
// share a Collection between goroutines must serialize every call,
// including read-only ones: lookups build caches.
package record
