// Package credstore abstracts the shared backing store that owns all
// cross-process credential state: revoked token identifiers, the
// refresh-token whitelist, and sliding-window request counters.
//
// # Implementations
//
//   - [Redis]: production store shared by all workers. The window
//     transaction runs as a single Lua script so the prune/count/add
//     sequence cannot interleave with a concurrent request on the same
//     key, and single-use consumption maps to GETDEL. Every call carries
//     a bounded timeout.
//   - [Memory]: single-process store for tests and local development.
//
// # Architecture boundaries
//
// This package owns persistence primitives only. It does NOT decide
// whether a token is valid, whether a request is admitted, or how keys
// are named. Those responsibilities belong to internal/revoke and
// internal/rate.
//
// # What this package must NOT do
//
//   - Implement read-then-write sequences where the store offers an
//     atomic primitive.
//   - Log or expose stored values.
package credstore
