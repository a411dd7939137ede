// Package state holds the grid's current result set.
//
// # Overview
//
// The Store is the single place where a fetched result set becomes visible
// to the rest of marina. Fetches for the grid run on their own goroutines and
// may complete in any order; the Store decides which completion wins.
//
// # Generations
//
// Before a fetch is started the caller reserves a generation with Issue.
// When the fetch completes the caller hands its result to Update together
// with that generation:
//
//	gen := store.Issue()
//	recs, err := fetch(ctx, key)
//	if !store.Update(gen, resultFor(key, recs, err)) {
//		// a newer fetch was issued meanwhile; this result is stale
//	}
//
// Only the newest issued generation is accepted. A slow response for an old
// filter key can therefore never overwrite the result of a newer key, even
// when the transport delivers out of order.
//
// # Update Semantics
//
//	// Success case: replace the result set
//	store.Update(gen, records.NewResultSet(key, recs))
//	→ snapshot.Result.Records = recs
//	→ snapshot.Result.Err = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Error case: replace the result set with the error alone
//	store.Update(gen, records.FailedResultSet(key, err))
//	→ snapshot.Result.Records = nil
//	→ snapshot.Result.Err = err
//	→ snapshot.ConsecutiveFailures++
//
// Unlike a monitoring dashboard, a results grid must not keep showing rows
// that belong to a failed query, so an error drops the previous records.
//
// # Concurrency Model
//
// The Store uses a readers-writer lock. The lock is held only while copying,
// never during network I/O or rendering. Both Update and Snapshot deep-copy
// records so the rendering layer can never mutate stored data.
//
// # Testing Considerations
//
// The zero value is ready to use: Snapshot returns a zero Snapshot with
// HasResult false until the first accepted Update.
package state
