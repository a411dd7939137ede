// Package save commits the pending draft edits as one batch.
//
// # Commit Sequence
//
// Orchestrator.Commit runs, in order:
//
//  1. open a busy bracket on the loading signal
//  2. persist every buffered edit in a single batch
//  3. on success: notify "Success", discard the committed edits and wait
//     for a refresh of the current result set
//  4. on failure: notify "Error" with the server's message and leave the
//     buffer untouched
//  5. close the busy bracket
//
// The grid is idle only after the refresh has settled. A refresh failure
// after a successful persist is reported as a separate "Refresh failed"
// notification and in Outcome.RefreshErr.
//
// Only one commit runs at a time. A second call while one is in flight
// returns ErrCommitInFlight without persisting anything.
package save
