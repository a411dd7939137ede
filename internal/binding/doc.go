// Package binding keeps the grid's result set bound to its filter key.
//
// Resolve replaces the filter key and starts one fetch on its own goroutine;
// it returns a Resolution handle that can be waited on or cancelled. Results
// are written through a state.Store, which tags every fetch with a
// generation so that a response for an older key can never overwrite the
// result of a newer one. ForceRefresh re-fetches the current key in refresh
// mode and blocks until the result is stored, so callers can sequence work
// after it.
//
// A fetch error replaces the result set with the error alone. Fetch errors
// never escape as panics: a panicking transport is reported as an error.
package binding
