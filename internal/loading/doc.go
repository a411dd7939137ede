// Package loading tracks the grid's busy/idle state.
//
// A Signal counts open busy brackets. Every SetBusy and SetIdle call emits
// exactly one event to the registered listeners, whatever the current state.
// IsBusy stays true until every bracket opened with SetBusy has been closed,
// and the count never drops below zero.
//
// Callers should prefer Acquire, which returns a release func that closes its
// bracket exactly once:
//
//	release := sig.Acquire()
//	defer release()
package loading
