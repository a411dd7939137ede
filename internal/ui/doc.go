// Package ui is marina's terminal grid, built on bubbletea.
//
// The screen has four bands: a header (boat type, record count, pending
// edits, selection, busy spinner), the boat table, a status line that hosts
// the filter and edit prompts or the latest notification, and a command bar.
//
// The model never touches records directly. Every user action becomes a
// call on the Grid interface (*grid.Controller in production):
//
//	/        filter prompt          -> Search
//	f        cycle boat types       -> Search
//	e        edit focused cell      -> OnCellsEdited
//	s        save pending edits     -> OnSaveTriggered
//	r        refresh                -> Refresh
//	enter    select row             -> OnRowSelected
//	x        discard pending edits  -> DiscardDrafts
//
// Controller callbacks arrive on other goroutines. Events queues them for the
// update loop: loading events re-read Busy, result events rebuild the rows,
// and notifications become a toast that clears itself after a few seconds.
// Save and refresh block until settled, so they run as tea.Cmds.
//
// Cells holding an unsaved edit are shown with a leading "*". The `v` key
// switches to a tail of the marina log file; `T` cycles themes and stores the
// choice in prefs.
package ui
