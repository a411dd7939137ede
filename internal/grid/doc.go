// Package grid is the composition root of the results grid.
//
// A Controller turns user intent into calls on the collaborators it owns:
//
//	Search / Refresh      → binding (inside a loading bracket)
//	OnRowSelected         → selection broadcaster
//	OnCellsEdited         → draft buffer
//	OnSaveTriggered       → save orchestrator
//
// Read access (ResultSet, FilterKey, Drafts, Busy, Selected, LastError) is
// safe from any goroutine. Close cancels outstanding fetches.
package grid
