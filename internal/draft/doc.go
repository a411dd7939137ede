// Package draft accumulates pending cell edits until they are saved.
//
// A Buffer keeps at most one edit per (record, field); a later edit replaces
// an earlier one. Discard removes only the entries that still hold the
// committed value, so edits typed while a save is in flight survive it.
package draft
