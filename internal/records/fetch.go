package records

// FetchRequest asks the record service for the records matching Key.
//
// A refresh request re-fetches the same key and carries the last known
// result as a hint, so transports that cache by key know to bypass the
// cached entry.
type FetchRequest struct {
	Key      FilterKey
	Refresh  bool
	Previous ResultSet
}
