// Package records defines the values the grid works with: typed cell
// values, boat records, result sets, draft edits and the row patches a batch
// save sends.
//
// Currency is held in integer cents and travels on the wire as a decimal
// number in whole units. ServerError carries a message from the record
// service that can be shown to the user as is; MessageOf extracts it.
package records
