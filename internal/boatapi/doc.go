// Package boatapi is the HTTP face of the boat record service.
//
// Client implements the grid's fetch and persist contracts against a remote
// service:
//
//	GET  /api/boats?boatTypeId=<key>[&refresh=1]
//	POST /api/boats/batch          {"data": [{"id": ..., "<field>": ...}]}
//	GET  /api/boat-types
//
// Handler serves the same routes over a local Backend such as
// *catalog.Store. Listings carry an ETag; a refresh that sends the last ETag
// back gets 304 Not Modified when nothing changed, and the client then
// reuses the records it already holds.
//
// Failed requests come back as *records.ServerError with the service's
// message when the body carries one.
package boatapi
