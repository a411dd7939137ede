package boatapi

import (
	"github.com/five82/marina/internal/catalog"
	"github.com/five82/marina/internal/records"
)

// BoatListResponse mirrors GET /api/boats.
type BoatListResponse struct {
	Boats []records.Record `json:"boats"`
}

// BatchUpdateRequest mirrors the POST /api/boats/batch body: one entry per
// edited row, each carrying the record id and its changed fields.
type BatchUpdateRequest struct {
	Data []records.RowPatch `json:"data"`
}

// BoatType is one selectable filter key.
type BoatType = catalog.BoatType

// BoatTypeListResponse mirrors GET /api/boat-types.
type BoatTypeListResponse struct {
	Types []BoatType `json:"types"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}
