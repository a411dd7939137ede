package boatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/five82/marina/internal/catalog"
	"github.com/five82/marina/internal/records"
)

// Backend is the record service the handler exposes. *catalog.Store
// satisfies it.
type Backend interface {
	FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error)
	PersistBatch(ctx context.Context, edits []records.DraftEdit) error
	BoatTypes(ctx context.Context) ([]catalog.BoatType, error)
}

var _ Backend = (*catalog.Store)(nil)

const maxBatchBody = 1 << 20

// Handler serves the boat API over a Backend.
type Handler struct {
	backend Backend
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewHandler builds the API routes.
func NewHandler(backend Backend, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{backend: backend, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/boats", h.listBoats)
	h.mux.HandleFunc("POST /api/boats/batch", h.batchUpdate)
	h.mux.HandleFunc("GET /api/boat-types", h.listBoatTypes)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) listBoats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := records.FetchRequest{
		Key:     records.FilterKey(q.Get("boatTypeId")),
		Refresh: q.Get("refresh") == "1",
	}
	start := time.Now()
	boats, err := h.backend.FetchRecords(r.Context(), req)
	if err != nil {
		h.logger.Warn("list boats failed", zap.String("filter_key", string(req.Key)), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, records.MessageOf(err))
		return
	}
	h.logger.Debug("listed boats",
		zap.String("filter_key", string(req.Key)),
		zap.Bool("refresh", req.Refresh),
		zap.Int("records", len(boats)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if boats == nil {
		boats = []records.Record{}
	}
	body, err := json.Marshal(BoatListResponse{Boats: boats})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("encode boats: %v", err))
		return
	}
	etag := etagOf(body)
	w.Header().Set("ETag", etag)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Debug("write response failed", zap.Error(err))
	}
}

// etagOf is a strong validator over the encoded listing.
func etagOf(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// matchesETag reports whether an If-None-Match header names etag.
func matchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		c := strings.TrimSpace(candidate)
		if c == "*" || c == etag || c == "W/"+etag {
			return true
		}
	}
	return false
}

func (h *Handler) batchUpdate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	var body BatchUpdateRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
		return
	}
	edits := records.Edits(body.Data)
	if err := h.backend.PersistBatch(r.Context(), edits); err != nil {
		h.logger.Warn("batch update failed", zap.Int("edits", len(edits)), zap.Error(err))
		h.writeError(w, statusOf(err), records.MessageOf(err))
		return
	}
	h.logger.Info("batch update applied", zap.Int("rows", len(body.Data)), zap.Int("edits", len(edits)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listBoatTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.backend.BoatTypes(r.Context())
	if err != nil {
		h.logger.Warn("list boat types failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, records.MessageOf(err))
		return
	}
	if types == nil {
		types = []BoatType{}
	}
	h.writeJSON(w, http.StatusOK, BoatTypeListResponse{Types: types})
}

// statusOf maps store failures to HTTP statuses. Validation failures are the
// client's fault; anything else is the server's.
func statusOf(err error) int {
	var se *records.ServerError
	if errors.As(err, &se) && se.Status > 0 {
		return se.Status
	}
	switch {
	case errors.Is(err, catalog.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrUnknownField), errors.Is(err, catalog.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Message: message})
}
