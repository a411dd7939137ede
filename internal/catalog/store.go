// Package catalog is the local boat record service: a sqlite-backed store
// that answers record fetches and batch updates for the grid.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/marina/internal/records"
)

var (
	// ErrUnknownRecord is returned when a batch edits a record that does
	// not exist.
	ErrUnknownRecord = errors.New("unknown record")
	// ErrUnknownField is returned when a batch edits a field the store does
	// not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when an edit's value does not fit its
	// field.
	ErrInvalidValue = errors.New("invalid value")
)

// BoatType is one filter key offered to the grid.
type BoatType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var fieldColumns = map[records.Field]string{
	records.FieldName:        "name",
	records.FieldLength:      "length",
	records.FieldPrice:       "price_cents",
	records.FieldDescription: "description",
}

// Store reads and writes boats.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// OpenStore migrates and opens the database at path.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if err := Migrate(path); err != nil {
		return nil, err
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db, logger), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchRecords returns the boats of the boat type named by req.Key, ordered
// by name. The empty key selects every boat.
func (s *Store) FetchRecords(ctx context.Context, req records.FetchRequest) ([]records.Record, error) {
	query := `SELECT id, name, length, price_cents, description FROM boats`
	var args []any
	if key := strings.TrimSpace(string(req.Key)); key != "" {
		query += ` WHERE boat_type_id = ?`
		args = append(args, key)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query boats: %w", err)
	}
	defer rows.Close()

	out := []records.Record{}
	for rows.Next() {
		var (
			id, name, description string
			length                float64
			cents                 int64
		)
		if err := rows.Scan(&id, &name, &length, &cents, &description); err != nil {
			return nil, fmt.Errorf("scan boat: %w", err)
		}
		out = append(out, records.Record{ID: id, Fields: map[records.Field]records.Value{
			records.FieldName:        records.Text(name),
			records.FieldLength:      records.Number(length),
			records.FieldPrice:       records.Currency(cents),
			records.FieldDescription: records.Text(description),
		}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read boats: %w", err)
	}
	s.logger.Debug("fetched boats",
		zap.String("filter_key", string(req.Key)),
		zap.Bool("refresh", req.Refresh),
		zap.Int("count", len(out)))
	return out, nil
}

// PersistBatch applies every edit in one transaction. Any invalid edit fails
// the whole batch with a *records.ServerError describing it.
func (s *Store) PersistBatch(ctx context.Context, edits []records.DraftEdit) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, e := range edits {
			if err := applyEdit(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("batch update rejected", zap.Int("edits", len(edits)), zap.Error(err))
		return &records.ServerError{Message: err.Error(), Err: err}
	}
	s.logger.Info("batch update applied", zap.Int("edits", len(edits)))
	return nil
}

func applyEdit(ctx context.Context, tx *sql.Tx, e records.DraftEdit) error {
	column, ok := fieldColumns[e.Field]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, e.Field)
	}
	kind, _ := records.KindOf(e.Field)
	if e.Value.Kind != kind {
		return fmt.Errorf("%w: field %s expects %s, got %s", ErrInvalidValue, e.Field, kind, e.Value.Kind)
	}

	var arg any
	switch kind {
	case records.KindNumber:
		if e.Value.Num < 0 {
			return fmt.Errorf("%w: field %s must not be negative", ErrInvalidValue, e.Field)
		}
		arg = e.Value.Num
	case records.KindCurrency:
		if e.Value.Cents < 0 {
			return fmt.Errorf("%w: field %s must not be negative", ErrInvalidValue, e.Field)
		}
		arg = e.Value.Cents
	default:
		if e.Field == records.FieldName && strings.TrimSpace(e.Value.Text) == "" {
			return fmt.Errorf("%w: field %s is required", ErrInvalidValue, e.Field)
		}
		arg = e.Value.Text
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE boats SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, arg, e.RecordID)
	if err != nil {
		return fmt.Errorf("update boat %s: %w", e.RecordID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update boat %s: %w", e.RecordID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w %q", ErrUnknownRecord, e.RecordID)
	}
	return nil
}

// BoatTypes lists the boat types ordered by name.
func (s *Store) BoatTypes(ctx context.Context) ([]BoatType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM boat_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query boat types: %w", err)
	}
	defer rows.Close()

	var out []BoatType
	for rows.Next() {
		var bt BoatType
		if err := rows.Scan(&bt.ID, &bt.Name); err != nil {
			return nil, fmt.Errorf("scan boat type: %w", err)
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

// AddBoatType inserts a boat type with a fresh id.
func (s *Store) AddBoatType(ctx context.Context, name string) (BoatType, error) {
	bt := BoatType{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if bt.Name == "" {
		return BoatType{}, fmt.Errorf("boat type name is required")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO boat_types(id, name) VALUES(?, ?)`, bt.ID, bt.Name); err != nil {
		return BoatType{}, fmt.Errorf("insert boat type: %w", err)
	}
	return bt, nil
}

// AddBoat inserts a boat of the given type. A missing record id is
// generated.
func (s *Store) AddBoat(ctx context.Context, typeID string, rec records.Record) (records.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	name, _ := rec.Get(records.FieldName)
	length, _ := rec.Get(records.FieldLength)
	price, _ := rec.Get(records.FieldPrice)
	description, _ := rec.Get(records.FieldDescription)

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO boats(id, boat_type_id, name, length, price_cents, description)
	VALUES(?, ?, ?, ?, ?, ?)`,
		rec.ID, typeID, name.Text, length.Num, price.Cents, description.Text)
	if err != nil {
		return records.Record{}, fmt.Errorf("insert boat: %w", err)
	}
	return rec, nil
}
