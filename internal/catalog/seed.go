package catalog

import (
	"context"
	"fmt"

	"github.com/five82/marina/internal/records"
)

type seedBoat struct {
	name        string
	length      float64
	priceCents  int64
	description string
}

var seedCatalog = []struct {
	boatType string
	boats    []seedBoat
}{
	{"Sailboat", []seedBoat{
		{"Osprey", 28, 4500000, "Coastal cruiser with a roller-furling genoa"},
		{"Tern", 22, 1850000, "Light daysailer, trailerable"},
		{"Albatross", 41, 21000000, "Blue-water cutter with a full keel"},
	}},
	{"Motorboat", []seedBoat{
		{"Marlin", 32, 12000000, "Sport fisher with twin outboards"},
		{"Barracuda", 24, 6400000, "Center console"},
	}},
	{"Pontoon", []seedBoat{
		{"Lazy Susan", 20, 3100000, "Family pontoon with a swim ladder"},
	}},
}

// Seed fills an empty catalog with sample boat types and boats. It does
// nothing when boat types already exist.
func Seed(ctx context.Context, s *Store) error {
	existing, err := s.BoatTypes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, group := range seedCatalog {
		bt, err := s.AddBoatType(ctx, group.boatType)
		if err != nil {
			return fmt.Errorf("seed %s: %w", group.boatType, err)
		}
		for _, b := range group.boats {
			rec := records.Record{Fields: map[records.Field]records.Value{
				records.FieldName:        records.Text(b.name),
				records.FieldLength:      records.Number(b.length),
				records.FieldPrice:       records.Currency(b.priceCents),
				records.FieldDescription: records.Text(b.description),
			}}
			if _, err := s.AddBoat(ctx, bt.ID, rec); err != nil {
				return fmt.Errorf("seed %s: %w", b.name, err)
			}
		}
	}
	return nil
}
