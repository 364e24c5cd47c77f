package eco

import (
	"context"
	"fmt"

	"ecotermo/internal/asset"
)

// CompareOptions selects the compared fields. Fields defaults to
// daysSinceService.
type CompareOptions struct {
	Fields          []asset.NumericField
	OnlyDifferences bool
}

// FieldDelta is the change of one numeric field since the snapshot.
// Prior and Delta are zero when HasPrior is false.
type FieldDelta struct {
	Field    asset.NumericField
	Current  float64
	Prior    float64
	Delta    float64
	HasPrior bool
}

// ComparisonRow pairs a current record with its deltas. HasPrior is false
// when the snapshot holds no record with the same tag.
type ComparisonRow struct {
	Record   asset.Record
	HasPrior bool
	Deltas   []FieldDelta
}

// Changed reports whether any compared field moved.
func (r ComparisonRow) Changed() bool {
	for _, d := range r.Deltas {
		if d.Delta != 0 {
			return true
		}
	}
	return false
}

// Comparison is the result of Compare, one row per current record.
type Comparison struct {
	Snapshot SnapshotInfo
	Fields   []asset.NumericField
	Rows     []ComparisonRow
}

// Compare diffs the current records against a snapshot, matching by tag.
// With OnlyDifferences, rows without a prior value are kept.
func (s *Service) Compare(ctx context.Context, id string, opts CompareOptions, dc DecryptionContext) (*Comparison, error) {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = []asset.NumericField{asset.FieldDaysSinceService}
	}
	for _, f := range fields {
		if _, ok := (asset.Record{}).Value(f); !ok {
			return nil, fmt.Errorf("unknown field %q", f)
		}
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	snap, err := s.GetSnapshot(ctx, id, dc)
	if err != nil {
		return nil, err
	}

	return compareRecords(snap.SnapshotInfo, s.Records(), snap.Records, fields, opts.OnlyDifferences), nil
}

func compareRecords(info SnapshotInfo, current, prior []asset.Record, fields []asset.NumericField, onlyDifferences bool) *Comparison {
	byTag := make(map[string]asset.Record, len(prior))
	for _, r := range prior {
		byTag[r.Tag] = r
	}

	cmp := &Comparison{Snapshot: info, Fields: fields}
	for _, r := range current {
		old, hasPrior := byTag[r.Tag]
		row := ComparisonRow{Record: r, HasPrior: hasPrior, Deltas: make([]FieldDelta, len(fields))}
		for i, f := range fields {
			cur, _ := r.Value(f)
			d := FieldDelta{Field: f, Current: cur, HasPrior: hasPrior}
			if hasPrior {
				d.Prior, _ = old.Value(f)
				d.Delta = cur - d.Prior
			}
			row.Deltas[i] = d
		}
		if onlyDifferences && hasPrior && !row.Changed() {
			continue
		}
		cmp.Rows = append(cmp.Rows, row)
	}
	return cmp
}
