package eco

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ecotermo/internal/asset"
)

// Mode selects how an import is reconciled against the current records.
type Mode string

const (
	// ModeReplace deletes every existing record and inserts the import.
	ModeReplace Mode = "replace"
	// ModeUpsert matches records by tag, overwriting matches in place.
	ModeUpsert Mode = "upsert"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeReplace, ModeUpsert:
		return m, nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want %q or %q)", s, ModeReplace, ModeUpsert)
	}
}

// Plan is the outcome of reconciling an import. Ops is the write set for the
// store; Records is the active set once Ops is applied, ordered by id.
type Plan struct {
	Ops     []WriteOp
	Records []asset.Record
	New     int
	Updated int
	Deleted int
}

// Reconcile diffs parsed against current under mode. Every written record is
// stamped with now as its import time.
//
// In upsert mode a tag first seen in this import is added to the lookup, so
// a tag repeated later in the same file overwrites the earlier row and is
// counted as an update.
func Reconcile(current, parsed []asset.Record, mode Mode, ids IDGenerator, now time.Time) (*Plan, error) {
	b := newPlanBuilder(current)

	switch mode {
	case ModeReplace:
		b.deleteAll()
		for _, r := range parsed {
			r.ID = ids.New()
			r.CreatedAt, r.UpdatedAt = nil, nil
			r.ImportedAt = stamp(now)
			if err := b.set(r); err != nil {
				return nil, err
			}
			b.plan.New++
		}

	case ModeUpsert:
		byTag := make(map[string]string, len(current))
		for _, r := range current {
			byTag[r.Tag] = r.ID
		}
		for _, r := range parsed {
			r.ImportedAt = stamp(now)
			if id, ok := byTag[r.Tag]; ok {
				r.ID = id
				r.CreatedAt = b.active[id].CreatedAt
				r.UpdatedAt = stamp(now)
				b.plan.Updated++
			} else {
				r.ID = ids.New()
				r.CreatedAt = stamp(now)
				r.UpdatedAt = nil
				byTag[r.Tag] = r.ID
				b.plan.New++
			}
			if err := b.set(r); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("unknown import mode %q", mode)
	}

	return b.finish(), nil
}

// replacePlan deletes every current record and inserts records verbatim
// under new ids.
func replacePlan(current, records []asset.Record, ids IDGenerator) (*Plan, error) {
	b := newPlanBuilder(current)
	b.deleteAll()
	for _, r := range records {
		r.ID = ids.New()
		if err := b.set(r); err != nil {
			return nil, err
		}
		b.plan.New++
	}
	return b.finish(), nil
}

type planBuilder struct {
	plan    Plan
	active  map[string]asset.Record
	opIndex map[string]int
}

func newPlanBuilder(current []asset.Record) *planBuilder {
	active := make(map[string]asset.Record, len(current))
	for _, r := range current {
		active[r.ID] = r
	}
	return &planBuilder{active: active, opIndex: make(map[string]int)}
}

func (b *planBuilder) deleteAll() {
	ids := make([]string, 0, len(b.active))
	for id := range b.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		b.add(WriteOp{Path: DocPath(CollectionAssets, id), Kind: WriteDelete})
		delete(b.active, id)
	}
	b.plan.Deleted = len(ids)
}

func (b *planBuilder) set(r asset.Record) error {
	body, err := encodeRecord(r)
	if err != nil {
		return err
	}
	b.add(WriteOp{Path: DocPath(CollectionAssets, r.ID), Kind: WriteSet, Value: body})
	b.active[r.ID] = r
	return nil
}

// add appends op, replacing an earlier op on the same path.
func (b *planBuilder) add(op WriteOp) {
	if i, ok := b.opIndex[op.Path]; ok {
		b.plan.Ops[i] = op
		return
	}
	b.opIndex[op.Path] = len(b.plan.Ops)
	b.plan.Ops = append(b.plan.Ops, op)
}

func (b *planBuilder) finish() *Plan {
	b.plan.Records = sortedRecords(b.active)
	return &b.plan
}

func sortedRecords(m map[string]asset.Record) []asset.Record {
	records := make([]asset.Record, 0, len(m))
	for _, r := range m {
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b asset.Record) int { return strings.Compare(a.ID, b.ID) })
	return records
}

func stamp(t time.Time) *time.Time {
	return &t
}

// encodeRecord renders the stored document body. The id lives in the path.
func encodeRecord(r asset.Record) ([]byte, error) {
	r.ID = ""
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record %q: %w", r.Tag, err)
	}
	return body, nil
}

func decodeRecord(id string, body []byte) (asset.Record, error) {
	var r asset.Record
	if err := json.Unmarshal(body, &r); err != nil {
		return asset.Record{}, fmt.Errorf("decoding record %s: %w", id, err)
	}
	r.ID = id
	return r, nil
}
