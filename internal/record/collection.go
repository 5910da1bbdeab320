package record

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-records/internal/domain"
)

// Collection is an ordered container of records with five lazily built
// index caches: by station, variable, timestamp, local day, and
// observation. Insertion order is kept until a caller asks for a sorted
// view. Every mutation drops all five caches.
//
// A Collection is not safe for concurrent use. Callers that share one
// across goroutines must serialize access themselves.
type Collection struct {
	res     *Resolver
	records []*Record

	byStation     *index[domain.Station, int]
	byVariable    *index[domain.Variable, int]
	byTimestamp   *index[domain.Timestamp, string]
	byLocalDay    *index[string, string]
	byObservation *index[ObservationKey, ObservationKey]
}

func newCollection(res *Resolver, records []*Record) *Collection {
	return &Collection{res: res, records: records}
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// At returns the record at position i. It panics if i is out of range.
func (c *Collection) At(i int) *Record { return c.records[i] }

// All iterates over the records in their current order. Each pass sees
// the collection as it is when the pass starts.
func (c *Collection) All() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, r := range c.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Records returns a copy of the backing sequence.
func (c *Collection) Records() []*Record { return slices.Clone(c.records) }

// Contains reports whether an equal record is present.
func (c *Collection) Contains(r *Record) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(c.records, r.Equal)
}

// Append adds records to the end of the collection. A nil record fails
// the whole call with domain.ErrInvalidRecord and leaves c unchanged.
func (c *Collection) Append(records ...*Record) error {
	if len(records) == 0 {
		return nil
	}
	if slices.Contains(records, nil) {
		return fmt.Errorf("append: %w", domain.ErrInvalidRecord)
	}
	c.records = append(c.records, records...)
	c.invalidate()
	return nil
}

// Extend appends every record of o.
func (c *Collection) Extend(o *Collection) error {
	if o == nil {
		return fmt.Errorf("extend: nil collection: %w", domain.ErrInvalidRecord)
	}
	return c.Append(o.records...)
}

// Set replaces the record at position i. It panics if i is out of range.
func (c *Collection) Set(i int, r *Record) error {
	if r == nil {
		return fmt.Errorf("set %d: %w", i, domain.ErrInvalidRecord)
	}
	c.records[i] = r
	c.invalidate()
	return nil
}

// Plus returns a new collection holding the records of c followed by those
// of o. Duplicates are kept.
func (c *Collection) Plus(o *Collection) *Collection {
	out := make([]*Record, 0, len(c.records)+len(o.records))
	out = append(out, c.records...)
	out = append(out, o.records...)
	return newCollection(c.res, out)
}

// Minus returns a new collection with the records of c that have no equal
// record in o, in their original order.
func (c *Collection) Minus(o *Collection) *Collection {
	drop := make(map[Key]struct{}, len(o.records))
	for _, r := range o.records {
		drop[r.key] = struct{}{}
	}
	out := make([]*Record, 0, len(c.records))
	for _, r := range c.records {
		if _, ok := drop[r.key]; !ok {
			out = append(out, r)
		}
	}
	return newCollection(c.res, out)
}

// Sorted returns a new collection with the records in Compare order.
func (c *Collection) Sorted() *Collection {
	out := slices.Clone(c.records)
	slices.SortStableFunc(out, Compare)
	return newCollection(c.res, out)
}

// String renders every record in Compare order, joined by ", ".
func (c *Collection) String() string {
	parts := make([]string, 0, len(c.records))
	for r := range c.Sorted().All() {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

func (c *Collection) empty() *Collection { return newCollection(c.res, nil) }

func (c *Collection) invalidate() {
	c.byStation = nil
	c.byVariable = nil
	c.byTimestamp = nil
	c.byLocalDay = nil
	c.byObservation = nil
}
