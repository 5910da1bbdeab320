package record

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/apd/v3"
)

// FillMissing makes every observation carry every variable seen anywhere
// in c. Each absent (observation, variable) pair gets a placeholder record
// with value MissingValue, flag 0, and one decimal place, taken from the
// station and timestamp of the observation. Placeholders are appended to c
// and all caches are dropped. It returns the number of placeholders added.
//
// Either every placeholder is added or, on error, c is left unchanged.
func (c *Collection) FillMissing() (int, error) {
	idx, err := c.observationIndex()
	if err != nil {
		return 0, fmt.Errorf("fill missing: %w", err)
	}

	seen := make(map[int]struct{})
	for _, r := range c.records {
		seen[r.variableID] = struct{}{}
	}
	all := make([]int, 0, len(seen))
	for id := range seen {
		all = append(all, id)
	}
	slices.Sort(all)

	missing, _, err := apd.NewFromString(MissingValue)
	if err != nil {
		return 0, fmt.Errorf("fill missing: %w", err)
	}

	var added []*Record
	for _, key := range idx.keys {
		ob := idx.groups[key]
		present := make(map[int]struct{}, ob.Len())
		for _, r := range ob.records {
			present[r.variableID] = struct{}{}
		}
		rep := ob.records[0]
		for _, id := range all {
			if _, ok := present[id]; ok {
				continue
			}
			p := newRecord(c.res, recordFields{
				stationID:              rep.stationID,
				timestampID:            rep.timestampID,
				variableID:             id,
				offset:                 rep.offset,
				value:                  missing,
				flag:                   0,
				decimalPlaces:          1,
				publishedDecimalPlaces: 1,
			})
			p.mode = Terse
			added = append(added, p)
		}
	}

	if err := c.Append(added...); err != nil {
		return 0, err
	}
	return len(added), nil
}
