package record

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/couchcryptid/climate-records/internal/domain"
)

// Subhourly returns a new collection in which every record on a raw
// sub-hour channel is replaced by a record on its group variable, stamped
// at the channel's minute within the hour. Records already on a group
// variable are kept; all other records are dropped. c is not modified.
func (c *Collection) Subhourly() *Collection {
	out := make([]*Record, 0, len(c.records))
	for _, r := range c.records {
		if r.IsSubhourly() {
			out = append(out, r)
			continue
		}
		m, ok := c.res.membership(r.variableID)
		if !ok {
			continue
		}
		out = append(out, r.derive(m.GroupID, m.Offset))
	}
	return newCollection(c.res, out)
}

// Sum adds up the values of all records, skipping missing sentinels.
func (c *Collection) Sum() (*apd.Decimal, error) {
	sum, _, err := c.total()
	return sum, err
}

// Mean averages the values of all records, skipping missing sentinels. It
// returns domain.ErrNoValue when no record carries a value.
func (c *Collection) Mean() (*apd.Decimal, error) {
	sum, n, err := c.total()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("mean of %d records: %w", len(c.records), domain.ErrNoValue)
	}
	mean := new(apd.Decimal)
	if _, err := decimalContext.Quo(mean, sum, apd.New(int64(n), 0)); err != nil {
		return nil, fmt.Errorf("mean: %w", err)
	}
	return mean, nil
}

func (c *Collection) total() (*apd.Decimal, int, error) {
	sum := new(apd.Decimal)
	n := 0
	for _, r := range c.records {
		if r.IsMissing() {
			continue
		}
		if _, err := decimalContext.Add(sum, sum, r.value); err != nil {
			return nil, 0, fmt.Errorf("sum: %w", err)
		}
		n++
	}
	return sum, n, nil
}
