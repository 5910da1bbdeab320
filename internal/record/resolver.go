package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/subhourly"
)

// Resolver bundles the collaborators records resolve their lazy fields
// through. One Resolver is shared by every record and collection built
// from it; it holds no mutable state of its own.
type Resolver struct {
	lookup domain.Lookup
	groups *subhourly.Registry
}

// NewResolver creates a Resolver. groups may be nil, in which case no
// variable is treated as a sub-hour channel.
func NewResolver(lookup domain.Lookup, groups *subhourly.Registry) *Resolver {
	return &Resolver{lookup: lookup, groups: groups}
}

// NewRecord builds a Record from a raw source row. It fails with
// domain.ErrNoValue when the row has no value; malformed value or flag
// strings return the conversion error unchanged. An empty flag reads as 0.
func (res *Resolver) NewRecord(raw domain.RawRecord) (*Record, error) {
	if raw.Value == nil {
		return nil, fmt.Errorf("station %d, datetime %d, element %d: %w",
			raw.StationID, raw.TimestampID, raw.VariableID, domain.ErrNoValue)
	}
	value, _, err := apd.NewFromString(strings.TrimSpace(*raw.Value))
	if err != nil {
		return nil, err
	}
	flag := 0
	if s := strings.TrimSpace(raw.Flag); s != "" {
		if flag, err = strconv.Atoi(s); err != nil {
			return nil, err
		}
	}
	return newRecord(res, recordFields{
		stationID:              raw.StationID,
		timestampID:            raw.TimestampID,
		variableID:             raw.VariableID,
		value:                  value,
		flag:                   flag,
		decimalPlaces:          derefInt(raw.DecimalPlaces),
		publishedDecimalPlaces: derefInt(raw.PublishedDecimalPlaces),
	}), nil
}

// Collection wraps records in a new Collection backed by a copy of the
// slice. Records must be non-nil.
func (res *Resolver) Collection(records ...*Record) *Collection {
	return newCollection(res, append([]*Record(nil), records...))
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (res *Resolver) station(id int) (domain.Station, error) {
	st, err := res.lookup.Station(domain.ByID(id))
	if err != nil {
		return domain.Station{}, fmt.Errorf("resolve station %d: %w", id, err)
	}
	return st, nil
}

// variable resolves a variable id; ids in the sub-hour group range are
// synthesized by the registry instead of the lookup.
func (res *Resolver) variable(id int) (domain.Variable, error) {
	if id >= domain.SubhourlyIDBase {
		if res.groups != nil {
			if v, ok := res.groups.GroupVariable(id); ok {
				return v, nil
			}
		}
		return domain.Variable{}, fmt.Errorf("resolve element %d: %w", id, domain.ErrNotFound)
	}
	v, err := res.lookup.Variable(domain.ByID(id))
	if err != nil {
		return domain.Variable{}, fmt.Errorf("resolve element %d: %w", id, err)
	}
	return v, nil
}

// timestamp resolves an hourly timestamp id. With a non-empty sub-hour
// offset the result is the minute offset past the start of that hour.
func (res *Resolver) timestamp(id int, offset string) (domain.Timestamp, error) {
	ts, err := res.lookup.Timestamp(domain.ByID(id))
	if err != nil {
		return domain.Timestamp{}, fmt.Errorf("resolve datetime %d: %w", id, err)
	}
	// Timestamps are map keys; time.Time equality includes the Location.
	ts.Time = ts.Time.UTC()
	if offset == "" {
		return ts, nil
	}
	minutes, err := strconv.Atoi(offset)
	if err != nil {
		return domain.Timestamp{}, fmt.Errorf("datetime %d: sub-hour offset %q: %w", id, offset, err)
	}
	ts.Time = ts.Time.Add(-time.Hour + time.Duration(minutes)*time.Minute)
	ts.SubHour = true
	return ts, nil
}

func (res *Resolver) membership(variableID int) (subhourly.Membership, bool) {
	if res.groups == nil {
		return subhourly.Membership{}, false
	}
	return res.groups.Resolve(variableID)
}

func (res *Resolver) groupName(id int) string {
	if res.groups == nil {
		return ""
	}
	n, _ := res.groups.Name(id)
	return n
}

func (res *Resolver) groupDescription(id int) string {
	if res.groups == nil {
		return ""
	}
	d, _ := res.groups.Description(id)
	return d
}

// resolveStation turns any station key into the canonical station.
func (res *Resolver) resolveStation(key domain.Key) (domain.Station, error) {
	if err := key.Validate(); err != nil {
		return domain.Station{}, err
	}
	return res.lookup.Station(key)
}

// resolveVariable turns any variable key into the canonical variable.
// Names that the lookup does not know are tried against the sub-hour group
// names.
func (res *Resolver) resolveVariable(key domain.Key) (domain.Variable, error) {
	if err := key.Validate(); err != nil {
		return domain.Variable{}, err
	}
	if id, ok := key.ID(); ok {
		return res.variable(id)
	}
	v, err := res.lookup.Variable(key)
	if errors.Is(err, domain.ErrNotFound) && res.groups != nil {
		name, _ := key.Name()
		if id, ok := res.groups.GroupByName(name); ok {
			return res.variable(id)
		}
	}
	return v, err
}

func (res *Resolver) resolveTimestamp(key domain.Key) (domain.Timestamp, error) {
	if err := key.Validate(); err != nil {
		return domain.Timestamp{}, err
	}
	return res.lookup.Timestamp(key)
}
