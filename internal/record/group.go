package record

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/climate-records/internal/domain"
)

// ObservationKey identifies one observation: a station name and the
// "mm/dd/yy hh:mm UTC" rendering of its timestamp.
type ObservationKey struct {
	Station string
	Time    string
}

func (k ObservationKey) String() string { return k.Station + ", " + k.Time }

const prettyLayout = "01/02/06 15:04 UTC"

// index is one cached grouping. groups maps the resolved key to its
// members; canon maps a canonical form of the key (an id or a display
// string) to the same collections for keyed lookups.
type index[K, C comparable] struct {
	groups map[K]*Collection
	canon  map[C]*Collection
	keys   []K
}

// buildIndex partitions the records by a cheap proxy key, resolves each
// distinct proxy exactly once, then sorts every group with Compare.
// Proxies that resolve to the same key share a group.
func buildIndex[K, C, P comparable](
	c *Collection,
	proxy func(*Record) P,
	resolve func(P, []*Record) (K, error),
	canon func(K) C,
	compareKeys func(a, b K) int,
) (*index[K, C], error) {
	var order []P
	parts := make(map[P][]*Record)
	for _, r := range c.records {
		p := proxy(r)
		if _, ok := parts[p]; !ok {
			order = append(order, p)
		}
		parts[p] = append(parts[p], r)
	}

	merged := make(map[K][]*Record, len(parts))
	for _, p := range order {
		k, err := resolve(p, parts[p])
		if err != nil {
			return nil, err
		}
		merged[k] = append(merged[k], parts[p]...)
	}

	idx := &index[K, C]{
		groups: make(map[K]*Collection, len(merged)),
		canon:  make(map[C]*Collection, len(merged)),
		keys:   make([]K, 0, len(merged)),
	}
	for k, members := range merged {
		slices.SortStableFunc(members, Compare)
		g := newCollection(c.res, members)
		idx.groups[k] = g
		idx.canon[canon(k)] = g
		idx.keys = append(idx.keys, k)
	}
	slices.SortFunc(idx.keys, compareKeys)
	return idx, nil
}

func (c *Collection) stationIndex() (*index[domain.Station, int], error) {
	if c.byStation != nil {
		return c.byStation, nil
	}
	idx, err := buildIndex(c,
		func(r *Record) int { return r.stationID },
		func(id int, members []*Record) (domain.Station, error) {
			st, err := c.res.station(id)
			if err != nil {
				return domain.Station{}, err
			}
			for _, r := range members {
				r.station.set(st)
			}
			return st, nil
		},
		func(st domain.Station) int { return st.ID },
		func(a, b domain.Station) int {
			return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("group by station: %w", err)
	}
	c.byStation = idx
	return idx, nil
}

func (c *Collection) variableIndex() (*index[domain.Variable, int], error) {
	if c.byVariable != nil {
		return c.byVariable, nil
	}
	idx, err := buildIndex(c,
		func(r *Record) int { return r.variableID },
		func(id int, members []*Record) (domain.Variable, error) {
			v, err := c.res.variable(id)
			if err != nil {
				return domain.Variable{}, err
			}
			for _, r := range members {
				r.variable.set(v)
			}
			return v, nil
		},
		func(v domain.Variable) int { return v.ID },
		func(a, b domain.Variable) int {
			return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("group by element: %w", err)
	}
	c.byVariable = idx
	return idx, nil
}

type timestampProxy struct {
	id     int
	offset string
}

func (c *Collection) timestampIndex() (*index[domain.Timestamp, string], error) {
	if c.byTimestamp != nil {
		return c.byTimestamp, nil
	}
	idx, err := buildIndex(c,
		func(r *Record) timestampProxy { return timestampProxy{r.timestampID, r.offset} },
		func(p timestampProxy, members []*Record) (domain.Timestamp, error) {
			ts, err := c.res.timestamp(p.id, p.offset)
			if err != nil {
				return domain.Timestamp{}, err
			}
			for _, r := range members {
				r.timestamp.set(ts)
			}
			return ts, nil
		},
		domain.Timestamp.Display,
		compareTimestamps,
	)
	if err != nil {
		return nil, fmt.Errorf("group by datetime: %w", err)
	}
	c.byTimestamp = idx
	return idx, nil
}

type localDayProxy struct {
	stationID   int
	timestampID int
	subhourly   bool
}

// localDayIndex groups by the station-local calendar day. Hourly records
// are stamped at the end of their hour, so they are shifted back one hour
// before the day is taken; sub-hourly records are not.
func (c *Collection) localDayIndex() (*index[string, string], error) {
	if c.byLocalDay != nil {
		return c.byLocalDay, nil
	}
	idx, err := buildIndex(c,
		func(r *Record) localDayProxy {
			return localDayProxy{r.stationID, r.timestampID, r.IsSubhourly()}
		},
		func(p localDayProxy, members []*Record) (string, error) {
			st, err := members[0].Station()
			if err != nil {
				return "", err
			}
			local := p.timestampID + st.OffsetHours
			if !p.subhourly {
				local--
			}
			ts, err := c.res.lookup.Timestamp(domain.ByID(local))
			if err != nil {
				return "", fmt.Errorf("resolve local datetime %d: %w", local, err)
			}
			return ts.Day(), nil
		},
		func(day string) string { return day },
		strings.Compare,
	)
	if err != nil {
		return nil, fmt.Errorf("group by local day: %w", err)
	}
	c.byLocalDay = idx
	return idx, nil
}

type observationProxy struct {
	stationID   int
	timestampID int
	offset      string
}

// observationIndex groups by station and timestamp. On success every
// record of c is switched to Terse rendering.
func (c *Collection) observationIndex() (*index[ObservationKey, ObservationKey], error) {
	if c.byObservation != nil {
		return c.byObservation, nil
	}
	idx, err := buildIndex(c,
		func(r *Record) observationProxy {
			return observationProxy{r.stationID, r.timestampID, r.offset}
		},
		func(_ observationProxy, members []*Record) (ObservationKey, error) {
			st, err := members[0].Station()
			if err != nil {
				return ObservationKey{}, err
			}
			ts, err := members[0].Timestamp()
			if err != nil {
				return ObservationKey{}, err
			}
			for _, r := range members[1:] {
				r.station.set(st)
				r.timestamp.set(ts)
			}
			return ObservationKey{Station: st.Name, Time: ts.Pretty()}, nil
		},
		func(k ObservationKey) ObservationKey { return k },
		compareObservations,
	)
	if err != nil {
		return nil, fmt.Errorf("group by observation: %w", err)
	}
	for _, r := range c.records {
		r.mode = Terse
	}
	c.byObservation = idx
	return idx, nil
}

func compareTimestamps(a, b domain.Timestamp) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.Display(), b.Display())
}

func compareObservations(a, b ObservationKey) int {
	if c := strings.Compare(a.Station, b.Station); c != 0 {
		return c
	}
	at, aerr := time.Parse(prettyLayout, a.Time)
	bt, berr := time.Parse(prettyLayout, b.Time)
	if aerr != nil || berr != nil {
		return strings.Compare(a.Time, b.Time)
	}
	return at.Compare(bt)
}

// GroupedByStation returns the records grouped by station. The mapping is
// built on first use and cached until c changes.
func (c *Collection) GroupedByStation() (map[domain.Station]*Collection, error) {
	idx, err := c.stationIndex()
	if err != nil {
		return nil, err
	}
	return maps.Clone(idx.groups), nil
}

// GroupedByVariable returns the records grouped by variable.
func (c *Collection) GroupedByVariable() (map[domain.Variable]*Collection, error) {
	idx, err := c.variableIndex()
	if err != nil {
		return nil, err
	}
	return maps.Clone(idx.groups), nil
}

// GroupedByTimestamp returns the records grouped by timestamp. Sub-hourly
// records group by their minute, not their hour. Key times are in UTC.
func (c *Collection) GroupedByTimestamp() (map[domain.Timestamp]*Collection, error) {
	idx, err := c.timestampIndex()
	if err != nil {
		return nil, err
	}
	return maps.Clone(idx.groups), nil
}

// GroupedByLocalDay returns the records grouped by 8-digit station-local
// calendar day.
func (c *Collection) GroupedByLocalDay() (map[string]*Collection, error) {
	idx, err := c.localDayIndex()
	if err != nil {
		return nil, err
	}
	return maps.Clone(idx.groups), nil
}

// GroupedByObservation returns the records grouped by station and
// timestamp. As a side effect every record in c renders tersely
// afterwards.
func (c *Collection) GroupedByObservation() (map[ObservationKey]*Collection, error) {
	idx, err := c.observationIndex()
	if err != nil {
		return nil, err
	}
	return maps.Clone(idx.groups), nil
}

// Stations lists the distinct stations, sorted by name.
func (c *Collection) Stations() ([]domain.Station, error) {
	idx, err := c.stationIndex()
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keys), nil
}

// Variables lists the distinct variables, sorted by name.
func (c *Collection) Variables() ([]domain.Variable, error) {
	idx, err := c.variableIndex()
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keys), nil
}

// Timestamps lists the distinct timestamps in time order.
func (c *Collection) Timestamps() ([]domain.Timestamp, error) {
	idx, err := c.timestampIndex()
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keys), nil
}

// LocalDays lists the distinct local days in order.
func (c *Collection) LocalDays() ([]string, error) {
	idx, err := c.localDayIndex()
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keys), nil
}

// Observations lists the distinct observations by station, then time.
func (c *Collection) Observations() ([]ObservationKey, error) {
	idx, err := c.observationIndex()
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keys), nil
}

// ForStation returns the records of the station named by key, or an empty
// collection when it has none. Only invalid or ambiguous keys and failed
// groupings return an error.
func (c *Collection) ForStation(key domain.Key) (*Collection, error) {
	st, err := c.res.resolveStation(key)
	if err != nil {
		return c.miss(err)
	}
	idx, err := c.stationIndex()
	if err != nil {
		return nil, err
	}
	return c.pick(idx.canon[st.ID]), nil
}

// ForVariable returns the records of the variable named by key. Sub-hour
// group names resolve to the group variable.
func (c *Collection) ForVariable(key domain.Key) (*Collection, error) {
	v, err := c.res.resolveVariable(key)
	if err != nil {
		return c.miss(err)
	}
	idx, err := c.variableIndex()
	if err != nil {
		return nil, err
	}
	return c.pick(idx.canon[v.ID]), nil
}

// ForTimestamp returns the records at the timestamp named by key.
func (c *Collection) ForTimestamp(key domain.Key) (*Collection, error) {
	ts, err := c.res.resolveTimestamp(key)
	if err != nil {
		return c.miss(err)
	}
	idx, err := c.timestampIndex()
	if err != nil {
		return nil, err
	}
	return c.pick(idx.canon[ts.Display()]), nil
}

// ForLocalDay returns the records on a local day. day is preferably an
// 8-digit yyyymmdd string; anything else is resolved as a timestamp name
// and its calendar day used.
func (c *Collection) ForLocalDay(day string) (*Collection, error) {
	if day == "" {
		return nil, fmt.Errorf("%w: empty local day", domain.ErrInvalidKey)
	}
	idx, err := c.localDayIndex()
	if err != nil {
		return nil, err
	}
	if g, ok := idx.groups[day]; ok {
		return g, nil
	}
	ts, err := c.res.resolveTimestamp(domain.ByName(day))
	if err != nil {
		return c.miss(err)
	}
	return c.pick(idx.groups[ts.Day()]), nil
}

// ForObservation returns the records of one station at one timestamp. A
// timestamp name already in "mm/dd/yy hh:mm UTC" form is used as is, which
// is how sub-hourly observations are addressed.
func (c *Collection) ForObservation(station, timestamp domain.Key) (*Collection, error) {
	if err := errors.Join(station.Validate(), timestamp.Validate()); err != nil {
		return nil, err
	}
	st, err := c.res.resolveStation(station)
	if err != nil {
		return c.miss(err)
	}
	pretty, ok := timestamp.Name()
	if !ok || !strings.HasSuffix(pretty, " UTC") {
		ts, err := c.res.resolveTimestamp(timestamp)
		if err != nil {
			return c.miss(err)
		}
		pretty = ts.Pretty()
	}
	return c.ForObservationKey(ObservationKey{Station: st.Name, Time: pretty})
}

// ForObservationKey returns the records of the observation k.
func (c *Collection) ForObservationKey(k ObservationKey) (*Collection, error) {
	if k.Station == "" || k.Time == "" {
		return nil, fmt.Errorf("%w: incomplete observation %q", domain.ErrInvalidKey, k.String())
	}
	idx, err := c.observationIndex()
	if err != nil {
		return nil, err
	}
	return c.pick(idx.groups[k]), nil
}

// miss maps a lookup miss to an empty collection and passes other errors
// through.
func (c *Collection) miss(err error) (*Collection, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return c.empty(), nil
	}
	return nil, err
}

func (c *Collection) pick(g *Collection) *Collection {
	if g == nil {
		return c.empty()
	}
	return g
}
