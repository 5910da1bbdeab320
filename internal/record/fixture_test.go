package record

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/subhourly"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// hourID returns the timestamp id of the hour ending at the given UTC time.
func hourID(y int, m time.Month, d, h int) int {
	return int(time.Date(y, m, d, h, 0, 0, 0, time.UTC).Sub(epoch) / time.Hour)
}

// fakeLookup is an in-memory domain.Lookup that counts resolutions.
type fakeLookup struct {
	stations  map[int]domain.Station
	variables map[int]domain.Variable
	loc       *time.Location

	stationCalls   int
	variableCalls  int
	timestampCalls int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		stations: map[int]domain.Station{
			1: {ID: 1, Name: "Asheville", State: "NC", OffsetHours: -5},
			2: {ID: 2, Name: "Boulder", State: "CO", OffsetHours: -7},
			3: {ID: 3, Name: "Crossville", State: "TN", OffsetHours: -6},
		},
		variables: map[int]domain.Variable{
			439: {ID: 439, Name: "T_CALC", Description: "calculated average temp"},
			440: {ID: 440, Name: "P_CALC", Description: "calculated precip"},
			314: {ID: 314, Name: "P15_1", Description: "precip 15 minute channel 1"},
			315: {ID: 315, Name: "P15_2", Description: "precip 15 minute channel 2"},
			316: {ID: 316, Name: "P15_3", Description: "precip 15 minute channel 3"},
			317: {ID: 317, Name: "P15_4", Description: "precip 15 minute channel 4"},
		},
	}
}

func (f *fakeLookup) Station(key domain.Key) (domain.Station, error) {
	f.stationCalls++
	if id, ok := key.ID(); ok {
		if st, ok := f.stations[id]; ok {
			return st, nil
		}
		return domain.Station{}, domain.ErrNotFound
	}
	name, _ := key.Name()
	for _, st := range f.stations {
		if strings.EqualFold(st.Name, name) {
			return st, nil
		}
	}
	return domain.Station{}, domain.ErrNotFound
}

func (f *fakeLookup) Variable(key domain.Key) (domain.Variable, error) {
	f.variableCalls++
	if id, ok := key.ID(); ok {
		if v, ok := f.variables[id]; ok {
			return v, nil
		}
		return domain.Variable{}, domain.ErrNotFound
	}
	name, _ := key.Name()
	for _, v := range f.variables {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return domain.Variable{}, domain.ErrNotFound
}

func (f *fakeLookup) Timestamp(key domain.Key) (domain.Timestamp, error) {
	f.timestampCalls++
	if id, ok := key.ID(); ok {
		ts := domain.Timestamp{ID: id, Time: epoch.Add(time.Duration(id) * time.Hour)}
		if f.loc != nil {
			ts.Time = ts.Time.In(f.loc)
		}
		return ts, nil
	}
	name, _ := key.Name()
	t, err := time.Parse("2006010215", name)
	if err != nil {
		return domain.Timestamp{}, domain.ErrNotFound
	}
	return domain.Timestamp{ID: int(t.Sub(epoch) / time.Hour), Time: t}, nil
}

func newFixture(t *testing.T) (*Resolver, *fakeLookup) {
	t.Helper()
	groups, err := subhourly.New()
	require.NoError(t, err)
	lookup := newFakeLookup()
	return NewResolver(lookup, groups), lookup
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func newTestRecord(t *testing.T, res *Resolver, station, ts, variable int, value string, flag int) *Record {
	t.Helper()
	r, err := res.NewRecord(domain.RawRecord{
		StationID:              station,
		TimestampID:            ts,
		VariableID:             variable,
		Value:                  strPtr(value),
		Flag:                   strconv.Itoa(flag),
		DecimalPlaces:          intPtr(1),
		PublishedDecimalPlaces: intPtr(1),
	})
	require.NoError(t, err)
	return r
}
