package record

import (
	"slices"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(c *Collection) []Key {
	var keys []Key
	for r := range c.All() {
		keys = append(keys, r.Key())
	}
	return keys
}

func TestCollection_IterationPreservesOrderAndIdentity(t *testing.T) {
	res, _ := newFixture(t)
	ts := hourID(2024, time.May, 1, 13)
	in := []*Record{
		newTestRecord(t, res, 2, ts, 439, "3.0", 0),
		newTestRecord(t, res, 1, ts, 440, "1.0", 0),
		newTestRecord(t, res, 1, ts, 439, "2.0", 0),
	}

	c := res.Collection(in...)
	out := slices.Collect(c.All())
	require.Len(t, out, len(in))
	for i := range in {
		assert.Same(t, in[i], out[i])
		assert.Same(t, in[i], c.At(i))
	}

	// Each pass reflects the current contents.
	require.NoError(t, c.Append(newTestRecord(t, res, 3, ts, 439, "4.0", 0)))
	assert.Len(t, slices.Collect(c.All()), 4)

	in[0] = nil
	assert.NotNil(t, c.At(0), "collection must not alias the caller's slice")
}

func TestCollection_StationScenario(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	t2 := t1 + 1

	second := newTestRecord(t, res, 1, t2, 10000, "3.4", 0)
	first := newTestRecord(t, res, 1, t1, 10000, "1.2", 0)
	c := res.Collection(second, first)

	groups, err := c.GroupedByStation()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	var asheville *Collection
	for st, g := range groups {
		assert.Equal(t, "Asheville", st.Name)
		asheville = g
	}
	require.Equal(t, 2, asheville.Len())
	assert.Same(t, first, asheville.At(0))
	assert.Same(t, second, asheville.At(1))

	forA, err := c.ForStation(domain.ByName("asheville"))
	require.NoError(t, err)
	assert.Same(t, asheville, forA)

	forB, err := c.ForStation(domain.ByID(2))
	require.NoError(t, err)
	assert.Zero(t, forB.Len())

	unknown, err := c.ForStation(domain.ByName("Nowhere"))
	require.NoError(t, err)
	assert.Zero(t, unknown.Len())

	_, err = c.ForStation(domain.Key{})
	require.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestCollection_ForStationMatchesFilter(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "1.0", 0),
		newTestRecord(t, res, 2, t1, 439, "2.0", 0),
		newTestRecord(t, res, 1, t1+1, 439, "3.0", 0),
		newTestRecord(t, res, 3, t1, 440, "0.0", 0),
		newTestRecord(t, res, 2, t1+2, 440, "0.3", 1),
	)

	stations, err := c.Stations()
	require.NoError(t, err)
	require.Equal(t, []string{"Asheville", "Boulder", "Crossville"},
		[]string{stations[0].Name, stations[1].Name, stations[2].Name})

	for _, st := range stations {
		sub, err := c.ForStation(st.Key())
		require.NoError(t, err)

		var want []Key
		for r := range c.All() {
			if r.StationID() == st.ID {
				want = append(want, r.Key())
			}
		}
		assert.ElementsMatch(t, want, keysOf(sub), st.Name)
	}
}

func TestCollection_GroupingResolvesOncePerKey(t *testing.T) {
	res, lookup := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	var records []*Record
	for i := range 6 {
		records = append(records, newTestRecord(t, res, 1+i%2, t1+i, 439, "1.0", 0))
	}
	c := res.Collection(records...)

	_, err := c.GroupedByStation()
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.stationCalls)

	_, err = c.GroupedByTimestamp()
	require.NoError(t, err)
	assert.Equal(t, 6, lookup.timestampCalls)

	_, err = c.GroupedByVariable()
	require.NoError(t, err)
	calls := lookup.variableCalls
	_, err = c.GroupedByVariable()
	require.NoError(t, err)
	assert.Equal(t, calls, lookup.variableCalls, "cached grouping must not resolve again")
}

func TestCollection_GroupingIsIdempotent(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 2, t1, 439, "2.0", 0),
		newTestRecord(t, res, 1, t1+1, 439, "3.0", 0),
		newTestRecord(t, res, 1, t1, 439, "1.0", 0),
	)

	first, err := c.GroupedByStation()
	require.NoError(t, err)
	second, err := c.GroupedByStation()
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for st, g := range first {
		require.Contains(t, second, st)
		assert.Same(t, g, second[st])
		assert.Equal(t, keysOf(g), keysOf(second[st]))
	}
}

func TestCollection_MutationInvalidatesCaches(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(newTestRecord(t, res, 1, t1, 439, "1.0", 0))

	build := func() {
		_, err := c.GroupedByStation()
		require.NoError(t, err)
		_, err = c.GroupedByVariable()
		require.NoError(t, err)
		_, err = c.GroupedByTimestamp()
		require.NoError(t, err)
		_, err = c.GroupedByLocalDay()
		require.NoError(t, err)
		_, err = c.GroupedByObservation()
		require.NoError(t, err)
	}
	assertInvalidated := func() {
		assert.Nil(t, c.byStation)
		assert.Nil(t, c.byVariable)
		assert.Nil(t, c.byTimestamp)
		assert.Nil(t, c.byLocalDay)
		assert.Nil(t, c.byObservation)
	}

	build()
	require.NoError(t, c.Append(newTestRecord(t, res, 2, t1, 440, "0.5", 0)))
	assertInvalidated()

	stations, err := c.Stations()
	require.NoError(t, err)
	assert.Len(t, stations, 2)

	build()
	require.NoError(t, c.Extend(res.Collection(newTestRecord(t, res, 3, t1, 439, "7.0", 0))))
	assertInvalidated()
	assert.Equal(t, 3, c.Len())

	build()
	require.NoError(t, c.Set(0, newTestRecord(t, res, 2, t1+1, 439, "1.0", 0)))
	assertInvalidated()
	stations, err = c.Stations()
	require.NoError(t, err)
	assert.Len(t, stations, 2)
}

func TestCollection_RejectsNilRecords(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "1.0", 0),
		newTestRecord(t, res, 2, t1, 439, "2.0", 0),
	)
	stations, err := c.GroupedByStation()
	require.NoError(t, err)
	require.Len(t, stations, 2)
	cached := c.byStation

	err = c.Append(newTestRecord(t, res, 3, t1, 439, "3.0", 0), nil)
	require.ErrorIs(t, err, domain.ErrInvalidRecord)
	require.ErrorIs(t, c.Extend(nil), domain.ErrInvalidRecord)
	require.ErrorIs(t, c.Set(0, nil), domain.ErrInvalidRecord)

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(nil))
	assert.Same(t, cached, c.byStation, "rejected calls keep the caches")

	stations, err = c.GroupedByStation()
	require.NoError(t, err)
	assert.Len(t, stations, 2)
}

func TestCollection_LocalDay(t *testing.T) {
	res, _ := newFixture(t)
	// Asheville is UTC-5. The hourly value stamped 05 UTC covers 04-05 UTC,
	// i.e. 23:00-24:00 local on the previous day; the sub-hour value at
	// 05:00 UTC is midnight local and falls on the next day.
	h := hourID(2024, time.May, 2, 5)

	hourly := newTestRecord(t, res, 1, h, 439, "15.0", 0)
	nextHourly := newTestRecord(t, res, 1, h+1, 439, "14.5", 0)
	channel := newTestRecord(t, res, 1, h, 317, "0.3", 0)

	c := res.Collection(hourly, nextHourly).Plus(res.Collection(channel).Subhourly())

	days, err := c.LocalDays()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240501", "20240502"}, days)

	may1, err := c.ForLocalDay("20240501")
	require.NoError(t, err)
	require.Equal(t, 1, may1.Len())
	assert.Same(t, hourly, may1.At(0))

	may2, err := c.ForLocalDay("20240502")
	require.NoError(t, err)
	assert.Equal(t, 2, may2.Len())

	byName, err := c.ForLocalDay("2024050200")
	require.NoError(t, err)
	assert.Same(t, may2, byName)

	none, err := c.ForLocalDay("19990101")
	require.NoError(t, err)
	assert.Zero(t, none.Len())

	_, err = c.ForLocalDay("")
	require.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestCollection_Observation(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 2, t1, 440, "0.0", 0),
		newTestRecord(t, res, 1, t1+1, 439, "20.1", 0),
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 1, t1, 440, "0.2", 0),
	)

	obs, err := c.Observations()
	require.NoError(t, err)
	assert.Equal(t, []ObservationKey{
		{Station: "Asheville", Time: "05/01/24 13:00 UTC"},
		{Station: "Asheville", Time: "05/01/24 14:00 UTC"},
		{Station: "Boulder", Time: "05/01/24 13:00 UTC"},
	}, obs)

	for r := range c.All() {
		assert.Equal(t, Terse, r.Mode(), "observation grouping renders members tersely")
	}

	ob, err := c.ForObservation(domain.ByName("asheville"), domain.ByID(t1))
	require.NoError(t, err)
	assert.Equal(t, "P_CALC: 0.2 (0), T_CALC: 21.5 (0)", ob.String())

	pretty, err := c.ForObservation(domain.ByID(1), domain.ByName("05/01/24 14:00 UTC"))
	require.NoError(t, err)
	assert.Equal(t, 1, pretty.Len())

	byKey, err := c.ForObservationKey(ObservationKey{Station: "Boulder", Time: "05/01/24 13:00 UTC"})
	require.NoError(t, err)
	assert.Equal(t, 1, byKey.Len())

	miss, err := c.ForObservation(domain.ByID(3), domain.ByID(t1))
	require.NoError(t, err)
	assert.Zero(t, miss.Len())

	_, err = c.ForObservation(domain.Key{}, domain.ByID(t1))
	require.ErrorIs(t, err, domain.ErrInvalidKey)
	_, err = c.ForObservationKey(ObservationKey{Station: "Asheville"})
	require.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestCollection_TimestampKeysAreUTC(t *testing.T) {
	res, lookup := newFixture(t)
	lookup.loc = time.FixedZone("EST", -5*60*60)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 2, t1, 439, "18.0", 0),
	)

	groups, err := c.GroupedByTimestamp()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	want := domain.Timestamp{ID: t1, Time: time.Date(2024, time.May, 1, 13, 0, 0, 0, time.UTC)}
	group, ok := groups[want]
	require.True(t, ok, "timestamp keys must be comparable against UTC times")
	assert.Equal(t, 2, group.Len())
}

func TestCollection_ForVariableAndTimestamp(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 1, t1+1, 439, "20.0", 0),
		newTestRecord(t, res, 2, t1, 440, "0.0", 0),
	)

	temps, err := c.ForVariable(domain.ByName("t_calc"))
	require.NoError(t, err)
	assert.Equal(t, 2, temps.Len())

	vars, err := c.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "P_CALC", vars[0].Name)

	at, err := c.ForTimestamp(domain.ByName("2024050113"))
	require.NoError(t, err)
	assert.Equal(t, 2, at.Len())

	stamps, err := c.Timestamps()
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.Equal(t, "2024050113", stamps[0].Display())

	none, err := c.ForTimestamp(domain.ByID(t1 + 50))
	require.NoError(t, err)
	assert.Zero(t, none.Len())
}

func TestCollection_FillMissing(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 1, t1, 440, "0.2", 0),
		newTestRecord(t, res, 1, t1+1, 439, "20.1", 0),
		newTestRecord(t, res, 2, t1, 440, "0.0", 0),
	)

	temps, err := c.ForVariable(domain.ByID(439))
	require.NoError(t, err)
	require.Equal(t, 2, temps.Len())

	added, err := c.FillMissing()
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 6, c.Len())

	temps, err = c.ForVariable(domain.ByID(439))
	require.NoError(t, err)
	assert.Equal(t, 3, temps.Len(), "variable cache must see placeholders")

	groups, err := c.GroupedByObservation()
	require.NoError(t, err)
	require.Len(t, groups, 3)
	for key, ob := range groups {
		var ids []int
		for r := range ob.All() {
			ids = append(ids, r.VariableID())
		}
		assert.ElementsMatch(t, []int{439, 440}, ids, key.String())
	}

	var placeholders []*Record
	for r := range c.All() {
		if r.IsMissing() {
			placeholders = append(placeholders, r)
		}
	}
	require.Len(t, placeholders, 2)
	for _, p := range placeholders {
		assert.Equal(t, 0, p.Flag())
		assert.Equal(t, MissingValue, p.Value().String())
		assert.Equal(t, 1, p.DecimalPlaces())
		assert.Equal(t, 1, p.PublishedDecimalPlaces())
	}

	boulder, err := c.ForObservation(domain.ByID(2), domain.ByID(t1))
	require.NoError(t, err)
	assert.Equal(t, "P_CALC: 0.0 (0), T_CALC: -9999.0 (0)", boulder.String())

	again, err := c.FillMissing()
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestCollection_FillMissingIsAllOrNothing(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 1, t1, 440, "0.2", 0),
		newTestRecord(t, res, 77, t1, 439, "3.0", 0),
	)

	_, err := c.FillMissing()
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 3, c.Len())
	assert.Nil(t, c.byObservation)
	for r := range c.All() {
		assert.Equal(t, Standard, r.Mode(), "failed grouping must not touch records")
	}
}

func TestCollection_Subhourly(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	src := res.Collection(
		newTestRecord(t, res, 1, t1, 314, "0.1", 0),
		newTestRecord(t, res, 1, t1, 439, "21.5", 0),
		newTestRecord(t, res, 1, t1, 315, "0.2", 0),
		newTestRecord(t, res, 1, t1, 331, "18.0", 0),
	)

	view := src.Subhourly()
	require.Equal(t, 3, view.Len())
	assert.Equal(t, 4, src.Len(), "source is not modified")

	want := []struct {
		variable int
		name     string
		display  string
	}{
		{10000, "P15", "202405011215"},
		{10000, "P15", "202405011230"},
		{10002, "T5", "202405011205"},
	}
	for i, w := range want {
		r := view.At(i)
		assert.True(t, r.IsSubhourly())
		assert.Equal(t, w.variable, r.VariableID())
		v, err := r.Variable()
		require.NoError(t, err)
		assert.Equal(t, w.name, v.Name)
		ts, err := r.Timestamp()
		require.NoError(t, err)
		assert.Equal(t, w.display, ts.Display())
		assert.Equal(t, t1, r.TimestampID())
	}

	p15, err := view.ForVariable(domain.ByName("P15"))
	require.NoError(t, err)
	assert.Equal(t, 2, p15.Len())

	stamps, err := view.Timestamps()
	require.NoError(t, err)
	assert.Len(t, stamps, 3, "sub-hour records group by minute")

	added, err := view.FillMissing()
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	obs, err := view.Observations()
	require.NoError(t, err)
	assert.Equal(t, []ObservationKey{
		{Station: "Asheville", Time: "05/01/24 12:05 UTC"},
		{Station: "Asheville", Time: "05/01/24 12:15 UTC"},
		{Station: "Asheville", Time: "05/01/24 12:30 UTC"},
	}, obs)
	for _, k := range obs {
		ob, err := view.ForObservationKey(k)
		require.NoError(t, err)
		assert.Equal(t, 2, ob.Len(), k.String())
	}
}

func TestCollection_PlusMinusContains(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	a := newTestRecord(t, res, 1, t1, 439, "1.0", 0)
	b := newTestRecord(t, res, 1, t1, 440, "2.0", 0)
	c := newTestRecord(t, res, 2, t1, 439, "3.0", 0)

	left := res.Collection(a, b)
	right := res.Collection(b, c)

	sum := left.Plus(right)
	assert.Equal(t, 4, sum.Len(), "duplicates are kept")
	assert.Equal(t, 2, left.Len())

	diff := sum.Minus(res.Collection(newTestRecord(t, res, 1, t1, 440, "2.00", 0)))
	assert.Equal(t, []Key{a.Key(), c.Key()}, keysOf(diff))

	assert.True(t, left.Contains(newTestRecord(t, res, 1, t1, 439, "1", 0)))
	assert.False(t, left.Contains(c))
}

func TestCollection_String(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 2, t1, 439, "5.0", 0),
		newTestRecord(t, res, 1, t1, 439, "21.5", 1),
	)

	assert.Equal(t,
		"Asheville, 2024050113, T_CALC: 21.5 (1), Boulder, 2024050113, T_CALC: 5.0 (0)",
		c.String())
	assert.Equal(t, 2, c.At(0).StationID(), "rendering does not reorder the collection")
	assert.Empty(t, res.Collection().String())
}

func TestCollection_SumAndMean(t *testing.T) {
	res, _ := newFixture(t)
	t1 := hourID(2024, time.May, 1, 13)
	c := res.Collection(
		newTestRecord(t, res, 1, t1, 440, "1.5", 0),
		newTestRecord(t, res, 1, t1+1, 440, "-9999.0", 0),
		newTestRecord(t, res, 1, t1+2, 440, "2.5", 0),
	)

	sum, err := c.Sum()
	require.NoError(t, err)
	assert.Zero(t, sum.Cmp(apd.New(4, 0)), "got %s", sum)

	mean, err := c.Mean()
	require.NoError(t, err)
	assert.Zero(t, mean.Cmp(apd.New(2, 0)), "got %s", mean)

	onlyMissing := res.Collection(newTestRecord(t, res, 1, t1, 440, "-9999.0", 0))
	_, err = onlyMissing.Mean()
	require.ErrorIs(t, err, domain.ErrNoValue)
}
