package record

import (
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/couchcryptid/climate-records/internal/domain"
)

// MissingValue is the sentinel carried by placeholder records.
const MissingValue = "-9999.0"

// legacyMissingValue is the older sentinel still found in some rows.
const legacyMissingValue = "-999.0"

var (
	missingSentinel       = apd.New(-9999, 0)
	legacyMissingSentinel = apd.New(-999, 0)
)

// decimalContext is used for arithmetic and display rounding.
var decimalContext = apd.Context{
	Precision:   34,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps,
	Rounding:    apd.RoundHalfUp,
}

// Record is one station-timestamp-variable value with its quality flag.
// Records are immutable apart from their rendering mode; derived fields
// are resolved on first use and memoised.
type Record struct {
	res *Resolver

	stationID              int
	timestampID            int
	variableID             int
	offset                 string // sub-hour offset of a derived group record
	value                  *apd.Decimal
	flag                   int
	decimalPlaces          int
	publishedDecimalPlaces int
	key                    Key

	mode Mode

	station   lazy[domain.Station]
	variable  lazy[domain.Variable]
	timestamp lazy[domain.Timestamp]
	subhour   lazy[subhourResult]
}

type recordFields struct {
	stationID              int
	timestampID            int
	variableID             int
	offset                 string
	value                  *apd.Decimal
	flag                   int
	decimalPlaces          int
	publishedDecimalPlaces int
}

func newRecord(res *Resolver, f recordFields) *Record {
	r := &Record{
		res:                    res,
		stationID:              f.stationID,
		timestampID:            f.timestampID,
		variableID:             f.variableID,
		offset:                 f.offset,
		value:                  f.value,
		flag:                   f.flag,
		decimalPlaces:          f.decimalPlaces,
		publishedDecimalPlaces: f.publishedDecimalPlaces,
	}
	var reduced apd.Decimal
	reduced.Reduce(f.value)
	if reduced.IsZero() {
		reduced.Negative = false
	}
	r.key = Key{
		StationID:   f.stationID,
		TimestampID: f.timestampID,
		Offset:      f.offset,
		VariableID:  f.variableID,
		Value:       reduced.String(),
		Flag:        f.flag,
	}
	return r
}

// Key is the identity tuple of a record. Two records are equal iff their
// keys are equal; Key is comparable and serves as the record's hash.
// Offset is empty except for derived sub-hour records, where it
// distinguishes the minutes within one hourly timestamp id.
type Key struct {
	StationID   int
	TimestampID int
	Offset      string
	VariableID  int
	Value       string // reduced decimal, so 1.20 and 1.2 compare equal
	Flag        int
}

// StationID returns the raw station id.
func (r *Record) StationID() int { return r.stationID }

// TimestampID returns the raw hourly timestamp id.
func (r *Record) TimestampID() int { return r.timestampID }

// VariableID returns the raw variable id.
func (r *Record) VariableID() int { return r.variableID }

// Value returns a copy of the exact value.
func (r *Record) Value() *apd.Decimal { return new(apd.Decimal).Set(r.value) }

// Flag returns the quality flag bitmask.
func (r *Record) Flag() int { return r.flag }

// DecimalPlaces returns the display precision.
func (r *Record) DecimalPlaces() int { return r.decimalPlaces }

// PublishedDecimalPlaces returns the precision used for published products.
func (r *Record) PublishedDecimalPlaces() int { return r.publishedDecimalPlaces }

// Key returns the identity tuple of r.
func (r *Record) Key() Key { return r.key }

// Equal reports whether r and o carry the same identity tuple.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.key == o.key
}

// IsSubhourly reports whether r is on a synthetic sub-hour group variable.
func (r *Record) IsSubhourly() bool { return r.variableID >= domain.SubhourlyIDBase }

// IsMissing reports whether r carries one of the missing-value sentinels.
func (r *Record) IsMissing() bool {
	return r.value.Cmp(missingSentinel) == 0 || r.value.Cmp(legacyMissingSentinel) == 0
}

// Station resolves and memoises the record's station.
func (r *Record) Station() (domain.Station, error) {
	return r.station.get(func() (domain.Station, error) { return r.res.station(r.stationID) })
}

// Variable resolves and memoises the record's variable.
func (r *Record) Variable() (domain.Variable, error) {
	return r.variable.get(func() (domain.Variable, error) { return r.res.variable(r.variableID) })
}

// Timestamp resolves and memoises the record's timestamp. Derived sub-hour
// records resolve to their minute within the hour.
func (r *Record) Timestamp() (domain.Timestamp, error) {
	return r.timestamp.get(func() (domain.Timestamp, error) { return r.res.timestamp(r.timestampID, r.offset) })
}

// SubhourInfo describes the sub-hour group a record belongs to.
type SubhourInfo struct {
	GroupID     int
	Offset      string
	Name        string
	Description string
}

type subhourResult struct {
	info SubhourInfo
	ok   bool
}

// Subhour returns the sub-hour group of r. Group id and offset are derived
// together from the raw variable id in a single step, so the offset can
// never be lost by resolving the group first. Records on a group variable
// report their own id and carried offset.
func (r *Record) Subhour() (SubhourInfo, bool) {
	res, _ := r.subhour.get(func() (subhourResult, error) {
		groupID, offset := r.variableID, r.offset
		if !r.IsSubhourly() {
			m, ok := r.res.membership(r.variableID)
			if !ok {
				return subhourResult{}, nil
			}
			groupID, offset = m.GroupID, m.Offset
		}
		name := r.res.groupName(groupID)
		if name == "" {
			return subhourResult{}, nil
		}
		return subhourResult{ok: true, info: SubhourInfo{
			GroupID:     groupID,
			Offset:      offset,
			Name:        name,
			Description: r.res.groupDescription(groupID),
		}}, nil
	})
	return res.info, res.ok
}

// Add returns value + x.
func (r *Record) Add(x *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	_, err := decimalContext.Add(d, r.value, x)
	return d, err
}

// Sub returns value - x.
func (r *Record) Sub(x *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	_, err := decimalContext.Sub(d, r.value, x)
	return d, err
}

// Mul returns value * x.
func (r *Record) Mul(x *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	_, err := decimalContext.Mul(d, r.value, x)
	return d, err
}

// Quo returns value / x.
func (r *Record) Quo(x *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	_, err := decimalContext.Quo(d, r.value, x)
	return d, err
}

// Float64 returns the value as a float64 for plotting-style consumers.
func (r *Record) Float64() (float64, error) { return r.value.Float64() }

// derive returns a copy of r with a different variable and sub-hour offset.
func (r *Record) derive(variableID int, offset string) *Record {
	d := newRecord(r.res, recordFields{
		stationID:              r.stationID,
		timestampID:            r.timestampID,
		variableID:             variableID,
		offset:                 offset,
		value:                  r.value,
		flag:                   r.flag,
		decimalPlaces:          r.decimalPlaces,
		publishedDecimalPlaces: r.publishedDecimalPlaces,
	})
	if st, ok := r.station.peek(); ok {
		d.station.set(st)
	}
	return d
}

// lazy memoises a derived field. Failed resolutions are not memoised.
type lazy[T any] struct {
	val T
	ok  bool
}

func (l *lazy[T]) get(resolve func() (T, error)) (T, error) {
	if l.ok {
		return l.val, nil
	}
	v, err := resolve()
	if err != nil {
		var zero T
		return zero, err
	}
	l.val, l.ok = v, true
	return v, nil
}

func (l *lazy[T]) set(v T) { l.val, l.ok = v, true }

func (l *lazy[T]) peek() (T, bool) { return l.val, l.ok }

func idLabel(id int) string { return "#" + strconv.Itoa(id) }
