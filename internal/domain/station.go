package domain

import (
	"fmt"
	"time"
)

// SubhourlyIDBase is the first variable id of the synthetic sub-hour
// group range.
const SubhourlyIDBase = 10000

// Station is a ground station as resolved by a [Lookup].
type Station struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	State       string `json:"state,omitempty" yaml:"state"`
	OffsetHours int    `json:"offset_hours" yaml:"offset_hours"` // local standard time minus UTC
}

// Key returns the by-object lookup key for s.
func (s Station) Key() Key { return ByID(s.ID) }

func (s Station) String() string { return s.Name }

// Variable is a measured element.
type Variable struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Key returns the by-object lookup key for v.
func (v Variable) Key() Key { return ByID(v.ID) }

// IsSubhourlyGroup reports whether v is a synthetic sub-hour group variable.
func (v Variable) IsSubhourlyGroup() bool { return v.ID >= SubhourlyIDBase }

func (v Variable) String() string {
	return fmt.Sprintf("Variable %d:%s:%s", v.ID, v.Name, v.Description)
}

// Timestamp is one UTC hour, or a minute within it for sub-hour records.
type Timestamp struct {
	ID      int       `json:"id"`
	Time    time.Time `json:"time"`
	SubHour bool      `json:"sub_hour,omitempty"`
}

// Key returns the by-object lookup key for ts.
func (ts Timestamp) Key() Key { return ByID(ts.ID) }

// Display renders ts as yyyymmddhh, with minutes appended (yyyymmddhhmm)
// for sub-hour timestamps.
func (ts Timestamp) Display() string {
	if ts.SubHour {
		return ts.Time.UTC().Format("200601021504")
	}
	return ts.Time.UTC().Format("2006010215")
}

// Day returns the 8-digit calendar day of ts.
func (ts Timestamp) Day() string {
	return ts.Time.UTC().Format("20060102")
}

// Pretty renders ts as "mm/dd/yy hh:mm UTC", the form used in
// observation keys.
func (ts Timestamp) Pretty() string {
	return PrettyDisplay(ts.Display())
}

func (ts Timestamp) String() string { return ts.Display() }

// PrettyDisplay reformats a yyyymmddhh[mm] string as "mm/dd/yy hh:mm UTC".
// Strings shorter than ten characters are returned unchanged.
func PrettyDisplay(d string) string {
	if len(d) < 10 {
		return d
	}
	minutes := "00"
	if len(d) >= 12 {
		minutes = d[10:12]
	}
	return fmt.Sprintf("%s/%s/%s %s:%s UTC", d[4:6], d[6:8], d[2:4], d[8:10], minutes)
}
