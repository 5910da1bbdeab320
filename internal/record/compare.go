package record

import (
	"cmp"
	"strings"
)

// Compare orders records by station name, then timestamp, then variable
// name, value, and flag. Timestamps are compared by their display strings
// when either record is sub-hourly, since hourly timestamp ids are too
// coarse to tell minutes apart; otherwise the ids are compared directly.
// Names that fail to resolve sort as "#<id>".
func Compare(a, b *Record) int {
	if c := strings.Compare(a.stationName(), b.stationName()); c != 0 {
		return c
	}
	if a.IsSubhourly() || b.IsSubhourly() {
		if c := strings.Compare(a.timestampDisplay(), b.timestampDisplay()); c != 0 {
			return c
		}
	} else if c := cmp.Compare(a.timestampID, b.timestampID); c != 0 {
		return c
	}
	if c := strings.Compare(a.variableName(), b.variableName()); c != 0 {
		return c
	}
	if c := a.value.Cmp(b.value); c != 0 {
		return c
	}
	return cmp.Compare(a.flag, b.flag)
}

func (r *Record) stationName() string {
	st, err := r.Station()
	if err != nil {
		return idLabel(r.stationID)
	}
	return st.Name
}

func (r *Record) variableName() string {
	v, err := r.Variable()
	if err != nil {
		return idLabel(r.variableID)
	}
	return v.Name
}

func (r *Record) timestampDisplay() string {
	ts, err := r.Timestamp()
	if err != nil {
		return idLabel(r.timestampID) + r.offset
	}
	return ts.Display()
}
