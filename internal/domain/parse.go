package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseRawEvent deserializes a RawEvent's value into a RawRecord.
// It expects the flat JSON produced by the query layer.
func ParseRawEvent(raw RawEvent) (RawRecord, error) {
	var rec RawRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return RawRecord{}, fmt.Errorf("parse raw record: %w", err)
	}
	if rec.StationID == 0 || rec.TimestampID == 0 || rec.VariableID == 0 {
		return RawRecord{}, fmt.Errorf("parse raw record: missing id (station=%d datetime=%d element=%d)",
			rec.StationID, rec.TimestampID, rec.VariableID)
	}
	return rec, nil
}

// ReportKey produces the deterministic message key for a report:
// "<station id>:<timestamp id>[:<hhmm>]". Sub-hour observations within the
// same hour get distinct keys through the minute suffix.
func ReportKey(r ObservationReport) string {
	key := strconv.Itoa(r.StationID) + ":" + strconv.Itoa(r.TimestampID)
	if len(r.Time) >= 14 && r.Time[12:14] != "00" {
		key += ":" + r.Time[9:11] + r.Time[12:14]
	}
	return key
}
