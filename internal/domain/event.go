package domain

import (
	"context"
	"time"
)

// RawRecord is one row of element values as produced by the query layer.
// Value is nil when the source row has no value. Flag and the decimal
// place counts are kept as the source sends them; record construction
// parses them.
type RawRecord struct {
	StationID              int     `json:"station_id"`
	TimestampID            int     `json:"datetime_id"`
	VariableID             int     `json:"element_id"`
	Value                  *string `json:"value"`
	Flag                   string  `json:"flag"`
	DecimalPlaces          *int    `json:"decimal_places,omitempty"`
	PublishedDecimalPlaces *int    `json:"published_decimal_places,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ReportValue is one variable's value within an observation report.
type ReportValue struct {
	Variable string `json:"variable"`
	Value    string `json:"value"`
	Flag     int    `json:"flag"`
	Missing  bool   `json:"missing,omitempty"`
}

// ObservationReport is the serialized form of one observation (all values
// sharing a station and timestamp) destined for the sink topic.
type ObservationReport struct {
	StationID   int           `json:"station_id"`
	Station     string        `json:"station"`
	TimestampID int           `json:"datetime_id"`
	Time        string        `json:"time"`
	LocalDay    string        `json:"local_day"`
	Values      []ReportValue `json:"values"`
	Synthesized int           `json:"synthesized"`
	ProcessedAt time.Time     `json:"processed_at"`
}
