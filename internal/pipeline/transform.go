package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/record"
)

// Options selects the record engine features applied to every batch.
type Options struct {
	// FillMissing adds placeholder values so every observation in a batch
	// carries every variable seen in that batch.
	FillMissing bool
	// Subhourly reports the sub-hour view only: raw channel values become
	// values of their group variable at their minute within the hour.
	Subhourly bool
}

// RecordTransformer implements Transformer on top of the record engine.
type RecordTransformer struct {
	res    *record.Resolver
	opts   Options
	logger *slog.Logger
}

// NewTransformer creates a RecordTransformer resolving through res.
func NewTransformer(res *record.Resolver, opts Options, logger *slog.Logger) *RecordTransformer {
	return &RecordTransformer{
		res:    res,
		opts:   opts,
		logger: logger,
	}
}

func (t *RecordTransformer) Transform(_ context.Context, raw domain.RawEvent) (*record.Record, error) {
	rr, err := domain.ParseRawEvent(raw)
	if err != nil {
		return nil, err
	}
	rec, err := t.res.NewRecord(rr)
	if err != nil {
		return nil, fmt.Errorf("build record: %w", err)
	}
	return rec, nil
}

// Summarize groups records into one report per observation, ordered by
// station and time.
func (t *RecordTransformer) Summarize(ctx context.Context, records []*record.Record) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	coll := t.res.Collection(records...)
	if t.opts.Subhourly {
		coll = coll.Subhourly()
	}

	original := coll.Len()
	synthesized := 0
	if t.opts.FillMissing {
		n, err := coll.FillMissing()
		if err != nil {
			return Summary{}, err
		}
		synthesized = n
	}
	placeholders := make(map[*record.Record]bool, synthesized)
	for _, r := range coll.Records()[original:] {
		placeholders[r] = true
	}

	localDays, err := coll.GroupedByLocalDay()
	if err != nil {
		return Summary{}, err
	}
	dayOf := make(map[*record.Record]string, coll.Len())
	for day, members := range localDays {
		for r := range members.All() {
			dayOf[r] = day
		}
	}

	keys, err := coll.Observations()
	if err != nil {
		return Summary{}, err
	}
	now := domain.Now()
	reports := make([]domain.ObservationReport, 0, len(keys))
	for _, key := range keys {
		ob, err := coll.ForObservationKey(key)
		if err != nil {
			return Summary{}, err
		}
		report, err := newReport(key, ob, dayOf, placeholders)
		if err != nil {
			return Summary{}, err
		}
		report.ProcessedAt = now
		reports = append(reports, report)
	}

	t.logger.Debug("batch summarized",
		"records", len(records),
		"observations", len(reports),
		"synthesized", synthesized,
	)
	return Summary{Reports: reports, Synthesized: synthesized}, nil
}

func newReport(key record.ObservationKey, ob *record.Collection, dayOf map[*record.Record]string, placeholders map[*record.Record]bool) (domain.ObservationReport, error) {
	first := ob.At(0)
	report := domain.ObservationReport{
		StationID:   first.StationID(),
		Station:     key.Station,
		TimestampID: first.TimestampID(),
		Time:        key.Time,
		LocalDay:    dayOf[first],
		Values:      make([]domain.ReportValue, 0, ob.Len()),
	}
	for r := range ob.All() {
		v, err := r.Variable()
		if err != nil {
			return domain.ObservationReport{}, err
		}
		report.Values = append(report.Values, domain.ReportValue{
			Variable: v.Name,
			Value:    r.FormatValue(),
			Flag:     r.Flag(),
			Missing:  r.IsMissing(),
		})
		if placeholders[r] {
			report.Synthesized++
		}
	}
	return report, nil
}
