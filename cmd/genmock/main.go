// Command genmock generates the raw element value fixture used by the
// pipeline and integration test suites, then runs it through the actual
// record engine so the printed counts match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -catalog data/mock/catalog.yaml \
//	  -raw-out data/mock/raw_element_values.json \
//	  -reports-out data/mock/observation_reports.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/climate-records/internal/catalog"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/pipeline"
	"github.com/couchcryptid/climate-records/internal/record"
	"github.com/couchcryptid/climate-records/internal/subhourly"
	"github.com/jonboulle/clockwork"
)

// firstHour is the end of the first reported hour.
var firstHour = time.Date(2024, time.May, 1, 1, 0, 0, 0, time.UTC)

const (
	hours = 6

	tCalc = 439
	pCalc = 440
)

// p15Channels are the 15-minute precipitation channels reported by the
// first station only.
var p15Channels = []int{314, 315, 316, 317}

// gap marks a value a station does not report at a given hour.
type gap struct {
	station, hour, element int
}

type elementValue struct {
	element int
	value   string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	catalogPath := flag.String("catalog", "", "station and element catalog (YAML)")
	rawOut := flag.String("raw-out", "", "output path for the raw element value fixture")
	reportsOut := flag.String("reports-out", "", "optional output path for the summarized observation reports")
	flag.Parse()

	if *catalogPath == "" || *rawOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -catalog, -raw-out")
	}

	cat, err := catalog.LoadFile(*catalogPath)
	if err != nil {
		return err
	}
	stations := cat.Stations()
	if len(stations) < 3 {
		return fmt.Errorf("catalog needs at least 3 stations, has %d", len(stations))
	}

	rows := generate(stations)
	log.Printf("generated %d rows", len(rows))
	if err := writeJSON(*rawOut, rows); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	groups, err := subhourly.New()
	if err != nil {
		return err
	}
	res := record.NewResolver(cat, groups)

	summary, failed, err := summarize(res, rows, pipeline.Options{FillMissing: true})
	if err != nil {
		return err
	}
	sub, _, err := summarize(res, rows, pipeline.Options{FillMissing: true, Subhourly: true})
	if err != nil {
		return err
	}

	if *reportsOut != "" {
		if err := writeJSON(*reportsOut, summary.Reports); err != nil {
			return fmt.Errorf("writing reports fixture: %w", err)
		}
		log.Printf("wrote reports fixture: %s", *reportsOut)
	}

	printStats(len(rows), failed, summary, sub)
	return nil
}

// generate builds hourly T_CALC and P_CALC rows for every station, plus the
// P15 channels for the first one. Two values are left out and one is null
// so the fixture exercises gap filling and rejected rows.
func generate(stations []domain.Station) []domain.RawRecord {
	gaps := map[gap]bool{
		{station: 1, hour: 3, element: pCalc}: true,
		{station: 2, hour: 4, element: tCalc}: true,
	}
	null := gap{station: 2, hour: 1, element: tCalc}

	var rows []domain.RawRecord //nolint:prealloc // size depends on gaps
	for si, st := range stations[:3] {
		for h := 1; h <= hours; h++ {
			id := catalog.TimestampID(firstHour.Add(time.Duration(h-1) * time.Hour))
			precip := "0.0"
			if h%3 == 0 {
				precip = "0.3"
			}
			values := []elementValue{
				{tCalc, fmt.Sprintf("%.1f", 15.0+float64(si)+float64(h)*0.5)},
				{pCalc, precip},
			}
			if si == 0 {
				for ci, ch := range p15Channels {
					v := "0.0"
					if h%3 == 0 && ci < 2 {
						v = "0.1"
					}
					values = append(values, elementValue{ch, v})
				}
			}

			for _, v := range values {
				g := gap{station: si, hour: h, element: v.element}
				if gaps[g] {
					continue
				}
				row := domain.RawRecord{
					StationID:              st.ID,
					TimestampID:            id,
					VariableID:             v.element,
					Flag:                   "0",
					DecimalPlaces:          intPtr(1),
					PublishedDecimalPlaces: intPtr(1),
				}
				if g != null {
					row.Value = &v.value
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func summarize(res *record.Resolver, rows []domain.RawRecord, opts pipeline.Options) (pipeline.Summary, int, error) {
	tfm := pipeline.NewTransformer(res, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	var (
		records []*record.Record
		failed  int
	)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return pipeline.Summary{}, 0, fmt.Errorf("marshal row: %w", err)
		}
		rec, err := tfm.Transform(ctx, domain.RawEvent{Value: data})
		if err != nil {
			failed++
			continue
		}
		records = append(records, rec)
	}

	summary, err := tfm.Summarize(ctx, records)
	return summary, failed, err
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type stationCount struct {
	station string
	count   int
}

func printStats(rows, failed int, hourly, sub pipeline.Summary) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d (transform ok=%d, failed=%d)\n", rows, rows-failed, failed)
	fmt.Printf("Hourly reports: %d, synthesized values: %d\n", len(hourly.Reports), hourly.Synthesized)
	fmt.Printf("Sub-hour reports: %d, synthesized values: %d\n", len(sub.Reports), sub.Synthesized)

	perStation := map[string]int{}
	for _, r := range hourly.Reports {
		perStation[r.Station] += r.Synthesized
	}
	sc := make([]stationCount, 0, len(perStation))
	for s, c := range perStation {
		sc = append(sc, stationCount{s, c})
	}
	sort.Slice(sc, func(i, j int) bool { return sc[i].station < sc[j].station })
	fmt.Print("Synthesized by station:")
	for _, s := range sc {
		fmt.Printf(" %q=%d", s.station, s.count)
	}
	fmt.Println()

	if len(hourly.Reports) > 0 {
		first := hourly.Reports[0]
		fmt.Printf("\nFirst report:\n")
		fmt.Printf("  Key: %s\n", domain.ReportKey(first))
		fmt.Printf("  Station: %s\n", first.Station)
		fmt.Printf("  Time: %s, local day %s\n", first.Time, first.LocalDay)
		for _, v := range first.Values {
			fmt.Printf("  %s = %s (flag %d, missing %t)\n", v.Variable, v.Value, v.Flag, v.Missing)
		}
	}
}

func intPtr(v int) *int { return &v }
