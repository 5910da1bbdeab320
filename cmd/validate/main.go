// Command validate performs data integrity checks on the mock fixtures: the
// station and element catalog, the raw element values, and optionally the
// summarized observation reports. It runs the fixtures through the record
// engine and verifies grouping, gap filling, and sub-hour view invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -catalog data/mock/catalog.yaml \
//	  -raw-json data/mock/raw_element_values.json \
//	  -reports-json data/mock/observation_reports.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/climate-records/internal/catalog"
	"github.com/couchcryptid/climate-records/internal/domain"
	"github.com/couchcryptid/climate-records/internal/pipeline"
	"github.com/couchcryptid/climate-records/internal/record"
	"github.com/couchcryptid/climate-records/internal/subhourly"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "path to the station and element catalog (YAML)")
	rawJSON := flag.String("raw-json", "", "path to the raw element value fixture")
	reportsJSON := flag.String("reports-json", "", "optional path to the observation report fixture")
	flag.Parse()

	if *catalogPath == "" || *rawJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*catalogPath, *rawJSON, *reportsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(catalogPath, rawJSONPath, reportsJSONPath string) int {
	// Set a fixed clock matching genmock so report timestamps compare equal.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	// ── Load all data sources ──
	fmt.Println("=== Climate Record Integrity Validation ===")
	fmt.Println()

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	groups, err := subhourly.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build sub-hour registry: %v\n", err)
		return 1
	}

	rows, err := loadJSON[domain.RawRecord](rawJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw JSON: %v\n", err)
		return 1
	}

	var reports []domain.ObservationReport
	if reportsJSONPath != "" {
		reports, err = loadJSON[domain.ObservationReport](reportsJSONPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load reports JSON: %v\n", err)
			return 1
		}
	}

	res := record.NewResolver(cat, groups)
	records, buildPhase := buildRecords(res, rows)

	// ── Run validation phases ──
	phases := []*phase{
		validateCatalogCoverage(cat, groups, rows),
		buildPhase,
		validateGrouping(res, records),
		validateFill(res, records),
		validateSubhourly(res, records),
	}
	if reportsJSONPath != "" {
		phases = append(phases, validateReports(res, records, reports))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d catalog stations, %d catalog variables, %d raw rows, %d built, %d reports\n",
		len(cat.Stations()), len(cat.Variables()), len(rows), len(records), len(reports))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Phase 1: catalog coverage ──

// validateCatalogCoverage checks every raw row references a known station
// and a known element, either from the catalog or a sub-hour channel.
func validateCatalogCoverage(cat *catalog.Catalog, groups *subhourly.Registry, rows []domain.RawRecord) *phase {
	p := &phase{name: "Catalog coverage"}
	for i, row := range rows {
		if _, err := cat.Station(domain.ByID(row.StationID)); err != nil {
			p.errorf("row %d: station %d: %v", i, row.StationID, err)
		}
		if _, err := cat.Variable(domain.ByID(row.VariableID)); err != nil {
			if _, ok := groups.Resolve(row.VariableID); !ok {
				p.errorf("row %d: element %d: %v", i, row.VariableID, err)
			}
		}
		if _, err := cat.Timestamp(domain.ByID(row.TimestampID)); err != nil {
			p.errorf("row %d: datetime %d: %v", i, row.TimestampID, err)
		}
	}
	return p
}

// ── Phase 2: record construction ──

// buildRecords builds a record per row. Rows without a value are expected
// to be rejected; any other failure or a duplicate record key is an error.
func buildRecords(res *record.Resolver, rows []domain.RawRecord) ([]*record.Record, *phase) {
	p := &phase{name: "Record construction"}
	records := make([]*record.Record, 0, len(rows))
	seen := make(map[record.Key]int, len(rows))
	for i, row := range rows {
		rec, err := res.NewRecord(row)
		if err != nil {
			if !errors.Is(err, domain.ErrNoValue) {
				p.errorf("row %d: %v", i, err)
			}
			continue
		}
		if prev, ok := seen[rec.Key()]; ok {
			p.errorf("row %d duplicates row %d: %s", i, prev, rec)
		}
		seen[rec.Key()] = i
		records = append(records, rec)
	}
	return records, p
}

// ── Phase 3: grouping ──

// validateGrouping checks that the station and observation groupings
// partition the collection and that every member of a station group
// belongs to that station.
func validateGrouping(res *record.Resolver, records []*record.Record) *phase {
	p := &phase{name: "Grouping partitions"}
	coll := res.Collection(records...)

	byStation, err := coll.GroupedByStation()
	if err != nil {
		p.errorf("group by station: %v", err)
		return p
	}
	total := 0
	for st, members := range byStation {
		total += members.Len()
		sub, err := coll.ForStation(st.Key())
		if err != nil {
			p.errorf("station %s: %v", st.Name, err)
			continue
		}
		if sub.Len() != members.Len() {
			p.errorf("station %s: ForStation has %d records, group has %d", st.Name, sub.Len(), members.Len())
		}
		for r := range sub.All() {
			if r.StationID() != st.ID {
				p.errorf("station %s: holds record of station %d", st.Name, r.StationID())
			}
		}
	}
	if total != coll.Len() {
		p.errorf("station groups hold %d records, collection has %d", total, coll.Len())
	}

	byObservation, err := coll.GroupedByObservation()
	if err != nil {
		p.errorf("group by observation: %v", err)
		return p
	}
	total = 0
	for _, members := range byObservation {
		total += members.Len()
	}
	if total != coll.Len() {
		p.errorf("observation groups hold %d records, collection has %d", total, coll.Len())
	}
	return p
}

// ── Phase 4: gap filling ──

// validateFill checks that after filling every observation carries every
// variable exactly once and that a second fill adds nothing.
func validateFill(res *record.Resolver, records []*record.Record) *phase {
	p := &phase{name: "Gap filling"}
	coll := res.Collection(records...)

	variables, err := coll.Variables()
	if err != nil {
		p.errorf("variables: %v", err)
		return p
	}
	added, err := coll.FillMissing()
	if err != nil {
		p.errorf("fill: %v", err)
		return p
	}
	if coll.Len() != len(records)+added {
		p.errorf("collection has %d records after adding %d to %d", coll.Len(), added, len(records))
	}

	byObservation, err := coll.GroupedByObservation()
	if err != nil {
		p.errorf("group by observation: %v", err)
		return p
	}
	for key, members := range byObservation {
		if members.Len() != len(variables) {
			p.errorf("%s: %d values, want %d", key, members.Len(), len(variables))
		}
		seen := make(map[int]bool, members.Len())
		for r := range members.All() {
			if seen[r.VariableID()] {
				p.errorf("%s: variable %d repeated", key, r.VariableID())
			}
			seen[r.VariableID()] = true
		}
	}

	again, err := coll.FillMissing()
	if err != nil {
		p.errorf("second fill: %v", err)
	} else if again != 0 {
		p.errorf("second fill added %d records", again)
	}
	return p
}

// ── Phase 5: sub-hour view ──

// validateSubhourly checks that the sub-hour view holds only group
// variables and one record per sub-hour record of the collection.
func validateSubhourly(res *record.Resolver, records []*record.Record) *phase {
	p := &phase{name: "Sub-hour view"}
	coll := res.Collection(records...)

	members := 0
	for r := range coll.All() {
		if _, ok := r.Subhour(); ok {
			members++
		}
	}

	view := coll.Subhourly()
	if view.Len() != members {
		p.errorf("view has %d records, collection has %d sub-hour records", view.Len(), members)
	}
	for r := range view.All() {
		if !r.IsSubhourly() {
			p.errorf("%s: not on a group variable", r)
		}
		ts, err := r.Timestamp()
		if err != nil {
			p.errorf("%s: %v", r, err)
			continue
		}
		if !ts.SubHour {
			p.errorf("%s: timestamp %s is not sub-hour", r, ts.Display())
		}
	}
	return p
}

// ── Phase 6: report fixture ──

// validateReports summarizes the records the way the pipeline does and
// compares the outcome with the report fixture.
func validateReports(res *record.Resolver, records []*record.Record, want []domain.ObservationReport) *phase {
	p := &phase{name: "Observation reports"}
	tfm := pipeline.NewTransformer(res, pipeline.Options{FillMissing: true}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	summary, err := tfm.Summarize(context.Background(), records)
	if err != nil {
		p.errorf("summarize: %v", err)
		return p
	}
	if diff := cmp.Diff(want, summary.Reports); diff != "" {
		p.errorf("reports differ from fixture (-fixture +engine):\n%s", diff)
	}
	return p
}
