// Package catalog is an in-memory [domain.Lookup] over a station and
// element catalog, with hourly timestamp ids computed from a fixed epoch.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/climate-records/internal/domain"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Epoch is the end of the hour with timestamp id 0.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// TimestampID returns the id of the hour ending at t, truncating any
// minutes.
func TimestampID(t time.Time) int {
	return int(t.UTC().Truncate(time.Hour).Sub(Epoch) / time.Hour)
}

// Catalog resolves stations, variables, and timestamps. It is read-only
// after construction and safe for concurrent use.
type Catalog struct {
	stations  []domain.Station
	variables []domain.Variable

	stationByID  map[int]domain.Station
	variableByID map[int]domain.Variable
}

type catalogFile struct {
	Stations  []domain.Station  `yaml:"stations"`
	Variables []domain.Variable `yaml:"variables"`
}

// New builds a catalog. Ids must be positive and unique, names non-empty,
// and variable ids must stay below the sub-hour group range.
func New(stations []domain.Station, variables []domain.Variable) (*Catalog, error) {
	c := &Catalog{
		stations:     slices.Clone(stations),
		variables:    slices.Clone(variables),
		stationByID:  make(map[int]domain.Station, len(stations)),
		variableByID: make(map[int]domain.Variable, len(variables)),
	}
	for _, st := range stations {
		if st.ID <= 0 || st.Name == "" {
			return nil, fmt.Errorf("catalog: station %d: id and name are required", st.ID)
		}
		if _, dup := c.stationByID[st.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate station id %d", st.ID)
		}
		c.stationByID[st.ID] = st
	}
	for _, v := range variables {
		if v.ID <= 0 || v.Name == "" {
			return nil, fmt.Errorf("catalog: element %d: id and name are required", v.ID)
		}
		if v.IsSubhourlyGroup() {
			return nil, fmt.Errorf("catalog: element %d: ids from %d are reserved for sub-hour groups", v.ID, domain.SubhourlyIDBase)
		}
		if _, dup := c.variableByID[v.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate element id %d", v.ID)
		}
		c.variableByID[v.ID] = v
	}
	slices.SortFunc(c.stations, func(a, b domain.Station) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(c.variables, func(a, b domain.Variable) int { return cmp.Compare(a.ID, b.ID) })
	return c, nil
}

// Load reads a YAML catalog with top-level "stations" and "variables"
// lists.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f catalogFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(f.Stations, f.Variables)
}

// LoadFile opens and loads the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Stations returns every station ordered by id.
func (c *Catalog) Stations() []domain.Station { return slices.Clone(c.stations) }

// Variables returns every variable ordered by id.
func (c *Catalog) Variables() []domain.Variable { return slices.Clone(c.variables) }

// Station resolves a station by id or by name. Names match exactly
// (ignoring case) first, then as a unique substring.
func (c *Catalog) Station(key domain.Key) (domain.Station, error) {
	if err := key.Validate(); err != nil {
		return domain.Station{}, err
	}
	if id, ok := key.ID(); ok {
		st, found := c.stationByID[id]
		if !found {
			return domain.Station{}, fmt.Errorf("station %s: %w", key, domain.ErrNotFound)
		}
		return st, nil
	}
	name, _ := key.Name()
	st, err := match(c.stations, name, func(st domain.Station) []string { return []string{st.Name} })
	if err != nil {
		return domain.Station{}, fmt.Errorf("station %s: %w", key, err)
	}
	return st, nil
}

// Variable resolves a variable by id, name, or description.
func (c *Catalog) Variable(key domain.Key) (domain.Variable, error) {
	if err := key.Validate(); err != nil {
		return domain.Variable{}, err
	}
	if id, ok := key.ID(); ok {
		v, found := c.variableByID[id]
		if !found {
			return domain.Variable{}, fmt.Errorf("element %s: %w", key, domain.ErrNotFound)
		}
		return v, nil
	}
	name, _ := key.Name()
	v, err := match(c.variables, name, func(v domain.Variable) []string { return []string{v.Name, v.Description} })
	if err != nil {
		return domain.Variable{}, fmt.Errorf("element %s: %w", key, err)
	}
	return v, nil
}

// Timestamp resolves an hourly timestamp id, or a name in yyyymmddhh,
// yyyymmddhhmm, or RFC 3339 form. Names with minutes resolve to a sub-hour
// timestamp inside the hour that ends next.
func (c *Catalog) Timestamp(key domain.Key) (domain.Timestamp, error) {
	if err := key.Validate(); err != nil {
		return domain.Timestamp{}, err
	}
	if id, ok := key.ID(); ok {
		return domain.Timestamp{ID: id, Time: Epoch.Add(time.Duration(id) * time.Hour)}, nil
	}
	name, _ := key.Name()
	name = strings.TrimSpace(name)
	switch {
	case len(name) == 10 && isDigits(name):
		t, err := time.Parse("2006010215", name)
		if err != nil {
			return domain.Timestamp{}, fmt.Errorf("datetime %s: %w", key, domain.ErrNotFound)
		}
		return domain.Timestamp{ID: TimestampID(t), Time: t}, nil
	case len(name) == 12 && isDigits(name):
		t, err := time.Parse("200601021504", name)
		if err != nil {
			return domain.Timestamp{}, fmt.Errorf("datetime %s: %w", key, domain.ErrNotFound)
		}
		return subHour(t), nil
	}
	t, err := time.Parse(time.RFC3339, name)
	if err != nil {
		return domain.Timestamp{}, fmt.Errorf("datetime %s: %w", key, domain.ErrNotFound)
	}
	t = t.UTC()
	if t.Minute() == 0 && t.Second() == 0 {
		return domain.Timestamp{ID: TimestampID(t), Time: t}, nil
	}
	return subHour(t), nil
}

// subHour places t in the hour that ends at or after it.
func subHour(t time.Time) domain.Timestamp {
	id := TimestampID(t)
	if !t.Equal(t.Truncate(time.Hour)) {
		id++
	}
	return domain.Timestamp{ID: id, Time: t.Truncate(time.Minute), SubHour: true}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// foldName puts a name in composed normal form and lower case, so that
// "Mayagüez" typed with a combining diaeresis matches the catalog spelling.
func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// match finds the single item whose names equal name ignoring case, or
// failing that, the single item with a name containing it.
func match[T any](items []T, name string, names func(T) []string) (T, error) {
	var zero T
	needle := foldName(name)

	var exact, partial []T
	for _, it := range items {
		hitExact, hitPartial := false, false
		for _, n := range names(it) {
			n = foldName(n)
			if n == needle {
				hitExact = true
			}
			if n != "" && strings.Contains(n, needle) {
				hitPartial = true
			}
		}
		if hitExact {
			exact = append(exact, it)
		}
		if hitPartial {
			partial = append(partial, it)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return zero, fmt.Errorf("%d exact matches: %w", len(exact), domain.ErrAmbiguous)
	case len(partial) == 1:
		return partial[0], nil
	case len(partial) > 1:
		return zero, fmt.Errorf("%d partial matches: %w", len(partial), domain.ErrAmbiguous)
	default:
		return zero, domain.ErrNotFound
	}
}
