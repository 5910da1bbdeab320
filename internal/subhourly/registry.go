// Package subhourly maps sub-hour channel variables onto the synthetic group
// variables that fold them into one quantity.
//
// A sensor sampled every 5 (or 15) minutes is stored as twelve (or four)
// channel variables per hour, one per offset "05".."60" ("15".."60"). Each
// channel belongs to exactly one group; a group has an id in the reserved
// range starting at domain.SubhourlyIDBase plus a display name and a
// description.
//
// A Registry is built once with New and shared by pointer. Its tables are
// read-only after construction; only the synthesized group variables are
// filled in lazily.
package subhourly

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/climate-records/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed groups.yaml
var groupsYAML []byte

// Membership is the group a channel variable belongs to and its offset
// within the hour.
type Membership struct {
	GroupID int
	Offset  string
}

type groupFile struct {
	Groups []groupDef `yaml:"groups"`
}

type groupDef struct {
	ID          int            `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Channels    map[int]string `yaml:"channels"`
}

// Registry is the channel → group lookup table.
type Registry struct {
	members      map[int]Membership // raw channel id -> group
	names        map[int]string     // group id -> name
	descriptions map[int]string     // group id -> description
	channels     map[int][]int      // group id -> sorted channel ids
	byName       map[string]int     // lower-cased group name -> group id

	mu        sync.Mutex
	generated map[int]domain.Variable
}

// New builds a Registry from the embedded group table.
func New() (*Registry, error) {
	return parse(groupsYAML)
}

func parse(data []byte) (*Registry, error) {
	var f groupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse subhourly groups: %w", err)
	}

	r := &Registry{
		members:      make(map[int]Membership),
		names:        make(map[int]string, len(f.Groups)),
		descriptions: make(map[int]string, len(f.Groups)),
		channels:     make(map[int][]int, len(f.Groups)),
		byName:       make(map[string]int, len(f.Groups)),
		generated:    make(map[int]domain.Variable),
	}
	for _, g := range f.Groups {
		if err := r.add(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(g groupDef) error {
	if g.ID < domain.SubhourlyIDBase {
		return fmt.Errorf("group %d: id below reserved range %d", g.ID, domain.SubhourlyIDBase)
	}
	if _, dup := r.names[g.ID]; dup {
		return fmt.Errorf("group %d: duplicate id", g.ID)
	}
	if g.Name == "" || g.Description == "" {
		return fmt.Errorf("group %d: name and description are required", g.ID)
	}
	if len(g.Channels) == 0 {
		return fmt.Errorf("group %d: no channels", g.ID)
	}

	ids := make([]int, 0, len(g.Channels))
	for raw, offset := range g.Channels {
		if !validOffset(offset) {
			return fmt.Errorf("group %d: channel %d: invalid offset %q", g.ID, raw, offset)
		}
		if prev, dup := r.members[raw]; dup {
			return fmt.Errorf("channel %d: in groups %d and %d", raw, prev.GroupID, g.ID)
		}
		r.members[raw] = Membership{GroupID: g.ID, Offset: offset}
		ids = append(ids, raw)
	}
	slices.Sort(ids)

	r.names[g.ID] = g.Name
	r.descriptions[g.ID] = g.Description
	r.channels[g.ID] = ids
	r.byName[strings.ToLower(g.Name)] = g.ID
	return nil
}

// validOffset accepts "05", "10", ... "60".
func validOffset(s string) bool {
	if len(s) != 2 || s[0] < '0' || s[0] > '6' || s[1] < '0' || s[1] > '9' {
		return false
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	return n > 0 && n <= 60 && n%5 == 0
}

// Resolve returns the group and offset of a channel variable in one step.
func (r *Registry) Resolve(rawID int) (Membership, bool) {
	m, ok := r.members[rawID]
	return m, ok
}

// GroupID returns the group of a channel variable.
func (r *Registry) GroupID(rawID int) (int, bool) {
	m, ok := r.members[rawID]
	return m.GroupID, ok
}

// Offset returns the sub-hour offset string of a channel variable.
func (r *Registry) Offset(rawID int) (string, bool) {
	m, ok := r.members[rawID]
	return m.Offset, ok
}

// Name returns the group name for a group id, or for the group of a
// channel id.
func (r *Registry) Name(id int) (string, bool) {
	if n, ok := r.names[id]; ok {
		return n, true
	}
	if m, ok := r.members[id]; ok {
		return r.names[m.GroupID], true
	}
	return "", false
}

// Description returns the group description for a group id, or for the
// group of a channel id.
func (r *Registry) Description(id int) (string, bool) {
	if d, ok := r.descriptions[id]; ok {
		return d, true
	}
	if m, ok := r.members[id]; ok {
		return r.descriptions[m.GroupID], true
	}
	return "", false
}

// GroupByName returns the id of the group with the given name
// (case-insensitive).
func (r *Registry) GroupByName(name string) (int, bool) {
	id, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// GroupIDs returns all group ids in ascending order.
func (r *Registry) GroupIDs() []int {
	ids := make([]int, 0, len(r.names))
	for id := range r.names {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Channels returns the channel ids of a group in ascending order.
func (r *Registry) Channels(groupID int) []int {
	return slices.Clone(r.channels[groupID])
}

// GroupVariable returns the synthetic variable for a group id. The value is
// built on first request and reused afterwards.
func (r *Registry) GroupVariable(groupID int) (domain.Variable, bool) {
	name, ok := r.names[groupID]
	if !ok {
		return domain.Variable{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.generated[groupID]; ok {
		return v, true
	}
	v := domain.Variable{ID: groupID, Name: name, Description: r.descriptions[groupID]}
	r.generated[groupID] = v
	return v, true
}
