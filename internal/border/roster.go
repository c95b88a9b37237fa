package border

import (
	"errors"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Roster is the explicit set of recognized border unit identifiers.
// Membership is a hard filter: readings from units that are absent or
// disabled never contribute to flow totals. The roster is configuration,
// not code, and is passed explicitly into classification on every call.
type Roster struct {
	units map[string]bool
}

// ErrEmptyRoster is returned when a roster has no enabled units.
var ErrEmptyRoster = errors.New("border: empty roster")

// defaultUnitIDs are the interconnection units recognized out of the box.
// Suffixed feed variants (e.g. BEKE115) stay out unless explicitly enabled.
var defaultUnitIDs = []string{
	"MUKA", "ISPOZ", "IS", "UNGE", "CIOA", "GOTE", "VULC", "DOBR", "VARN",
	"KOZL1", "KOZL2", "DJER", "SIP_", "PANCEVO21", "PANCEVO22", "KIKI",
	"SAND", "BEKE1",
}

// NewRoster builds a roster from a unit id -> enabled map.
func NewRoster(units map[string]bool) (Roster, error) {
	enabled := 0
	copied := make(map[string]bool, len(units))
	for id, on := range units {
		if id == "" {
			continue
		}
		copied[id] = on
		if on {
			enabled++
		}
	}
	if enabled == 0 {
		return Roster{}, ErrEmptyRoster
	}
	return Roster{units: copied}, nil
}

// DefaultRoster returns the built-in roster with all default units enabled.
func DefaultRoster() Roster {
	units := make(map[string]bool, len(defaultUnitIDs))
	for _, id := range defaultUnitIDs {
		units[id] = true
	}
	return Roster{units: units}
}

type rosterFile struct {
	Units map[string]bool `yaml:"units"`
}

// LoadRoster reads a roster from a yaml file of the form:
//
//	units:
//	  MUKA: true
//	  BEKE115: false
//
// An empty path returns the default roster.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return DefaultRoster(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, err
	}
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Roster{}, err
	}
	return NewRoster(file.Units)
}

// Recognizes reports whether the unit id is present and enabled.
func (r Roster) Recognizes(unitID string) bool {
	if r.units == nil {
		return false
	}
	return r.units[unitID]
}

// UnitIDs returns the enabled unit ids in stable order.
func (r Roster) UnitIDs() []string {
	ids := make([]string, 0, len(r.units))
	for id, on := range r.units {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Size returns the number of enabled units.
func (r Roster) Size() int {
	count := 0
	for _, on := range r.units {
		if on {
			count++
		}
	}
	return count
}
