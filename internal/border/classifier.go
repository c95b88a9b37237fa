package border

// Reading is one raw signed flow measurement from a named border unit.
// Positive values are imports, negative values are exports. Readings are
// ephemeral: they exist for one collection cycle and only the aggregated
// flows survive.
type Reading struct {
	UnitID string
	Value  float64
}

// Contribution is a classified reading: exactly one of Import/Export is
// non-zero (both zero for a zero reading).
type Contribution struct {
	UnitID string
	Import float64
	Export float64
}

// Flows are the aggregated per-interval border totals. Both values are
// always >= 0. A zero pair is a legitimate value, not a sentinel; callers
// that need to tell "no flow" from "no data" consult collection metadata.
type Flows struct {
	Imports float64
	Exports float64
}

// Classify maps a reading to its signed flow contribution under the given
// roster. Readings from unrecognized units are dropped silently: feeds
// routinely carry variant identifiers that must not count, so this is an
// expected filter case, not a fault.
func Classify(reading Reading, roster Roster) (Contribution, bool) {
	if !roster.Recognizes(reading.UnitID) {
		return Contribution{}, false
	}
	c := Contribution{UnitID: reading.UnitID}
	switch {
	case reading.Value > 0:
		c.Import = reading.Value
	case reading.Value < 0:
		c.Export = -reading.Value
	}
	return c, true
}

// ClassifyAll classifies a batch of readings, dropping unrecognized units.
func ClassifyAll(readings []Reading, roster Roster) []Contribution {
	contributions := make([]Contribution, 0, len(readings))
	for _, reading := range readings {
		if c, ok := Classify(reading, roster); ok {
			contributions = append(contributions, c)
		}
	}
	return contributions
}

// Aggregate sums classified contributions into interval flow totals.
// An empty input yields exact zeros.
func Aggregate(contributions []Contribution) Flows {
	var flows Flows
	for _, c := range contributions {
		flows.Imports += c.Import
		flows.Exports += c.Export
	}
	return flows
}

// Net returns the signed net border position (+ = net import).
func (f Flows) Net() float64 { return f.Imports - f.Exports }
