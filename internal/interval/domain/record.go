package domain

import "time"

// GenerationMix is the per-source production breakdown for one interval, in
// MW. Other is derived as the production not accounted for by named sources.
type GenerationMix struct {
	Nuclear float64
	Coal    float64
	Gas     float64
	Wind    float64
	Hydro   float64
	Solar   float64
	Other   float64
}

// NamedTotal sums the named sources (everything but Other).
func (m GenerationMix) NamedTotal() float64 {
	return m.Nuclear + m.Coal + m.Gas + m.Wind + m.Hydro + m.Solar
}

// WithDerivedOther returns the mix with Other recomputed against the given
// total production, floored at zero.
func (m GenerationMix) WithDerivedOther(totalProduction float64) GenerationMix {
	other := totalProduction - m.NamedTotal()
	if other < 0 {
		other = 0
	}
	m.Other = other
	return m
}

// Record is the canonical interval record, one per 15-minute slot.
// Invariants:
//  1. Timestamp is always a canonical slot boundary and is the natural key.
//  2. NetBalance is always TotalProduction - TotalConsumption, recomputed
//     here and never trusted from an upstream feed.
//  3. Imports/Exports are recomputed from roster-filtered border readings,
//     never accepted as opaque feed totals.
type Record struct {
	Timestamp        time.Time
	TotalProduction  float64
	TotalConsumption float64
	Imports          float64
	Exports          float64
	NetBalance       float64
	Generation       GenerationMix

	// FlowDataComplete is false when the border feed produced no in-roster
	// readings for the slot, so an all-zero Imports/Exports pair can be told
	// apart from a measured zero.
	FlowDataComplete bool

	UpdatedAt time.Time
}

// NetBalance derives the signed balance for a production/consumption pair.
// Negative means deficit, positive means surplus. This is the only source
// of truth for the value; upstream sign inversions are a known failure mode.
func NetBalance(totalProduction, totalConsumption float64) float64 {
	return totalProduction - totalConsumption
}

// NewRecord builds a validated canonical record. The raw timestamp is
// canonicalized, flows must be non-negative, totals must be non-negative,
// and NetBalance is computed here regardless of any upstream value.
func NewRecord(rawTimestamp time.Time, totalProduction, totalConsumption float64, imports, exports float64, mix GenerationMix, flowDataComplete bool, updatedAt time.Time) (*Record, error) {
	slot, err := CanonicalSlot(rawTimestamp)
	if err != nil {
		return nil, err
	}
	if totalProduction < 0 || totalConsumption < 0 {
		return nil, ErrNegativeTotal
	}
	if imports < 0 || exports < 0 {
		return nil, ErrNegativeFlow
	}
	return &Record{
		Timestamp:        slot,
		TotalProduction:  totalProduction,
		TotalConsumption: totalConsumption,
		Imports:          imports,
		Exports:          exports,
		NetBalance:       NetBalance(totalProduction, totalConsumption),
		Generation:       mix.WithDerivedOther(totalProduction),
		FlowDataComplete: flowDataComplete,
		UpdatedAt:        updatedAt.UTC(),
	}, nil
}

// SlotKey returns the record's storage key.
func (r *Record) SlotKey() (SlotKey, error) {
	return NewSlotKey(r.Timestamp)
}

// SameValues reports field-for-field equality ignoring UpdatedAt. Used to
// verify idempotent recomputation.
func (r *Record) SameValues(other *Record) bool {
	if other == nil {
		return false
	}
	return r.Timestamp.Equal(other.Timestamp) &&
		r.TotalProduction == other.TotalProduction &&
		r.TotalConsumption == other.TotalConsumption &&
		r.Imports == other.Imports &&
		r.Exports == other.Exports &&
		r.NetBalance == other.NetBalance &&
		r.Generation == other.Generation &&
		r.FlowDataComplete == other.FlowDataComplete
}
