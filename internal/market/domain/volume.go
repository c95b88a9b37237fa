// Package domain models net imbalance volumes: how much a slot leaned on
// cross-border exchange, derived from the reconciled interval record.
package domain

import (
	"errors"
	"time"

	interval "energy-balance/internal/interval/domain"
)

// BalanceStatus classifies a slot's cross-border position.
type BalanceStatus string

const (
	// StatusSurplus means the system imported more than it exported.
	StatusSurplus BalanceStatus = "surplus"
	// StatusDeficit means the system exported more than it imported.
	StatusDeficit BalanceStatus = "deficit"
	// StatusBalanced means net exchange stayed within the balanced band.
	StatusBalanced BalanceStatus = "balanced"
)

// BalancedBandMW is the |net| threshold below which a slot counts as
// balanced rather than surplus or deficit.
const BalancedBandMW = 5.0

// ErrNegativeVolume rejects negative import or export volumes.
var ErrNegativeVolume = errors.New("market: negative volume")

// ImbalanceVolume is one slot's cross-border exchange position in MW.
type ImbalanceVolume struct {
	Slot      time.Time
	Import    float64
	Export    float64
	Net       float64
	Status    BalanceStatus
	UpdatedAt time.Time
}

// NewImbalanceVolume derives a volume from aggregate flows. Net is always
// import minus export; positive net is surplus, negative is deficit, and
// anything inside the balanced band counts as balanced.
func NewImbalanceVolume(slot time.Time, importMW, exportMW float64, updatedAt time.Time) (*ImbalanceVolume, error) {
	canonical, err := interval.CanonicalSlot(slot)
	if err != nil {
		return nil, err
	}
	if importMW < 0 || exportMW < 0 {
		return nil, ErrNegativeVolume
	}

	net := importMW - exportMW
	status := StatusBalanced
	switch {
	case net >= BalancedBandMW:
		status = StatusSurplus
	case net <= -BalancedBandMW:
		status = StatusDeficit
	}

	return &ImbalanceVolume{
		Slot:      canonical,
		Import:    importMW,
		Export:    exportMW,
		Net:       net,
		Status:    status,
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

// FromRecord derives the slot's imbalance volume from a reconciled record.
func FromRecord(record *interval.Record) (*ImbalanceVolume, error) {
	if record == nil {
		return nil, errors.New("market: nil record")
	}
	return NewImbalanceVolume(record.Timestamp, record.Imports, record.Exports, record.UpdatedAt)
}
