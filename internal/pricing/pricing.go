// Package pricing is the single authority for charge amounts.  An amount
// is derived from party headcounts exactly once, when a reservation is
// created; checkout always charges the amount stored on the reservation
// row and never anything supplied by a client.
package pricing

import (
	"errors"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/model"
)

// ErrEmptyParty is returned when no chargeable headcount is present.
var ErrEmptyParty = errors.New("party has no members")

// RateTable holds per-category prices in minor currency units.
type RateTable struct {
	Currency     string
	AdultCents   int64
	StudentCents int64
	ChildCents   int64
	InfantCents  int64
}

// FromConfig builds the rate table from startup configuration.
func FromConfig(cfg config.Config) RateTable {
	return RateTable{
		Currency:     cfg.Currency,
		AdultCents:   int64(cfg.PriceAdultCents),
		StudentCents: int64(cfg.PriceStudentCents),
		ChildCents:   int64(cfg.PriceChildCents),
		InfantCents:  int64(cfg.PriceInfantCents),
	}
}

// Quote derives the charge for a party.  Negative counts are rejected by
// validation upstream; a party of zero people cannot be priced.
func (t RateTable) Quote(p model.PartyCounts) (int64, error) {
	if p.Adult+p.Student+p.Child+p.Infant <= 0 {
		return 0, ErrEmptyParty
	}
	total := int64(p.Adult)*t.AdultCents +
		int64(p.Student)*t.StudentCents +
		int64(p.Child)*t.ChildCents +
		int64(p.Infant)*t.InfantCents
	return total, nil
}
