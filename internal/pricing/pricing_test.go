package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/slot-reservation/internal/model"
)

var table = RateTable{
	Currency:     "jpy",
	AdultCents:   2500,
	StudentCents: 1500,
	ChildCents:   1000,
	InfantCents:  0,
}

func TestQuote(t *testing.T) {
	cases := []struct {
		name  string
		party model.PartyCounts
		want  int64
	}{
		{"single adult", model.PartyCounts{Adult: 1}, 2500},
		{"family", model.PartyCounts{Adult: 2, Child: 1, Infant: 1}, 6000},
		{"students only", model.PartyCounts{Student: 3}, 4500},
		{"free infant alone still books", model.PartyCounts{Infant: 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := table.Quote(tc.party)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuote_EmptyParty(t *testing.T) {
	_, err := table.Quote(model.PartyCounts{})
	require.ErrorIs(t, err, ErrEmptyParty)
}
