package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

func sampleCounts() []models.InventoryCount {
	return []models.InventoryCount{
		{TagNumber: "T-001", Category: "Tools", PartNumber: "DW-100", Description: "Cordless drill", Timestamp: 100, ID: "a"},
		{TagNumber: "T-002", Category: "Parts", PartNumber: "BLT-8", Description: "Hex bolt", Timestamp: 200, ID: "b"},
		{TagNumber: "T-010", Category: "Tools", PartNumber: "HM-2", Description: "Claw hammer", Timestamp: 300, ID: "c"},
		{Timestamp: 400, ID: "d"},
	}
}

func ids(counts []models.InventoryCount) []string {
	out := make([]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, c.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	all := sampleCounts()

	tests := []struct {
		name string
		p    models.Predicates
		want []string
	}{
		{name: "empty predicates keep everything", p: models.Predicates{}, want: []string{"a", "b", "c", "d"}},
		{name: "category is case-insensitive", p: models.Predicates{Category: "tOOLS"}, want: []string{"a", "c"}},
		{name: "tag substring", p: models.Predicates{Tag: "t-00"}, want: []string{"a", "b"}},
		{name: "all predicates must hold", p: models.Predicates{Category: "tools", Description: "HAMMER"}, want: []string{"c"}},
		{name: "part number", p: models.Predicates{PartNumber: "blt"}, want: []string{"b"}},
		{name: "no match", p: models.Predicates{Description: "saw"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(all, tt.p)))
		})
	}
}

func TestFilterIdentity(t *testing.T) {
	all := sampleCounts()
	assert.Equal(t, all, Filter(all, models.Predicates{}))
}

func TestFilterDoesNotAliasInput(t *testing.T) {
	all := sampleCounts()
	view := Filter(all, models.Predicates{})
	view[0].Notes = "changed"
	assert.Empty(t, all[0].Notes)
}
