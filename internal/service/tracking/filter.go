package tracking

import "github.com/mamadbah2/tracklog/internal/domain/models"

// Filter returns the counts matching every predicate, in their original order.
func Filter(all []models.InventoryCount, p models.Predicates) []models.InventoryCount {
	view := make([]models.InventoryCount, 0, len(all))
	for _, c := range all {
		if p.Matches(c) {
			view = append(view, c)
		}
	}
	return view
}

// Entry pairs a record with the identity edit operations address it by.
// Records stored without an identity get one that is never written back.
type Entry struct {
	ID     string                `json:"id"`
	Record models.InventoryCount `json:"record"`
}

// Entries wraps counts for JSON output.
func Entries(counts []models.InventoryCount) []Entry {
	entries := make([]Entry, len(counts))
	for i, c := range counts {
		entries[i] = Entry{ID: c.ID, Record: c}
	}
	return entries
}
