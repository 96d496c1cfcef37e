package tracking

import (
	"maps"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

// RowState is the edit state of a single row.
type RowState int

const (
	// Display shows the stored values read-only.
	Display RowState = iota
	// Editing shows a form bound to a draft.
	Editing
)

func (s RowState) String() string {
	if s == Editing {
		return "editing"
	}
	return "display"
}

// Editor tracks per-row drafts keyed by record identity. Rows move between
// states independently.
type Editor struct {
	drafts map[string]models.Draft
}

// NewEditor returns an editor with every row in Display.
func NewEditor() *Editor {
	return &Editor{drafts: make(map[string]models.Draft)}
}

// Begin moves the row of c into Editing, seeding the draft from the record.
// A row already in Editing keeps its draft.
func (e *Editor) Begin(c models.InventoryCount) models.Draft {
	if d, ok := e.drafts[c.ID]; ok {
		return d
	}
	d := models.DraftFrom(c)
	e.drafts[c.ID] = d
	return d
}

// State reports the state of the row with identity id.
func (e *Editor) State(id string) RowState {
	if _, ok := e.drafts[id]; ok {
		return Editing
	}
	return Display
}

// Finish moves the row back to Display and returns the draft it held.
func (e *Editor) Finish(id string) (models.Draft, bool) {
	d, ok := e.drafts[id]
	delete(e.drafts, id)
	return d, ok
}

// Retain drops drafts whose record is no longer in counts.
func (e *Editor) Retain(counts []models.InventoryCount) {
	present := make(map[string]struct{}, len(counts))
	for _, c := range counts {
		present[c.ID] = struct{}{}
	}
	maps.DeleteFunc(e.drafts, func(id string, _ models.Draft) bool {
		_, ok := present[id]
		return !ok
	})
}

// Drafts returns a copy of the open drafts.
func (e *Editor) Drafts() map[string]models.Draft {
	return maps.Clone(e.drafts)
}
