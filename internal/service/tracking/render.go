package tracking

import (
	"slices"
	"time"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

// TimestampLayout mirrors the en-US date-time rendering of the data-entry surface.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// Columns are the tracking log headers in display order.
var Columns = []string{"Tag #", "Category", "Part #", "Description", "Location", "UOM", "Quantity", "Notes", "Timestamp", "Actions"}

// Option is one entry of a closed-choice selector.
type Option struct {
	Value    string
	Selected bool
}

// EditForm is the editable state of a row in Editing.
type EditForm struct {
	Locations []Option
	UOMs      []Option
	Quantity  string
	Notes     string
}

// Row is a rendered tracking log line. ID tags the row actions.
type Row struct {
	ID          string
	Tag         string
	Category    string
	PartNumber  string
	Description string
	Location    string
	UOM         string
	Quantity    string
	Notes       string
	Timestamp   string
	Edit        *EditForm
}

// Cells returns the display columns before the actions column.
func (r Row) Cells() []string {
	return []string{r.Tag, r.Category, r.PartNumber, r.Description, r.Location, r.UOM, r.Quantity, r.Notes, r.Timestamp}
}

// Editing reports whether the row shows its edit form.
func (r Row) Editing() bool { return r.Edit != nil }

// Renderer projects counts into display rows.
type Renderer struct {
	catalog  models.Catalog
	location *time.Location
}

// NewRenderer builds a renderer. A nil location renders in time.Local.
func NewRenderer(catalog models.Catalog, location *time.Location) *Renderer {
	if location == nil {
		location = time.Local
	}
	return &Renderer{catalog: catalog, location: location}
}

// Render builds one row per count. Rows whose identity has a draft are rendered
// in edit mode from the draft.
func (r *Renderer) Render(counts []models.InventoryCount, drafts map[string]models.Draft) []Row {
	rows := make([]Row, 0, len(counts))
	for _, c := range counts {
		row := Row{
			ID:          c.ID,
			Tag:         c.TagNumber,
			Category:    c.Category,
			PartNumber:  c.PartNumber,
			Description: c.Description,
			Location:    c.Location,
			UOM:         c.UnitOfMeasure,
			Quantity:    c.Quantity.String(),
			Notes:       c.Notes,
			Timestamp:   r.FormatTimestamp(c.Timestamp),
		}
		if d, ok := drafts[c.ID]; ok {
			row.Edit = &EditForm{
				Locations: options(r.catalog.Locations, d.Location),
				UOMs:      options(r.catalog.UOMs, d.UnitOfMeasure),
				Quantity:  d.Quantity.Input(),
				Notes:     d.Notes,
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatTimestamp renders a millisecond epoch, or "" when unset.
func (r *Renderer) FormatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(r.location).Format(TimestampLayout)
}

// options marks current as selected. A current value outside the list is
// offered first so saving an untouched selector keeps it.
func options(values []string, current string) []Option {
	out := make([]Option, 0, len(values)+1)
	if current != "" && !slices.Contains(values, current) {
		out = append(out, Option{Value: current, Selected: true})
	}
	for _, v := range values {
		out = append(out, Option{Value: v, Selected: v == current})
	}
	return out
}
