package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

const (
	// SheetName is the single sheet of an exported workbook.
	SheetName = "Inventory Counts"
	// ContentType is the MIME type of an exported workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultUserName = "user"
	dateLayout      = "2006-01-02"
)

// ErrNothingToExport is returned when the view holds no records.
var ErrNothingToExport = errors.New("no tracking data to export")

// UserNameSource provides the user name embedded in file names.
type UserNameSource interface {
	UserName(ctx context.Context) (string, error)
}

// Table is the tabular form of exported counts.
type Table struct {
	Header []string
	Rows   [][]any
}

// Values returns the header followed by the rows.
func (t Table) Values() [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	values = append(values, header)
	return append(values, t.Rows...)
}

// Snapshot is an exported workbook and the table it was built from.
type Snapshot struct {
	FileName string
	Data     []byte
	Table    Table
}

// Service builds spreadsheet exports of the tracking log.
type Service struct {
	users  UserNameSource
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new export service instance.
func NewService(users UserNameSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, logger: logger, now: time.Now}
}

// Export builds the workbook for counts.
func (s *Service) Export(ctx context.Context, counts []models.InventoryCount) (Snapshot, error) {
	if len(counts) == 0 {
		return Snapshot{}, ErrNothingToExport
	}

	user := defaultUserName
	if s.users != nil {
		name, err := s.users.UserName(ctx)
		if err != nil {
			s.logger.Warn("user name unavailable, using default", zap.Error(err))
		} else if name != "" {
			user = name
		}
	}

	table := BuildTable(counts)
	data, err := Workbook(table)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{FileName: FileName(user, s.now()), Data: data, Table: table}
	s.logger.Info("workbook exported", zap.String("file", snap.FileName), zap.Int("records", len(counts)))
	return snap, nil
}

// FileName returns inventory_counts_log_<user>_<YYYY-MM-DD>.xlsx using the UTC date.
func FileName(user string, now time.Time) string {
	if user == "" {
		user = defaultUserName
	}
	return fmt.Sprintf("inventory_counts_log_%s_%s.xlsx", user, now.UTC().Format(dateLayout))
}

// BuildTable lays counts out as rows. Columns are the field names in the order
// they first appear; fields a record lacks stay empty.
func BuildTable(counts []models.InventoryCount) Table {
	var table Table
	index := make(map[string]int)

	for _, c := range counts {
		fields := c.Fields()
		for _, f := range fields {
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = len(table.Header)
				table.Header = append(table.Header, f.Name)
			}
		}
	}

	for _, c := range counts {
		row := make([]any, len(table.Header))
		for _, f := range c.Fields() {
			row[index[f.Name]] = f.Value
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Workbook renders table into an xlsx document with a single sheet.
func Workbook(table Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, row := range table.Values() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("resolve row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
