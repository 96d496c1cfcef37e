package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

type staticUser struct {
	name string
	err  error
}

func (u staticUser) UserName(context.Context) (string, error) { return u.name, u.err }

func fixedNow() time.Time { return time.Date(2024, 6, 30, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600)) }

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestExportEmpty(t *testing.T) {
	svc := NewService(staticUser{name: "dana"}, nil)
	_, err := svc.Export(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestExportWorkbook(t *testing.T) {
	svc := NewService(staticUser{name: "dana"}, nil)
	svc.now = fixedNow

	counts := []models.InventoryCount{
		{TagNumber: "T-1", Category: "Tools", Quantity: models.NumberQuantity(4), Timestamp: 100, ID: "a"},
		{Category: "Parts", Location: "A1", Quantity: models.TextQuantity("n/a"), Timestamp: 200, ID: "b"},
	}

	snap, err := svc.Export(context.Background(), counts)
	require.NoError(t, err)
	assert.Equal(t, "inventory_counts_log_dana_2024-07-01.xlsx", snap.FileName)
	assert.Equal(t, []string{"Tag #", "Category", "Quantity", "Timestamp", "Location"}, snap.Table.Header)

	rows := readSheet(t, snap.Data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Tag #", "Category", "Quantity", "Timestamp", "Location"}, rows[0])
	assert.Equal(t, []string{"T-1", "Tools", "4", "100"}, rows[1])
	assert.Equal(t, []string{"", "Parts", "n/a", "200", "A1"}, rows[2])
}

func TestBuildTableUsesStoredKeys(t *testing.T) {
	var counts []models.InventoryCount
	require.NoError(t, json.Unmarshal([]byte(`[{"Tag #":"T-1","Notes":"","Bin":"7","Timestamp":100,"ID":"a"},{"Tag #":"T-2","Notes":"","Timestamp":200}]`), &counts))

	table := BuildTable(counts)
	assert.Equal(t, []string{"Tag #", "Notes", "Bin", "Timestamp"}, table.Header)
	assert.Equal(t, [][]any{{"T-1", "", "7", int64(100)}, {"T-2", "", nil, int64(200)}}, table.Rows)
}

func TestExportUserNameFallback(t *testing.T) {
	counts := []models.InventoryCount{{Timestamp: 1, ID: "a"}}

	for _, users := range []UserNameSource{nil, staticUser{}, staticUser{err: errors.New("boom")}} {
		svc := NewService(users, nil)
		svc.now = fixedNow
		snap, err := svc.Export(context.Background(), counts)
		require.NoError(t, err)
		assert.Equal(t, "inventory_counts_log_user_2024-07-01.xlsx", snap.FileName)
	}
}

type recordingSheet struct {
	sheetRange string
	values     [][]interface{}
}

func (r *recordingSheet) ReplaceRange(_ context.Context, sheetRange string, values [][]interface{}) error {
	r.sheetRange = sheetRange
	r.values = values
	return nil
}

type recordingObjects struct {
	key, contentType string
	data             []byte
}

func (r *recordingObjects) Put(_ context.Context, key string, data []byte, contentType string) error {
	r.key, r.data, r.contentType = key, data, contentType
	return nil
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }
func (failingSink) Deliver(context.Context, Snapshot) error { return errors.New("unreachable") }

func TestPublish(t *testing.T) {
	ctx := context.Background()
	snap := Snapshot{
		FileName: "inventory_counts_log_user_2024-07-01.xlsx",
		Data:     []byte("xlsx"),
		Table:    Table{Header: []string{"Tag #"}, Rows: [][]any{{"T-1"}}},
	}

	dir := t.TempDir()
	sheet := &recordingSheet{}
	objects := &recordingObjects{}

	err := Publish(ctx, snap, []Sink{NewDirSink(dir), NewSheetSink(sheet), NewObjectSink(objects, "snapshots/"), failingSink{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	written, readErr := os.ReadFile(filepath.Join(dir, snap.FileName))
	require.NoError(t, readErr)
	assert.Equal(t, "xlsx", string(written))

	assert.Equal(t, "'Inventory Counts'", sheet.sheetRange)
	assert.Equal(t, [][]interface{}{{"Tag #"}, {"T-1"}}, sheet.values)

	assert.Equal(t, "snapshots/"+snap.FileName, objects.key)
	assert.Equal(t, ContentType, objects.contentType)
}
