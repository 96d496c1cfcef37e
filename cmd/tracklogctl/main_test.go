package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
	"github.com/mamadbah2/tracklog/internal/repository/kv"
	"github.com/mamadbah2/tracklog/internal/service/tracking"
	"github.com/mamadbah2/tracklog/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_DIR", dir)
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	backend, err := kv.NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	st := store.New(backend, "", "", zap.NewNop())
	require.NoError(t, st.SaveAll(context.Background(), []models.InventoryCount{
		{ID: "a", TagNumber: "T-100", Category: "Electrical", Description: "Copper wire", Quantity: models.NumberQuantity(12)},
		{ID: "b", TagNumber: "T-200", Category: "Plumbing", Description: "PVC elbow"},
	}))
	return st
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	filter = models.Predicates{}
	listJSON, deleteYes, exportDir, envFile, verbose = false, false, ".", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListTable(t *testing.T) {
	setupStore(t)

	out, err := run(t, "list", "--category", "elec")
	require.NoError(t, err)
	assert.Contains(t, out, "Tag #")
	assert.Contains(t, out, "T-100")
	assert.NotContains(t, out, "T-200")
}

func TestListJSON(t *testing.T) {
	setupStore(t)

	out, err := run(t, "list", "--json")
	require.NoError(t, err)

	var entries []tracking.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "12", entries[0].Record.Quantity.String())
}

func TestListJSONNamesRecordsStoredWithoutID(t *testing.T) {
	st := setupStore(t)
	require.NoError(t, st.SaveAll(context.Background(), []models.InventoryCount{
		{TagNumber: "T-300", Category: "Tools", Timestamp: 100},
	}))

	out, err := run(t, "list", "--json")
	require.NoError(t, err)

	var entries []tracking.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "T-300", entries[0].Record.TagNumber)

	out, err = run(t, "delete", entries[0].ID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Entry deleted: "+entries[0].ID)

	counts, _, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestDeleteRequiresYes(t *testing.T) {
	st := setupStore(t)

	_, err := run(t, "delete", "a")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, "delete", "a", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Entry deleted: a")

	counts, _, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "b", counts[0].ID)

	_, err = run(t, "delete", "missing", "--yes")
	assert.ErrorContains(t, err, "no entry with id missing")
}

func TestExportWritesWorkbook(t *testing.T) {
	setupStore(t)
	outDir := t.TempDir()

	_, err := run(t, "user", "dana")
	require.NoError(t, err)

	out, err := run(t, "export", "--tag", "T-2", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 entries")

	matches, err := filepath.Glob(filepath.Join(outDir, "inventory_counts_log_dana_*.xlsx"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportNothing(t *testing.T) {
	setupStore(t)

	out, err := run(t, "export", "--tag", "nope", "--out", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No tracking data to export.")
}

func TestUserShowsName(t *testing.T) {
	st := setupStore(t)
	require.NoError(t, st.SetUserName(context.Background(), "sam"))

	out, err := run(t, "user")
	require.NoError(t, err)
	assert.Equal(t, "sam\n", out)
}

func TestReadCountRecords(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	input := "Tag #,Category,Quantity,Notes,Extra\nT-9,Electrical,4.5,fresh,x\nT-10,Plumbing,,,y\n"

	counts, err := readCountRecords(strings.NewReader(input), now)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, "T-9", counts[0].TagNumber)
	assert.True(t, counts[0].Quantity.IsNumber())
	assert.Equal(t, "4.5", counts[0].Quantity.String())
	assert.Equal(t, int64(1700000000000), counts[0].Timestamp)
	assert.Equal(t, "undefined", counts[1].Quantity.String())
}

func TestImportAppends(t *testing.T) {
	st := setupStore(t)
	path := filepath.Join(t.TempDir(), "counts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Tag #,Description\nT-300,Gate valve\n"), 0o644))

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 entries")

	counts, _, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, "T-300", counts[2].TagNumber)
	assert.NotEmpty(t, counts[2].ID)
}
