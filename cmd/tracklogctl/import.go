package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

// countRecord is one CSV line. Headers use the stored field names.
type countRecord struct {
	TagNumber     string `csv:"Tag #"`
	Category      string `csv:"Category"`
	PartNumber    string `csv:"Part #"`
	Description   string `csv:"Description"`
	Location      string `csv:"Location"`
	UnitOfMeasure string `csv:"UOM"`
	Quantity      string `csv:"Quantity"`
	Notes         string `csv:"Notes"`
	Timestamp     int64  `csv:"Timestamp,omitempty"`
}

func (r countRecord) count(now time.Time) models.InventoryCount {
	c := models.InventoryCount{
		TagNumber:     r.TagNumber,
		Category:      r.Category,
		PartNumber:    r.PartNumber,
		Description:   r.Description,
		Location:      r.Location,
		UnitOfMeasure: r.UnitOfMeasure,
		Notes:         r.Notes,
		Timestamp:     r.Timestamp,
	}
	if r.Quantity != "" {
		c.Quantity = models.ParseQuantity(r.Quantity)
	}
	if c.Timestamp == 0 {
		c.Timestamp = now.UnixMilli()
	}
	return c
}

func readCountRecords(r io.Reader, now time.Time) ([]models.InventoryCount, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var records []countRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}

	counts := make([]models.InventoryCount, 0, len(records))
	for _, rec := range records {
		counts = append(counts, rec.count(now))
	}
	return counts, nil
}

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Append counts from a CSV file to the tracking log",
	Long: `Import reads a CSV file whose header uses the stored field names
("Tag #", "Category", "Part #", "Description", "Location", "UOM", "Quantity",
"Notes" and optionally "Timestamp") and appends one entry per line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()

		counts, err := readCountRecords(file, time.Now())
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import.")
			return nil
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		added, err := s.store.Append(cmd.Context(), counts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", len(added))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
