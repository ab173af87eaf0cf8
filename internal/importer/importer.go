// Package importer bulk-loads user profiles from CSV.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brewcrew/barista/internal/store"
)

var expectedHeader = []string{"first_name", "last_name", "slack_id", "department"}

// Summary reports the outcome of an import.
type Summary struct {
	Imported int
	Skipped  int
}

// ImportFile reads a CSV file and upserts every row as a user.
func ImportFile(ctx context.Context, st store.Store, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Import(ctx, st, f)
}

// Import reads CSV rows (first_name,last_name,slack_id,department) and
// upserts each as a user. Rows without a Slack ID are skipped, not fatal.
func Import(ctx context.Context, st store.Store, r io.Reader) (Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Summary{}, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return Summary{}, err
	}

	var summary Summary
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read csv row: %w", err)
		}

		user := &store.User{
			FirstName:  strings.TrimSpace(record[0]),
			LastName:   strings.TrimSpace(record[1]),
			SlackID:    strings.TrimSpace(record[2]),
			Department: strings.TrimSpace(record[3]),
		}
		if user.SlackID == "" {
			summary.Skipped++
			continue
		}
		if err := st.UpsertUser(ctx, user); err != nil {
			return summary, fmt.Errorf("import user %s: %w", user.SlackID, err)
		}
		summary.Imported++
	}
	return summary, nil
}

func checkHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("csv header must be %s", strings.Join(expectedHeader, ","))
	}
	for i, col := range header {
		if strings.TrimSpace(strings.ToLower(col)) != expectedHeader[i] {
			return fmt.Errorf("csv header must be %s", strings.Join(expectedHeader, ","))
		}
	}
	return nil
}
