package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger"
)

func TestExportReadsBackSameRows(t *testing.T) {
	records := []domain.StoredRecord{
		{
			RecordID:    "rec-1",
			QuoteID:     "QT-1",
			Timestamp:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			ClientName:  "Jane Doe",
			ClientEmail: "jane@example.com",
			Services:    "Contract Review",
			State:       "CA",
			BasePrice:   20000,
			TaxAmount:   1650,
			TotalAmount: 21650,
			Stage:       domain.StageOriginal,
		},
		{
			RecordID:         "rec-2",
			QuoteID:          "QT-1",
			Timestamp:        time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC),
			ClientName:       "Jane Doe",
			ClientEmail:      "jane@example.com",
			Services:         "Contract Review",
			State:            "CA",
			BasePrice:        20000,
			TaxAmount:        1650,
			TotalAmount:      21650,
			OriginalSize:     4000,
			CompressedSize:   3000,
			CompressionRatio: 25,
			Stage:            domain.StageCompressed,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter().Export(records, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.Header, rows[0])

	for i, r := range records {
		got, err := ledger.ParseRow(padRow(rows[i+1], len(ledger.Header)))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

// padRow restores trailing empty cells that GetRows trims.
func padRow(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}
