package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	csvledger "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/csv"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/xlsx"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-1.2.3"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "quotectl version test-1.2.3")
}

func TestPriceCmd(t *testing.T) {
	out, err := execute(t, "price",
		"--services", "contract_review,legal_consultation",
		"--state", "CA",
		"--name", "Jane Doe",
		"--email", "jane@example.com",
	)
	require.NoError(t, err, out)

	var quote struct {
		QuoteID string `json:"quoteId"`
		Pricing struct {
			BasePrice   float64 `json:"basePrice"`
			TaxAmount   float64 `json:"taxAmount"`
			TotalAmount float64 `json:"totalAmount"`
		} `json:"pricing"`
		Metadata struct {
			IsAIGenerated bool `json:"isAIGenerated"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &quote))
	assert.Regexp(t, `^QT-[0-9A-Z]+-[0-9A-Z]{5}$`, quote.QuoteID)
	assert.Equal(t, 350.0, quote.Pricing.BasePrice)
	assert.Equal(t, 28.88, quote.Pricing.TaxAmount)
	assert.Equal(t, 378.88, quote.Pricing.TotalAmount)
	assert.False(t, quote.Metadata.IsAIGenerated)
}

func TestCatalogCmd(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err, out)

	var view domain.CatalogView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.Services, 10)
	assert.Equal(t, "USD", view.Pricing.Currency)
	assert.Equal(t, 0.05, view.Pricing.BaseTaxRate)
}

func TestLedgerExportCmd(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "quote_records.csv")
	ledger, err := csvledger.New(ledgerPath)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(context.Background(), domain.StoredRecord{
		RecordID:    "QT-LOYW3V28-AB12C_1738335600000",
		QuoteID:     "QT-LOYW3V28-AB12C",
		Timestamp:   time.Date(2025, time.January, 31, 15, 0, 0, 0, time.UTC),
		ClientName:  "Jane Doe",
		ClientEmail: "jane@example.com",
		Services:    "Contract Review",
		State:       "CA",
		BasePrice:   domain.Dollars(200),
		TaxAmount:   1450,
		TotalAmount: 21450,
		Stage:       domain.StageOriginal,
	}))

	outPath := filepath.Join(dir, "ledger.xlsx")
	out, err := execute(t, "ledger", "export", "--ledger", ledgerPath, "--out", outPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "exported 1 records")

	f, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(xlsx.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "QT-LOYW3V28-AB12C")
}
