// Package ledger defines the column layout shared by the ledger file and its exports.
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// Header is the fixed first row of the ledger. Columns are only ever appended.
var Header = []string{
	"Quote ID",
	"Created At",
	"Client Name",
	"Client Email",
	"Client Phone",
	"Services",
	"Total Amount",
	"State",
	"Tax Amount",
	"PDF File Path",
	"Original PDF Size (bytes)",
	"Compressed PDF Size (bytes)",
	"Compression Ratio (%)",
	"AI Insights Used",
	"User Description",
	"Base Price",
	"Stage",
	"Fallback",
	"Record ID",
	"Document Key",
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Row renders a record in Header order.
func Row(r domain.StoredRecord) []string {
	return []string{
		r.QuoteID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.ClientName,
		r.ClientEmail,
		r.ClientPhone,
		r.Services,
		r.TotalAmount.String(),
		r.State,
		r.TaxAmount.String(),
		r.PDFPath,
		strconv.Itoa(r.OriginalSize),
		strconv.Itoa(r.CompressedSize),
		strconv.FormatFloat(r.CompressionRatio, 'f', 2, 64),
		yesNo(r.AIInsightsUsed),
		r.UserDescription,
		r.BasePrice.String(),
		string(r.Stage),
		strconv.FormatBool(r.Fallback),
		r.RecordID,
		r.DocumentKey,
	}
}

// ParseRow is the inverse of Row.
func ParseRow(cols []string) (domain.StoredRecord, error) {
	if len(cols) != len(Header) {
		return domain.StoredRecord{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(cols))
	}
	ts, err := time.Parse(time.RFC3339Nano, cols[1])
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("parse timestamp: %w", err)
	}
	var total, tax, base domain.Cents
	if err := total.UnmarshalJSON([]byte(cols[6])); err != nil {
		return domain.StoredRecord{}, err
	}
	if err := tax.UnmarshalJSON([]byte(cols[8])); err != nil {
		return domain.StoredRecord{}, err
	}
	if err := base.UnmarshalJSON([]byte(cols[15])); err != nil {
		return domain.StoredRecord{}, err
	}
	original, err := strconv.Atoi(cols[10])
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("parse original size: %w", err)
	}
	compressed, err := strconv.Atoi(cols[11])
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("parse compressed size: %w", err)
	}
	ratio, err := strconv.ParseFloat(cols[12], 64)
	if err != nil {
		return domain.StoredRecord{}, fmt.Errorf("parse ratio: %w", err)
	}
	fallback, _ := strconv.ParseBool(cols[17])

	return domain.StoredRecord{
		QuoteID:          cols[0],
		Timestamp:        ts,
		ClientName:       cols[2],
		ClientEmail:      cols[3],
		ClientPhone:      cols[4],
		Services:         cols[5],
		TotalAmount:      total,
		State:            cols[7],
		TaxAmount:        tax,
		PDFPath:          cols[9],
		OriginalSize:     original,
		CompressedSize:   compressed,
		CompressionRatio: ratio,
		AIInsightsUsed:   cols[13] == "Yes",
		UserDescription:  cols[14],
		BasePrice:        base,
		Stage:            domain.StorageStage(cols[16]),
		Fallback:         fallback,
		RecordID:         cols[18],
		DocumentKey:      cols[19],
	}, nil
}
