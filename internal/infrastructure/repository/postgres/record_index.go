package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

const schemaLockID int64 = 2025061801

// RecordIndex keeps the latest stored record per quote in quote_records.
type RecordIndex struct {
	db *sql.DB
}

func NewRecordIndex(db *sql.DB) *RecordIndex {
	return &RecordIndex{db: db}
}

func (r *RecordIndex) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS quote_records (
	quote_id TEXT PRIMARY KEY,
	record_id TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	client_name TEXT NOT NULL,
	client_email TEXT NOT NULL,
	client_phone TEXT NOT NULL DEFAULT '',
	services TEXT NOT NULL,
	state TEXT NOT NULL,
	base_price_cents BIGINT NOT NULL,
	tax_amount_cents BIGINT NOT NULL,
	total_amount_cents BIGINT NOT NULL,
	document_key TEXT NOT NULL,
	pdf_path TEXT NOT NULL,
	original_size INTEGER NOT NULL DEFAULT 0,
	compressed_size INTEGER NOT NULL DEFAULT 0,
	compression_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
	stage TEXT NOT NULL,
	fallback BOOLEAN NOT NULL DEFAULT FALSE,
	ai_insights_used BOOLEAN NOT NULL DEFAULT FALSE,
	user_description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_quote_records_client_email ON quote_records(client_email);
CREATE INDEX IF NOT EXISTS idx_quote_records_recorded_at ON quote_records(recorded_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Upsert replaces the row for record.QuoteID, so a compressed or fallback
// persist supersedes the original one.
func (r *RecordIndex) Upsert(ctx context.Context, record domain.StoredRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO quote_records (
	quote_id, record_id, recorded_at, client_name, client_email, client_phone, services, state,
	base_price_cents, tax_amount_cents, total_amount_cents, document_key, pdf_path,
	original_size, compressed_size, compression_ratio, stage, fallback, ai_insights_used, user_description
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (quote_id) DO UPDATE SET
	record_id = EXCLUDED.record_id,
	recorded_at = EXCLUDED.recorded_at,
	document_key = EXCLUDED.document_key,
	pdf_path = EXCLUDED.pdf_path,
	original_size = EXCLUDED.original_size,
	compressed_size = EXCLUDED.compressed_size,
	compression_ratio = EXCLUDED.compression_ratio,
	stage = EXCLUDED.stage,
	fallback = EXCLUDED.fallback
`,
		record.QuoteID, record.RecordID, record.Timestamp, record.ClientName, record.ClientEmail, record.ClientPhone,
		record.Services, record.State, int64(record.BasePrice), int64(record.TaxAmount), int64(record.TotalAmount),
		record.DocumentKey, record.PDFPath, record.OriginalSize, record.CompressedSize, record.CompressionRatio,
		string(record.Stage), record.Fallback, record.AIInsightsUsed, record.UserDescription,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "upsert quote record", err)
	}
	return nil
}

func (r *RecordIndex) Get(ctx context.Context, quoteID string) (*domain.StoredRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT quote_id, record_id, recorded_at, client_name, client_email, client_phone, services, state,
	base_price_cents, tax_amount_cents, total_amount_cents, document_key, pdf_path,
	original_size, compressed_size, compression_ratio, stage, fallback, ai_insights_used, user_description
FROM quote_records
WHERE quote_id = $1
`, quoteID)

	var rec domain.StoredRecord
	var base, tax, total int64
	var stage string
	err := row.Scan(
		&rec.QuoteID, &rec.RecordID, &rec.Timestamp, &rec.ClientName, &rec.ClientEmail, &rec.ClientPhone,
		&rec.Services, &rec.State, &base, &tax, &total, &rec.DocumentKey, &rec.PDFPath,
		&rec.OriginalSize, &rec.CompressedSize, &rec.CompressionRatio, &stage, &rec.Fallback,
		&rec.AIInsightsUsed, &rec.UserDescription,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get quote record", fmt.Errorf("quote_id=%s", quoteID))
		}
		return nil, domain.WrapError(domain.ErrStorage, "get quote record", err)
	}
	rec.BasePrice = domain.Cents(base)
	rec.TaxAmount = domain.Cents(tax)
	rec.TotalAmount = domain.Cents(total)
	rec.Stage = domain.StorageStage(stage)
	return &rec, nil
}
