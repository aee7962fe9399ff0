package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	pdfPrefix   = "pdfs"
	usersPrefix = "users"
)

var (
	unsafeEmailChars = regexp.MustCompile(`(?i)[^a-z0-9@.-]`)
	quoteIDPattern   = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

// SanitizeEmail maps an email to a safe directory name.
func SanitizeEmail(email string) string {
	return strings.ToLower(unsafeEmailChars.ReplaceAllString(email, "_"))
}

func DocumentKey(quote *domain.Quote) string {
	return path.Join(pdfPrefix, domain.DocumentFilename(quote))
}

func metadataKey(email, quoteID string) string {
	return path.Join(usersPrefix, SanitizeEmail(email), "user_data_"+quoteID+".json")
}

// Recorder persists quote documents, per-client metadata and ledger rows.
type Recorder struct {
	storage ports.ObjectStorage
	ledger  ports.Ledger
	index   ports.RecordIndex
	log     logging.Logger
	now     func() time.Time
	newID   func() string
}

type RecorderOption func(*Recorder)

func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder wires the recorder. index may be nil.
func NewRecorder(storage ports.ObjectStorage, ledger ports.Ledger, index ports.RecordIndex, log logging.Logger, opts ...RecorderOption) *Recorder {
	if log == nil {
		log = logging.NewNop()
	}
	r := &Recorder{
		storage: storage,
		ledger:  ledger,
		index:   index,
		log:     log.With(logging.Fields{"component": "recorder"}),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Persist writes the document and metadata, overwriting earlier versions, and
// appends one ledger row. Index failures are logged only.
func (r *Recorder) Persist(ctx context.Context, req domain.PersistRequest) (*domain.StoredResult, error) {
	if req.Quote == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "persist quote", errors.New("quote is required"))
	}
	if len(req.Document) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "persist quote", errors.New("document is empty"))
	}
	if req.Stage == "" {
		req.Stage = domain.StageOriginal
	}
	if req.OriginalSize <= 0 {
		req.OriginalSize = len(req.Document)
	}
	if req.CompressedSize <= 0 {
		req.CompressedSize = len(req.Document)
	}

	q := req.Quote
	now := r.now().UTC()
	filename := domain.DocumentFilename(q)
	docKey := DocumentKey(q)
	metaKey := metadataKey(q.ClientInfo.Email, q.QuoteID)

	if err := r.storage.Save(ctx, docKey, bytes.NewReader(req.Document)); err != nil {
		return nil, wrapStorage("save quote document", err)
	}

	metadata := domain.StoredMetadata{
		QuoteID:         q.QuoteID,
		Timestamp:       now,
		Quote:           q,
		AIInsights:      req.Insights,
		UserDescription: req.UserDescription,
		PDFInfo: domain.PDFInfo{
			Filename:         filename,
			Path:             r.storage.Path(docKey),
			OriginalSize:     req.OriginalSize,
			CompressedSize:   req.CompressedSize,
			CompressionRatio: req.CompressionRatio,
			Stage:            req.Stage,
			Fallback:         req.Stage == domain.StageFallback,
		},
	}
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "encode quote metadata", err)
	}
	if err := r.storage.Save(ctx, metaKey, bytes.NewReader(encoded)); err != nil {
		return nil, wrapStorage("save quote metadata", err)
	}

	record := domain.StoredRecord{
		RecordID:         r.newID(),
		QuoteID:          q.QuoteID,
		Timestamp:        now,
		ClientName:       q.ClientInfo.Name,
		ClientEmail:      q.ClientInfo.Email,
		ClientPhone:      q.ClientInfo.Phone,
		Services:         strings.Join(q.ServiceLabels(), "; "),
		State:            q.State.Value,
		BasePrice:        q.Pricing.BasePrice,
		TaxAmount:        q.Pricing.TaxAmount,
		TotalAmount:      q.Pricing.TotalAmount,
		DocumentKey:      docKey,
		PDFPath:          metadata.PDFInfo.Path,
		OriginalSize:     req.OriginalSize,
		CompressedSize:   req.CompressedSize,
		CompressionRatio: req.CompressionRatio,
		Stage:            req.Stage,
		Fallback:         metadata.PDFInfo.Fallback,
		AIInsightsUsed:   req.Insights != nil,
		UserDescription:  req.UserDescription,
	}
	if err := r.ledger.Append(ctx, record); err != nil {
		return nil, wrapStorage("append ledger row", err)
	}
	if r.index != nil {
		if err := r.index.Upsert(ctx, record); err != nil {
			r.log.Warn("record_index_upsert_failed", logging.Fields{"quote_id": q.QuoteID, "error": err.Error()})
		}
	}

	r.log.Info("quote_persisted", logging.Fields{
		"quote_id": q.QuoteID,
		"stage":    string(req.Stage),
		"size":     len(req.Document),
	})
	return &domain.StoredResult{
		RecordID:     record.RecordID,
		QuoteID:      q.QuoteID,
		PDFPath:      record.PDFPath,
		DocumentKey:  docKey,
		MetadataPath: r.storage.Path(metaKey),
		Timestamp:    now,
	}, nil
}

func wrapStorage(op string, err error) error {
	if domain.IsKind(err, domain.ErrStorage) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	return domain.WrapError(domain.ErrStorage, op, err)
}

// OpenDocument finds the stored PDF for a quote, through the record index when
// one is configured and by scanning pdfs/ otherwise.
func (r *Recorder) OpenDocument(ctx context.Context, quoteID string) (*domain.StoredDocument, error) {
	if !quoteIDPattern.MatchString(quoteID) {
		return nil, domain.WrapError(domain.ErrNotFound, "open quote document", fmt.Errorf("quote_id=%q", quoteID))
	}

	if r.index != nil {
		rec, err := r.index.Get(ctx, quoteID)
		switch {
		case err == nil && rec.DocumentKey != "":
			body, openErr := r.storage.Open(ctx, rec.DocumentKey)
			if openErr == nil {
				return &domain.StoredDocument{
					Filename: path.Base(rec.DocumentKey),
					Size:     int64(rec.CompressedSize),
					Body:     body,
				}, nil
			}
			r.log.Warn("indexed_document_missing", logging.Fields{"quote_id": quoteID, "error": openErr.Error()})
		case err != nil && !domain.IsKind(err, domain.ErrNotFound):
			r.log.Warn("record_index_lookup_failed", logging.Fields{"quote_id": quoteID, "error": err.Error()})
		}
	}

	entries, err := r.storage.List(ctx, pdfPrefix)
	if err != nil {
		return nil, wrapStorage("list quote documents", err)
	}
	prefix := "quote_" + quoteID + "_"
	var match *domain.ObjectInfo
	for i := range entries {
		e := entries[i]
		if !e.IsDir && strings.HasPrefix(e.Name, prefix) && strings.HasSuffix(e.Name, ".pdf") {
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "open quote document", fmt.Errorf("quote_id=%s", quoteID))
	}

	body, err := r.storage.Open(ctx, match.Key)
	if err != nil {
		return nil, err
	}
	return &domain.StoredDocument{Filename: match.Name, Size: match.Size, Body: body}, nil
}

// History returns a client's stored quote metadata, newest first.
func (r *Recorder) History(ctx context.Context, email string) ([]domain.StoredMetadata, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "quote history", errors.New("valid email address is required"))
	}

	entries, err := r.storage.List(ctx, path.Join(usersPrefix, SanitizeEmail(email)))
	if err != nil {
		return nil, wrapStorage("list quote history", err)
	}

	out := make([]domain.StoredMetadata, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		meta, err := r.readMetadata(ctx, e.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *Recorder) readMetadata(ctx context.Context, key string) (domain.StoredMetadata, error) {
	body, err := r.storage.Open(ctx, key)
	if err != nil {
		return domain.StoredMetadata{}, wrapStorage("open quote metadata", err)
	}
	defer body.Close()

	var meta domain.StoredMetadata
	if err := json.NewDecoder(body).Decode(&meta); err != nil {
		return domain.StoredMetadata{}, domain.WrapError(domain.ErrStorage, "decode quote metadata", fmt.Errorf("%s: %w", key, err))
	}
	return meta, nil
}

func (r *Recorder) LedgerRecords(ctx context.Context) ([]domain.StoredRecord, error) {
	records, err := r.ledger.Records(ctx)
	if err != nil {
		return nil, wrapStorage("read ledger", err)
	}
	return records, nil
}

// StorageStats summarizes stored files and the ledger. Sizes come from the
// latest ledger row of each quote.
func (r *Recorder) StorageStats(ctx context.Context) (*domain.StorageStats, error) {
	stats := &domain.StorageStats{StorageDirectory: r.storage.Path("")}

	pdfs, err := r.storage.List(ctx, pdfPrefix)
	if err != nil {
		return nil, wrapStorage("list quote documents", err)
	}
	for _, e := range pdfs {
		if e.IsDir || !strings.HasSuffix(e.Name, ".pdf") {
			continue
		}
		stats.TotalQuotes++
		stats.TotalPDFBytes += e.Size
	}

	users, err := r.storage.List(ctx, usersPrefix)
	if err != nil {
		return nil, wrapStorage("list users", err)
	}
	for _, e := range users {
		if e.IsDir {
			stats.TotalUsers++
		}
	}

	records, err := r.LedgerRecords(ctx)
	if err != nil {
		return nil, err
	}
	stats.LedgerRows = len(records)
	latest := make(map[string]domain.StoredRecord, len(records))
	for _, rec := range records {
		if rec.Fallback {
			stats.FallbackRecords++
		}
		latest[rec.QuoteID] = rec
	}
	for _, rec := range latest {
		stats.TotalOriginalBytes += int64(rec.OriginalSize)
		stats.TotalCompressedBytes += int64(rec.CompressedSize)
	}
	stats.CompressionSavings = stats.TotalOriginalBytes - stats.TotalCompressedBytes
	if stats.TotalOriginalBytes > 0 {
		ratio := float64(stats.CompressionSavings) / float64(stats.TotalOriginalBytes) * 100
		stats.CompressionRatio = math.Round(ratio*100) / 100
	}
	return stats, nil
}
