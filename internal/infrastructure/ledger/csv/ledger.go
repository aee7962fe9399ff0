package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger"
)

// Ledger is an append-only CSV file. Rows are never rewritten.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New creates the file with its header row when it does not exist yet.
func New(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	l := &Ledger{path: path}
	if err := l.ensureHeader(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) ensureHeader() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	if info.Size() > 0 {
		return nil
	}
	w := stdcsv.NewWriter(f)
	if err := w.Write(ledger.Header); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (l *Ledger) Append(_ context.Context, record domain.StoredRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "open ledger", err)
	}
	defer f.Close()

	w := stdcsv.NewWriter(f)
	if err := w.Write(ledger.Row(record)); err != nil {
		return domain.WrapError(domain.ErrStorage, "append ledger row", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.WrapError(domain.ErrStorage, "flush ledger", err)
	}
	return nil
}

// Records reads every row after the header. Malformed rows fail the read.
func (l *Ledger) Records(_ context.Context) ([]domain.StoredRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrStorage, "open ledger", err)
	}
	defer f.Close()

	r := stdcsv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []domain.StoredRecord
	line := 0
	for {
		cols, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "read ledger", err)
		}
		line++
		if line == 1 {
			continue
		}
		record, err := ledger.ParseRow(cols)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "parse ledger", fmt.Errorf("line %d: %w", line, err))
		}
		out = append(out, record)
	}
	return out, nil
}
