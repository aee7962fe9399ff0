package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

func TestMapErrorPrefersOrchestratorKinds(t *testing.T) {
	inner := domain.WrapError(domain.ErrInvalidInput, "load template", errors.New("template missing"))
	err := domain.WrapError(domain.ErrRenderFailed, "render quote document", inner)

	got := mapError(err, scopeQuoteCreate)
	if got.Status != http.StatusServiceUnavailable || got.Title != "PDF Generation Failed" {
		t.Fatalf("expected render failure mapping, got %+v", got)
	}
}

func TestMapErrorAIServiceWinsOverTemporary(t *testing.T) {
	temp := domain.WrapError(domain.ErrTemporary, "chat", errors.New("502"))
	err := domain.WrapError(domain.ErrAIService, "recommend services", temp)

	got := mapError(err, scopeQuoteCreate)
	if got.Title != "AI Service Unavailable" || got.Message != msgAIUnavailable {
		t.Fatalf("unexpected mapping %+v", got)
	}
}

func TestMapErrorPipelineKindsAreInternal(t *testing.T) {
	for _, kind := range []error{domain.ErrUpload, domain.ErrCompressionTimeout, domain.ErrDownload} {
		got := mapError(domain.WrapError(kind, "op", errors.New("x")), scopeAdmin)
		if got.Status != http.StatusInternalServerError {
			t.Fatalf("%v: expected 500, got %d", kind, got.Status)
		}
	}
}

func TestPublicMessageReturnsInnermostCause(t *testing.T) {
	err := fmt.Errorf("outer: %w", domain.WrapError(domain.ErrInvalidInput, "compute quote", errors.New("Invalid state code: ZZ")))

	if got := publicMessage(err); got != "Invalid state code: ZZ" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := publicMessage(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected plain message %q", got)
	}
}
