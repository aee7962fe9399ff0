package httpadapter

import (
	"net/http"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// errorScope selects the envelope titles a route uses for the same error kind.
type errorScope int

const (
	scopeQuoteCreate errorScope = iota
	scopeQuoteLookup
	scopeDocument
	scopeHistory
	scopeAdmin
)

const (
	msgNoServices = "Could not determine appropriate legal services from your description. " +
		"Please provide more specific details about your legal needs."
	msgAIUnavailable = "Our AI analysis service is temporarily unavailable. " +
		"Please try manual service selection or try again later."
	msgRenderFailed = "Quote generated successfully but PDF creation failed. Please contact support."
	msgTemporary    = "The service is temporarily unavailable. Please try again later."
)

type httpError struct {
	Status  int
	Title   string
	Message string
}

// mapError is the single place domain error kinds become HTTP responses. The
// orchestrator-level kinds are matched first since they may wrap lower ones.
func mapError(err error, scope errorScope) httpError {
	switch {
	case domain.IsKind(err, domain.ErrRenderFailed):
		return httpError{http.StatusServiceUnavailable, "PDF Generation Failed", msgRenderFailed}
	case domain.IsKind(err, domain.ErrAIService):
		return httpError{http.StatusServiceUnavailable, "AI Service Unavailable", msgAIUnavailable}
	case domain.IsKind(err, domain.ErrNoServicesRecommended):
		return httpError{http.StatusBadRequest, "No Services Recommended", msgNoServices}
	case domain.IsKind(err, domain.ErrInvalidInput):
		switch scope {
		case scopeQuoteCreate:
			return httpError{http.StatusBadRequest, "Invalid Services", publicMessage(err)}
		case scopeHistory:
			return httpError{http.StatusBadRequest, "Invalid Email", "Please provide a valid email address"}
		default:
			return httpError{http.StatusBadRequest, "Validation Error", publicMessage(err)}
		}
	case domain.IsKind(err, domain.ErrNotFound):
		switch scope {
		case scopeQuoteCreate:
			return httpError{http.StatusBadRequest, "Invalid Services", publicMessage(err)}
		case scopeDocument:
			return httpError{http.StatusNotFound, "PDF Not Found", publicMessage(err)}
		default:
			return httpError{http.StatusNotFound, "Quote Not Found", publicMessage(err)}
		}
	case domain.IsKind(err, domain.ErrTemporary):
		return httpError{http.StatusServiceUnavailable, "Service Unavailable", msgTemporary}
	case domain.IsKind(err, domain.ErrUpload),
		domain.IsKind(err, domain.ErrCompressionStart),
		domain.IsKind(err, domain.ErrCompressionTaskFailed),
		domain.IsKind(err, domain.ErrCompressionTimeout),
		domain.IsKind(err, domain.ErrDownload),
		domain.IsKind(err, domain.ErrStorage):
		return internalError(scope, err)
	default:
		return internalError(scope, err)
	}
}

func internalError(scope errorScope, err error) httpError {
	switch scope {
	case scopeQuoteCreate:
		return httpError{http.StatusInternalServerError, "Quote Generation Failed",
			"An unexpected error occurred while generating your quote"}
	case scopeQuoteLookup:
		return httpError{http.StatusInternalServerError, "Database Error", "Failed to retrieve quote"}
	case scopeDocument:
		return httpError{http.StatusInternalServerError, "Failed to download PDF", publicMessage(err)}
	case scopeHistory:
		return httpError{http.StatusInternalServerError, "Failed to retrieve quote history", publicMessage(err)}
	case scopeAdmin:
		return httpError{http.StatusInternalServerError, "Failed to retrieve storage statistics", publicMessage(err)}
	default:
		return httpError{http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred"}
	}
}

// publicMessage strips operation prefixes and kind sentinels from a wrapped
// error and returns the innermost cause.
func publicMessage(err error) string {
	for {
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			errs := e.Unwrap()
			if len(errs) == 0 {
				return err.Error()
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			inner := e.Unwrap()
			if inner == nil {
				return err.Error()
			}
			err = inner
		default:
			return err.Error()
		}
	}
}
