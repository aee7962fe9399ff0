package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const defaultMaxBodyBytes = 1 << 20

const clientInfoSchema = `{
	"type": "object",
	"required": ["name", "email"],
	"properties": {
		"name":  {"type": "string", "minLength": 1, "maxLength": 100},
		"email": {"type": "string", "pattern": "^[^\\s@]+@[^\\s@]+\\.[^\\s@]+$", "maxLength": 100},
		"phone": {"type": "string", "maxLength": 20}
	}
}`

const statePattern = `^[A-Z]{2}$|^OTHER$`

var aiQuoteSchema = mustSchema("ai quote", `{
	"type": "object",
	"required": ["userDescription", "state", "clientInfo"],
	"properties": {
		"userDescription": {"type": "string", "minLength": 10, "maxLength": 2000},
		"state": {"type": "string", "pattern": "`+statePattern+`"},
		"clientInfo": `+clientInfoSchema+`
	}
}`)

var manualQuoteSchema = mustSchema("manual quote", `{
	"type": "object",
	"required": ["selectedServices", "state", "clientInfo"],
	"properties": {
		"selectedServices": {
			"type": "array",
			"minItems": 1,
			"maxItems": 10,
			"items": {"type": "string"}
		},
		"state": {"type": "string", "pattern": "`+statePattern+`"},
		"clientInfo": `+clientInfoSchema+`
	}
}`)

func mustSchema(name, src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return schema
}

type validationError struct {
	message string
	details []string
}

func (e *validationError) Error() string { return e.message }

var errBodyTooLarge = errors.New("request payload exceeds maximum allowed size")

// decodeBody reads at most maxBytes, validates the document against schema and
// unmarshals it into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, schema *gojsonschema.Schema, dst any) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &validationError{message: "failed to read request body"}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &validationError{message: "request body is required"}
	}
	if !json.Valid(raw) {
		return &validationError{message: "request body must be valid JSON"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &validationError{message: fmt.Sprintf("validate request body: %v", err)}
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return &validationError{message: "body " + strings.Join(details, "; "), details: details}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return &validationError{message: fmt.Sprintf("decode request body: %v", err)}
	}
	return nil
}

// writeDecodeError answers a failed decodeBody.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "Request payload exceeds maximum allowed size")
		return
	}
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error:   "Validation Error",
			Message: verr.message,
			Details: verr.details,
		})
		return
	}
	writeError(w, http.StatusBadRequest, "Validation Error", err.Error())
}
