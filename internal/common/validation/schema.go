// internal/common/validation/schema.go
package validation

import (
	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult reports the outcome of validating a payload.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Schema is a compiled JSON schema for request payload validation.
type Schema struct {
	schema *gojsonschema.Schema
}

// MustCompile compiles a schema document, panicking on a malformed schema.
// Schemas are package-level constants, so a failure here is a programming error.
func MustCompile(doc string) *Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic("invalid JSON schema: " + err.Error())
	}
	return &Schema{schema: schema}
}

// ValidateBytes validates a raw JSON document against the schema.
func (s *Schema) ValidateBytes(raw []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "", Message: err.Error()}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}
