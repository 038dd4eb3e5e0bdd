package handoff

import (
	"fmt"
	"strings"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed handoff_schema.json
var schemaJSON string

// SchemaValidationError reports JSON Schema violations with field paths.
type SchemaValidationError struct {
	Errors []FieldError
}

// FieldError is a single schema violation at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (e *SchemaValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("handoff schema validation failed:\n")
	for i, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, fe.Field, fe.Message))
	}
	return sb.String()
}

// ValidateJSON validates raw handoff JSON against the embedded record schema.
// Used at store write time and by the CLI validate command, so malformed
// agent-written files are rejected with field-level detail before they can
// enter a chain.
func ValidateJSON(document []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &MalformedRecordError{Reason: "handoff document is not valid JSON", Cause: err}
	}

	if result.Valid() {
		return nil
	}

	verr := &SchemaValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}
