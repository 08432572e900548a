package ejschema

import (
	"errors"
	"fmt"
	"strings"

	j "github.com/goccy/go-json"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeMalformedInput    = "malformed_input"
	CodeMissingBaseSchema = "missing_base_schema"
	CodeSchemaInvalid     = "schema_invalid"
	CodeSchemaNotFound    = "schema_not_found"
	CodeUnresolvable      = "unresolvable"
	CodeValidation        = "validation"
	CodeSourceUnavailable = "source_unavailable"
	CodeMalformedMarker   = "malformed_marker"
	CodeFormatError       = "format_error"
	CodeConfigError       = "config_error"
)

// Error records a single validation failure. Records are value objects: the
// orchestrator appends them to result lists and never mutates one after
// creation.
type Error struct {
	Code        string // One of the codes listed above.
	Message     string
	InstancePtr string // JSON Pointer into the instance, when known.
	SchemaPtr   string // Keyword path within the schema, when known.
	SchemaID    string // Identifier of the schema involved, when known.
	Cause       error  // Optional: underlying error.
}

func (e Error) Error() string {
	b := &strings.Builder{}
	b.WriteString(e.Code)
	if e.InstancePtr != "" {
		fmt.Fprintf(b, " at %s", e.InstancePtr)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e Error) Unwrap() error { return e.Cause }

// MarshalJSON renders the record for tooling consumption.
func (e Error) MarshalJSON() ([]byte, error) {
	return j.Marshal(struct {
		Type       string `json:"type"`
		Message    string `json:"message"`
		Path       string `json:"path,omitempty"`
		SchemaPath string `json:"schema_path,omitempty"`
		Schema     string `json:"schema,omitempty"`
	}{e.Code, e.Message, e.InstancePtr, e.SchemaPtr, e.SchemaID})
}

// Errors is a collection of validation records that implements error.
type Errors []Error

// Error summarizes the first few records.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(errs)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[i].Error())
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendErrors appends records to the destination, initializing the slice
// when needed.
func AppendErrors(dst Errors, more ...Error) Errors {
	if dst == nil {
		dst = Errors{}
	}
	dst = append(dst, more...)
	return dst
}

// AsErrors extracts Errors from an error using errors.As internally.
func AsErrors(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	var one Error
	if errors.As(err, &one) {
		return Errors{one}, true
	}
	return nil, false
}

// HasCode reports whether any record carries the given code.
func (errs Errors) HasCode(code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}
