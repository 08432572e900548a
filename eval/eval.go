// Package eval defines the schema-evaluation capability consumed by the
// extension-aware validator: compile a schema body, evaluate an instance
// against it, check a schema against its meta-schema, and resolve fragments.
// The default engine is backed by santhosh-tekuri/jsonschema; the rest of
// the module depends only on the interface.
package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ejschema/ejschema/internal/jsondoc"
)

// Violation is a single evaluation failure reported by an engine.
type Violation struct {
	InstancePtr string // JSON Pointer into the evaluated instance.
	SchemaPtr   string // Keyword path within the schema.
	Message     string
}

// Schema is a compiled, reusable validator for one schema identifier.
type Schema interface {
	// Evaluate checks instance against the compiled schema and returns all
	// violations found. A nil slice means the instance conforms.
	Evaluate(instance any) []Violation
}

// Engine is the evaluation capability. Implementations must be usable from
// a single goroutine per call; a compiled Schema may be reused.
type Engine interface {
	// Compile registers body under the base of id and compiles id, which may
	// carry a fragment. Meta-schema violations surface as *SchemaError.
	Compile(ctx context.Context, id string, body any) (Schema, error)
	// CheckSchema validates body against the meta-schema for its declared
	// dialect and returns the violations found.
	CheckSchema(ctx context.Context, body any) []Violation
	// ResolveFragment resolves a JSON Pointer fragment within a schema body.
	ResolveFragment(body any, fragment string) (any, error)
	// MetaSchemaIDs returns the recognized meta-schema identifiers, without
	// trailing '#'.
	MetaSchemaIDs() []string
}

// Resolver supplies schema bodies for identifiers referenced from within
// other schemas ($ref to a different document).
type Resolver func(ctx context.Context, id string) (any, error)

// SchemaError reports that a schema body itself fails its meta-schema.
type SchemaError struct {
	SchemaID   string
	Violations []Violation
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s is invalid: %v", e.SchemaID, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ErrFragment reports a fragment that cannot be located within an otherwise
// resolved schema body.
var ErrFragment = errors.New("eval: unresolvable fragment")

// SplitFragment splits a schema identifier into its base and fragment. The
// returned base never carries a trailing '#'.
func SplitFragment(id string) (base, frag string) {
	if i := strings.Index(id, "#"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// resolvePointerFragment resolves an RFC 6901 pointer fragment against a
// schema body. Plain-name (anchor) fragments are left to the compiler.
func resolvePointerFragment(body any, frag string) (any, error) {
	if frag == "" {
		return body, nil
	}
	if !strings.HasPrefix(frag, "/") {
		// anchor fragment; resolution happens at compile time
		return body, nil
	}
	v, err := jsondoc.Extract(body, frag)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFragment, frag, err)
	}
	return v, nil
}
