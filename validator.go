package ejschema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ejschema/ejschema/eval"
	"github.com/ejschema/ejschema/internal/jsondoc"
	"github.com/ejschema/ejschema/loader"
)

// DefaultPrefix precedes the special schema/extensionSchemas property names
// unless a validator is configured otherwise.
const DefaultPrefix = "$"

// extSchemaSchemaIDs are the recognized identifiers for versions of the
// extension-schema convention's own schema. The set is a fixed allowlist;
// an object-valued marker is tolerated only in these documents.
var extSchemaSchemaIDs = []string{
	"http://mgi.nist.gov/mgi-json-schema/v0.1",
	"https://www.nist.gov/od/dm/enhanced-json-schema/v0.1",
	"https://data.nist.gov/od/dm/enhanced-json-schema/v0.1",
}

// Options configures a Validator. The zero value selects the '$' prefix, an
// empty registry, and the default evaluation engine wired to that registry.
type Options struct {
	// Prefix replaces '$' before the special property names, for document
	// stores that disallow a leading '$' (typically "@" or "_").
	Prefix string
	// Registry supplies schema bodies by identifier.
	Registry *loader.Registry
	// Engine is the schema-evaluation capability. Nil selects the default
	// engine with cross-document $ref resolution through Registry.
	Engine eval.Engine
}

// ValidateOpt controls a single Validate call.
type ValidateOpt struct {
	// Minimal skips extension-schema processing entirely.
	Minimal bool
	// Strict reports unresolvable extension-schema identifiers as errors
	// instead of silently skipping them.
	Strict bool
	// FailFast stops at the first recorded error.
	FailFast bool
	// SchemaID overrides the instance's own base schema property.
	SchemaID string
}

// Validator validates instance documents against their base schema and any
// extension schemas declared on subtrees. A Validator is not safe for
// concurrent mutation; share one across goroutines only after a
// single-threaded warm-up, or serialize access.
type Validator struct {
	prefix   string
	reg      *loader.Registry
	eng      eval.Engine
	compiled map[string]eval.Schema
}

// New returns a Validator for the given options.
func New(opt Options) *Validator {
	v := &Validator{
		prefix:   opt.Prefix,
		reg:      opt.Registry,
		eng:      opt.Engine,
		compiled: map[string]eval.Schema{},
	}
	if v.prefix == "" {
		v.prefix = DefaultPrefix
	}
	if v.reg == nil {
		v.reg = loader.NewRegistry()
	}
	if v.eng == nil {
		v.eng = eval.New(eval.WithResolver(func(ctx context.Context, id string) (any, error) {
			return v.reg.Resolve(ctx, id)
		}))
	}
	return v
}

// NewWithSchemaDir returns a Validator backed by schemas cached as files
// under dir: a manifest named schemaLocation.json is honored, otherwise the
// directory is scanned for schema files.
func NewWithSchemaDir(dir, prefix string) (*Validator, error) {
	reg, err := loader.FromDirectory(dir, loader.DirOptions{})
	if err != nil {
		return nil, err
	}
	return New(Options{Prefix: prefix, Registry: reg}), nil
}

// NewSchemaValidator returns a Validator pre-loaded with the bundled
// schemas describing the extension-schema convention, suitable for
// validating extension-schema documents themselves.
func NewSchemaValidator() (*Validator, error) {
	reg, err := loader.ForBundledSchemas()
	if err != nil {
		return nil, err
	}
	return New(Options{Registry: reg}), nil
}

// Registry exposes the validator's schema location registry, e.g. for
// merging in further locations.
func (v *Validator) Registry() *loader.Registry { return v.reg }

// Prefix returns the configured marker prefix.
func (v *Validator) Prefix() string { return v.prefix }

// LoadSchema registers a pre-parsed schema body directly, bypassing any
// loader. The body is checked against its meta-schema first; id may be
// empty when the body declares $id or id itself.
func (v *Validator) LoadSchema(ctx context.Context, body any, id string) error {
	if id == "" {
		if raw, ok := jsondoc.Property(body, "$id"); ok {
			id, _ = raw.(string)
		}
		if id == "" {
			if raw, ok := jsondoc.Property(body, "id"); ok {
				id, _ = raw.(string)
			}
		}
	}
	if id == "" {
		return Error{Code: CodeConfigError, Message: "no id property found; pass the identifier explicitly"}
	}
	if viols := v.eng.CheckSchema(ctx, body); len(viols) > 0 {
		var errs Errors
		for _, viol := range viols {
			errs = AppendErrors(errs, Error{
				Code:      CodeSchemaInvalid,
				SchemaID:  id,
				SchemaPtr: viol.SchemaPtr,
				Message:   viol.Message,
			})
		}
		return errs
	}
	v.reg.RegisterBody(id, body)
	return nil
}

// Validate checks the instance against its base schema and, unless Minimal
// is requested, against every extension schema declared on its subtrees.
// The returned Errors are the accumulated validation outcomes (empty means
// valid); the error return reports conditions that prevented validation,
// such as a missing base schema.
func (v *Validator) Validate(ctx context.Context, doc any, opt ValidateOpt) (Errors, error) {
	data := doc
	if inst, ok := doc.(*Instance); ok {
		data = inst.Data
	}
	schemaTag := v.prefix + SchemaTag
	extTag := v.prefix + ExtSchemasTag

	baseID := opt.SchemaID
	if baseID == "" {
		if raw, ok := jsondoc.Property(data, schemaTag); ok {
			baseID, _ = raw.(string)
		}
	}
	if baseID == "" {
		return nil, Error{
			Code:    CodeMissingBaseSchema,
			Message: "base schema (" + schemaTag + ") not specified; unable to validate",
		}
	}

	out := v.validateAgainst(ctx, data, []string{baseID}, true, "")
	if opt.FailFast && len(out) > 0 {
		return out[:1], nil
	}
	if opt.Minimal {
		return out, nil
	}

	// Materialize all marked subtrees up front; validation must not observe
	// traversal state.
	hits := jsondoc.FindObjectsWithProperty(data, extTag)
	isExtSchema := v.IsExtSchemaSchema(data)

	for _, h := range hits {
		marker, _ := jsondoc.Property(h.Value, extTag)
		seq, ok := marker.([]any)
		if !ok {
			if isExtSchema && jsondoc.IsObject(marker) {
				// the convention's own schema document declares the marker
				// property; this subtree is a schema definition, not data
				continue
			}
			out = AppendErrors(out, Error{
				Code:        CodeMalformedMarker,
				InstancePtr: joinPointer(h.Ptr, "/"+jsondoc.EscapeToken(extTag)),
				Message:     fmt.Sprintf("invalid value type for %s (not an array)", extTag),
			})
			return out, nil
		}

		ids := make([]string, 0, len(seq))
		bad := false
		for _, item := range seq {
			s, ok := item.(string)
			if !ok {
				out = AppendErrors(out, Error{
					Code:        CodeMalformedMarker,
					InstancePtr: joinPointer(h.Ptr, "/"+jsondoc.EscapeToken(extTag)),
					Message:     fmt.Sprintf("invalid %s array item type: %v", extTag, item),
				})
				bad = true
				break
			}
			ids = append(ids, s)
		}
		if bad {
			return out, nil
		}

		out = append(out, v.validateAgainst(ctx, h.Value, ids, opt.Strict, h.Ptr)...)
		if opt.FailFast && len(out) > 0 {
			return out[:1], nil
		}
	}
	return out, nil
}

// ValidateAgainst validates a value (an instance or one of its subtrees)
// against each of the identified schemas. Extension markers within the
// value are ignored. With strict false, unregistered identifiers are
// silently skipped.
func (v *Validator) ValidateAgainst(ctx context.Context, value any, strict bool, ids ...string) Errors {
	if inst, ok := value.(*Instance); ok {
		value = inst.Data
	}
	return v.validateAgainst(ctx, value, ids, strict, "")
}

func (v *Validator) validateAgainst(ctx context.Context, value any, ids []string, strict bool, basePtr string) Errors {
	var out Errors
	for _, rawID := range ids {
		id := loader.Canonical(rawID)
		sch, ok := v.compiled[id]
		if !ok {
			var errs Errors
			sch, errs = v.compile(ctx, id, strict)
			if sch == nil {
				out = append(out, errs...)
				continue
			}
			v.compiled[id] = sch
		}
		for _, viol := range sch.Evaluate(value) {
			out = AppendErrors(out, Error{
				Code:        CodeValidation,
				SchemaID:    rawID,
				InstancePtr: joinPointer(basePtr, viol.InstancePtr),
				SchemaPtr:   viol.SchemaPtr,
				Message:     viol.Message,
			})
		}
	}
	return out
}

// compile resolves an identifier to a compiled validator, mapping resolution
// and compilation failures onto the error taxonomy. A nil Schema with empty
// Errors means the identifier was skipped (non-strict missing schema).
func (v *Validator) compile(ctx context.Context, id string, strict bool) (eval.Schema, Errors) {
	base, frag := eval.SplitFragment(id)
	body, err := v.reg.Resolve(ctx, base)
	if err != nil {
		switch {
		case errors.Is(err, loader.ErrNotFound):
			if !strict {
				return nil, nil
			}
			return nil, Errors{{
				Code:     CodeSchemaNotFound,
				SchemaID: id,
				Message:  "unable to find schema document for " + base,
				Cause:    err,
			}}
		case errors.Is(err, loader.ErrMalformed):
			return nil, Errors{{Code: CodeMalformedInput, SchemaID: id, Message: err.Error(), Cause: err}}
		default:
			return nil, Errors{{Code: CodeSourceUnavailable, SchemaID: id, Message: err.Error(), Cause: err}}
		}
	}

	if strings.HasPrefix(frag, "/") {
		if _, ferr := v.eng.ResolveFragment(body, frag); ferr != nil {
			return nil, Errors{{
				Code:     CodeUnresolvable,
				SchemaID: id,
				Message:  fmt.Sprintf("unable to resolve fragment %q from schema %s", frag, base),
				Cause:    ferr,
			}}
		}
	}

	sch, err := v.eng.Compile(ctx, id, body)
	if err != nil {
		var se *eval.SchemaError
		switch {
		case errors.As(err, &se):
			var errs Errors
			if len(se.Violations) == 0 {
				errs = Errors{{Code: CodeSchemaInvalid, SchemaID: id, Message: se.Error(), Cause: err}}
			}
			for _, viol := range se.Violations {
				errs = AppendErrors(errs, Error{
					Code:      CodeSchemaInvalid,
					SchemaID:  id,
					SchemaPtr: viol.SchemaPtr,
					Message:   viol.Message,
					Cause:     err,
				})
			}
			return nil, errs
		case errors.Is(err, eval.ErrFragment):
			return nil, Errors{{Code: CodeUnresolvable, SchemaID: id, Message: err.Error(), Cause: err}}
		default:
			return nil, Errors{{Code: CodeSchemaInvalid, SchemaID: id, Message: err.Error(), Cause: err}}
		}
	}
	return sch, nil
}

// ValidateFile reads and parses the file at path, then validates it.
func (v *Validator) ValidateFile(ctx context.Context, path string, opt ValidateOpt) (Errors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Error{Code: CodeSourceUnavailable, Message: path + ": " + err.Error(), Cause: err}
	}
	defer f.Close()
	inst, rerr := ReadInstance(f, WithSourceLocation(path))
	if rerr != nil {
		return nil, rerr
	}
	return v.Validate(ctx, inst, opt)
}

// IsExtSchemaSchema reports whether doc is itself a version of the
// extension-schema convention's own schema: an object whose $id/id is one
// of the recognized identifiers and which carries the marker property.
func (v *Validator) IsExtSchemaSchema(doc any) bool {
	if inst, ok := doc.(*Instance); ok {
		doc = inst.Data
	}
	if !jsondoc.IsObject(doc) {
		return false
	}
	var id string
	if raw, ok := jsondoc.Property(doc, "$id"); ok {
		id, _ = raw.(string)
	}
	if id == "" {
		if raw, ok := jsondoc.Property(doc, "id"); ok {
			id, _ = raw.(string)
		}
	}
	id = loader.Canonical(id)
	known := false
	for _, k := range extSchemaSchemaIDs {
		if id == k {
			known = true
			break
		}
	}
	return known && jsondoc.Has(doc, v.prefix+ExtSchemasTag)
}

// joinPointer prefixes a pointer produced within a subtree with the pointer
// of the subtree itself.
func joinPointer(base, rel string) string {
	if base == "" || base == "/" {
		return rel
	}
	if rel == "" || rel == "/" {
		return base
	}
	return base + rel
}
