package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sj "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ejschema/ejschema/internal/jsondoc"
)

// Meta-schema identifiers recognized by the default engine, one per
// supported dialect, canonicalized without a trailing '#'.
var metaSchemaIDs = []string{
	"http://json-schema.org/draft-04/schema",
	"http://json-schema.org/draft-06/schema",
	"http://json-schema.org/draft-07/schema",
	"https://json-schema.org/draft/2019-09/schema",
	"https://json-schema.org/draft/2020-12/schema",
}

// MetaSchemaIDs returns the meta-schema identifiers recognized by the
// default engine.
func MetaSchemaIDs() []string {
	out := make([]string, len(metaSchemaIDs))
	copy(out, metaSchemaIDs)
	return out
}

// Option configures the default engine.
type Option func(*engine)

// WithResolver wires cross-document $ref resolution to the given resolver,
// typically a schema location registry.
func WithResolver(r Resolver) Option {
	return func(e *engine) { e.resolve = r }
}

// WithDefaultDraft sets the dialect assumed for schemas without a $schema
// property. The identifier must be one of MetaSchemaIDs.
func WithDefaultDraft(id string) Option {
	return func(e *engine) { e.defaultDraft = draftFor(id) }
}

// New returns the default Engine backed by santhosh-tekuri/jsonschema.
func New(opts ...Option) Engine {
	e := &engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

type engine struct {
	resolve      Resolver
	defaultDraft *sj.Draft
}

func draftFor(id string) *sj.Draft {
	switch strings.TrimSuffix(id, "#") {
	case "http://json-schema.org/draft-04/schema":
		return sj.Draft4
	case "http://json-schema.org/draft-06/schema":
		return sj.Draft6
	case "http://json-schema.org/draft-07/schema":
		return sj.Draft7
	case "https://json-schema.org/draft/2019-09/schema":
		return sj.Draft2019
	case "https://json-schema.org/draft/2020-12/schema":
		return sj.Draft2020
	default:
		return nil
	}
}

func (e *engine) MetaSchemaIDs() []string { return MetaSchemaIDs() }

func (e *engine) newCompiler(ctx context.Context) *sj.Compiler {
	c := sj.NewCompiler()
	if e.defaultDraft != nil {
		c.DefaultDraft(e.defaultDraft)
	}
	if e.resolve != nil {
		c.UseLoader(resolverLoader{ctx: ctx, resolve: e.resolve})
	}
	return c
}

// resolverLoader adapts a Resolver to the compiler's URLLoader so that $ref
// targets are fetched through the registry rather than the network.
type resolverLoader struct {
	ctx     context.Context
	resolve Resolver
}

func (l resolverLoader) Load(url string) (any, error) {
	return l.resolve(l.ctx, url)
}

func (e *engine) Compile(ctx context.Context, id string, body any) (Schema, error) {
	base, frag := SplitFragment(id)
	if base == "" {
		base = "inmem:///schema.json"
		id = base + "#" + frag
		if frag == "" {
			id = base
		}
	}
	c := e.newCompiler(ctx)
	if err := c.AddResource(base, jsondoc.Plain(body)); err != nil {
		return nil, &SchemaError{SchemaID: id, Err: err}
	}
	compiled, err := c.Compile(id)
	if err != nil {
		var sve *sj.SchemaValidationError
		if errors.As(err, &sve) {
			return nil, &SchemaError{
				SchemaID:   id,
				Violations: []Violation{{Message: sve.Err.Error()}},
				Err:        err,
			}
		}
		if frag != "" {
			return nil, fmt.Errorf("%w: %q in %s: %v", ErrFragment, frag, base, err)
		}
		return nil, &SchemaError{SchemaID: id, Err: err}
	}
	return compiledSchema{s: compiled}, nil
}

func (e *engine) CheckSchema(ctx context.Context, body any) []Violation {
	_, err := e.Compile(ctx, "", body)
	if err == nil {
		return nil
	}
	var se *SchemaError
	if errors.As(err, &se) && len(se.Violations) > 0 {
		return se.Violations
	}
	return []Violation{{Message: err.Error()}}
}

func (e *engine) ResolveFragment(body any, fragment string) (any, error) {
	return resolvePointerFragment(body, fragment)
}

type compiledSchema struct {
	s *sj.Schema
}

var enPrinter = message.NewPrinter(language.English)

func (c compiledSchema) Evaluate(instance any) []Violation {
	err := c.s.Validate(jsondoc.Plain(instance))
	if err == nil {
		return nil
	}
	var ve *sj.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Message: err.Error()}}
	}
	var out []Violation
	collectLeaves(ve, &out)
	return out
}

// collectLeaves flattens a validation error tree into its leaf causes; the
// leaves carry the specific keyword failures.
func collectLeaves(ve *sj.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{
			InstancePtr: pointerFrom(ve.InstanceLocation),
			SchemaPtr:   pointerFrom(ve.ErrorKind.KeywordPath()),
			Message:     ve.ErrorKind.LocalizedString(enPrinter),
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

func pointerFrom(tokens []string) string {
	if len(tokens) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, t := range tokens {
		b.WriteString("/")
		b.WriteString(jsondoc.EscapeToken(t))
	}
	return b.String()
}
