package ejschema_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ejschema/ejschema"
)

func mustLoad(t *testing.T, v *ejschema.Validator, body map[string]any) {
	t.Helper()
	if err := v.LoadSchema(context.Background(), body, ""); err != nil {
		t.Fatalf("load schema: %v", err)
	}
}

func personSchema() map[string]any {
	return map[string]any{
		"id":   "urn:test:person",
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
}

func TestValidate_Minimal(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	doc := map[string]any{"$schema": "urn:test:person", "name": "Bob"}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{Minimal: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_BaseSchemaViolation(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	doc := map[string]any{"$schema": "urn:test:person", "name": float64(3)}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	e := errs[0]
	if e.Code != ejschema.CodeValidation {
		t.Fatalf("code: %q", e.Code)
	}
	if e.InstancePtr != "/name" {
		t.Fatalf("instance pointer: %q", e.InstancePtr)
	}
	if e.SchemaID != "urn:test:person" {
		t.Fatalf("schema id: %q", e.SchemaID)
	}
}

func TestValidate_MissingBaseSchema(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	_, err := v.Validate(context.Background(), map[string]any{"name": "Bob"}, ejschema.ValidateOpt{})
	if err == nil {
		t.Fatalf("expected an error for a document with no base schema")
	}
	var e ejschema.Error
	if !errors.As(err, &e) || e.Code != ejschema.CodeMissingBaseSchema {
		t.Fatalf("expected missing_base_schema, got %v", err)
	}
}

func TestValidate_SchemaIDOverride(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	errs, err := v.Validate(context.Background(), map[string]any{"name": "Bob"},
		ejschema.ValidateOpt{SchemaID: "urn:test:person"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_ExtensionSchemas(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())
	mustLoad(t, v, map[string]any{
		"id":       "urn:test:named",
		"type":     "object",
		"required": []any{"name"},
	})

	doc := map[string]any{
		"$schema": "urn:test:person",
		"name":    "Bob",
		"address": map[string]any{
			"$extensionSchemas": []any{"urn:test:named"},
			"street":            "main st",
		},
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{Strict: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one extension violation, got %v", errs)
	}
	e := errs[0]
	if e.Code != ejschema.CodeValidation || e.SchemaID != "urn:test:named" {
		t.Fatalf("unexpected error: %+v", e)
	}
	// pointer cites the marked subtree, not the root
	if !strings.HasPrefix(e.InstancePtr, "/address") {
		t.Fatalf("instance pointer must be prefixed with the subtree: %q", e.InstancePtr)
	}
}

func TestValidate_StrictVsLax(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	doc := map[string]any{
		"$schema":           "urn:test:person",
		"name":              "Bob",
		"$extensionSchemas": []any{"urn:test:missing"},
	}

	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{})
	if err != nil {
		t.Fatalf("validate lax: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("lax mode must skip unresolvable extension schemas, got %v", errs)
	}

	errs, err = v.Validate(context.Background(), doc, ejschema.ValidateOpt{Strict: true})
	if err != nil {
		t.Fatalf("validate strict: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != ejschema.CodeSchemaNotFound {
		t.Fatalf("strict mode expected schema_not_found, got %v", errs)
	}
}

func TestValidate_MalformedMarker(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	doc := map[string]any{
		"$schema":           "urn:test:person",
		"name":              "Bob",
		"$extensionSchemas": "urn:not-an-array",
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != ejschema.CodeMalformedMarker {
		t.Fatalf("expected malformed_marker, got %v", errs)
	}

	doc["$extensionSchemas"] = []any{"urn:test:person", float64(7)}
	errs, err = v.Validate(context.Background(), doc, ejschema.ValidateOpt{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !errs.HasCode(ejschema.CodeMalformedMarker) {
		t.Fatalf("expected malformed_marker for non-string item, got %v", errs)
	}
}

func TestValidate_FailFast(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, map[string]any{
		"id":   "urn:test:strictperson",
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
	})

	doc := map[string]any{
		"$schema": "urn:test:strictperson",
		"name":    float64(1),
		"age":     "old",
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{FailFast: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("fail-fast expected one error, got %v", errs)
	}
}

func TestValidateAgainst(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())

	errs := v.ValidateAgainst(context.Background(), map[string]any{"name": true}, true, "urn:test:person")
	if len(errs) != 1 || errs[0].Code != ejschema.CodeValidation {
		t.Fatalf("expected one validation error, got %v", errs)
	}

	errs = v.ValidateAgainst(context.Background(), map[string]any{}, false, "urn:test:unknown")
	if len(errs) != 0 {
		t.Fatalf("lax unknown identifier must be skipped, got %v", errs)
	}
}

func TestValidate_FragmentReference(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	mustLoad(t, v, personSchema())
	mustLoad(t, v, map[string]any{
		"id": "urn:test:defs",
		"definitions": map[string]any{
			"label": map[string]any{"type": "object", "required": []any{"label"}},
		},
	})

	doc := map[string]any{
		"$schema": "urn:test:person",
		"part": map[string]any{
			"$extensionSchemas": []any{"urn:test:defs#/definitions/label"},
		},
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{Strict: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != ejschema.CodeValidation {
		t.Fatalf("expected one validation error via fragment, got %v", errs)
	}

	doc["part"] = map[string]any{
		"$extensionSchemas": []any{"urn:test:defs#/definitions/nope"},
	}
	errs, err = v.Validate(context.Background(), doc, ejschema.ValidateOpt{Strict: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != ejschema.CodeUnresolvable {
		t.Fatalf("expected unresolvable for a dangling fragment, got %v", errs)
	}
}

func TestLoadSchema_RejectsInvalidSchema(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	err := v.LoadSchema(context.Background(), map[string]any{
		"id":   "urn:test:bad",
		"type": 12,
	}, "")
	if err == nil {
		t.Fatalf("expected schema check failure")
	}
	errs, ok := ejschema.AsErrors(err)
	if !ok || !errs.HasCode(ejschema.CodeSchemaInvalid) {
		t.Fatalf("expected schema_invalid, got %v", err)
	}
	if v.Registry().Has("urn:test:bad") {
		t.Fatalf("invalid schema must not be registered")
	}
}

func TestLoadSchema_RequiresID(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	err := v.LoadSchema(context.Background(), map[string]any{"type": "object"}, "")
	var e ejschema.Error
	if !errors.As(err, &e) || e.Code != ejschema.CodeConfigError {
		t.Fatalf("expected config_error, got %v", err)
	}
}

func TestIsExtSchemaSchema(t *testing.T) {
	v := ejschema.New(ejschema.Options{})
	doc := map[string]any{
		"id":                "https://data.nist.gov/od/dm/enhanced-json-schema/v0.1#",
		"$extensionSchemas": map[string]any{"type": "array"},
	}
	if !v.IsExtSchemaSchema(doc) {
		t.Fatalf("recognized identifier with marker property must qualify")
	}
	if v.IsExtSchemaSchema(map[string]any{"id": "urn:test:other", "$extensionSchemas": map[string]any{}}) {
		t.Fatalf("unrecognized identifier must not qualify")
	}
	if v.IsExtSchemaSchema("not an object") {
		t.Fatalf("non-object must not qualify")
	}
}

func TestValidate_ObjectMarkerInConventionSchema(t *testing.T) {
	v, err := ejschema.NewSchemaValidator()
	if err != nil {
		t.Fatalf("schema validator: %v", err)
	}
	mustLoad(t, v, personSchema())

	// the convention schema declares $extensionSchemas as an object (a schema
	// definition); that must not be reported as a malformed marker
	doc := map[string]any{
		"$schema":           "urn:test:person",
		"id":                "https://data.nist.gov/od/dm/enhanced-json-schema/v0.1#",
		"$extensionSchemas": map[string]any{"type": "array"},
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if errs.HasCode(ejschema.CodeMalformedMarker) {
		t.Fatalf("object-valued marker in the convention schema must be tolerated: %v", errs)
	}
}

func TestValidator_CustomPrefix(t *testing.T) {
	v := ejschema.New(ejschema.Options{Prefix: "_"})
	if v.Prefix() != "_" {
		t.Fatalf("prefix: %q", v.Prefix())
	}
	mustLoad(t, v, personSchema())
	mustLoad(t, v, map[string]any{
		"id":       "urn:test:named",
		"type":     "object",
		"required": []any{"name"},
	})

	doc := map[string]any{
		"_schema": "urn:test:person",
		"sub": map[string]any{
			"_extensionSchemas": []any{"urn:test:named"},
		},
	}
	errs, err := v.Validate(context.Background(), doc, ejschema.ValidateOpt{Strict: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(errs) != 1 || errs[0].SchemaID != "urn:test:named" {
		t.Fatalf("underscore-prefixed markers not honored: %v", errs)
	}
}

func TestNewSchemaValidator_ValidatesConventionSchema(t *testing.T) {
	v, err := ejschema.NewSchemaValidator()
	if err != nil {
		t.Fatalf("schema validator: %v", err)
	}
	body, rerr := v.Registry().Resolve(context.Background(),
		"https://data.nist.gov/od/dm/enhanced-json-schema/v0.1")
	if rerr != nil {
		t.Fatalf("resolve bundled schema: %v", rerr)
	}
	inst := ejschema.NewInstance(body)
	if !v.IsExtSchemaSchema(inst) {
		t.Fatalf("bundled convention schema must be recognized")
	}
}
