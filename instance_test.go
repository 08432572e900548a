package ejschema_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ejschema/ejschema"
	"github.com/ejschema/ejschema/internal/jsondoc"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

const sampleDoc = `{
	"id": "urn:test:doc",
	"name": "top",
	"items": [
		{"name": "first"},
		{"deep": {"name": "second"}}
	]
}`

func TestReadInstance(t *testing.T) {
	inst, err := ejschema.ReadInstance(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if inst.SourceID() != "urn:test:doc" {
		t.Fatalf("source id from root property: %q", inst.SourceID())
	}
	if inst.Pointer() != "/" {
		t.Fatalf("root pointer: %q", inst.Pointer())
	}
}

func TestReadInstance_Malformed(t *testing.T) {
	_, err := ejschema.ReadInstance(strings.NewReader("{broken"))
	var e ejschema.Error
	if !errors.As(err, &e) || e.Code != ejschema.CodeMalformedInput {
		t.Fatalf("expected malformed_input, got %v", err)
	}
}

func TestInstance_FindValuesByName(t *testing.T) {
	inst, err := ejschema.ReadInstance(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	hits := inst.FindValuesByName("name")
	want := []string{"/name", "/items/0/name", "/items/1/deep/name"}
	if len(hits) != len(want) {
		t.Fatalf("hit count: %v", hits)
	}
	for i, h := range hits {
		if h.Ptr != want[i] {
			t.Fatalf("hit %d: got %q want %q", i, h.Ptr, want[i])
		}
	}
}

func TestInstance_FindObjectsWithProperty(t *testing.T) {
	inst, err := ejschema.ReadInstance(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	hits := inst.FindObjectsWithProperty("name")
	if len(hits) != 3 {
		t.Fatalf("hit count: %v", hits)
	}
	if hits[0].Ptr != "/" {
		t.Fatalf("root object pointer: %q", hits[0].Ptr)
	}
	// each returned pointer resolves back to the object that owns the property
	for _, h := range hits {
		got, err := inst.Extract(h.Ptr)
		if err != nil {
			t.Fatalf("extract %q: %v", h.Ptr, err)
		}
		if _, ok := jsondoc.Property(got, "name"); !ok {
			t.Fatalf("object at %q lacks the property", h.Ptr)
		}
	}
}

func TestInstance_FindExtendedObjects(t *testing.T) {
	inst, err := ejschema.ReadInstance(strings.NewReader(`{
		"a": {"$extensionSchemas": ["urn:x"]},
		"b": {"_extensionSchemas": ["urn:y"]}
	}`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	hits := inst.FindExtendedObjects("")
	if len(hits) != 1 || hits[0].Ptr != "/a" {
		t.Fatalf("default prefix: %v", hits)
	}
	hits = inst.FindExtendedObjects("_")
	if len(hits) != 1 || hits[0].Ptr != "/b" {
		t.Fatalf("underscore prefix: %v", hits)
	}
}

func TestInstance_Extract(t *testing.T) {
	inst, err := ejschema.ReadInstance(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	v, err := inst.Extract("/items/0/name")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v != "first" {
		t.Fatalf("unexpected value: %#v", v)
	}

	if _, err := inst.Extract("/items/9"); !errors.Is(err, ejschema.ErrPointerNotFound) {
		t.Fatalf("expected ErrPointerNotFound, got %v", err)
	}
	if _, err := inst.Extract("/name/0"); !errors.Is(err, ejschema.ErrPointerTypeMismatch) {
		t.Fatalf("expected ErrPointerTypeMismatch, got %v", err)
	}
}

func TestLoadInstance_File(t *testing.T) {
	p := writeTempFile(t, sampleDoc)
	inst, err := ejschema.LoadInstance(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inst.SourceLocation() != p {
		t.Fatalf("source location: %q", inst.SourceLocation())
	}
	if inst.SourceID() != "urn:test:doc" {
		t.Fatalf("source id: %q", inst.SourceID())
	}
}

func TestLoadInstance_MissingFile(t *testing.T) {
	_, err := ejschema.LoadInstance("/no/such/file.json")
	var e ejschema.Error
	if !errors.As(err, &e) || e.Code != ejschema.CodeSourceUnavailable {
		t.Fatalf("expected source_unavailable, got %v", err)
	}
}

func TestNewInstance_SubtreeKeepsNoRootID(t *testing.T) {
	inst := ejschema.NewInstance(map[string]any{"id": "urn:test:sub"},
		ejschema.WithPointer("/items/0"))
	if inst.SourceID() != "" {
		t.Fatalf("subtree must not adopt its own id property: %q", inst.SourceID())
	}
	if inst.Pointer() != "/items/0" {
		t.Fatalf("pointer: %q", inst.Pointer())
	}
}
