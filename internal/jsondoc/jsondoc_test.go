package jsondoc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ejschema/ejschema/internal/jsondoc"
)

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := jsondoc.Decode(strings.NewReader(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestDecode_PreservesMemberOrder(t *testing.T) {
	v := mustDecode(t, `{"zebra":1,"apple":2,"mango":{"b":1,"a":2}}`)
	obj, ok := v.(*jsondoc.Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v)
	}
	keys := obj.Keys()
	if len(keys) != 3 || keys[0] != "zebra" || keys[1] != "apple" || keys[2] != "mango" {
		t.Fatalf("member order not preserved: %v", keys)
	}
}

func TestDecode_Scalars(t *testing.T) {
	v := mustDecode(t, `{"s":"x","n":3.5,"b":true,"z":null,"a":[1,2]}`)
	obj := v.(*jsondoc.Object)
	if s, _ := obj.Get("s"); s != "x" {
		t.Fatalf("string: %v", s)
	}
	if b, _ := obj.Get("b"); b != true {
		t.Fatalf("bool: %v", b)
	}
	if z, ok := obj.Get("z"); !ok || z != nil {
		t.Fatalf("null: %v %v", z, ok)
	}
	a, _ := obj.Get("a")
	if arr, ok := a.([]any); !ok || len(arr) != 2 {
		t.Fatalf("array: %v", a)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := jsondoc.Decode(strings.NewReader(`{"a":`)); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestExtract(t *testing.T) {
	doc := mustDecode(t, `{"a":{"b":[10,{"c":"hit"}]},"x~y":1,"p/q":2}`)

	v, err := jsondoc.Extract(doc, "/a/b/1/c")
	if err != nil || v != "hit" {
		t.Fatalf("extract /a/b/1/c: %v, %v", v, err)
	}
	if v, err := jsondoc.Extract(doc, "/"); err != nil || v != doc {
		t.Fatalf("root extract: %v, %v", v, err)
	}
	if v, err := jsondoc.Extract(doc, "/x~0y"); err != nil || v == nil {
		t.Fatalf("escaped ~: %v, %v", v, err)
	}
	if v, err := jsondoc.Extract(doc, "/p~1q"); err != nil || v == nil {
		t.Fatalf("escaped /: %v, %v", v, err)
	}

	if _, err := jsondoc.Extract(doc, "/a/missing"); !errors.Is(err, jsondoc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := jsondoc.Extract(doc, "/a/b/notanindex"); !errors.Is(err, jsondoc.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := jsondoc.Extract(doc, "/a/b/9"); !errors.Is(err, jsondoc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-range index, got %v", err)
	}
	if _, err := jsondoc.Extract(doc, "/x~0y/deeper"); !errors.Is(err, jsondoc.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for scalar descent, got %v", err)
	}
}

func TestFindValuesByName(t *testing.T) {
	doc := mustDecode(t, `{"name":"root","items":[{"name":"first"},{"deep":{"name":"second"}}]}`)
	hits := jsondoc.FindValuesByName(doc, "name")
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	want := []string{"/name", "/items/0/name", "/items/1/deep/name"}
	for i, h := range hits {
		if h.Ptr != want[i] {
			t.Fatalf("hit %d: got %q want %q", i, h.Ptr, want[i])
		}
	}
	if hits[0].Value != "root" || hits[2].Value != "second" {
		t.Fatalf("unexpected hit values: %v", hits)
	}
}

func TestFindObjectsWithProperty(t *testing.T) {
	doc := mustDecode(t, `{"m":true,"kids":[{"m":1},{"other":{"m":[]}}]}`)
	hits := jsondoc.FindObjectsWithProperty(doc, "m")
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Ptr != "/" {
		t.Fatalf("root hit pointer: %q", hits[0].Ptr)
	}
	if hits[1].Ptr != "/kids/0" || hits[2].Ptr != "/kids/1/other" {
		t.Fatalf("hit pointers: %q %q", hits[1].Ptr, hits[2].Ptr)
	}
	// pre-order: root before children
	for _, h := range hits {
		v, err := jsondoc.Extract(doc, h.Ptr)
		if err != nil {
			t.Fatalf("extract %q: %v", h.Ptr, err)
		}
		if !jsondoc.Has(v, "m") {
			t.Fatalf("node at %q does not own property m", h.Ptr)
		}
	}
}

func TestPlain(t *testing.T) {
	doc := mustDecode(t, `{"a":{"b":[1,{"c":true}]}}`)
	p := jsondoc.Plain(doc)
	m, ok := p.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", p)
	}
	inner, ok := m["a"].(map[string]any)
	if !ok {
		t.Fatalf("nested object not converted: %T", m["a"])
	}
	arr, ok := inner["b"].([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("nested array not converted: %v", inner["b"])
	}
	if _, ok := arr[1].(map[string]any); !ok {
		t.Fatalf("object inside array not converted: %T", arr[1])
	}
}

func TestObject_SetReplacesInPlace(t *testing.T) {
	o := jsondoc.NewObject()
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("a", 3)
	if o.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", o.Len())
	}
	if v, _ := o.Get("a"); v != 3 {
		t.Fatalf("replaced value: %v", v)
	}
	if keys := o.Keys(); keys[0] != "a" {
		t.Fatalf("replacement must keep position: %v", keys)
	}
}
