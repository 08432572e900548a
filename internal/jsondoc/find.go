package jsondoc

import "strconv"

// Hit pairs a document pointer with the node it addresses.
type Hit struct {
	Ptr   string
	Value any
}

// FindValuesByName walks the document depth-first, pre-order, and returns a
// hit for every object property named name. The pointer addresses the
// property itself and the value is the property's value.
func FindValuesByName(doc any, name string) []Hit {
	var out []Hit
	findValues(doc, name, "", &out)
	return out
}

func findValues(v any, name, path string, out *[]Hit) {
	if mem, ok := entries(v); ok {
		if pv, has := Property(v, name); has {
			*out = append(*out, Hit{Ptr: JoinPointer(path, name), Value: pv})
		}
		for _, m := range mem {
			findValues(m.Value, name, JoinPointer(path, m.Key), out)
		}
		return
	}
	if arr, ok := v.([]any); ok {
		for i, e := range arr {
			findValues(e, name, path+"/"+strconv.Itoa(i), out)
		}
	}
}

// FindObjectsWithProperty returns a hit for every object node owning a
// property named name. The pointer addresses the containing object ("/" for
// the root) and the value is the object itself.
func FindObjectsWithProperty(doc any, name string) []Hit {
	var out []Hit
	findObjects(doc, name, "", &out)
	return out
}

func findObjects(v any, name, path string, out *[]Hit) {
	if mem, ok := entries(v); ok {
		if Has(v, name) {
			p := path
			if p == "" {
				p = "/"
			}
			*out = append(*out, Hit{Ptr: p, Value: v})
		}
		for _, m := range mem {
			findObjects(m.Value, name, JoinPointer(path, m.Key), out)
		}
		return
	}
	if arr, ok := v.([]any); ok {
		for i, e := range arr {
			findObjects(e, name, path+"/"+strconv.Itoa(i), out)
		}
	}
}

// Has reports whether an object-like node owns the given property.
func Has(v any, name string) bool {
	_, ok := Property(v, name)
	return ok
}
