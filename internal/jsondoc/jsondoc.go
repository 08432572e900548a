package jsondoc

import (
	"fmt"
	"io"
	"sort"

	j "github.com/goccy/go-json"
)

// Object is a JSON object that remembers the order in which its members
// appeared in the source. Traversal results over a document must be
// reproducible, so the decoded representation cannot be a plain Go map.
type Object struct {
	members []Member
	index   map[string]int
}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{index: map[string]int{}}
}

// Set adds or replaces a member. Insertion order is kept; replacing an
// existing key keeps its original position.
func (o *Object) Set(key string, v any) {
	if i, ok := o.index[key]; ok {
		o.members[i].Value = v
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: v})
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].Value, true
}

// Has reports whether key is a member of the object.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Members returns the members in source order. The returned slice must not
// be mutated.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	return o.members
}

// Keys returns the member keys in source order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.members))
	for i, m := range o.members {
		out[i] = m.Key
	}
	return out
}

// MarshalJSON writes the object back out in member order.
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, m := range o.members {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := j.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		v, err := j.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// Decode reads a single JSON value from r into an order-preserving tree:
// objects become *Object, arrays []any, numbers json.Number, the rest the
// usual scalar kinds.
func Decode(r io.Reader) (any, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return decodeValue(dec, tok)
}

func decodeValue(dec *j.Decoder, tok j.Token) (any, error) {
	switch t := tok.(type) {
	case j.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t.String())
	default:
		return tok, nil
	}
}

func decodeObject(dec *j.Decoder) (*Object, error) {
	o := NewObject()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key token %v", kt)
		}
		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec, vt)
		if err != nil {
			return nil, err
		}
		o.Set(key, v)
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeArray(dec *j.Decoder) ([]any, error) {
	var arr []any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// Plain converts an ordered tree into the plain map/slice shape expected by
// schema evaluators. Scalars pass through unchanged.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]any, t.Len())
		for _, mem := range t.Members() {
			m[mem.Key] = Plain(mem.Value)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

// entries returns key/value pairs for any object-like node, in source order
// for *Object and in sorted key order for plain maps so that traversal over
// either shape is deterministic.
func entries(v any) ([]Member, bool) {
	switch t := v.(type) {
	case *Object:
		return t.Members(), true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Member, len(keys))
		for i, k := range keys {
			out[i] = Member{Key: k, Value: t[k]}
		}
		return out, true
	default:
		return nil, false
	}
}

// Property looks up a property on an object-like node.
func Property(v any, name string) (any, bool) {
	switch t := v.(type) {
	case *Object:
		return t.Get(name)
	case map[string]any:
		val, ok := t[name]
		return val, ok
	default:
		return nil, false
	}
}

// IsObject reports whether v is an object-like node.
func IsObject(v any) bool {
	switch v.(type) {
	case *Object, map[string]any:
		return true
	default:
		return false
	}
}
