package ejschema

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ejschema/ejschema/internal/jsondoc"
)

// Conventional property names, without the marker prefix.
const (
	SchemaTag     = "schema"
	ExtSchemasTag = "extensionSchemas"
)

// Pointer resolution failure kinds surfaced by Instance.Extract.
var (
	ErrPointerNotFound     = errors.New("ejschema: pointer not found")
	ErrPointerTypeMismatch = errors.New("ejschema: pointer type mismatch")
)

// Hit pairs a document pointer with the node it addresses. Pointers are
// relative to the instance's own base pointer.
type Hit struct {
	Ptr   string
	Value any
}

// Instance wraps a parsed document together with where it came from. The
// wrapped data is read-only for the life of a validation run.
type Instance struct {
	// Data is the parsed document tree. Objects decoded by this module keep
	// their source member order so traversal results are reproducible.
	Data any

	srcLoc string
	srcID  string
	ptr    string
}

// InstanceOption configures an Instance wrapper.
type InstanceOption func(*Instance)

// WithSourceLocation records the file path or URL the data came from.
func WithSourceLocation(loc string) InstanceOption {
	return func(i *Instance) { i.srcLoc = loc }
}

// WithSourceID records the URI identifying the source document as a whole.
func WithSourceID(id string) InstanceOption {
	return func(i *Instance) { i.srcID = id }
}

// WithPointer records the pointer of the wrapped data within its source
// document.
func WithPointer(ptr string) InstanceOption {
	return func(i *Instance) { i.ptr = ptr }
}

// NewInstance wraps parsed document data. When no source id is given and
// the data is the whole document, the root "id" property is consulted.
func NewInstance(data any, opts ...InstanceOption) *Instance {
	i := &Instance{Data: data, ptr: "/"}
	for _, o := range opts {
		o(i)
	}
	if i.srcID == "" && (i.ptr == "/" || i.ptr == "") {
		if v, ok := jsondoc.Property(data, "id"); ok {
			i.srcID, _ = v.(string)
		}
	}
	return i
}

// ReadInstance decodes a JSON document from r into an Instance.
func ReadInstance(r io.Reader, opts ...InstanceOption) (*Instance, error) {
	data, err := jsondoc.Decode(r)
	if err != nil {
		return nil, Error{Code: CodeMalformedInput, Message: err.Error(), Cause: err}
	}
	return NewInstance(data, opts...), nil
}

// LoadInstance opens a source location (a file path or an http(s) URL) and
// wraps its JSON content.
func LoadInstance(loc string, opts ...InstanceOption) (*Instance, error) {
	u, err := url.Parse(loc)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Get(loc)
		if err != nil {
			return nil, Error{Code: CodeSourceUnavailable, Message: loc + ": " + err.Error(), Cause: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, Error{Code: CodeSourceUnavailable, Message: fmt.Sprintf("%s: status %d", loc, resp.StatusCode)}
		}
		return ReadInstance(resp.Body, append(opts, WithSourceLocation(loc))...)
	}

	p := loc
	if u != nil && u.Scheme == "file" && u.Host == "" {
		p = u.Path
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, Error{Code: CodeSourceUnavailable, Message: loc + ": " + err.Error(), Cause: err}
	}
	defer f.Close()
	return ReadInstance(f, append(opts, WithSourceLocation(loc))...)
}

// SourceLocation returns the file path or URL the data came from, when
// known.
func (i *Instance) SourceLocation() string { return i.srcLoc }

// SourceID returns the URI identifying the full source document, when
// known.
func (i *Instance) SourceID() string { return i.srcID }

// Pointer returns the pointer of the wrapped data within its source.
func (i *Instance) Pointer() string { return i.ptr }

// FindValuesByName walks the data depth-first pre-order and returns a hit
// for every object property with the given name. The pointer addresses the
// property itself; its last token is always the name.
func (i *Instance) FindValuesByName(name string) []Hit {
	return convertHits(jsondoc.FindValuesByName(i.Data, name))
}

// FindObjectsWithProperty returns a hit for every object owning a property
// with the given name; the pointer addresses the containing object ("/" for
// the root) and the value is the object itself.
func (i *Instance) FindObjectsWithProperty(name string) []Hit {
	return convertHits(jsondoc.FindObjectsWithProperty(i.Data, name))
}

// FindExtendedObjects returns a hit for every object declaring extension
// schemas, that is, every object owning a <prefix>extensionSchemas
// property. An empty prefix selects the default '$'.
func (i *Instance) FindExtendedObjects(prefix string) []Hit {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return i.FindObjectsWithProperty(prefix + ExtSchemasTag)
}

// Extract resolves a document pointer against the data. It fails with
// ErrPointerNotFound when a path segment does not exist and with
// ErrPointerTypeMismatch when a segment is applied to the wrong node kind.
func (i *Instance) Extract(ptr string) (any, error) {
	v, err := jsondoc.Extract(i.Data, ptr)
	if err != nil {
		switch {
		case errors.Is(err, jsondoc.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrPointerNotFound, strings.TrimPrefix(err.Error(), "jsondoc: pointer not found: "))
		case errors.Is(err, jsondoc.ErrTypeMismatch):
			return nil, fmt.Errorf("%w: %s", ErrPointerTypeMismatch, strings.TrimPrefix(err.Error(), "jsondoc: pointer type mismatch: "))
		default:
			return nil, err
		}
	}
	return v, nil
}

func convertHits(hits []jsondoc.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Ptr: h.Ptr, Value: h.Value}
	}
	return out
}
