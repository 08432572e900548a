// Package loader maps schema identifiers to loadable schema bodies. It
// provides the source loaders (local file, bundled resource, HTTP), the
// identifier registry, directory discovery, and the location-mapping file
// formats.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	j "github.com/goccy/go-json"
)

var (
	// ErrNotFound reports an identifier with no registered binding.
	ErrNotFound = errors.New("loader: schema not found")
	// ErrUnavailable reports an I/O or transport failure while fetching.
	ErrUnavailable = errors.New("loader: source unavailable")
	// ErrMalformed reports content that cannot be parsed.
	ErrMalformed = errors.New("loader: malformed content")
	// ErrBadLocation reports a location string with no usable path.
	ErrBadLocation = errors.New("loader: unusable location")
)

// Loader produces the parsed schema body for one location, fresh on each
// invocation. Loaders do not cache; callers needing memoization must cache
// themselves.
type Loader interface {
	Load(ctx context.Context) (any, error)
	Location() string
}

// decodeJSON parses a JSON document with numbers kept as json.Number.
func decodeJSON(r io.Reader, loc string) (any, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, loc, err)
	}
	return v, nil
}

// FileLoader reads a schema from a path on local disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Location() string { return l.Path }

func (l FileLoader) Load(ctx context.Context) (any, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, l.Path, err)
	}
	defer f.Close()
	return decodeJSON(f, l.Path)
}

// ResourceLoader reads a schema bundled with the distribution, addressed by
// a symbolic path within an fs.FS.
type ResourceLoader struct {
	FS   fs.FS
	Path string
}

func (l ResourceLoader) Location() string { return "resource:" + l.Path }

func (l ResourceLoader) Load(ctx context.Context) (any, error) {
	f, err := l.FS.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: resource:%s: %v", ErrUnavailable, l.Path, err)
	}
	defer f.Close()
	return decodeJSON(f, "resource:"+l.Path)
}

// StaticLoader serves a pre-parsed schema body.
type StaticLoader struct {
	ID   string
	Body any
}

func (l StaticLoader) Location() string { return l.ID }

func (l StaticLoader) Load(ctx context.Context) (any, error) { return l.Body, nil }

// Factory maps location strings to loader variants by scheme. Resources is
// consulted for "resource:" locations; nil means the bundled schema set.
type Factory struct {
	Resources fs.FS
	HTTP      []HTTPOption
}

// ForLocation returns the loader variant for a location string: "resource:"
// for bundled resources, http(s) for remote schemas, anything else is a
// local path.
func (f Factory) ForLocation(loc string) (Loader, error) {
	switch {
	case strings.HasPrefix(loc, "resource:"):
		p := strings.TrimPrefix(loc, "resource:")
		p = strings.TrimPrefix(p, "//")
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadLocation, loc)
		}
		fsys := f.Resources
		if fsys == nil {
			fsys = BundledSchemas()
		}
		return ResourceLoader{FS: fsys, Path: p}, nil
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return NewHTTPLoader(loc, f.HTTP...), nil
	default:
		p := loc
		if u, err := url.Parse(loc); err == nil && u.Scheme == "file" && u.Host == "" {
			p = u.Path
		}
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadLocation, loc)
		}
		return FileLoader{Path: p}, nil
	}
}

// ForLocation dispatches with the default factory.
func ForLocation(loc string) (Loader, error) {
	return Factory{}.ForLocation(loc)
}
