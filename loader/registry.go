package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ejschema/ejschema/eval"
)

// DefaultManifestName is the conventional name of the discovery manifest
// written into a schema directory.
const DefaultManifestName = "schemaLocation.json"

// Canonical strips a single trailing '#' from a schema identifier.
// Identifiers are compared only in canonical form.
func Canonical(id string) string { return strings.TrimSuffix(id, "#") }

// Registry is the central identifier->loader map. It owns its bindings;
// re-registering an identifier replaces the previous binding. A Registry is
// not safe for unsynchronized concurrent mutation.
type Registry struct {
	bindings map[string]Loader
	factory  Factory
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory replaces the loader factory used by RegisterLocation.
func WithFactory(f Factory) RegistryOption {
	return func(r *Registry) { r.factory = f }
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{bindings: map[string]Loader{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register binds an identifier to a loader, canonicalizing the identifier
// first.
func (r *Registry) Register(id string, l Loader) {
	r.bindings[Canonical(id)] = l
}

// RegisterLocation binds an identifier to the loader variant inferred from
// the location string.
func (r *Registry) RegisterLocation(id, loc string) error {
	l, err := r.factory.ForLocation(loc)
	if err != nil {
		return err
	}
	r.Register(id, l)
	return nil
}

// RegisterAll binds every identifier->location entry of the mapping.
func (r *Registry) RegisterAll(locs map[string]string) error {
	for id, loc := range locs {
		if err := r.RegisterLocation(id, loc); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBody binds an identifier to a pre-parsed schema body.
func (r *Registry) RegisterBody(id string, body any) {
	r.Register(id, StaticLoader{ID: Canonical(id), Body: body})
}

// MergeFrom copies all bindings from other into r. On collision the other
// registry's binding wins.
func (r *Registry) MergeFrom(other *Registry) {
	if other == nil {
		return
	}
	for id, l := range other.bindings {
		r.bindings[id] = l
	}
}

// Resolve looks up the binding for an identifier and invokes its loader.
func (r *Registry) Resolve(ctx context.Context, id string) (any, error) {
	l, ok := r.bindings[Canonical(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.Load(ctx)
}

// Locate returns the location string bound to an identifier.
func (r *Registry) Locate(id string) (string, error) {
	l, ok := r.bindings[Canonical(id)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.Location(), nil
}

// Has reports whether the identifier is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.bindings[Canonical(id)]
	return ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of bindings.
func (r *Registry) Len() int { return len(r.bindings) }

// DirOptions configures directory and FS population of a Registry.
type DirOptions struct {
	// ManifestName is the location-mapping file consulted before running
	// discovery. Empty selects DefaultManifestName.
	ManifestName string
	// EnsureManifest writes a manifest after a discovery pass so later runs
	// skip the full scan.
	EnsureManifest bool
	// Flat restricts discovery to the top-level directory.
	Flat bool
	// MetaIDs is the recognized meta-schema identifier set. Nil selects the
	// evaluation engine's defaults.
	MetaIDs []string
	// Logger receives per-file skip diagnostics. Nil means silent.
	Logger *zap.Logger
}

func (o DirOptions) manifest() string {
	if o.ManifestName == "" {
		return DefaultManifestName
	}
	return o.ManifestName
}

func (o DirOptions) metaIDs() []string {
	if o.MetaIDs == nil {
		return eval.MetaSchemaIDs()
	}
	return o.MetaIDs
}

// FromDirectory builds a Registry for schemas cached as files under dir.
// When a manifest exists under dir it is bulk-registered; otherwise all
// JSON files under dir are examined and those recognized as schemas are
// registered (optionally persisting a manifest afterward).
func FromDirectory(dir string, opt DirOptions) (*Registry, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s: not a directory", ErrBadLocation, dir)
	}

	r := NewRegistry()
	manifest := filepath.Join(dir, opt.manifest())
	if _, err := os.Stat(manifest); err == nil {
		locs, err := ReadLocationFile(manifest, dir)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterAll(locs); err != nil {
			return nil, err
		}
		return r, nil
	}

	dc, err := NewDirCache(dir, WithMetaIDs(opt.metaIDs()), WithLogger(opt.Logger))
	if err != nil {
		return nil, err
	}
	locs, err := dc.Locations(true, !opt.Flat)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterAll(locs); err != nil {
		return nil, err
	}
	if opt.EnsureManifest {
		if err := dc.SaveLocations(opt.manifest(), false, !opt.Flat); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FromFS builds a Registry for schemas bundled in an fs.FS, the packaged
// analogue of FromDirectory. A manifest inside the FS is honored; bindings
// use resource loaders over the same FS.
func FromFS(fsys fs.FS, opt DirOptions) (*Registry, error) {
	r := NewRegistry(WithFactory(Factory{Resources: fsys}))
	if data, err := fs.ReadFile(fsys, opt.manifest()); err == nil {
		locs, err := ParseMappingsJSON(strings.NewReader(string(data)))
		if err != nil {
			return nil, err
		}
		for id, loc := range locs {
			r.Register(id, ResourceLoader{FS: fsys, Path: loc})
		}
		return r, nil
	}

	dc := NewFSCache(fsys, WithMetaIDs(opt.metaIDs()), WithLogger(opt.Logger))
	locs, err := dc.Locations(false, !opt.Flat)
	if err != nil {
		return nil, err
	}
	for id, loc := range locs {
		r.Register(id, ResourceLoader{FS: fsys, Path: loc})
	}
	return r, nil
}

// FromLocationFile builds a Registry from a location-mapping file, resolving
// relative locations against base (or the file's own directory when base is
// empty).
func FromLocationFile(locfile, base string) (*Registry, error) {
	locs, err := ReadLocationFile(locfile, base)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.RegisterAll(locs); err != nil {
		return nil, err
	}
	return r, nil
}
