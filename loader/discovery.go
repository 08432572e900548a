package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ejschema/ejschema/eval"
	"github.com/ejschema/ejschema/internal/jsondoc"
)

// notSchemaError marks a JSON file that does not qualify as a schema.
// Discovery treats these as skip diagnostics, not failures.
type notSchemaError struct {
	path string
	why  string
}

func (e *notSchemaError) Error() string {
	out := ""
	if e.path != "" {
		out = e.path + ": "
	}
	out += "not a JSON Schema document"
	if e.why != "" {
		out += ": " + e.why
	}
	return out
}

// DirCache scans a directory (or fs.FS) of JSON files and exposes the
// identifier->location mapping of those recognized as schemas. A file
// qualifies only when its top-level value is an object whose $schema names
// a recognized meta-schema. The identifier comes from $id, then the legacy
// id, then a synthesized file URI.
type DirCache struct {
	dir     string // empty for FS-backed caches
	fsys    fs.FS
	metaIDs map[string]struct{}
	log     *zap.Logger
}

// CacheOption configures a DirCache.
type CacheOption func(*DirCache)

// WithMetaIDs sets the recognized meta-schema identifier set.
func WithMetaIDs(ids []string) CacheOption {
	return func(c *DirCache) {
		c.metaIDs = map[string]struct{}{}
		for _, id := range ids {
			c.metaIDs[Canonical(id)] = struct{}{}
		}
	}
}

// WithLogger routes skip diagnostics to the given logger.
func WithLogger(log *zap.Logger) CacheOption {
	return func(c *DirCache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewDirCache returns a cache over a directory on local disk.
func NewDirCache(dir string, opts ...CacheOption) (*DirCache, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s: not a directory", ErrBadLocation, dir)
	}
	c := &DirCache{dir: dir, fsys: os.DirFS(dir), log: zap.NewNop()}
	c.applyDefaults(opts)
	return c, nil
}

// NewFSCache returns a cache over bundled resources.
func NewFSCache(fsys fs.FS, opts ...CacheOption) *DirCache {
	c := &DirCache{fsys: fsys, log: zap.NewNop()}
	c.applyDefaults(opts)
	return c
}

func (c *DirCache) applyDefaults(opts []CacheOption) {
	for _, o := range opts {
		o(c)
	}
	if c.metaIDs == nil {
		WithMetaIDs(eval.MetaSchemaIDs())(c)
	}
}

// readID decodes a schema file and returns its declared identifier. The
// empty identifier means the file had no $id/id property.
func (c *DirCache) readID(name string) (string, any, error) {
	f, err := c.fsys.Open(name)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	defer f.Close()

	body, err := jsondoc.Decode(f)
	if err != nil {
		return "", nil, &notSchemaError{path: name, why: "JSON content error: " + err.Error()}
	}
	obj, ok := body.(*jsondoc.Object)
	if !ok {
		return "", nil, &notSchemaError{path: name, why: "does not contain a JSON object"}
	}
	metaRaw, ok := obj.Get("$schema")
	if !ok {
		return "", nil, &notSchemaError{path: name, why: "JSON object does not contain a $schema property"}
	}
	meta, _ := metaRaw.(string)
	if _, ok := c.metaIDs[Canonical(meta)]; !ok {
		return "", nil, &notSchemaError{path: name, why: "unrecognized JSON-Schema $schema: " + meta}
	}

	idRaw, ok := obj.Get("$id")
	if !ok {
		idRaw, _ = obj.Get("id")
	}
	id, _ := idRaw.(string)
	return id, body, nil
}

// OpenFile reads one file and returns the schema's identifier and body,
// synthesizing a file URI when the schema declares no identifier.
func (c *DirCache) OpenFile(name string) (string, any, error) {
	id, body, err := c.readID(name)
	if err != nil {
		return "", nil, err
	}
	if id == "" {
		id = c.fileURI(name)
	}
	return id, body, nil
}

func (c *DirCache) fileURI(name string) string {
	if c.dir != "" {
		abs, err := filepath.Abs(filepath.Join(c.dir, filepath.FromSlash(name)))
		if err == nil {
			return "file://" + filepath.ToSlash(abs)
		}
	}
	return "file:///" + name
}

func (c *DirCache) walk(recursive bool, visit func(name, id string, body any)) error {
	return fs.WalkDir(c.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && name != "." {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".json") {
			return nil
		}
		id, body, ferr := c.OpenFile(name)
		if ferr != nil {
			var nse *notSchemaError
			if errors.As(ferr, &nse) {
				c.log.Warn("skipping non-schema file", zap.String("file", name), zap.String("reason", nse.why))
				return nil
			}
			c.log.Warn("unable to read file", zap.String("file", name), zap.Error(ferr))
			return nil
		}
		c.log.Info("discovered schema", zap.String("file", name), zap.String("id", id))
		visit(name, id, body)
		return nil
	})
}

// Locations returns the identifier->path mapping for every discovered
// schema. Paths are relative to the cache root unless absolute is
// requested (only meaningful for disk-backed caches). Trailing '#' on
// discovered identifiers is stripped.
func (c *DirCache) Locations(absolute, recursive bool) (map[string]string, error) {
	out := map[string]string{}
	err := c.walk(recursive, func(name, id string, _ any) {
		loc := name
		if absolute && c.dir != "" {
			if abs, err := filepath.Abs(filepath.Join(c.dir, filepath.FromSlash(name))); err == nil {
				loc = abs
			}
		}
		out[Canonical(id)] = loc
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Schemas returns the identifier->body mapping of every discovered schema.
func (c *DirCache) Schemas(recursive bool) (map[string]any, error) {
	out := map[string]any{}
	err := c.walk(recursive, func(_, id string, body any) {
		out[Canonical(id)] = body
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveLocations writes the discovered mapping to a manifest file in the
// structured form, with stable key order and indentation for human review.
// A relative outfile is interpreted against the cache directory.
func (c *DirCache) SaveLocations(outfile string, absolute, recursive bool) error {
	if c.dir == "" {
		return fmt.Errorf("%w: cannot write a manifest into bundled resources", ErrBadLocation)
	}
	if outfile == "" {
		outfile = DefaultManifestName
	}
	if !filepath.IsAbs(outfile) {
		outfile = filepath.Join(c.dir, outfile)
	}
	locs, err := c.Locations(absolute, recursive)
	if err != nil {
		return err
	}
	data, err := j.MarshalIndent(locs, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(outfile, append(data, '\n'), 0o644)
}
