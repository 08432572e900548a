package loader

import (
	"embed"
	"io/fs"
)

//go:embed resources/schemas/*.json
var bundled embed.FS

// BundledSchemas returns the schema documents shipped with this module,
// most notably the schemas describing the extension-schema convention
// itself.
func BundledSchemas() fs.FS {
	sub, err := fs.Sub(bundled, "resources/schemas")
	if err != nil {
		// embed paths are fixed at build time
		panic(err)
	}
	return sub
}

// ForBundledSchemas builds a Registry over the bundled schema documents.
// Callers wanting a shared instance should hold one themselves; there is no
// hidden singleton.
func ForBundledSchemas() (*Registry, error) {
	return FromFS(BundledSchemas(), DirOptions{})
}
