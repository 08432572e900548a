package loader

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// MappingParser reads identifier->location pairs from one textual form of
// the location-mapping file.
type MappingParser func(r io.Reader) (map[string]string, error)

// ParseMappingsJSON reads the structured form: a single JSON object whose
// keys are schema identifiers and whose values are location strings.
func ParseMappingsJSON(r io.Reader) (map[string]string, error) {
	dec := j.NewDecoder(r)
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]string, len(raw))
	for id, v := range raw {
		loc, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: location for %q is not a string", ErrMalformed, id)
		}
		out[id] = loc
	}
	return out, nil
}

// ParseMappingsText reads the line-oriented form: one mapping per line, two
// whitespace-separated tokens. Blank lines and lines starting with '#' are
// skipped.
func ParseMappingsText(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected identifier and location", ErrMalformed, line)
		}
		out[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// ParseMappingsYAML reads the structured form from a YAML mapping.
func ParseMappingsYAML(r io.Reader) (map[string]string, error) {
	var out map[string]string
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func defaultParsers() map[string]MappingParser {
	return map[string]MappingParser{
		"json": ParseMappingsJSON,
		"txt":  ParseMappingsText,
		"yaml": ParseMappingsYAML,
		"yml":  ParseMappingsYAML,
	}
}

// LocationReader reads identifier->location mappings from files, selecting
// the parser by filename extension (default: line-oriented text) and
// resolving relative locations against a base.
type LocationReader struct {
	// BaseURL is the base that relative locations are resolved against. When
	// empty, the directory containing the location file is used.
	BaseURL string
	// Parsers maps filename extensions (no dot) to parser functions. Nil
	// selects the built-in json/txt/yaml set.
	Parsers map[string]MappingParser
}

// RegisterParser binds a parser to a filename extension on this reader.
func (lr *LocationReader) RegisterParser(ext string, p MappingParser) {
	if lr.Parsers == nil {
		lr.Parsers = defaultParsers()
	}
	lr.Parsers[ext] = p
}

// Read parses the location file and returns its mappings with relative
// locations made absolute.
func (lr LocationReader) Read(locfile string) (map[string]string, error) {
	base := lr.BaseURL
	if base == "" {
		abs, err := filepath.Abs(filepath.Dir(locfile))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadLocation, locfile, err)
		}
		base = abs
	}

	parsers := lr.Parsers
	if parsers == nil {
		parsers = defaultParsers()
	}
	ext := strings.TrimPrefix(filepath.Ext(locfile), ".")
	if ext == "" {
		ext = "txt"
	}
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for location file type %q", ErrBadLocation, ext)
	}

	f, err := os.Open(locfile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, locfile, err)
	}
	defer f.Close()
	out, err := parse(f)
	if err != nil {
		return nil, err
	}

	for id, loc := range out {
		out[id] = resolveLocation(loc, base)
	}
	return out, nil
}

// resolveLocation joins a relative location with its base: OS separators
// when the base is a plain path (or a hostless file URL), '/' otherwise.
// Non-URL results become canonical absolute paths.
func resolveLocation(loc, base string) string {
	lu, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	localLoc := lu.Scheme == "" || (lu.Scheme == "file" && lu.Host == "")
	if !localLoc {
		return loc
	}

	p := loc
	if lu.Scheme == "file" {
		p = lu.Path
	}

	sep := string(os.PathSeparator)
	bu, _ := url.Parse(base)
	baseIsURL := bu != nil && bu.Scheme != "" && !(bu.Scheme == "file" && bu.Host == "")
	if baseIsURL {
		sep = "/"
	}

	if !strings.HasPrefix(p, sep) && base != "" {
		p = strings.TrimRight(base, sep) + sep + p
	}
	if baseIsURL {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ReadLocationFile parses a location-mapping file, resolving relative
// locations against base, or against the file's own directory when base is
// empty.
func ReadLocationFile(locfile, base string) (map[string]string, error) {
	return LocationReader{BaseURL: base}.Read(locfile)
}
