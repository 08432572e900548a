package jsondoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound reports a pointer segment that does not exist in the document.
var ErrNotFound = errors.New("jsondoc: pointer not found")

// ErrTypeMismatch reports a pointer segment applied to a node of the wrong
// kind (an index into a non-array, a key into a non-object).
var ErrTypeMismatch = errors.New("jsondoc: pointer type mismatch")

// EscapeToken applies RFC 6901 escaping to a single reference token.
func EscapeToken(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Extract resolves an RFC 6901 pointer against a document. Both "" and "/"
// address the root.
func Extract(doc any, ptr string) (any, error) {
	if ptr == "" || ptr == "/" {
		return doc, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("%w: %q is not a pointer", ErrTypeMismatch, ptr)
	}
	cur := doc
	for _, raw := range strings.Split(ptr[1:], "/") {
		tok := UnescapeToken(raw)
		switch node := cur.(type) {
		case *Object:
			v, ok := node.Get(tok)
			if !ok {
				return nil, fmt.Errorf("%w: %q at %q", ErrNotFound, tok, ptr)
			}
			cur = v
		case map[string]any:
			v, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("%w: %q at %q", ErrNotFound, tok, ptr)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an array index", ErrTypeMismatch, tok)
			}
			if i < 0 || i >= len(node) {
				return nil, fmt.Errorf("%w: index %d at %q", ErrNotFound, i, ptr)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%w: %q addresses a scalar", ErrTypeMismatch, tok)
		}
	}
	return cur, nil
}

// JoinPointer appends a reference token to a pointer.
func JoinPointer(base, token string) string {
	return base + "/" + EscapeToken(token)
}
