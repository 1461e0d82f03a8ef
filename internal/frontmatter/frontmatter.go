// Package frontmatter splits and emits the `---` delimited YAML header that
// precedes rendered course pages and may precede authored Markdown sources.
package frontmatter

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strip removes a leading YAML frontmatter block from a Markdown document and
// returns the remaining body.
//
// A block is recognised only when the document starts with a `---` delimiter
// line. An opening delimiter without a matching closing delimiter leaves the
// document untouched: authored headers are merged best-effort, never a reason
// to fail a build. had reports whether a block was removed.
func Strip(content []byte) (body []byte, had bool) {
	_, body, had = Split(content)
	return body, had
}

// Split separates a leading frontmatter block from the body, returning the
// raw YAML between the delimiters. Recognition rules match Strip.
func Split(content []byte) (header []byte, body []byte, had bool) {
	nl := detectNewline(content)

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		// Empty block: "---\n---\n".
		return []byte{}, rest[len(open):], true
	}

	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		return nil, content, false
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], true
}

// ParseHeader parses raw header YAML (without delimiters) into a map.
func ParseHeader(header []byte) (map[string]any, error) {
	if len(header) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Compose prepends a serialized header to a body, separated by a blank line.
func Compose(header map[string]any, body string) (string, error) {
	h, err := Header(header)
	if err != nil {
		return "", err
	}
	if body == "" {
		return h, nil
	}
	return h + "\n" + strings.TrimLeft(body, "\n"), nil
}

func detectNewline(content []byte) string {
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			return "\n"
		}
	}
	return "\n"
}
