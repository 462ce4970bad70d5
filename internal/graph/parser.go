package graph

import (
	"bytes"
	"fmt"
	"regexp"
)

// includePattern matches one include directive: the #include token, required
// whitespace, then a quoted or angle-bracketed target. Targets cannot
// contain '"' or '>'. Group 1 captures a quoted target, group 2 an angled
// one; a directive with mismatched delimiters matches neither and is
// skipped.
var includePattern = regexp.MustCompile(`#include\s+(?:"([^">]*)"|<([^">]*)>)`)

// binarySniffLen bounds how far ParseIncludes looks for NUL bytes when
// deciding whether content is text. Same prefix length git uses.
const binarySniffLen = 8000

// ParseError reports content the include scanner cannot treat as text.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("graph: parse: %s", e.Reason)
	}
	return fmt.Sprintf("graph: parse %s: %s", e.Path, e.Reason)
}

// ParseIncludes scans src for #include directives in a single forward pass
// and returns them in source order, duplicates retained. The scan is purely
// lexical: no preprocessing, no comment or string-literal awareness, so a
// directive inside a comment is reported like any other. Malformed
// directives are skipped and scanning continues. The only error is non-text
// input.
func ParseIncludes(src []byte) ([]IncludeDirective, error) {
	sniff := src
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if i := bytes.IndexByte(sniff, 0); i >= 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("binary content (NUL byte at offset %d)", i)}
	}

	matches := includePattern.FindAllSubmatchIndex(src, -1)
	directives := make([]IncludeDirective, 0, len(matches))
	for _, m := range matches {
		var target string
		system := false
		if m[2] >= 0 {
			target = string(src[m[2]:m[3]])
		} else {
			target = string(src[m[4]:m[5]])
			system = true
		}
		if target == "" {
			continue // #include "" or <> names no file
		}
		directives = append(directives, IncludeDirective{
			Target:   target,
			IsSystem: system,
			Raw:      string(src[m[0]:m[1]]),
		})
	}
	return directives, nil
}
