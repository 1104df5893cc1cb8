package anchor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"sintesi/internal/errors"
)

// Marker grammar. The attribute order is fixed; values are double-quoted.
var (
	startPattern = regexp.MustCompile(`^\s*<!--\s*doctype:start\s+id\s*=\s*"([^"]*)"\s+code_ref\s*=\s*"([^"]*)"\s*-->\s*$`)
	endPattern   = regexp.MustCompile(`^\s*<!--\s*doctype:end\s+id\s*=\s*"([^"]*)"\s*-->\s*$`)
)

// IsStartMarker reports whether the line is a doctype:start marker.
func IsStartMarker(line string) bool {
	return startPattern.MatchString(line)
}

// IsEndMarker reports whether the line is a doctype:end marker.
func IsEndMarker(line string) bool {
	return endPattern.MatchString(line)
}

// StartMarker renders a start marker line for the given anchor.
func StartMarker(id string, ref CodeRef) string {
	return fmt.Sprintf(`<!-- doctype:start id="%s" code_ref="%s" -->`, id, ref.String())
}

// EndMarker renders an end marker line for the given anchor id.
func EndMarker(id string) string {
	return fmt.Sprintf(`<!-- doctype:end id="%s" -->`, id)
}

// openAnchor tracks a start marker awaiting its end marker.
type openAnchor struct {
	startLine int // 1-indexed
	rawRef    string
}

// Parse extracts all anchors from document content in a single forward
// scan. The first structural violation aborts with a ParseError; use
// Validate to collect every violation instead.
func Parse(content string) ([]Anchor, error) {
	anchors, violations := scan(content)
	if len(violations) > 0 {
		return nil, errors.New(errors.ParseError, violations[0], nil)
	}
	return anchors, nil
}

// Validate runs the same scan as Parse but collects every violation:
// duplicate start ids, orphaned end markers, unclosed anchors, and
// malformed code_ref values. An empty slice means the document is clean.
func Validate(content string) []string {
	_, violations := scan(content)
	return violations
}

// HasAnchor reports whether content carries a start marker with the
// given id. It inspects raw marker lines only, so it answers even for
// documents that would fail Parse.
func HasAnchor(content, id string) bool {
	for _, line := range splitLines(content) {
		if m := startPattern.FindStringSubmatch(line); m != nil && m[1] == id {
			return true
		}
	}
	return false
}

// Find returns the anchor with the given id, or nil. Content with
// structural violations yields the Parse error.
func Find(content, id string) (*Anchor, error) {
	anchors, err := Parse(content)
	if err != nil {
		return nil, err
	}
	for i := range anchors {
		if anchors[i].ID == id {
			return &anchors[i], nil
		}
	}
	return nil, nil
}

func scan(content string) ([]Anchor, []string) {
	lines := splitLines(content)

	var (
		anchors    []Anchor
		violations []string
		open       = make(map[string]openAnchor)
		seen       = make(map[string]bool)
	)

	for i, line := range lines {
		lineNum := i + 1

		if m := startPattern.FindStringSubmatch(line); m != nil {
			id, rawRef := m[1], m[2]

			if seen[id] {
				violations = append(violations,
					fmt.Sprintf("duplicate anchor id=%q at line %d", id, lineNum))
			}
			seen[id] = true

			if _, ok := open[id]; ok {
				violations = append(violations,
					fmt.Sprintf("nested anchor with same id=%q at line %d", id, lineNum))
			}

			if _, err := ParseCodeRef(rawRef); err != nil {
				violations = append(violations,
					fmt.Sprintf("invalid code_ref %q at line %d: expected \"file_path#symbol_name\"", rawRef, lineNum))
			}

			open[id] = openAnchor{startLine: lineNum, rawRef: rawRef}
			continue
		}

		if m := endPattern.FindStringSubmatch(line); m != nil {
			id := m[1]

			started, ok := open[id]
			if !ok {
				violations = append(violations,
					fmt.Sprintf("doctype:end without matching doctype:start for id=%q at line %d", id, lineNum))
				continue
			}
			delete(open, id)

			ref, err := ParseCodeRef(started.rawRef)
			if err != nil {
				// Already reported at the start marker; skip the anchor.
				continue
			}

			anchors = append(anchors, Anchor{
				ID:        id,
				CodeRef:   ref,
				StartLine: started.startLine,
				EndLine:   lineNum,
				Content:   strings.Join(lines[started.startLine:lineNum-1], "\n"),
			})
		}
	}

	// Report unclosed anchors in document order; map iteration is random.
	var unclosed []string
	for id := range open {
		unclosed = append(unclosed, id)
	}
	sort.Slice(unclosed, func(i, j int) bool {
		return open[unclosed[i]].startLine < open[unclosed[j]].startLine
	})
	for _, id := range unclosed {
		violations = append(violations,
			fmt.Sprintf("unclosed anchor id=%q started at line %d", id, open[id].startLine))
	}

	sort.Slice(anchors, func(i, j int) bool { return anchors[i].StartLine < anchors[j].StartLine })

	return anchors, violations
}

// splitLines splits document content into lines, normalizing CRLF so hash
// and content comparisons behave the same across platforms.
func splitLines(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}
