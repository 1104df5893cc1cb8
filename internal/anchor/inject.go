package anchor

import (
	"strings"

	"sintesi/internal/errors"
)

// InjectResult describes a completed injection.
type InjectResult struct {
	Content string
	// LinesChanged is |newLineCount - oldLineCount|, an observability
	// metric only; zero does not mean the body was unchanged.
	LinesChanged int
}

// Inject replaces exactly the lines between the start and end markers of
// the anchor with newBody's lines. Marker lines are left byte-identical
// and content outside the anchor is never touched. When the anchor is
// absent or malformed the input content is returned unchanged inside the
// error path: the caller keeps its original string.
func Inject(content, anchorID, newBody string) (*InjectResult, error) {
	lines := splitLines(content)

	startIdx := -1
	for i, line := range lines {
		if m := startPattern.FindStringSubmatch(line); m != nil && m[1] == anchorID {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, errors.Newf(errors.InjectionError,
			"start marker not found for anchor %q", anchorID)
	}

	endIdx := -1
	for i := startIdx + 1; i < len(lines); i++ {
		if m := endPattern.FindStringSubmatch(lines[i]); m != nil && m[1] == anchorID {
			endIdx = i
			break
		}
	}
	if endIdx < 0 {
		return nil, errors.Newf(errors.InjectionError,
			"end marker not found for anchor %q", anchorID)
	}

	bodyLines := BodyLines(newBody)
	oldCount := endIdx - startIdx - 1

	rebuilt := make([]string, 0, len(lines)-oldCount+len(bodyLines))
	rebuilt = append(rebuilt, lines[:startIdx+1]...)
	rebuilt = append(rebuilt, bodyLines...)
	rebuilt = append(rebuilt, lines[endIdx:]...)

	return &InjectResult{
		Content:      strings.Join(rebuilt, "\n"),
		LinesChanged: abs(len(bodyLines) - oldCount),
	}, nil
}

// BodyLines splits an anchor body into lines, normalizing a single
// trailing newline away so injecting "x\n" and "x" produce identical
// documents.
func BodyLines(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimSuffix(body, "\n")
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
