package anchor

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"sintesi/internal/errors"
)

// DefaultSectionHeading is the section new anchors are appended under
// when no heading is configured.
const DefaultSectionHeading = "API Reference"

// InsertOptions controls anchor block creation.
type InsertOptions struct {
	// SectionHeading is the heading text the anchor block is placed
	// under. Defaults to DefaultSectionHeading.
	SectionHeading string
	// CreateSection appends the section heading when the document lacks
	// it. When false, a missing section is an error and the content is
	// left unchanged.
	CreateSection bool
	// ID overrides the generated anchor id.
	ID string
	// Title overrides the sub-heading text. Defaults to the symbol name.
	Title string
	// Body is the initial anchor body. Defaults to a pending-docs note.
	Body string
}

// InsertResult describes a completed insertion.
type InsertResult struct {
	Content        string
	ID             string
	StartLine      int // 1-indexed line of the start marker
	EndLine        int // 1-indexed line of the end marker
	SectionCreated bool
}

// Insert appends a new anchor block for ref immediately after the
// configured section heading. Used when no anchor exists yet for a code
// reference.
func Insert(content string, ref CodeRef, opts InsertOptions) (*InsertResult, error) {
	heading := opts.SectionHeading
	if heading == "" {
		heading = DefaultSectionHeading
	}

	lines := splitLines(content)
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}

	headingIdx := findHeading(lines, heading)
	sectionCreated := false
	if headingIdx < 0 {
		if !opts.CreateSection {
			return nil, errors.Newf(errors.InjectionError,
				"section heading %q not found in document", heading)
		}
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "## "+heading)
		headingIdx = len(lines) - 1
		sectionCreated = true
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	title := opts.Title
	if title == "" {
		title = ref.SymbolName
	}

	body := opts.Body
	if body == "" {
		body = "_Documentation pending._"
	}

	block := []string{"", "### " + title, "", StartMarker(id, ref)}
	block = append(block, BodyLines(body)...)
	block = append(block, EndMarker(id))

	rebuilt := make([]string, 0, len(lines)+len(block))
	rebuilt = append(rebuilt, lines[:headingIdx+1]...)
	rebuilt = append(rebuilt, block...)
	rebuilt = append(rebuilt, lines[headingIdx+1:]...)

	// The start marker sits after the blank line, sub-heading, and blank
	// line that open the block.
	startLine := headingIdx + 1 + 4
	endLine := headingIdx + 1 + len(block)

	out := strings.Join(rebuilt, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return &InsertResult{
		Content:        out,
		ID:             id,
		StartLine:      startLine,
		EndLine:        endLine,
		SectionCreated: sectionCreated,
	}, nil
}

// findHeading returns the index of the markdown heading line whose text
// equals heading, at any level, or -1.
func findHeading(lines []string, heading string) int {
	pattern := regexp.MustCompile(`^#{1,6}\s+` + regexp.QuoteMeta(heading) + `\s*$`)
	for i, line := range lines {
		if pattern.MatchString(line) {
			return i
		}
	}
	return -1
}
