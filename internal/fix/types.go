// Package fix rewrites drifted anchors: it detects stale entries,
// generates replacement bodies, and injects them back into the
// documentation under per-file locks.
package fix

// EntryStatus is the outcome for one registry entry in a fix run.
type EntryStatus string

const (
	// StatusUnchanged means the entry was already in sync.
	StatusUnchanged EntryStatus = "unchanged"
	// StatusFixed means the anchor body was rewritten and the registry
	// updated.
	StatusFixed EntryStatus = "fixed"
	// StatusWouldFix means drift was found but the run was dry.
	StatusWouldFix EntryStatus = "would_fix"
	// StatusMissingSymbol means the code_ref no longer resolves; the
	// entry was reported and skipped.
	StatusMissingSymbol EntryStatus = "missing_symbol"
	// StatusFailed means the rewrite could not be completed.
	StatusFailed EntryStatus = "failed"
)

// Result records what happened to one entry.
type Result struct {
	EntryID      string      `json:"entryId"`
	CodeRef      string      `json:"codeRef"`
	DocFile      string      `json:"docFile"`
	Status       EntryStatus `json:"status"`
	Detail       string      `json:"detail,omitempty"`
	LinesChanged int         `json:"linesChanged,omitempty"`
	// Placeholder is set when generation failed and a deterministic
	// placeholder body was written instead.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Summary tallies a whole fix run. Results keep registry entry order.
type Summary struct {
	Results []Result `json:"results"`

	Unchanged int `json:"unchanged"`
	Fixed     int `json:"fixed"`
	WouldFix  int `json:"wouldFix"`
	Missing   int `json:"missing"`
	Failed    int `json:"failed"`
}

func (s *Summary) tally(r Result) {
	switch r.Status {
	case StatusUnchanged:
		s.Unchanged++
	case StatusFixed:
		s.Fixed++
	case StatusWouldFix:
		s.WouldFix++
	case StatusMissingSymbol:
		s.Missing++
	case StatusFailed:
		s.Failed++
	}
}
