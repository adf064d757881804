package session

import (
	"os"
	"strings"
	"time"
)

// Filter narrows a discovery pass. Zero values mean "no
// constraint". Helper sessions are always excluded.
type Filter struct {
	Agents []Agent // empty = all registered agents

	// CWD restricts matches to sessions recorded under this
	// working directory.
	CWD string
	// Branch restricts matches to sessions recorded on this git
	// branch.
	Branch string

	// Keywords must all appear (case-insensitive) in the raw
	// file content.
	Keywords []string

	Since    time.Time
	Until    time.Time
	MinLines int

	OriginalOnly  bool
	SkipTrimmed   bool
	SkipContinued bool
	SkipSidechain bool

	// IncludeInvalid admits files with no substantive exchange.
	IncludeInvalid bool
}

func (f Filter) wantsAgent(a Agent) bool {
	if len(f.Agents) == 0 {
		return true
	}
	for _, want := range f.Agents {
		if want == a {
			return true
		}
	}
	return false
}

// matches applies every constraint except the keyword scan,
// which requires re-reading the file and runs last.
func (f Filter) matches(s Session) bool {
	if s.Helper {
		return false
	}
	if !f.wantsAgent(s.Agent) {
		return false
	}
	if !s.Valid && !f.IncludeInvalid {
		return false
	}
	if f.CWD != "" && s.CWD != f.CWD {
		return false
	}
	if f.Branch != "" && s.GitBranch != f.Branch {
		return false
	}
	if !f.Since.IsZero() && s.ModifiedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && s.ModifiedAt.After(f.Until) {
		return false
	}
	if f.MinLines > 0 && s.LineCount < f.MinLines {
		return false
	}
	if f.OriginalOnly && s.Derivation != DerivationOriginal {
		return false
	}
	if f.SkipTrimmed && s.Derivation == DerivationTrimmed {
		return false
	}
	if f.SkipContinued && s.Derivation == DerivationContinued {
		return false
	}
	if f.SkipSidechain && s.IsSidechain {
		return false
	}
	return true
}

// matchesKeywords reports whether every keyword appears in the
// raw file content, case-folded.
func (f Filter) matchesKeywords(path string) bool {
	if len(f.Keywords) == 0 {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	content := strings.ToLower(string(data))
	for _, kw := range f.Keywords {
		if !strings.Contains(content, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
