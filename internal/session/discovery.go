package session

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// rolloutRe matches a standard UUID (8-4-4-4-12 hex) at the end
// of a Codex rollout filename stem.
var rolloutRe = regexp.MustCompile(
	`^rollout-.*-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-` +
		`[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`,
)

// isDirOrSymlink reports whether the entry is a directory or a
// symlink that resolves to a directory.
func isDirOrSymlink(entry os.DirEntry, parentDir string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(parentDir, entry.Name()))
	return err == nil && fi.IsDir()
}

// DiscoverClaude finds all JSONL session files under the Claude
// projects directory, sorted by path.
func DiscoverClaude(claudeHome string) []string {
	projectsDir := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if !isDirOrSymlink(entry, projectsDir) {
			continue
		}
		projDir := filepath.Join(projectsDir, entry.Name())
		sessionFiles, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}
		for _, sf := range sessionFiles {
			if sf.IsDir() {
				continue
			}
			if !strings.HasSuffix(sf.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(projDir, sf.Name()))
		}
	}

	sort.Strings(files)
	return files
}

// DiscoverCodex finds all JSONL files under the Codex sessions
// directory (year/month/day structure), sorted by path.
func DiscoverCodex(codexHome string) []string {
	var files []string
	walkCodexDayDirs(
		filepath.Join(codexHome, "sessions"),
		func(dayPath string) bool {
			entries, err := os.ReadDir(dayPath)
			if err != nil {
				return true
			}
			for _, sf := range entries {
				if sf.IsDir() {
					continue
				}
				if !strings.HasSuffix(sf.Name(), ".jsonl") {
					continue
				}
				files = append(
					files, filepath.Join(dayPath, sf.Name()),
				)
			}
			return true
		},
	)

	sort.Strings(files)
	return files
}

// FindClaudeSource locates a Claude session file by ID across
// all project directories. Returns "" when absent.
func FindClaudeSource(claudeHome, sessionID string) string {
	if !IsValidSessionID(sessionID) {
		return ""
	}
	projectsDir := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return ""
	}

	target := sessionID + ".jsonl"
	for _, entry := range entries {
		if !isDirOrSymlink(entry, projectsDir) {
			continue
		}
		candidate := filepath.Join(
			projectsDir, entry.Name(), target,
		)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindCodexSource locates a Codex session file by the UUID
// embedded in its rollout filename. Returns "" when absent.
func FindCodexSource(codexHome, sessionID string) string {
	if !IsValidSessionID(sessionID) {
		return ""
	}

	var result string
	walkCodexDayDirs(
		filepath.Join(codexHome, "sessions"),
		func(dayPath string) bool {
			entries, err := os.ReadDir(dayPath)
			if err != nil {
				return true
			}
			for _, f := range entries {
				if f.IsDir() {
					continue
				}
				name := f.Name()
				if !strings.HasPrefix(name, "rollout-") ||
					!strings.HasSuffix(name, ".jsonl") {
					continue
				}
				if RolloutUUID(name) == sessionID {
					result = filepath.Join(dayPath, name)
					return false
				}
			}
			return true
		},
	)
	return result
}

// walkCodexDayDirs traverses a Codex sessions directory with
// year/month/day structure, calling fn for each day directory.
// fn returns false to stop traversal.
func walkCodexDayDirs(root string, fn func(dayPath string) bool) {
	years, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, year := range years {
		if !year.IsDir() || !isDigits(year.Name()) {
			continue
		}
		yearPath := filepath.Join(root, year.Name())
		months, err := os.ReadDir(yearPath)
		if err != nil {
			continue
		}
		for _, month := range months {
			if !month.IsDir() || !isDigits(month.Name()) {
				continue
			}
			monthPath := filepath.Join(yearPath, month.Name())
			days, err := os.ReadDir(monthPath)
			if err != nil {
				continue
			}
			for _, day := range days {
				if !day.IsDir() || !isDigits(day.Name()) {
					continue
				}
				if !fn(filepath.Join(monthPath, day.Name())) {
					return
				}
			}
		}
	}
}

// RolloutUUID extracts the UUID from a Codex filename like
// rollout-{timestamp}-{uuid}.jsonl. Returns "" on mismatch.
func RolloutUUID(filename string) string {
	stem := strings.TrimSuffix(filename, ".jsonl")
	match := rolloutRe.FindStringSubmatch(stem)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// IDFromPath derives the session identifier from a session file
// path: the filename stem, or for Codex rollout files the UUID
// embedded in the stem.
func IDFromPath(path string) string {
	name := filepath.Base(path)
	if id := RolloutUUID(name); id != "" {
		return id
	}
	return strings.TrimSuffix(name, ".jsonl")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidSessionID reports whether id contains only
// alphanumeric characters, dashes, and underscores.
func IsValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		ok := (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}
