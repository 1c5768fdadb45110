// Package importer reads Q:/A:/C: markdown into card contents.
package importer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/studyhash/internal/study"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

// Entry is one parsed question block.
type Entry struct {
	Question string
	Answer   string
	Context  string
}

type field int

const (
	none field = iota
	question
	answer
	context
)

// ParseFile reads the markdown file at path and extracts its entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts entries from r. A Q: line starts a new entry, A: and C:
// lines start its answer and context, and unprefixed lines continue the
// current field. A "---" line ends the current entry. Entries without a
// question are dropped.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var cur Entry
	var block []string
	at := none

	flush := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch at {
		case question:
			cur.Question = content
		case answer:
			cur.Answer = content
		case context:
			cur.Context = content
		}
		block = nil
	}
	finish := func() {
		flush()
		if cur.Question != "" {
			entries = append(entries, cur)
		}
		cur = Entry{}
		at = none
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == separator {
			finish()
			continue
		}

		next, rest, ok := prefixed(line)
		if !ok {
			if at != none {
				block = append(block, line)
			}
			continue
		}
		if next == question && at != none {
			finish()
		}
		flush()
		at = next
		block = append(block, rest)
	}
	finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// prefixed splits a field marker and its optional single space from line.
func prefixed(line string) (field, string, bool) {
	for _, p := range []struct {
		prefix string
		f      field
	}{
		{questionPrefix, question},
		{answerPrefix, answer},
		{contextPrefix, context},
	} {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.f, strings.TrimPrefix(rest, " "), true
		}
	}
	return none, "", false
}

// Dedupe drops entries whose Hash was already seen, keeping the first.
// It returns the kept entries and the number dropped.
func Dedupe(entries []Entry) ([]Entry, int) {
	seen := make(map[string]bool, len(entries))
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		h := Hash(e)
		if seen[h] {
			continue
		}
		seen[h] = true
		kept = append(kept, e)
	}
	return kept, len(entries) - len(kept)
}

// Contents converts entries to card contents. The context, when present,
// is appended to the back after a blank line.
func Contents(entries []Entry) []study.CardContent {
	out := make([]study.CardContent, 0, len(entries))
	for _, e := range entries {
		back := e.Answer
		if e.Context != "" {
			back += "\n\n" + e.Context
		}
		out = append(out, study.CardContent{Front: e.Question, Back: back})
	}
	return out
}

// Read parses r, drops duplicate entries and returns the card contents
// together with the number of duplicates dropped.
func Read(r io.Reader) ([]study.CardContent, int, error) {
	entries, err := Parse(r)
	if err != nil {
		return nil, 0, err
	}
	kept, dropped := Dedupe(entries)
	return Contents(kept), dropped, nil
}

// ReadFile is Read for the markdown file at path.
func ReadFile(path string) ([]study.CardContent, int, error) {
	entries, err := ParseFile(path)
	if err != nil {
		return nil, 0, err
	}
	kept, dropped := Dedupe(entries)
	return Contents(kept), dropped, nil
}
