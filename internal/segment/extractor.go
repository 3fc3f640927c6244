// Package segment walks extracted PCI DSS text and cuts it into requirement
// records. One Extractor serves every language; the injected grammar
// carries all language-specific rules.
package segment

import (
	"strconv"
	"strings"

	"github.com/a3tai/pci-dss-extractor/internal/grammar"
)

// DefaultMinTestLength drops test fragments that are too short to be a procedure
const DefaultMinTestLength = 10

// Requirement is one numbered compliance obligation
type Requirement struct {
	ReqNum        string   `json:"req_num"`
	Text          string   `json:"text"`
	Tests         []string `json:"tests"`
	Guidance      string   `json:"guidance"`
	Applicability string   `json:"applicability,omitempty"`
}

// HasTests reports whether at least one test procedure was found
func (r Requirement) HasTests() bool { return len(r.Tests) > 0 }

// HasGuidance reports whether guidance text was found
func (r Requirement) HasGuidance() bool { return r.Guidance != "" }

// Extractor turns raw text into requirements following one grammar.
// It keeps no state between calls and is safe for concurrent use.
type Extractor struct {
	grammar       *grammar.Grammar
	minTestLength int
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMinTestLength sets the minimum rune count of a kept test procedure
func WithMinTestLength(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minTestLength = n
		}
	}
}

// New creates an extractor driven by g
func New(g *grammar.Grammar, opts ...Option) *Extractor {
	e := &Extractor{grammar: g, minTestLength: DefaultMinTestLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Grammar returns the grammar driving the extractor
func (e *Extractor) Grammar() *grammar.Grammar {
	return e.grammar
}

type mode int

const (
	modeText mode = iota
	modeTest
	modeGuidance
	modeApplicability
)

type accumulator struct {
	req  Requirement
	mode mode
}

// Extract returns the requirements of text in document order. Text before
// the first requirement is dropped. Malformed input never fails; it only
// yields fewer (or no) records.
func (e *Extractor) Extract(text string) []Requirement {
	out := []Requirement{}
	if e.grammar == nil {
		return out
	}

	text = e.stripArtifacts(Normalize(text))

	var cur *accumulator
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, seg := range e.splitInline(line) {
			cur = e.consume(seg, cur, &out)
		}
	}
	if cur != nil {
		out = e.emit(cur, out)
	}

	return out
}

func (e *Extractor) consume(seg string, cur *accumulator, out *[]Requirement) *accumulator {
	kind, payload, reqNum := e.classify(seg)

	if kind == grammar.MarkerRequirement {
		if cur != nil {
			*out = e.emit(cur, *out)
		}
		return &accumulator{
			req:  Requirement{ReqNum: reqNum, Text: payload, Tests: []string{}},
			mode: modeText,
		}
	}

	// front matter, table of contents and page furniture
	if cur == nil || kind == grammar.MarkerIgnore {
		return cur
	}

	switch kind {
	case grammar.MarkerTestItem:
		cur.mode = modeTest
		cur.req.Tests = append(cur.req.Tests, payload)
	case grammar.MarkerTestHeading:
		cur.mode = modeTest
		if payload != "" {
			cur.req.Tests = append(cur.req.Tests, payload)
		}
	case grammar.MarkerGuidance:
		cur.mode = modeGuidance
		cur.req.Guidance = JoinLine(cur.req.Guidance, payload)
	case grammar.MarkerApplicability:
		cur.mode = modeApplicability
		cur.req.Applicability = JoinLine(cur.req.Applicability, payload)
	default:
		cur.appendContent(seg)
	}
	return cur
}

func (a *accumulator) appendContent(seg string) {
	switch a.mode {
	case modeTest:
		if n := len(a.req.Tests); n > 0 {
			a.req.Tests[n-1] = JoinLine(a.req.Tests[n-1], seg)
			return
		}
		a.req.Tests = append(a.req.Tests, seg)
	case modeGuidance:
		a.req.Guidance = JoinLine(a.req.Guidance, seg)
	case modeApplicability:
		a.req.Applicability = JoinLine(a.req.Applicability, seg)
	default:
		a.req.Text = JoinLine(a.req.Text, seg)
	}
}

// classify returns the kind of the first marker matching seg along with its
// payload and, for requirement starts, the identifier. Unmatched segments
// are plain content.
func (e *Extractor) classify(seg string) (grammar.MarkerKind, string, string) {
	for _, m := range e.grammar.Markers {
		groups := m.Pattern.FindStringSubmatch(seg)
		if groups == nil {
			continue
		}
		switch m.Kind {
		case grammar.MarkerRequirement:
			if len(groups) < 3 || !e.inChapterRange(groups[1]) {
				continue
			}
			return m.Kind, strings.TrimSpace(groups[2]), groups[1]
		case grammar.MarkerIgnore:
			return m.Kind, "", ""
		default:
			payload := ""
			if len(groups) > 1 {
				payload = strings.TrimSpace(groups[1])
			}
			return m.Kind, payload, ""
		}
	}
	return contentKind, seg, ""
}

// contentKind marks a segment that matched no marker
const contentKind grammar.MarkerKind = -1

func (e *Extractor) inChapterRange(reqNum string) bool {
	head, _, _ := strings.Cut(reqNum, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return false
	}
	return n >= e.grammar.MinChapter && n <= e.grammar.MaxChapter
}

// splitInline cuts a line wherever a marker starts mid-line, so that
// "1.1 Text Testing Procedures: 1.1.a Examine ..." yields one segment per marker
func (e *Extractor) splitInline(line string) []string {
	if e.grammar.InlineBreak == nil {
		return []string{line}
	}
	locs := e.grammar.InlineBreak.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return []string{line}
	}

	segs := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		if loc[0] == 0 {
			continue
		}
		if s := strings.TrimSpace(line[prev:loc[0]]); s != "" {
			segs = append(segs, s)
		}
		prev = loc[0]
	}
	if s := strings.TrimSpace(line[prev:]); s != "" {
		segs = append(segs, s)
	}
	return segs
}

func (e *Extractor) stripArtifacts(text string) string {
	for _, re := range e.grammar.Artifacts {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

func (e *Extractor) cleanField(s string) string {
	for _, re := range e.grammar.Residue {
		s = re.ReplaceAllString(s, " ")
	}
	return CollapseSpaces(s)
}

func (e *Extractor) emit(a *accumulator, out []Requirement) []Requirement {
	req := a.req
	if req.ReqNum == "" {
		return out
	}

	req.Text = e.cleanField(req.Text)
	req.Guidance = e.cleanField(req.Guidance)
	req.Applicability = e.cleanField(req.Applicability)

	tests := make([]string, 0, len(req.Tests))
	seen := make(map[string]bool, len(req.Tests))
	for _, t := range req.Tests {
		t = e.cleanField(t)
		if t == "" || len([]rune(t)) <= e.minTestLength || seen[t] {
			continue
		}
		seen[t] = true
		tests = append(tests, t)
	}
	req.Tests = tests

	return append(out, req)
}
