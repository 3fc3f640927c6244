// Package grammar describes how a PCI DSS requirement table is laid out in
// one language: which line shapes open a requirement, a test procedure, a
// guidance block or applicability notes, and which page furniture to drop.
//
// A Grammar is plain data. The segment package interprets it.
package grammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
)

// MarkerKind identifies what a matching segment starts
type MarkerKind int

const (
	MarkerRequirement MarkerKind = iota
	MarkerTestItem
	MarkerTestHeading
	MarkerGuidance
	MarkerApplicability
	MarkerIgnore
)

// String returns the marker kind name
func (k MarkerKind) String() string {
	switch k {
	case MarkerRequirement:
		return "requirement"
	case MarkerTestItem:
		return "test_item"
	case MarkerTestHeading:
		return "test_heading"
	case MarkerGuidance:
		return "guidance"
	case MarkerApplicability:
		return "applicability"
	case MarkerIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Marker is one typed pattern. Patterns are anchored at the start of a
// trimmed segment. For MarkerRequirement, group 1 is the identifier and
// group 2 the rest of the line; for the other content markers group 1 is
// the payload carried into the record.
type Marker struct {
	Kind    MarkerKind
	Name    string
	Pattern *regexp.Regexp
}

// Grammar is the full set of layout rules for one language
type Grammar struct {
	Code  string
	Label string

	// Requirement identifiers must have a leading chapter number in this range
	MinChapter int
	MaxChapter int

	// Markers are consulted in order; the first match wins
	Markers []Marker

	// InlineBreak finds marker starts in the middle of a line; the line is cut there
	InlineBreak *regexp.Regexp

	// Artifacts are removed from the raw text before segmentation
	Artifacts []*regexp.Regexp

	// Residue is removed from finished requirement fields
	Residue []*regexp.Regexp
}

// Layout holds the page furniture of one language edition of the SAQ
type Layout struct {
	HeaderPrefix      string // running page header, e.g. "PCI DSS SAQ D"
	RightsReserved    string
	ReferTo           string // "♦ Refer to ..." pointers
	CheckOneResponse  string
	RequirementColumn string // table column caption
	ResponseColumn    string
	FooterMonth       string
	CCWFragment       string // "with CCW" tail that wraps onto its own line
}

// EnglishLayout is the page furniture of the English SAQ D
var EnglishLayout = Layout{
	HeaderPrefix:      "PCI DSS SAQ D",
	RightsReserved:    "All Rights Reserved",
	ReferTo:           "Refer to",
	CheckOneResponse:  "Check one response",
	RequirementColumn: "PCI DSS Requirement",
	ResponseColumn:    "Response",
	FooterMonth:       "October",
	CCWFragment:       "with CCW",
}

// FrenchLayout is the page furniture of the French SAQ D
var FrenchLayout = Layout{
	HeaderPrefix:      "SAQ D de PCI DSS",
	RightsReserved:    "Tous Droits Réservés",
	ReferTo:           "Se reporter",
	CheckOneResponse:  "Cocher une réponse",
	RequirementColumn: "Exigence de PCI DSS",
	ResponseColumn:    "Réponse",
	FooterMonth:       "Octobre",
	CCWFragment:       "avec CCW",
}

// Build compiles a grammar from a lexicon language and a page layout
func Build(lang lexicon.Language, layout Layout) (*Grammar, error) {
	if lang.Code == "" {
		return nil, fmt.Errorf("language code cannot be empty")
	}
	verbs := lang.TestVerbs()
	if len(verbs) == 0 {
		return nil, fmt.Errorf("language %s has no test verbs", lang.Code)
	}
	if lang.TestingHeading == "" || lang.GuidanceMarker == "" || lang.ApplicabilityMarker == "" {
		return nil, fmt.Errorf("language %s needs testing, guidance and applicability markers", lang.Code)
	}

	verbAlt := alternation(verbs)
	responses := alternation(lang.ResponseLabels())
	testing := phrase(lang.TestingHeading)
	guidance := phrase(lang.GuidanceMarker)
	applicability := phrase(lang.ApplicabilityMarker)

	g := &Grammar{
		Code:       lang.Code,
		Label:      lang.ExtractorLabel,
		MinChapter: 1,
		MaxChapter: 12,
	}

	markers := []struct {
		kind MarkerKind
		name string
		expr string
	}{
		{MarkerRequirement, "requirement_number", `^(\d+(?:\.\d+)+)\s+(.+)$`},
		{MarkerTestItem, "test_bullet", `^•\s*((?i:` + verbAlt + `)\b.*)$`},
		{MarkerTestItem, "test_identifier", `^(\d+(?:\.\d+)+\.[a-z]\s+.+)$`},
		{MarkerTestHeading, "testing_heading", `^(?i:` + testing + `)\s*:\s*(.*)$`},
		{MarkerGuidance, "guidance", `^(?i:` + guidance + `)\b\s*:?\s*(.*)$`},
		{MarkerApplicability, "applicability", `^(?i:` + applicability + `)\s*:?\s*(.*)$`},
	}
	for _, m := range markers {
		if err := g.addMarker(m.kind, m.name, m.expr); err != nil {
			return nil, err
		}
	}

	ignores := []string{
		`^.{0,2}$`,
		`^©\s*2006-\d+`,
		`^Page \d+`,
		`^Section \d+`,
		`^(?i:` + testing + `)\s*$`,
	}
	if layout.ResponseColumn != "" {
		ignores = append(ignores, `^(?i:`+testing+`)\s*(?i:`+phrase(layout.ResponseColumn)+`)\s*$`)
	}
	if responses != "" {
		ignores = append(ignores, `^(?i:(?:`+responses+`)(?:\s+(?:`+responses+`))*)\s*$`)
	}
	for _, p := range []string{
		layout.HeaderPrefix, layout.RequirementColumn, layout.RightsReserved,
		"PCI Security Standards Council", "LLC.",
	} {
		if p != "" {
			ignores = append(ignores, `^(?i:`+phrase(p)+`)`)
		}
	}
	if layout.ReferTo != "" {
		ignores = append(ignores, `^♦\s*(?i:`+phrase(layout.ReferTo)+`)`)
	}
	if layout.CheckOneResponse != "" {
		ignores = append(ignores, `^\((?i:`+phrase(layout.CheckOneResponse)+`)`)
	}
	if layout.ResponseColumn != "" {
		ignores = append(ignores, `^(?i:`+phrase(layout.ResponseColumn)+`)\s*$`)
	}
	if layout.FooterMonth != "" {
		ignores = append(ignores, `^(?i:`+phrase(layout.FooterMonth)+`)\s+\d{4}\s*$`)
	}
	for i, expr := range ignores {
		if err := g.addMarker(MarkerIgnore, fmt.Sprintf("ignore_%d", i), expr); err != nil {
			return nil, err
		}
	}

	inline := []string{
		`•\s*(?i:` + verbAlt + `)\b`,
		`(?i:` + testing + `)\s*:`,
		`\b(?i:` + guidance + `)\s*:`,
		`(?i:` + applicability + `)\s*:?`,
		`\b\d+(?:\.\d+)+\.[a-z]\s`,
	}
	var err error
	if g.InlineBreak, err = regexp.Compile(strings.Join(inline, "|")); err != nil {
		return nil, fmt.Errorf("compile inline break for %s: %w", lang.Code, err)
	}

	var artifacts, residue []string
	if layout.RightsReserved != "" {
		artifacts = append(artifacts, `(?i)©\s*2006-\d+[^\n]*?`+phrase(layout.RightsReserved)+`\.?`)
	}
	if layout.HeaderPrefix != "" {
		artifacts = append(artifacts, `(?i)`+phrase(layout.HeaderPrefix)+`[^\n]*?\bv\d[\d.]*[^\n]*?Page \d+[^\n]*`)
	}
	if layout.ReferTo != "" {
		artifacts = append(artifacts, `(?i)♦\s*`+phrase(layout.ReferTo)+`[^\n]*`)
		residue = append(residue, `(?i)♦\s*`+phrase(layout.ReferTo)+`.*$`)
	}
	if layout.CheckOneResponse != "" {
		artifacts = append(artifacts, `(?i)\(`+phrase(layout.CheckOneResponse)+`[^)\n]*\)`)
		residue = append(residue, `(?i)\(`+phrase(layout.CheckOneResponse)+`[^)]*\)`)
	}
	artifacts = append(artifacts, `(?i)Section \d+\s*:`)
	if responses != "" {
		if layout.CCWFragment != "" {
			artifacts = append(artifacts, `(?i)`+phrase(layout.CCWFragment)+`(?:[ \t]+(?:`+responses+`))*`)
		}
		artifacts = append(artifacts, `(?i)(?:`+responses+`)(?:[ \t]+(?:`+responses+`))+`)
		residue = append(residue, `(?i)(?:`+responses+`)(?:\s+(?:`+responses+`))+`)
	}
	if g.Artifacts, err = compileAll(artifacts); err != nil {
		return nil, fmt.Errorf("compile artifacts for %s: %w", lang.Code, err)
	}

	if g.Residue, err = compileAll(residue); err != nil {
		return nil, fmt.Errorf("compile residue for %s: %w", lang.Code, err)
	}

	return g, nil
}

// MarkersOf returns the markers of one kind, in consultation order
func (g *Grammar) MarkersOf(kind MarkerKind) []Marker {
	var out []Marker
	for _, m := range g.Markers {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (g *Grammar) addMarker(kind MarkerKind, name, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("compile %s marker %q for %s: %w", kind, name, g.Code, err)
	}
	g.Markers = append(g.Markers, Marker{Kind: kind, Name: name, Pattern: re})
	return nil
}

// phrase quotes a literal and lets its spaces and apostrophes vary the way
// PDF text extraction varies them
func phrase(s string) string {
	q := regexp.QuoteMeta(s)
	q = strings.ReplaceAll(q, " ", `\s+`)
	q = strings.ReplaceAll(q, "'", `['’]`)
	return q
}

func alternation(items []string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it != "" {
			parts = append(parts, phrase(it))
		}
	}
	return strings.Join(parts, "|")
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
