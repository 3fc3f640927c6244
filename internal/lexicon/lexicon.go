// Package lexicon holds the per-language keyword tables used to recognise
// PCI DSS documents. Tables are built once and never mutated afterwards.
package lexicon

import "fmt"

// Language codes
const (
	CodeFrench  = "fr"
	CodeEnglish = "en"
)

// Definition is the raw material for a Language
type Definition struct {
	Code           string
	Name           string // localized name
	NameEN         string
	ExtractorLabel string

	// Keywords are the lower-case detection signals counted by the detector
	Keywords []string

	// TestVerbs open a test-procedure bullet ("• Examine ...")
	TestVerbs []string
	// TestingHeading introduces a block of test procedures
	TestingHeading string
	// GuidanceMarker introduces guidance text
	GuidanceMarker string
	// ApplicabilityMarker introduces applicability notes
	ApplicabilityMarker string
	// ResponseLabels are the SAQ response-box captions printed next to every requirement
	ResponseLabels []string
}

// Language is an immutable language entry. Slice accessors return copies.
type Language struct {
	Code                string
	Name                string
	NameEN              string
	ExtractorLabel      string
	TestingHeading      string
	GuidanceMarker      string
	ApplicabilityMarker string

	keywords  []string
	testVerbs []string
	responses []string
}

// NewLanguage builds a language entry from a definition, copying its slices
func NewLanguage(def Definition) Language {
	return Language{
		Code:                def.Code,
		Name:                def.Name,
		NameEN:              def.NameEN,
		ExtractorLabel:      def.ExtractorLabel,
		TestingHeading:      def.TestingHeading,
		GuidanceMarker:      def.GuidanceMarker,
		ApplicabilityMarker: def.ApplicabilityMarker,
		keywords:            clone(def.Keywords),
		testVerbs:           clone(def.TestVerbs),
		responses:           clone(def.ResponseLabels),
	}
}

// Keywords returns the language's detection keywords
func (l Language) Keywords() []string { return clone(l.keywords) }

// TestVerbs returns the verbs that open a test-procedure bullet
func (l Language) TestVerbs() []string { return clone(l.testVerbs) }

// ResponseLabels returns the response-box captions
func (l Language) ResponseLabels() []string { return clone(l.responses) }

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// French returns the French PCI DSS lexicon
func French() Language {
	return NewLanguage(Definition{
		Code:           CodeFrench,
		Name:           "Français",
		NameEN:         "French",
		ExtractorLabel: "French extractor",
		Keywords: []string{
			"exigences", "conseils", "examiner", "observer", "interroger",
			"vérifier", "inspecter", "applicabilité", "en place", "pas en place",
			"non applicable", "non testé", "cocher une réponse", "tous droits réservés",
			"octobre", "saq d de pci dss", "notes d'applicabilité",
		},
		TestVerbs:           []string{"Examiner", "Observer", "Interroger", "Vérifier", "Inspecter"},
		TestingHeading:      "Procédures de test",
		GuidanceMarker:      "Conseils",
		ApplicabilityMarker: "Notes d'Applicabilité",
		ResponseLabels:      []string{"En Place avec CCW", "En Place", "Pas en Place", "Non Applicable", "Non Testé"},
	})
}

// English returns the English PCI DSS lexicon
func English() Language {
	return NewLanguage(Definition{
		Code:           CodeEnglish,
		Name:           "English",
		NameEN:         "English",
		ExtractorLabel: "English extractor",
		Keywords: []string{
			"requirements", "guidance", "examine", "observe", "interview",
			"verify", "inspect", "applicability", "in place", "not in place",
			"not applicable", "not tested", "check one response", "all rights reserved",
			"october", "pci dss saq d", "applicability notes",
		},
		TestVerbs:           []string{"Examine", "Observe", "Interview", "Verify", "Inspect"},
		TestingHeading:      "Testing Procedures",
		GuidanceMarker:      "Guidance",
		ApplicabilityMarker: "Applicability Notes",
		ResponseLabels:      []string{"In Place with CCW", "In Place", "Not in Place", "Not Applicable", "Not Tested"},
	})
}

// Set is an ordered, read-only collection of languages with a fallback.
// Build one with NewSet or use Default.
type Set struct {
	languages []Language
	index     map[string]int
	fallback  string
}

// NewSet creates a language set. The fallback code must name one of the languages.
func NewSet(fallback string, languages ...Language) (*Set, error) {
	if len(languages) == 0 {
		return nil, fmt.Errorf("lexicon set needs at least one language")
	}

	s := &Set{
		languages: make([]Language, 0, len(languages)),
		index:     make(map[string]int, len(languages)),
		fallback:  fallback,
	}
	for _, lang := range languages {
		if lang.Code == "" {
			return nil, fmt.Errorf("language code cannot be empty")
		}
		if _, dup := s.index[lang.Code]; dup {
			return nil, fmt.Errorf("duplicate language code: %s", lang.Code)
		}
		s.index[lang.Code] = len(s.languages)
		s.languages = append(s.languages, lang)
	}
	if _, ok := s.index[fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q is not part of the set", fallback)
	}

	return s, nil
}

var defaultSet = mustSet(NewSet(CodeFrench, French(), English()))

func mustSet(s *Set, err error) *Set {
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the built-in French/English set with French as fallback
func Default() *Set {
	return defaultSet
}

// Languages returns the languages in declaration order
func (s *Set) Languages() []Language {
	out := make([]Language, len(s.languages))
	copy(out, s.languages)
	return out
}

// Lookup returns the language for a code
func (s *Set) Lookup(code string) (Language, bool) {
	i, ok := s.index[code]
	if !ok {
		return Language{}, false
	}
	return s.languages[i], true
}

// Fallback returns the language used when detection is inconclusive
func (s *Set) Fallback() Language {
	return s.languages[s.index[s.fallback]]
}

// Codes returns the language codes in declaration order
func (s *Set) Codes() []string {
	codes := make([]string, len(s.languages))
	for i, l := range s.languages {
		codes[i] = l.Code
	}
	return codes
}
