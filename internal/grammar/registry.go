package grammar

import (
	"fmt"

	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
)

// Layouts maps language codes to their page furniture
var Layouts = map[string]Layout{
	lexicon.CodeFrench:  FrenchLayout,
	lexicon.CodeEnglish: EnglishLayout,
}

// Registry selects the grammar for a language code
type Registry struct {
	grammars map[string]*Grammar
	fallback string
}

// NewRegistry builds one grammar per language of the set. Languages with no
// known layout get a grammar without page-furniture rules.
func NewRegistry(set *lexicon.Set) (*Registry, error) {
	if set == nil {
		return nil, fmt.Errorf("lexicon set cannot be nil")
	}

	r := &Registry{
		grammars: make(map[string]*Grammar),
		fallback: set.Fallback().Code,
	}
	for _, lang := range set.Languages() {
		g, err := Build(lang, Layouts[lang.Code])
		if err != nil {
			return nil, fmt.Errorf("build grammar: %w", err)
		}
		r.grammars[lang.Code] = g
	}
	return r, nil
}

var defaultRegistry = func() *Registry {
	r, err := NewRegistry(lexicon.Default())
	if err != nil {
		panic(err)
	}
	return r
}()

// Default returns the registry for the built-in French/English lexicon
func Default() *Registry {
	return defaultRegistry
}

// For returns the grammar registered for code. When code is unknown the
// fallback grammar is returned and exact is false.
func (r *Registry) For(code string) (g *Grammar, exact bool) {
	if g, ok := r.grammars[code]; ok {
		return g, true
	}
	return r.grammars[r.fallback], false
}

// French returns the French grammar of the default registry
func French() *Grammar {
	g, _ := Default().For(lexicon.CodeFrench)
	return g
}

// English returns the English grammar of the default registry
func English() *Grammar {
	g, _ := Default().For(lexicon.CodeEnglish)
	return g
}
