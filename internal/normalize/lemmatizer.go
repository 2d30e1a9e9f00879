package normalize

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/kljensen/snowball"
)

// Lemmatizer reduces a lowercase word to its root form.
// Implementations return the word unchanged when they cannot reduce it.
type Lemmatizer interface {
	Lemmatize(word string) string
}

// Passthrough is a Lemmatizer that returns words unchanged.
type Passthrough struct{}

// Lemmatize returns word.
func (Passthrough) Lemmatize(word string) string { return word }

// Snowball stems words with the Snowball algorithm for Language.
type Snowball struct {
	Language string
}

// Lemmatize returns the Snowball stem of word, or word when stemming fails.
func (s Snowball) Lemmatize(word string) string {
	stemmed, err := snowball.Stem(word, s.Language, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// FrenchLight applies the French light stemmer from the bleve analysis chain.
// It is less aggressive than Snowball: plurals and feminine forms fold, most derivations stay.
type FrenchLight struct {
	filter *fr.FrenchLightStemmerFilter
}

// NewFrenchLight returns a FrenchLight lemmatizer.
func NewFrenchLight() *FrenchLight {
	return &FrenchLight{filter: fr.NewFrenchLightStemmerFilter()}
}

// Lemmatize returns the light stem of word.
func (f *FrenchLight) Lemmatize(word string) string {
	out := f.filter.Filter(analysis.TokenStream{&analysis.Token{Term: []byte(word)}})
	if len(out) == 0 || len(out[0].Term) == 0 {
		return word
	}
	return string(out[0].Term)
}

// NewLemmatizer returns the lemmatizer registered under name.
// Accepted names are "snowball", "light" and "none" (or empty).
func NewLemmatizer(name, language string) (Lemmatizer, error) {
	switch strings.ToLower(name) {
	case "", "none", "passthrough":
		return Passthrough{}, nil
	case "snowball":
		if language == "" {
			language = "french"
		}
		if _, err := snowball.Stem("test", language, true); err != nil {
			return nil, fmt.Errorf("unsupported snowball language %q: %w", language, err)
		}
		return Snowball{Language: language}, nil
	case "light":
		return NewFrenchLight(), nil
	default:
		return nil, fmt.Errorf("unknown lemmatizer: %s", name)
	}
}
