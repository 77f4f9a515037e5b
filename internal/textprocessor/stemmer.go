package textprocessor

import (
	"github.com/kljensen/snowball"
)

var supportedLanguages = map[string]bool{
	"english":   true,
	"french":    true,
	"spanish":   true,
	"russian":   true,
	"swedish":   true,
	"norwegian": true,
	"hungarian": true,
}

type Stemmer struct {
	language string
}

func NewStemmer(language string) *Stemmer {
	return &Stemmer{language: language}
}

// Stem returns the snowball stem of word, or word itself if the stemmer
// rejects it.
func (s *Stemmer) Stem(word string) string {
	stemmed, err := snowball.Stem(word, s.language, true)
	if err != nil {
		return word
	}
	return stemmed
}
