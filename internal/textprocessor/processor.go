// Package textprocessor is the analyzer shared by indexing and querying:
// one tokenizer and one stemmer, so a document term and a query term that
// spell the same word always normalize to the same string.
package textprocessor

import (
	"fmt"
	"strings"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/tokenizer"
)

// Options configures the analyzer. Zero values fall back to the defaults
// used by NewTextProcessor.
type Options struct {
	Language      string
	MinWordLength int
	MaxWordLength int
	StopWords     []string
}

type TextProcessor struct {
	tokenizer *tokenizer.Tokenizer
	stemmer   *Stemmer
}

// NewTextProcessor returns an English analyzer with the default bounds.
func NewTextProcessor() *TextProcessor {
	tp, _ := New(Options{})
	return tp
}

func New(opts Options) (*TextProcessor, error) {
	if opts.Language == "" {
		opts.Language = "english"
	}
	if opts.MinWordLength == 0 {
		opts.MinWordLength = 3
	}
	if opts.MaxWordLength == 0 {
		opts.MaxWordLength = 50
	}
	if !supportedLanguages[opts.Language] {
		return nil, fmt.Errorf("%w: analyzer language %q", apperrors.ErrUnsupportedOption, opts.Language)
	}

	extra := make([]string, 0, len(opts.StopWords))
	for _, word := range opts.StopWords {
		extra = append(extra, strings.ToLower(strings.TrimSpace(word)))
	}

	return &TextProcessor{
		tokenizer: tokenizer.NewTokenizer(
			tokenizer.WithLengthBounds(opts.MinWordLength, opts.MaxWordLength),
			tokenizer.WithStopWords(tokenizer.StopWords(opts.Language, extra...)),
		),
		stemmer: NewStemmer(opts.Language),
	}, nil
}

// NormalizeForIndex returns stemmed terms with their word offsets.
func (tp *TextProcessor) NormalizeForIndex(text string) []tokenizer.Token {
	tokens := tp.tokenizer.Tokenize(text)
	for i := range tokens {
		tokens[i].Term = tp.stemmer.Stem(tokens[i].Term)
	}
	return tokens
}

// NormalizeForQuery is NormalizeForIndex with positions dropped.
func (tp *TextProcessor) NormalizeForQuery(text string) []string {
	tokens := tp.NormalizeForIndex(text)

	terms := make([]string, len(tokens))
	for i, token := range tokens {
		terms[i] = token.Term
	}
	return terms
}

func (tp *TextProcessor) ProcessToFrequency(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range tp.NormalizeForQuery(text) {
		freq[term]++
	}
	return freq
}
