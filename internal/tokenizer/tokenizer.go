package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Token is a surviving word and its offset in the raw word stream.
type Token struct {
	Term     string
	Position int
}

type Tokenizer struct {
	StopWords map[string]bool
	minLength int
	maxLength int
}

type Option func(*Tokenizer)

// WithLengthBounds keeps words whose rune count lies in [minLength, maxLength].
func WithLengthBounds(minLength, maxLength int) Option {
	return func(t *Tokenizer) {
		t.minLength = minLength
		t.maxLength = maxLength
	}
}

// WithStopWords replaces the stopword set.
func WithStopWords(words map[string]bool) Option {
	return func(t *Tokenizer) {
		t.StopWords = words
	}
}

func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		StopWords: StopWords("english"),
		minLength: 3,
		maxLength: 50,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize returns the words that survive filtering, each with its position
// among all words of the text. Filtered words still consume a position.
func (t *Tokenizer) Tokenize(text string) []Token {
	words := t.split(t.normalize(text))

	tokens := make([]Token, 0, len(words))
	for position, word := range words {
		if !t.IsValidToken(word) {
			continue
		}

		n := utf8.RuneCountInString(word)
		if n < t.minLength || n > t.maxLength {
			continue
		}

		if t.StopWords[word] {
			continue
		}

		tokens = append(tokens, Token{Term: word, Position: position})
	}
	return tokens
}

func (t *Tokenizer) TokenizeToFrequency(text string) map[string]int {
	result := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		result[token.Term]++
	}
	return result
}

func (t *Tokenizer) normalize(text string) string {
	text = strings.ToLower(text)

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", " ")
	text = strings.ReplaceAll(text, "&lt;", " ")
	text = strings.ReplaceAll(text, "&gt;", " ")

	// apostrophes split elisions such as "l'index"
	text = strings.ReplaceAll(text, "'", " ")
	text = strings.ReplaceAll(text, "’", " ")

	return text
}

func (t *Tokenizer) split(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// IsValidToken reports whether word is purely alphabetic.
func (t *Tokenizer) IsValidToken(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
