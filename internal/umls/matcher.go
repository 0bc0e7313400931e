package umls

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

// DictionaryEntry is one term to CUI mapping in the local dictionary file.
type DictionaryEntry struct {
	CUI  string `json:"cui"`
	Term string `json:"term"`
}

// Matcher finds concept mentions in free text against a local dictionary.
// Matching is greedy longest-first over normalized token n-grams, so spans
// never overlap and identical input always yields identical terms.
type Matcher struct {
	entries       map[string][]DictionaryEntry
	maxGram       int
	minSimilarity float64
}

const stemmedSimilarity = 0.9

// LoadDictionary reads a JSON array of {"cui", "term"} entries.
func LoadDictionary(path string, minSimilarity float64) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary '%s': %w", path, err)
	}

	var raw []DictionaryEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dictionary '%s': %w", path, err)
	}

	return NewMatcher(raw, minSimilarity), nil
}

// NewMatcher builds a matcher from entries already in memory.
func NewMatcher(raw []DictionaryEntry, minSimilarity float64) *Matcher {
	m := &Matcher{
		entries:       make(map[string][]DictionaryEntry, len(raw)),
		maxGram:       1,
		minSimilarity: minSimilarity,
	}

	for _, e := range raw {
		if e.CUI == "" || e.Term == "" {
			continue
		}
		tokens := tokenize(e.Term)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > m.maxGram {
			m.maxGram = len(tokens)
		}
		key := joinTokens(tokens)
		m.entries[key] = append(m.entries[key], e)
	}

	return m
}

// Size returns the number of distinct normalized terms.
func (m *Matcher) Size() int {
	return len(m.entries)
}

// Match returns the concept mentions found in text. Offsets are byte
// positions into the original string. An exact normalized match scores 1.0;
// a match after naive plural stemming scores 0.9 and is subject to the
// matcher's similarity threshold.
func (m *Matcher) Match(text string) []model.Term {
	tokens := tokenize(text)
	var terms []model.Term

	for i := 0; i < len(tokens); {
		maxN := m.maxGram
		if rem := len(tokens) - i; rem < maxN {
			maxN = rem
		}

		matched := false
		for n := maxN; n >= 1 && !matched; n-- {
			span := tokens[i : i+n]
			entry, sim := m.lookup(span)
			if entry == nil || sim < m.minSimilarity {
				continue
			}

			start := span[0].start
			end := span[n-1].end
			terms = append(terms, model.Term{
				Text:       text[start:end],
				CUI:        entry.CUI,
				Similarity: sim,
				Start:      start,
				End:        end,
			})
			i += n
			matched = true
		}
		if !matched {
			i++
		}
	}

	return terms
}

func (m *Matcher) lookup(span []token) (*DictionaryEntry, float64) {
	key := joinTokens(span)
	if entries, ok := m.entries[key]; ok {
		return &entries[0], 1.0
	}

	stemmed := joinStemmed(span)
	if stemmed == key {
		return nil, 0
	}
	if entries, ok := m.entries[stemmed]; ok {
		return &entries[0], stemmedSimilarity
	}
	return nil, 0
}

type token struct {
	norm  string
	start int
	end   int
}

func tokenize(text string) []token {
	var tokens []token
	var b strings.Builder
	start := -1

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start == -1 {
				start = i
				b.Reset()
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if start != -1 {
			tokens = append(tokens, token{norm: b.String(), start: start, end: i})
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, token{norm: b.String(), start: start, end: len(text)})
	}

	return tokens
}

func joinTokens(span []token) string {
	parts := make([]string, len(span))
	for i, t := range span {
		parts[i] = t.norm
	}
	return strings.Join(parts, " ")
}

func joinStemmed(span []token) string {
	parts := make([]string, len(span))
	for i, t := range span {
		parts[i] = stem(t.norm)
	}
	return strings.Join(parts, " ")
}

// stem strips a trailing plural 's' from words long enough for that to be
// meaningful. Anything smarter belongs in the dictionary itself.
func stem(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}
