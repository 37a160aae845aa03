package textclass

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultTokenPattern keeps alphabetic words of three or more letters.
const DefaultTokenPattern = `[A-Z]{3,}[a-z]{3,}|[a-zA-Z]{3,}`

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 5000

// Vectorizer turns documents into token-count vectors.
type Vectorizer struct {
	token       *regexp.Regexp
	vocabulary  map[string]int
	terms       []string
	maxFeatures int
	lowercase   bool
}

// NewVectorizer creates a count vectorizer. maxFeatures <= 0 means unbounded.
func NewVectorizer(pattern string, lowercase bool, maxFeatures int) (*Vectorizer, error) {
	if pattern == "" {
		pattern = DefaultTokenPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Vectorizer{
		token:       re,
		lowercase:   lowercase,
		maxFeatures: maxFeatures,
	}, nil
}

// Tokens splits a document the way Fit and Transform see it.
func (v *Vectorizer) Tokens(doc string) []string {
	if v.lowercase {
		doc = strings.ToLower(doc)
	}
	return v.token.FindAllString(doc, -1)
}

// Fit learns the vocabulary. When it exceeds maxFeatures the most frequent
// terms are kept, ties broken alphabetically. Columns are assigned in
// alphabetical order of the kept terms.
func (v *Vectorizer) Fit(docs []string) {
	freq := make(map[string]int)
	for _, doc := range docs {
		for _, tok := range v.Tokens(doc) {
			freq[tok]++
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.SliceStable(terms, func(i, j int) bool { return freq[terms[i]] > freq[terms[j]] })
		terms = terms[:v.maxFeatures]
		sort.Strings(terms)
	}

	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		v.vocabulary[t] = i
	}
}

// Transform counts vocabulary terms per document. Unknown tokens are ignored.
func (v *Vectorizer) Transform(docs []string) *Matrix {
	m := &Matrix{Rows: make([]Row, len(docs)), Cols: len(v.terms)}
	for i, doc := range docs {
		counts := make(map[int]float64)
		for _, tok := range v.Tokens(doc) {
			if col, ok := v.vocabulary[tok]; ok {
				counts[col]++
			}
		}
		row := make(Row, 0, len(counts))
		for col, n := range counts {
			row = append(row, Entry{Col: col, Val: n})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].Col < row[b].Col })
		m.Rows[i] = row
	}
	return m
}

// FitTransform fits on docs and transforms them.
func (v *Vectorizer) FitTransform(docs []string) *Matrix {
	v.Fit(docs)
	return v.Transform(docs)
}

// Vocabulary returns the fitted terms in column order.
func (v *Vectorizer) Vocabulary() []string {
	return v.terms
}
