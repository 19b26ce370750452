package bm25

import (
	"math"
	"strings"
	"unicode"
)

// Corpus holds term statistics for one pool of chunks and scores queries
// against its members with Okapi BM25.
type Corpus struct {
	k1    float64
	b     float64
	docs  [][]string
	freqs []map[string]int
	df    map[string]int
	avgdl float64
}

func NewCorpus(texts []string, k1, b float64) *Corpus {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b <= 0 {
		b = 0.75
	}
	c := &Corpus{
		k1:    k1,
		b:     b,
		docs:  make([][]string, 0, len(texts)),
		freqs: make([]map[string]int, 0, len(texts)),
		df:    make(map[string]int),
	}
	total := 0
	for _, text := range texts {
		tokens := Tokenize(text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		for tok := range freq {
			c.df[tok]++
		}
		c.docs = append(c.docs, tokens)
		c.freqs = append(c.freqs, freq)
		total += len(tokens)
	}
	if len(texts) > 0 {
		c.avgdl = float64(total) / float64(len(texts))
	}
	return c
}

func (c *Corpus) Size() int {
	return len(c.docs)
}

// Score returns the BM25 relevance of the query for chunk i. A score of
// exactly 0 means no query term occurs in the chunk; that is a normal
// outcome for conceptual or cross-lingual queries, not an error.
func (c *Corpus) Score(query string, i int) float64 {
	if i < 0 || i >= len(c.docs) || c.avgdl == 0 {
		return 0
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return 0
	}
	dl := float64(len(c.docs[i]))
	n := float64(len(c.docs))
	var score float64
	for _, term := range terms {
		tf := float64(c.freqs[i][term])
		if tf == 0 {
			continue
		}
		df := float64(c.df[term])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		score += idf * tf * (c.k1 + 1) / (tf + c.k1*(1-c.b+c.b*dl/c.avgdl))
	}
	return score
}

// Tokenize lowercases and splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
