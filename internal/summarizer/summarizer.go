// Package summarizer shortens free-text pattern descriptions, which external
// sources often deliver as whole paragraphs.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordPattern     = regexp.MustCompile(`[a-z][a-z0-9_]*`)
)

// Summarizer keeps the sentences whose words recur most across a description.
type Summarizer struct {
	maxSentences int
	maxChars     int
	stopwords    map[string]struct{}
}

// New returns a Summarizer keeping at most maxSentences sentences and maxChars bytes.
// Zero values default to two sentences and 280 bytes.
func New(maxSentences, maxChars int) *Summarizer {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	if maxChars <= 0 {
		maxChars = 280
	}
	return &Summarizer{maxSentences: maxSentences, maxChars: maxChars, stopwords: stopwords()}
}

// Summarize returns text unchanged when it already fits, else the top-ranked sentences
// in their original order, cut at a word boundary.
func (s *Summarizer) Summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) <= s.maxSentences {
		return s.truncate(text)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, w := range s.words(sent) {
			freq[w]++
		}
	}
	var top float64
	for _, v := range freq {
		top = max(top, v)
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		words := s.words(sent)
		var score float64
		for _, w := range words {
			score += freq[w] / top
		}
		if len(words) > 0 {
			score /= math.Sqrt(float64(len(words)))
		}
		scores[i] = ranked{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := make([]int, s.maxSentences)
	for i := range keep {
		keep[i] = scores[i].idx
	}
	sort.Ints(keep)
	out := make([]string, 0, len(keep))
	for _, idx := range keep {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return s.truncate(strings.Join(out, " "))
}

func (s *Summarizer) truncate(text string) string {
	if len(text) <= s.maxChars {
		return text
	}
	cut := text[:s.maxChars]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

func (s *Summarizer) words(text string) []string {
	all := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, w := range all {
		if _, stop := s.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these",
		"those", "from", "into", "about", "than", "so", "such", "can", "will", "just", "should", "you",
		"your", "we", "our", "use", "using",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
