package services

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// TextSplitter cuts text into chunks of at most ChunkSize runes, trying
// paragraph, line and word boundaries in that order before falling back to
// single characters. Consecutive chunks share up to ChunkOverlap runes.
type TextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	return &TextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   defaultSeparators,
	}
}

func (s *TextSplitter) Split(text string) []string {
	return s.split(text, s.Separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	sep := ""
	var next []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			next = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var (
		out   []string
		small []string
	)
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) < s.ChunkSize {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small, sep)...)
			small = nil
		}
		if len(next) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, next)...)
		}
	}
	if len(small) > 0 {
		out = append(out, s.merge(small, sep)...)
	}
	return out
}

// merge greedily packs splits into chunks, carrying a tail of at most
// ChunkOverlap runes from one chunk into the next.
func (s *TextSplitter) merge(splits []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var (
		docs    []string
		current []string
		total   int
	)
	for _, d := range splits {
		l := utf8.RuneCountInString(d)
		if total+l+joinCost(len(current)) > s.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.ChunkOverlap || (total > 0 && total+l+joinCost(len(current)) > s.ChunkSize) {
				total -= utf8.RuneCountInString(current[0]) + joinCost(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l + joinCost(len(current)-1)
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
