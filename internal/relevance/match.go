package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Terms shorter than this must match as whole words ("ai" must not hit "said");
// longer ones may be followed by more letters ("startup" hits "startups").
const minPrefixTermLen = 4

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// containsWord reports whether term occurs in text delimited by non-word runes on both sides.
func containsWord(text, term string) bool {
	return find(text, term, true)
}

// containsTerm reports whether term occurs in text starting at a word boundary.
func containsTerm(text, term string) bool {
	return find(text, term, utf8.RuneCountInString(term) < minPrefixTermLen)
}

// firstTerm returns the first term of terms present in text, or "".
func firstTerm(text string, terms []string) string {
	for _, term := range terms {
		if containsTerm(text, term) {
			return term
		}
	}
	return ""
}

// firstSubstring returns the first term of terms contained anywhere in text, or "".
func firstSubstring(text string, terms []string) string {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return term
		}
	}
	return ""
}

func find(text, term string, wholeWord bool) bool {
	if term == "" || len(term) > len(text) {
		return false
	}

	for offset := 0; offset <= len(text)-len(term); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		if boundaryBefore(text, start, term) && (!wholeWord || boundaryAfter(text, end, term)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, start int, term string) bool {
	if start == 0 {
		return true
	}
	if first, _ := utf8.DecodeRuneInString(term); !isWordRune(first) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(prev)
}

func boundaryAfter(text string, end int, term string) bool {
	if end >= len(text) {
		return true
	}
	if last, _ := utf8.DecodeLastRuneInString(term); !isWordRune(last) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(next)
}

// isPhrase reports whether a keyword spans several words and is matched as a raw substring.
func isPhrase(keyword string) bool {
	return strings.IndexFunc(keyword, unicode.IsSpace) >= 0
}

// looksLikeDomain matches keywords such as "coqui.ai" or "thebluedot.co".
func looksLikeDomain(keyword string) bool {
	if isPhrase(keyword) {
		return false
	}
	dot := strings.LastIndexByte(keyword, '.')
	if dot <= 0 || dot == len(keyword)-1 {
		return false
	}
	for _, r := range keyword[dot+1:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
