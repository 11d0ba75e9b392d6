// Package tokenizer extracts Unicode words from text. It is shared by every
// word-based filter (blacklist and Bayesian) and has no dependencies beyond
// the standard library's unicode tables, which are the correct primitive for
// "is this rune a letter or a digit" — nothing else in the ecosystem does
// that better for this token definition.
package tokenizer

import "unicode"

// Tokenize extracts the maximal runs of Unicode letters and digits from s,
// in input order, as substrings of s. All other runes are separators and are
// never emitted as (or within) a token; empty runs are not emitted.
//
// Tokenize never fails: malformed UTF-8 is treated as a run of
// non-letter/non-digit separators (utf8.RuneError decodes to a rune that is
// neither a letter nor a digit).
func Tokenize(s string) []string {
	return TokenizeMax(s, -1)
}

// TokenizeMax is Tokenize with an additional filter: tokens whose rune
// (code point) length exceeds maxLength are silently dropped. A negative
// maxLength disables the filter.
func TokenizeMax(s string, maxLength int) []string {
	var tokens []string

	runes := []rune(s)
	start := -1
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			tokens = appendToken(tokens, string(runes[start:i]), maxLength)
			start = -1
		}
	}
	if start != -1 {
		tokens = appendToken(tokens, string(runes[start:]), maxLength)
	}

	return tokens
}

func appendToken(tokens []string, tok string, maxLength int) []string {
	if maxLength >= 0 && len([]rune(tok)) > maxLength {
		return tokens
	}
	return append(tokens, tok)
}
