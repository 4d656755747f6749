// Package reader holds the text rules of the read mode: project naming,
// note key normalization and syllable hints.
package reader

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

const (
	projectNameLength = 20
	syllableMaxWords  = 3
	syllableSeparator = "·"
)

var folder = cases.Fold()

// ProjectName derives a default project name from its content.
func ProjectName(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > projectNameLength {
		runes = runes[:projectNameLength]
	}
	return string(runes)
}

// NoteKey is the normalized form used to compare note terms.
func NoteKey(en string) string {
	return folder.String(strings.TrimSpace(en))
}

// SameTerm reports whether a and b name the same note term.
func SameTerm(a, b string) bool {
	return NoteKey(a) == NoteKey(b)
}

// Syllables splits short selections (at most three words) into rough
// syllables. ok is false when the selection is too long for a hint.
func Syllables(selection string) (hint string, ok bool) {
	if len(strings.Split(selection, " ")) > syllableMaxWords {
		return "", false
	}

	parts := splitSyllables([]rune(selection))
	if len(parts) == 0 {
		return selection, true
	}
	return strings.Join(parts, syllableSeparator), true
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// splitSyllables cuts s into runs of leading consonants, a vowel group, and
// trailing consonants that are not followed by a vowel. Consonant tails that
// never reach a vowel are dropped.
func splitSyllables(s []rune) []string {
	var parts []string
	i := 0
	for i < len(s) {
		j := i
		for j < len(s) && !isVowel(s[j]) {
			j++
		}
		if j == len(s) {
			break
		}
		for j < len(s) && isVowel(s[j]) {
			j++
		}
		for j < len(s) && !isVowel(s[j]) && (j+1 == len(s) || !isVowel(s[j+1])) {
			j++
		}
		parts = append(parts, string(s[i:j]))
		i = j
	}
	return parts
}
