// Package fuzzy normalizes playlist and artist names so that user input can be
// compared with names returned by the platform.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	zeroWidthJoiner    = '\u200d'
	variationSelector  = '\ufe0f'
	textPresentationVS = '\ufe0e'
	keycapCombiner     = '\u20e3'
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Simplify reduces a playlist name to a key that ignores case, emoji,
// apostrophes and whitespace. Ampersands become underscores so that
// "Rock & Roll" and "rock&roll" collide.
func (n *Normalizer) Simplify(name string) string {
	name = stripEmoji(name)
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(name, "\u2019", "")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "&", "_")
}

// Fold lowercases the name and removes diacritics, keeping everything else.
func (n *Normalizer) Fold(name string) string {
	name = norm.NFD.String(name)

	var result strings.Builder
	result.Grow(len(name))
	for _, r := range name {
		if !unicode.Is(unicode.Mn, r) {
			result.WriteRune(r)
		}
	}

	return strings.ToLower(strings.TrimSpace(result.String()))
}

// Match reports whether two names are equal once case and diacritics are
// ignored. Whitespace and punctuation still count.
func (n *Normalizer) Match(a, b string) bool {
	return n.Fold(a) == n.Fold(b)
}

// SameName reports whether two playlist names collide once simplified.
func (n *Normalizer) SameName(a, b string) bool {
	return n.Simplify(a) == n.Simplify(b)
}

func stripEmoji(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if isEmojiRune(r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

func isEmojiRune(r rune) bool {
	switch r {
	case zeroWidthJoiner, variationSelector, textPresentationVS, keycapCombiner:
		return true
	}
	// Skin tone modifiers are category Sk, flags and pictographs are So.
	if r >= 0x1f3fb && r <= 0x1f3ff {
		return true
	}
	return unicode.Is(unicode.So, r)
}
