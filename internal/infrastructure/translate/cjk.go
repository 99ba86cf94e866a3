package translate

import "unicode"

// IsCJK reports whether the text contains Chinese, Japanese, or Korean
// script. Only such text is worth sending to the translator; romaji
// titles from Japanese sources pass through untouched.
func IsCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
