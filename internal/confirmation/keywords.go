package confirmation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// confirmationPatterns match a client saying the booking is paid or agreed.
// Text is accent-folded and lowercased before matching.
var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsim\b`),
	regexp.MustCompile(`\bconfirm(o|ado|ada|ar|ei|amos)?\b`),
	regexp.MustCompile(`\bok\b`),
	regexp.MustCompile(`\bpag(o|a|uei|amento feito)\b`),
	regexp.MustCompile(`\bpix (feito|enviado|realizado)\b`),
	regexp.MustCompile(`\bja (paguei|fiz o pix|transferi)\b`),
	regexp.MustCompile(`\bpode confirmar\b`),
	regexp.MustCompile(`\bfechado\b`),
}

// assetPatterns match a client asking for the access card or directions.
var assetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bcart(ao|oes)\b`),
	regexp.MustCompile(`\blocaliza(cao|r)\b`),
	regexp.MustCompile(`\bendereco\b`),
	regexp.MustCompile(`\bacesso\b`),
	regexp.MustCompile(`\bonde fica\b`),
	regexp.MustCompile(`\bcomo (chego|chegar)\b`),
	regexp.MustCompile(`\bsenha\b`),
}

var whitespace = regexp.MustCompile(`\s+`)

// Fold lowercases text, strips accents and collapses whitespace.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(folded), " "))
}

// MatchesConfirmation reports whether text contains an affirmative reply.
func MatchesConfirmation(text string) bool {
	return matchAny(confirmationPatterns, text)
}

// MatchesAssetRequest reports whether text asks for the access card again.
func MatchesAssetRequest(text string) bool {
	return matchAny(assetPatterns, text)
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	folded := Fold(text)
	if folded == "" {
		return false
	}
	for _, pat := range patterns {
		if pat.MatchString(folded) {
			return true
		}
	}
	return false
}
