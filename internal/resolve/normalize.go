package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// addressAbbreviations maps long-form street and direction words to their
// standard abbreviations. Applied in order as plain substring replacement, so
// embedded words are abbreviated too (NORTHWEST becomes NW).
var addressAbbreviations = []struct{ long, short string }{
	{"STREET", "ST"},
	{"AVENUE", "AVE"},
	{"ROAD", "RD"},
	{"DRIVE", "DR"},
	{"BOULEVARD", "BLVD"},
	{"LANE", "LN"},
	{"COURT", "CT"},
	{"PLACE", "PL"},
	{"NORTH", "N"},
	{"SOUTH", "S"},
	{"EAST", "E"},
	{"WEST", "W"},
	{"PARKWAY", "PKWY"},
	{"HIGHWAY", "HWY"},
	{"CIRCLE", "CIR"},
}

var houseNumberRe = regexp.MustCompile(`^\d+\s*`)

// foldAccents returns a fresh transformer; chains carry state and must not be
// shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeText standardizes free text for comparison by:
//  1. Folding accented letters to their base letter
//  2. Dropping every rune that is not a letter, digit or whitespace
//  3. Converting to uppercase
//  4. Collapsing whitespace runs into single spaces and trimming
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(foldAccents(), s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(strings.ToUpper(b.String())), " ")
}

// NormalizePhone keeps only the digits of a phone number. When at least ten
// digits remain the last ten are returned, which drops a leading country code.
// Shorter results are returned as-is.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// NormalizeAddress normalizes an address and abbreviates street and direction words.
func NormalizeAddress(s string) string {
	out := NormalizeText(s)
	for _, a := range addressAbbreviations {
		out = strings.ReplaceAll(out, a.long, a.short)
	}
	return out
}

// ExtractStreetName returns the normalized address without its leading house number.
func ExtractStreetName(address string) string {
	return houseNumberRe.ReplaceAllString(NormalizeAddress(address), "")
}

// nameTokens splits a normalized name into its set of words.
func nameTokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
