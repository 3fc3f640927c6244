package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var lineNoise = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ",
	"\u2019", "'",
	"\u2018", "'",
	"\u00ad", "",
	"\ufeff", "",
)

// Normalize composes accents (NFC) and unifies line endings, non-breaking
// spaces and typographic apostrophes
func Normalize(text string) string {
	return lineNoise.Replace(norm.NFC.String(text))
}

// CollapseSpaces trims s and squeezes every whitespace run to one space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// JoinLine appends a wrapped line to dst. A word split by a trailing hyphen
// ("contrô-" + "les") is rejoined without the hyphen.
func JoinLine(dst, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return dst
	}
	dst = strings.TrimRight(dst, " \t")
	if dst == "" {
		return line
	}
	if hyphenated(dst, line) {
		return dst[:len(dst)-1] + line
	}
	return dst + " " + line
}

func hyphenated(dst, line string) bool {
	if !strings.HasSuffix(dst, "-") {
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(dst[:len(dst)-1])
	next, _ := utf8.DecodeRuneInString(line)
	return unicode.IsLetter(before) && unicode.IsLower(next)
}
