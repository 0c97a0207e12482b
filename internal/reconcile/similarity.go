package reconcile

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// indel cost model: a substitution costs one deletion plus one insertion.
var indelParams = levenshtein.NewParams().SubCost(2)

// SortedTokens reduces a string to its comparable form: accents folded,
// other non-ASCII dropped, punctuation turned into spaces, lowercased, and
// whitespace tokens sorted and joined by single spaces.
func SortedTokens(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// accent stripped by NFD
		case r > unicode.MaxASCII:
			// dropped
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	tokens := strings.Fields(b.String())
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio scores two strings 0-100 regardless of word order.
func TokenSortRatio(a, b string) int {
	return sortedRatio(SortedTokens(a), SortedTokens(b))
}

// sortedRatio scores two strings already reduced by SortedTokens. Either
// side empty scores 0.
func sortedRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	lensum := len(a) + len(b)
	dist := levenshtein.Distance(a, b, indelParams)
	return roundRatio(lensum-dist, lensum)
}

// ratioCeiling is the best score two strings of these lengths can reach.
func ratioCeiling(la, lb int) int {
	if la == 0 || lb == 0 {
		return 0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	lensum := la + lb
	return roundRatio(lensum-diff, lensum)
}

func roundRatio(num, den int) int {
	return int(math.RoundToEven(100 * float64(num) / float64(den)))
}
