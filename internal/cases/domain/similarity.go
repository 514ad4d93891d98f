package domain

import (
	"strings"
	"time"
)

// DedupWindow bounds how far back duplicate detection looks. Reports of the
// same issue in the same room within this window attach to the open case.
const DedupWindow = 30 * time.Minute

const (
	// strongOverlap alone is enough to call two summaries the same issue.
	strongOverlap = 0.8
	// weakOverlap needs a shared trade keyword to confirm.
	weakOverlap = 0.6
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"in": true, "on": true, "at": true, "my": true, "our": true, "it": true,
	"its": true, "it's": true, "and": true, "or": true, "of": true, "to": true,
	"has": true, "have": true, "been": true, "there": true, "this": true,
	"that": true, "with": true, "for": true, "i": true, "we": true,
	"room": true, "please": true, "hi": true, "hello": true,
}

// SameIssue reports whether two issue summaries describe the same problem.
// Token overlap is measured against the smaller summary so a short report
// still matches a long one.
func SameIssue(a, b string) bool {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}

	shared := 0
	sharedTradeWord := false
	for tok := range ta {
		if tb[tok] {
			shared++
			if !sharedTradeWord && isTradeWord(tok) {
				sharedTradeWord = true
			}
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	overlap := float64(shared) / float64(smaller)

	if overlap >= strongOverlap {
		return true
	}
	return overlap >= weakOverlap && sharedTradeWord
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, raw := range strings.Fields(strings.ToLower(s)) {
		tok := strings.Trim(raw, ".,!?;:()\"'")
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

// isTradeWord reports whether the token appears in any category keyword
// list, i.e. it names the actual problem rather than filler.
func isTradeWord(tok string) bool {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			kw = strings.TrimSpace(kw)
			if tok == kw || (len(kw) >= 4 && strings.Contains(tok, kw)) {
				return true
			}
		}
	}
	return false
}
