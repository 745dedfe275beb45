// services/sentiment.go
package services

import (
	"regexp"
	"strings"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

// Sentiment is classified from a fixed lexical lexicon so the same response
// text always yields the same label. No model calls, no scores.
var (
	positivePatterns = compilePatterns([]string{
		`\bbest\b`,
		`\bexcellent\b`,
		`\bleading\b`,
		`\btop[- ](choice|pick|rated)\b`,
		`\brecommended\b`,
		`\bgreat\b`,
		`\bpowerful\b`,
		`\bpopular\b`,
		`\btrusted\b`,
		`\bfavorite\b`,
		`\bideal\b`,
		`\boutstanding\b`,
		`\bstands? out\b`,
		`\bsuperior\b`,
		`\beasy to use\b`,
		`\breliable\b`,
		`\bwell[- ]regarded\b`,
	})

	negativePatterns = compilePatterns([]string{
		`\blacks?\b`,
		`\blacking\b`,
		`\blimited\b`,
		`\bexpensive\b`,
		`\bdifficult\b`,
		`\bpoor\b`,
		`\bweak(er)?\b`,
		`\bdownsides?\b`,
		`\bdrawbacks?\b`,
		`\bworse\b`,
		`\bmissing\b`,
		`\bcomplaints?\b`,
		`\bfalls? short\b`,
		`\bnot as\b`,
		`\bstruggles?\b`,
		`\bclunky\b`,
		`\boutdated\b`,
	})

	descriptivePatterns = compilePatterns([]string{
		`\boffers?\b`,
		`\bprovides?\b`,
		`\bincludes?\b`,
		`\bfeatures?\b`,
		`\bis an?\b`,
		`\balso\b`,
		`\bavailable\b`,
		`\bsupports?\b`,
		`\boptions?\b`,
		`\bfree tier\b`,
		`\bamong\b`,
		`\bsuch as\b`,
	})
)

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

func matchPhrases(patterns []*regexp.Regexp, window string) []string {
	var phrases []string
	for _, re := range patterns {
		if m := re.FindString(window); m != "" {
			phrases = append(phrases, strings.ToLower(m))
		}
	}
	return phrases
}

// classifySentiment labels one mention window. Both positive and negative
// cues present resolves to whichever side outnumbers the other at least
// two to one; anything closer is neutral.
func classifySentiment(window string) (string, string) {
	positive := matchPhrases(positivePatterns, window)
	negative := matchPhrases(negativePatterns, window)

	switch {
	case len(positive) > 0 && len(negative) > 0:
		if len(positive) >= 2*len(negative) {
			return sentimentPositive(positive)
		}
		if len(negative) >= 2*len(positive) {
			return sentimentNegative(negative)
		}
		return models.SentimentNeutral, "mixed sentiment signals: " + strings.Join(append(positive, negative...), ", ")
	case len(positive) > 0:
		return sentimentPositive(positive)
	case len(negative) > 0:
		return sentimentNegative(negative)
	}

	if descriptive := matchPhrases(descriptivePatterns, window); len(descriptive) > 0 {
		return models.SentimentNeutral, "listed without strong opinion"
	}
	return models.SentimentNeutral, "no sentiment signals detected"
}

func sentimentPositive(phrases []string) (string, string) {
	return models.SentimentPositive, strings.Join(phrases, ", ")
}

func sentimentNegative(phrases []string) (string, string) {
	return models.SentimentNegative, strings.Join(phrases, ", ")
}
