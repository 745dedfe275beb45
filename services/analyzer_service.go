// services/analyzer_service.go
package services

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
	"mvdan.cc/xurls/v2"

	"github.com/brandbeacon/beacon-workflows/internal/config"
	"github.com/brandbeacon/beacon-workflows/internal/models"
)

var (
	urlExtractor = xurls.Strict()
	nonAlphaNum  = regexp.MustCompile(`[^a-z0-9]+`)
)

type analyzerService struct {
	cfg config.ScanConfig
}

func NewAnalyzerService(cfg config.ScanConfig) AnalyzerService {
	return &analyzerService{cfg: cfg}
}

// Analyze extracts mention, position, citation, competitor, and sentiment
// signal from one raw response. It never fails: malformed or empty input
// degrades to a no-mention neutral result.
func (s *analyzerService) Analyze(rawText string, structuredCitations []string, target AnalysisTarget) models.AnalysisResult {
	lower := strings.ToLower(rawText)

	mentionIdx := firstMention(lower, target.NameVariations, target.BrandName)
	mentioned := mentionIdx >= 0

	citationURLs := extractCitationURLs(rawText, structuredCitations)
	primary := attributeToBrand(citationURLs, target)

	competitors := observedCompetitors(lower, citationURLs, target.Competitors)

	result := models.AnalysisResult{
		Mentioned:         mentioned,
		Cited:             len(primary) > 0,
		CitationURLs:      citationURLs,
		PrimaryCitations:  primary,
		CompetitorSet:     competitors,
		Sentiment:         models.SentimentNeutral,
		SentimentEvidence: "brand not mentioned",
	}

	if mentioned {
		result.Position = intPtr(mentionRank(lower, mentionIdx, target.Competitors))
		result.Sentiment, result.SentimentEvidence = classifySentiment(s.mentionWindow(rawText, mentionIdx))
	}

	return result
}

// firstMention returns the earliest index at which any name variation
// appears, or -1 when the brand is absent.
func firstMention(lower string, variations []string, brandName string) int {
	candidates := variations
	if len(candidates) == 0 {
		candidates = []string{brandName}
	}

	first := -1
	for _, v := range candidates {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if idx := strings.Index(lower, v); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	return first
}

// mentionRank converts a character offset to a coarse rank: one plus the
// number of distinct competitors appearing before the brand's first mention.
func mentionRank(lower string, mentionIdx int, competitors []string) int {
	rank := 1
	for _, c := range competitors {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if idx := strings.Index(lower, c); idx >= 0 && idx < mentionIdx {
			rank++
		}
	}
	return rank
}

func (s *analyzerService) mentionWindow(rawText string, mentionIdx int) string {
	start := mentionIdx - s.cfg.SentimentWindow
	if start < 0 {
		start = 0
	}
	end := mentionIdx + s.cfg.SentimentWindow
	if end > len(rawText) {
		end = len(rawText)
	}
	return rawText[start:end]
}

// extractCitationURLs merges provider-supplied citations with URLs found in
// the response body, deduplicated in first-seen order.
func extractCitationURLs(rawText string, structuredCitations []string) []string {
	seen := make(map[string]bool)
	var urls []string

	add := func(raw string) {
		raw = strings.TrimRight(strings.TrimSpace(raw), ".,)")
		if raw == "" || seen[raw] {
			return
		}
		seen[raw] = true
		urls = append(urls, raw)
	}

	for _, c := range structuredCitations {
		add(c)
	}
	for _, m := range urlExtractor.FindAllString(rawText, -1) {
		add(m)
	}
	return urls
}

// attributeToBrand returns the URLs whose host resolves to one of the
// brand's own domains.
func attributeToBrand(citationURLs []string, target AnalysisTarget) []string {
	tokens := make([]string, 0, len(target.BrandDomains)+1)
	for _, d := range target.BrandDomains {
		if t := normalizeDomain(d); t != "" {
			tokens = append(tokens, t)
		}
	}
	if t := normalizeEntity(target.BrandName); t != "" {
		tokens = append(tokens, t)
	}

	var primary []string
	for _, raw := range citationURLs {
		if hostMatchesAny(raw, tokens) {
			primary = append(primary, raw)
		}
	}
	return primary
}

// observedCompetitors unions competitors named in the text with competitors
// attributed via citation hosts.
func observedCompetitors(lower string, citationURLs []string, competitors []string) []string {
	var observed []string
	for _, name := range competitors {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(trimmed)) {
			observed = append(observed, trimmed)
			continue
		}
		if token := normalizeEntity(trimmed); token != "" {
			for _, raw := range citationURLs {
				if hostMatchesAny(raw, []string{token}) {
					observed = append(observed, trimmed)
					break
				}
			}
		}
	}
	return observed
}

// hostMatchesAny attributes a URL to an entity by bidirectional substring
// containment against both the full host and its registrable (eTLD+1)
// domain, with www. and scheme noise stripped.
func hostMatchesAny(rawURL string, tokens []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}

	hostBases := []string{nonAlphaNum.ReplaceAllString(host, "")}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		if base, _, found := strings.Cut(etld1, "."); found && base != "" {
			hostBases = append(hostBases, nonAlphaNum.ReplaceAllString(base, ""))
		}
	}

	for _, token := range tokens {
		for _, base := range hostBases {
			if base == "" || token == "" {
				continue
			}
			if strings.Contains(base, token) || strings.Contains(token, base) {
				return true
			}
		}
	}
	return false
}

func hostOf(rawURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// normalizeDomain reduces a configured website to its comparable host form.
func normalizeDomain(d string) string {
	host := hostOf(d)
	if host == "" {
		return ""
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		if base, _, found := strings.Cut(etld1, "."); found && base != "" {
			return nonAlphaNum.ReplaceAllString(base, "")
		}
	}
	return nonAlphaNum.ReplaceAllString(host, "")
}

// normalizeEntity reduces an entity name to a lowercase alphanumeric token.
func normalizeEntity(name string) string {
	return nonAlphaNum.ReplaceAllString(strings.ToLower(name), "")
}

func intPtr(v int) *int {
	return &v
}
