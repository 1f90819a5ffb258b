package citations

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// urlPattern matches embedded http(s) URLs inside free text. Trailing
// sentence punctuation is trimmed after matching.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// stopwords are claim/path tokens with no topical weight. Tokens shorter
// than three characters are dropped before this list is consulted.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "their": {}, "have": {}, "has": {}, "are": {}, "was": {},
	"were": {}, "will": {}, "its": {}, "our": {}, "your": {}, "about": {},
	"into": {}, "more": {}, "than": {}, "they": {}, "them": {}, "been": {},
	"also": {}, "can": {}, "may": {}, "not": {}, "but": {}, "all": {},
	"any": {}, "each": {}, "per": {}, "via": {}, "www": {}, "html": {},
	"htm": {}, "php": {}, "index": {}, "page": {}, "pages": {},
}

// CollectURLs walks an evaluation's nested result objects and returns every
// embedded http(s) URL in document order, deduplicated.
func CollectURLs(results *types.EvaluationResults) []string {
	if results == nil {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	add := func(candidates []string) {
		for _, u := range candidates {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	for _, p := range results.Programs {
		add(extractURLs(p.Summary))
		for _, link := range p.Links {
			add(extractURLs(link))
		}
		add(collectFromValue(p.Details))
	}
	if f := results.Financial; f != nil {
		add(extractURLs(f.Summary))
		for _, link := range f.SourceURLs {
			add(extractURLs(link))
		}
		add(collectFromValue(f.Details))
	}
	if r := results.Registry; r != nil {
		add(extractURLs(r.IRSListingURL))
		for _, link := range r.StateListings {
			add(extractURLs(link))
		}
	}
	add(collectFromValue(results.Extra))

	return urls
}

// collectFromValue recursively extracts URLs from the free-form JSON values
// the pipeline attaches (maps, arrays, strings).
func collectFromValue(v any) []string {
	switch val := v.(type) {
	case string:
		return extractURLs(val)
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, collectFromValue(item)...)
		}
		return out
	case map[string]any:
		// Sorted keys keep extraction order deterministic.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, collectFromValue(val[k])...)
		}
		return out
	default:
		return nil
	}
}

// extractURLs pulls embedded URLs out of free text, trimming trailing
// sentence punctuation.
func extractURLs(text string) []string {
	if !strings.Contains(text, "http") {
		return nil
	}
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimRight(m, ".,;:!?"))
	}
	return out
}

// canonicalHost lowercases a host and drops a leading "www.", so that
// www.example.org and example.org compare equal.
func canonicalHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// isHomepage reports whether a parsed URL points at the site root.
func isHomepage(u *url.URL) bool {
	return u.Path == "" || u.Path == "/"
}

// tokenize lowercases text and splits it on non-alphanumeric runes, dropping
// tokens shorter than three characters and stopwords. Numeric tokens (years,
// form numbers) are kept: they are topical in source paths.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// tokenSet builds a membership set from tokenize output.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// candidate is a same-host deep link considered as a citation upgrade.
type candidate struct {
	raw          string
	parsed       *url.URL
	overlap      int
	pathSegments int
}

// Resolve upgrades a single homepage-level citation to the best matching deep
// link among the given URLs. Citations that already point below the site root
// are returned unchanged, as are citations with no candidate sharing at least
// one claim keyword.
func Resolve(c types.Citation, candidateURLs []string) types.Citation {
	base, err := url.Parse(c.URL)
	if err != nil || base.Host == "" || !isHomepage(base) {
		return c
	}

	// Claim keywords drive the match; citations without a claim fall back to
	// their title text.
	keywords := tokenSet(c.Claim)
	if len(keywords) == 0 {
		keywords = tokenSet(c.Title)
	}
	if len(keywords) == 0 {
		return c
	}

	host := canonicalHost(base.Host)
	best := pickBest(host, keywords, candidateURLs)
	if best == nil {
		return c
	}

	best.parsed.Fragment = ""
	c.URL = best.parsed.String()
	return c
}

// pickBest scores same-host candidates by keyword overlap between their path
// tokens and the claim keywords. Ties prefer deeper paths, then shorter URLs,
// then lexicographic order, so resolution is deterministic.
func pickBest(host string, keywords map[string]struct{}, candidateURLs []string) *candidate {
	var best *candidate
	for _, raw := range candidateURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if canonicalHost(u.Host) != host || isHomepage(u) {
			continue
		}

		overlap := 0
		counted := make(map[string]struct{})
		for _, tok := range tokenize(u.Path) {
			if _, dup := counted[tok]; dup {
				continue
			}
			counted[tok] = struct{}{}
			if _, ok := keywords[tok]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}

		cand := &candidate{
			raw:          raw,
			parsed:       u,
			overlap:      overlap,
			pathSegments: len(strings.Split(strings.Trim(u.Path, "/"), "/")),
		}
		if better(cand, best) {
			best = cand
		}
	}
	return best
}

// better reports whether a beats b under the tie-break chain.
func better(a, b *candidate) bool {
	if b == nil {
		return true
	}
	if a.overlap != b.overlap {
		return a.overlap > b.overlap
	}
	if a.pathSegments != b.pathSegments {
		return a.pathSegments > b.pathSegments
	}
	if len(a.raw) != len(b.raw) {
		return len(a.raw) < len(b.raw)
	}
	return a.raw < b.raw
}

// ResolveAll returns the evaluation's source list with homepage-level URLs
// upgraded to deep links. The input evaluation is never mutated. The second
// return value counts upgraded citations.
func ResolveAll(eval *types.AmalEvaluation) ([]types.Citation, int) {
	if eval == nil || len(eval.Sources) == 0 {
		return nil, 0
	}

	candidates := CollectURLs(eval.Results)
	resolved := make([]types.Citation, len(eval.Sources))
	upgraded := 0
	for i, src := range eval.Sources {
		resolved[i] = Resolve(src, candidates)
		if resolved[i].URL != src.URL {
			upgraded++
		}
	}
	return resolved, upgraded
}
