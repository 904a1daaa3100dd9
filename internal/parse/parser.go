// Package parse turns raw HTML plus a page role (index, region, detail) into
// typed candidate records. Parsers are pure: no I/O, no retries, no logging.
// Structural mismatches surface as warnings on the result, and optional
// fields stay nil unless the source text is unambiguous.
package parse

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nzflyfish/riverscout/internal/config"
)

// Parser holds the configured selectors and classification policy. All parse
// methods are safe for concurrent use; the parser carries no mutable state.
type Parser struct {
	sel        config.Discovery
	classifier *Classifier
}

// New builds a parser from configuration.
func New(cfg config.Config) *Parser {
	return &Parser{
		sel:        cfg.Discovery,
		classifier: NewClassifier(cfg.Categories(), cfg.Colors()),
	}
}

// ParseIndex extracts region candidates from the index page. A missing or
// empty region container yields an empty list plus a warning, never an error;
// only unparseable input fails.
func (p *Parser) ParseIndex(html []byte, pageURL string) (IndexResult, error) {
	doc, err := p.document(html, "index page")
	if err != nil {
		return IndexResult{}, err
	}

	var res IndexResult
	seen := map[string]bool{}

	doc.Find(p.sel.RegionSelector).Each(func(_ int, link *goquery.Selection) {
		name, canonical, slug, ok := extractLink(link, pageURL)
		if !ok || seen[canonical] {
			return
		}
		seen[canonical] = true

		res.Regions = append(res.Regions, RegionCandidate{
			Name:         name,
			Slug:         slug,
			CanonicalURL: canonical,
			Description:  siblingDescription(link),
		})
	})

	if len(res.Regions) == 0 {
		res.Warnings = append(res.Warnings,
			"no region links matched selector "+p.sel.RegionSelector)
	}
	return res, nil
}

// ParseRegion extracts river candidates from a region page. Sub-reach words
// in the anchor text ("Upper", "Middle", "Lower") become section candidates
// attached to the river.
func (p *Parser) ParseRegion(html []byte, pageURL string) (RegionResult, error) {
	doc, err := p.document(html, "region page")
	if err != nil {
		return RegionResult{}, err
	}

	var res RegionResult
	seen := map[string]bool{}

	doc.Find(p.sel.RiverSelector).Each(func(_ int, link *goquery.Selection) {
		name, canonical, slug, ok := extractLink(link, pageURL)
		if !ok || seen[canonical] {
			return
		}
		seen[canonical] = true

		res.Rivers = append(res.Rivers, RiverCandidate{
			Name:         name,
			Slug:         slug,
			CanonicalURL: canonical,
			Sections:     detectSections(name),
		})
	})

	if len(res.Rivers) == 0 {
		res.Warnings = append(res.Warnings,
			"no river links matched selector "+p.sel.RiverSelector)
	}
	return res, nil
}

// ParseDetail extracts fish type, conditions, flies and regulations from a
// river detail page. Every structured fly field is backed by the verbatim
// raw text it came from.
func (p *Parser) ParseDetail(html []byte) (DetailResult, error) {
	doc, err := p.document(html, "detail page")
	if err != nil {
		return DetailResult{}, err
	}

	var res DetailResult
	matchedAny := false

	if text := selectText(doc, p.sel.Detail.FishType); text != "" {
		res.FishType = &text
		matchedAny = true
	}

	if text := selectText(doc, p.sel.Detail.Situation); text != "" {
		res.Conditions = &Conditions{RawText: text, FlowLevel: flowLevel(text)}
		matchedAny = true
	}

	if container := doc.Find(p.sel.Detail.Flies).First(); container.Length() > 0 {
		matchedAny = true
		res.Flies = p.parseFlies(container)
	}

	if container := doc.Find(p.sel.Detail.Regulations).First(); container.Length() > 0 {
		matchedAny = true
		res.Regulations = parseRegulations(container)
	}

	if !matchedAny {
		res.Warnings = append(res.Warnings, "no labeled detail sections matched")
	}
	return res, nil
}

func (p *Parser) parseFlies(container *goquery.Selection) []FlyCandidate {
	var flies []FlyCandidate

	appendFly := func(text string) {
		if text == "" {
			return
		}
		category, size, color := p.classifier.ClassifyFly(text)
		flies = append(flies, FlyCandidate{
			Name:     text,
			RawText:  text,
			Category: category,
			Size:     size,
			Color:    color,
		})
	}

	items := container.Find("li")
	if items.Length() == 0 {
		appendFly(cleanText(container.Text()))
		return flies
	}
	items.Each(func(_ int, item *goquery.Selection) {
		appendFly(cleanText(item.Text()))
	})
	return flies
}

func parseRegulations(container *goquery.Selection) []RegulationCandidate {
	var regs []RegulationCandidate

	items := container.Find("p, li")
	if items.Length() == 0 {
		for _, line := range strings.Split(container.Text(), "\n") {
			if text := cleanText(line); text != "" {
				regs = append(regs, ClassifyRegulation(text))
			}
		}
		return regs
	}
	items.Each(func(_ int, item *goquery.Selection) {
		if text := cleanText(item.Text()); text != "" {
			regs = append(regs, ClassifyRegulation(text))
		}
	})
	return regs
}

func (p *Parser) document(html []byte, context string) (*goquery.Document, error) {
	if bytes.IndexByte(html, 0) >= 0 {
		return nil, &ParseError{Context: context, Reason: "input contains NUL bytes"}
	}
	if !utf8.Valid(html) {
		return nil, &ParseError{Context: context, Reason: "input is not valid UTF-8"}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ParseError{Context: context, Reason: err.Error()}
	}
	return doc, nil
}

// selectText returns the collapsed text of the first node matching selector,
// or "" when nothing matches.
func selectText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return cleanText(sel.Text())
}

// extractLink pulls name, canonical URL and slug from an anchor. Empty or
// placeholder hrefs and empty link text are rejected.
func extractLink(link *goquery.Selection, pageURL string) (name, canonical, slug string, ok bool) {
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" || href == "#" {
		return "", "", "", false
	}
	canonical = resolveURL(pageURL, href)
	if canonical == "" {
		return "", "", "", false
	}
	name = cleanText(link.Text())
	if name == "" {
		return "", "", "", false
	}
	slug = link.AttrOr("data-slug", "")
	if slug == "" {
		slug = slugFromURL(canonical)
	}
	slug = strings.ReplaceAll(strings.ToLower(slug), "_", "-")
	return name, canonical, slug, true
}

func siblingDescription(link *goquery.Selection) string {
	if desc := link.NextAllFiltered("p").First(); desc.Length() > 0 {
		return cleanText(desc.Text())
	}
	if desc := link.NextAllFiltered("div").First(); desc.Length() > 0 {
		return cleanText(desc.Text())
	}
	return ""
}

// detectSections finds sub-reach words stated in the source text. Only the
// literal tokens count; nothing is inferred from adjacent context.
func detectSections(text string) []SectionCandidate {
	var sections []SectionCandidate
	lower := strings.ToLower(text)
	for _, reach := range []string{"upper", "middle", "lower"} {
		if containsWord(lower, reach) {
			sections = append(sections, SectionCandidate{
				Name: titleCase(reach),
				Slug: reach,
			})
		}
	}
	return sections
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func slugFromURL(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(trimmed, ".htm")
}

// cleanText trims and collapses internal whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
