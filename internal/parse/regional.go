package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseRegionalPage extracts river candidates from a regional where-to-fish
// page, where river links sit inline in paragraph text rather than in a
// dedicated waters list. Links are restricted to the region's own URL space
// and navigation pages are skipped. Names come from the anchor text or, when
// that text is generic ("river", "stream"), verbatim from the URL slug; no
// water-body type is ever appended.
func (p *Parser) ParseRegionalPage(html []byte, pageURL, regionName string) (RegionResult, error) {
	doc, err := p.document(html, "regional page")
	if err != nil {
		return RegionResult{}, err
	}

	var res RegionResult
	seen := map[string]bool{}
	regionSlug := regionSlugOf(regionName)

	findContentArea(doc).Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || href == "#" {
			return
		}
		canonical := resolveURL(pageURL, href)
		if canonical == "" || !isRiverLink(canonical, regionSlug) || seen[canonical] {
			return
		}
		seen[canonical] = true

		slug := slugFromURL(canonical)
		res.Rivers = append(res.Rivers, RiverCandidate{
			Name:         riverNameOf(link, slug),
			Slug:         strings.ToLower(slug),
			CanonicalURL: canonical,
			Sections:     detectSections(link.Text()),
		})
	})

	if len(res.Rivers) == 0 {
		res.Warnings = append(res.Warnings, "no in-region river links found")
	}
	return res, nil
}

// findContentArea picks the main content block, trying the page builder
// wrapper, a content div, then semantic elements, falling back to the whole
// document.
func findContentArea(doc *goquery.Document) *goquery.Selection {
	for _, marker := range []string{"builder", "content"} {
		found := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.AttrOr("class", "")), marker)
		}).First()
		if found.Length() > 0 {
			return found
		}
	}
	for _, tag := range []string{"article", "main"} {
		if found := doc.Find(tag).First(); found.Length() > 0 {
			return found
		}
	}
	return doc.Selection
}

func regionSlugOf(regionName string) string {
	s := strings.ToLower(regionName)
	s = strings.ReplaceAll(s, " – ", "-")
	return strings.ReplaceAll(s, " ", "-")
}

func isRiverLink(rawURL, regionSlug string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.Contains(lower, regionSlug) {
		return false
	}
	return !strings.Contains(lower, "/where-to-fish/")
}

var genericNames = map[string]bool{
	"river": true, "stream": true, "creek": true, "lake": true,
}

func riverNameOf(link *goquery.Selection, slug string) string {
	name := cleanText(link.Text())
	if len(name) >= 3 && !genericNames[strings.ToLower(name)] {
		return name
	}
	return titleCase(strings.ReplaceAll(slug, "-", " "))
}
