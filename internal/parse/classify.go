package parse

import (
	"regexp"
	"strings"

	"github.com/nzflyfish/riverscout/internal/config"
)

// Classifier extracts category, size and color from fly raw text by explicit
// pattern matching against configured vocabulary. Every field it cannot match
// unambiguously stays nil.
type Classifier struct {
	categories []config.CategoryRule
	colors     []string
}

// NewClassifier builds a classifier from the configured keyword policy.
func NewClassifier(categories []config.CategoryRule, colors []string) *Classifier {
	return &Classifier{categories: categories, colors: colors}
}

var (
	hookSizeRe = regexp.MustCompile(`#(\d+)`)
	wordSizeRe = regexp.MustCompile(`(?i)size\s+(\d+(?:\s*[-\x{2013}]\s*\d+)?)`)
)

// ClassifyFly returns the category, size and color read from raw. Category is
// the first configured rule with a matching keyword. Size requires a literal
// "#12" or "size 12" (ranges like "size 12-16" allowed) token. Color requires
// exactly one recognized color word; two or more is ambiguous and yields nil.
func (c *Classifier) ClassifyFly(raw string) (category, size, color *string) {
	lower := strings.ToLower(raw)

	for _, rule := range c.categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				name := rule.Name
				category = &name
				break
			}
		}
		if category != nil {
			break
		}
	}

	if m := hookSizeRe.FindStringSubmatch(raw); m != nil {
		size = &m[1]
	} else if m := wordSizeRe.FindStringSubmatch(raw); m != nil {
		s := normalizeSizeRange(m[1])
		size = &s
	}

	var matched []string
	for _, col := range c.colors {
		if strings.Contains(lower, col) {
			matched = append(matched, col)
		}
	}
	if len(matched) == 1 {
		color = &matched[0]
	}

	return category, size, color
}

func normalizeSizeRange(s string) string {
	s = strings.ReplaceAll(s, "–", "-")
	parts := strings.Split(s, "-")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "-")
}

var catchCountRe = regexp.MustCompile(`(\d+)\s*(?:fish|trout)`)

// ClassifyRegulation maps one regulation line to its type via literal keyword
// matches. Unmatched lines are kept with type "unclassified" rather than
// dropped.
func ClassifyRegulation(raw string) RegulationCandidate {
	lower := strings.ToLower(raw)
	reg := RegulationCandidate{Type: "unclassified", Value: raw, RawText: raw}

	switch {
	case strings.Contains(lower, "catch limit") || strings.Contains(lower, "bag limit"):
		reg.Type = "catch_limit"
		if m := catchCountRe.FindStringSubmatch(lower); m != nil {
			reg.Value = m[1] + " fish"
		}
	case strings.Contains(lower, "season"):
		reg.Type = "season_dates"
	case strings.Contains(lower, "method") || strings.Contains(lower, "fly only") ||
		strings.Contains(lower, "artificial"):
		reg.Type = "method"
	case strings.Contains(lower, "permit") || strings.Contains(lower, "license"):
		reg.Type = "permit_required"
	case strings.Contains(lower, "flow") && strings.Contains(lower, "status"):
		reg.Type = "flow_status"
	}

	return reg
}

// flowLevel reads a normalized flow level only when the text literally names
// one.
func flowLevel(raw string) *string {
	lower := strings.ToLower(raw)
	for _, level := range []string{"low", "medium", "high"} {
		if strings.Contains(lower, level+" flow") {
			l := level
			return &l
		}
	}
	return nil
}
