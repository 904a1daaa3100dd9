package parse

import "fmt"

// RegionCandidate is a region discovered on the index page, not yet stored.
type RegionCandidate struct {
	Name         string
	Slug         string
	CanonicalURL string
	Description  string
}

// SectionCandidate is a sub-reach of a river named in source text, e.g.
// "Upper" or "Lower".
type SectionCandidate struct {
	Name string
	Slug string
}

// RiverCandidate is a river discovered on a region page.
type RiverCandidate struct {
	Name         string
	Slug         string
	CanonicalURL string
	Sections     []SectionCandidate
}

// FlyCandidate is one recommended fly from a detail page. RawText is the
// verbatim source excerpt; Category, Size and Color are nil unless the raw
// text carries an unambiguous token for them.
type FlyCandidate struct {
	Name     string
	RawText  string
	Category *string
	Size     *string
	Color    *string
}

// RegulationCandidate is one regulation line from a detail page. Type is
// "unclassified" when no keyword rule matched.
type RegulationCandidate struct {
	Type    string
	Value   string
	RawText string
}

// Conditions is the situation block of a detail page. FlowLevel is set only
// when the text literally says "low flow", "medium flow" or "high flow".
type Conditions struct {
	RawText   string
	FlowLevel *string
}

// IndexResult is the outcome of parsing the region index page.
type IndexResult struct {
	Regions  []RegionCandidate
	Warnings []string
}

// RegionResult is the outcome of parsing one region page.
type RegionResult struct {
	Rivers   []RiverCandidate
	Warnings []string
}

// DetailResult is the outcome of parsing one river detail page. FishType is
// nil when the page has no fish-type block.
type DetailResult struct {
	FishType    *string
	Conditions  *Conditions
	Flies       []FlyCandidate
	Regulations []RegulationCandidate
	Warnings    []string
}

// NullFieldCount reports how many optional fly fields were left null, for
// extraction logging.
func (r DetailResult) NullFieldCount() int {
	n := 0
	for _, f := range r.Flies {
		if f.Category == nil {
			n++
		}
		if f.Size == nil {
			n++
		}
		if f.Color == nil {
			n++
		}
	}
	return n
}

// ParseError means the input is not parseable HTML at all. Recoverable per
// page: the caller logs and skips, the run continues.
type ParseError struct {
	Context string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Context, e.Reason)
}
