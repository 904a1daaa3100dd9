// Package pdf renders offline river reports from stored data. It reads only
// the database; no network access happens here.
package pdf

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/store"
)

// Generator writes per-river PDF reports and per-region ZIP batches.
type Generator struct {
	store     *store.Store
	outputDir string
	pageSize  string
}

// New builds a generator writing into the configured output directory.
func New(st *store.Store, cfg config.PDFConfig) *Generator {
	size := cfg.PageSize
	if size == "" {
		size = "A4"
	}
	return &Generator{store: st, outputDir: cfg.OutputDir, pageSize: size}
}

// RiverReport renders one river's report and returns the written file path.
func (g *Generator) RiverReport(ctx context.Context, riverID int64) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	river, err := g.store.River(ctx, riverID)
	if err != nil {
		return "", err
	}
	doc, err := g.renderRiver(ctx, river)
	if err != nil {
		return "", err
	}

	path := filepath.Join(g.outputDir, river.Slug+".pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RegionBatch renders every river in a region into one ZIP archive and
// returns its path.
func (g *Generator) RegionBatch(ctx context.Context, regionID int64) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	region, err := g.store.Region(ctx, regionID)
	if err != nil {
		return "", err
	}
	rivers, err := g.store.RiversByRegion(ctx, regionID)
	if err != nil {
		return "", err
	}
	if len(rivers) == 0 {
		return "", fmt.Errorf("region %s has no rivers", region.Slug)
	}

	path := filepath.Join(g.outputDir, region.Slug+".zip")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, river := range rivers {
		doc, err := g.renderRiver(ctx, river)
		if err != nil {
			zw.Close()
			return "", err
		}
		entry, err := zw.Create(river.Slug + ".pdf")
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("zip entry %s: %w", river.Slug, err)
		}
		if err := doc.Output(entry); err != nil {
			zw.Close()
			return "", fmt.Errorf("render %s: %w", river.Slug, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (g *Generator) renderRiver(ctx context.Context, river store.River) (*fpdf.Fpdf, error) {
	region, err := g.store.Region(ctx, river.RegionID)
	if err != nil {
		return nil, err
	}
	sections, err := g.store.SectionsByRiver(ctx, river.ID)
	if err != nil {
		return nil, err
	}
	flies, err := g.store.FliesByRiver(ctx, river.ID)
	if err != nil {
		return nil, err
	}
	regs, err := g.store.RegulationsByRiver(ctx, river.ID)
	if err != nil {
		return nil, err
	}

	doc := fpdf.New("P", "mm", g.pageSize, "")
	doc.SetTitle(river.Name, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, river.Name)
	doc.Ln(10)

	doc.SetFont("Helvetica", "", 10)
	doc.Cell(0, 6, "Region: "+region.Name)
	doc.Ln(6)
	doc.Cell(0, 6, "Source: "+river.CanonicalURL)
	doc.Ln(6)
	if river.CrawlTimestamp.Valid {
		doc.Cell(0, 6, "Last crawled: "+river.CrawlTimestamp.String)
		doc.Ln(6)
	}
	if river.Description.Valid {
		doc.Ln(2)
		doc.MultiCell(0, 5, river.Description.String, "", "L", false)
	}

	if len(sections) > 0 {
		heading(doc, "Sections")
		for _, s := range sections {
			doc.Cell(0, 5, "- "+s.Name)
			doc.Ln(5)
		}
	}

	heading(doc, "Recommended Flies")
	if len(flies) == 0 {
		doc.Cell(0, 5, "None recorded.")
		doc.Ln(5)
	}
	for _, f := range flies {
		doc.SetFont("Helvetica", "B", 10)
		doc.Cell(0, 5, f.Name)
		doc.Ln(5)
		doc.SetFont("Helvetica", "", 9)
		doc.Cell(0, 5, fmt.Sprintf("  category: %s   size: %s   color: %s",
			orUnknown(f.Category.String), orUnknown(f.Size.String), orUnknown(f.Color.String)))
		doc.Ln(5)
		doc.MultiCell(0, 4, "  source: "+f.RawText, "", "L", false)
		doc.Ln(1)
	}

	heading(doc, "Regulations")
	if len(regs) == 0 {
		doc.Cell(0, 5, "None recorded.")
		doc.Ln(5)
	}
	doc.SetFont("Helvetica", "", 9)
	for _, r := range regs {
		doc.MultiCell(0, 4, fmt.Sprintf("[%s] %s (source: %s)", r.Type, r.Value, r.RawText),
			"", "L", false)
		doc.Ln(1)
	}

	doc.Ln(4)
	doc.SetFont("Helvetica", "I", 8)
	doc.Cell(0, 4, "Generated offline from stored crawl data.")

	if doc.Err() {
		return nil, fmt.Errorf("render %s: %v", river.Slug, doc.Error())
	}
	return doc, nil
}

func heading(doc *fpdf.Fpdf, text string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 12)
	doc.Cell(0, 8, text)
	doc.Ln(8)
	doc.SetFont("Helvetica", "", 10)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
