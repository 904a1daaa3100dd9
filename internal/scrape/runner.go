// Package scrape sequences the crawl: region discovery, river discovery,
// then per-river detail extraction. The runner owns no policy of its own.
// Per-resource failures (robots denial, 4xx, unparseable page) are logged
// and skipped; a halt from the fetcher terminates the run.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nzflyfish/riverscout/internal/config"
	"github.com/nzflyfish/riverscout/internal/fetch"
	"github.com/nzflyfish/riverscout/internal/hash/sha256"
	"github.com/nzflyfish/riverscout/internal/id/uuid"
	"github.com/nzflyfish/riverscout/internal/logging"
	"github.com/nzflyfish/riverscout/internal/parse"
	"github.com/nzflyfish/riverscout/internal/store"
)

// Options select the phases and scope of one run.
type Options struct {
	Regions bool
	Rivers  bool
	Details bool
	// RegionSlug restricts the river and detail phases to one region.
	RegionSlug string
	// ForceRefresh bypasses the HTTP cache and the per-river staleness
	// filter.
	ForceRefresh bool
}

// Summary counts what one run discovered and stored.
type Summary struct {
	Regions     int
	Rivers      int
	Flies       int
	Regulations int
	Skipped     int
}

// Runner drives the crawl pipeline. One runner runs one session; the session
// id scopes the change-detection metadata it records.
type Runner struct {
	cfg       config.Config
	fetcher   *fetch.Fetcher
	parser    *parse.Parser
	store     *store.Store
	log       *logging.CrawlLog
	clock     fetch.Clock
	hasher    *sha256.Hasher
	sessionID string
}

// New builds a runner with a fresh session id.
func New(cfg config.Config, fetcher *fetch.Fetcher, parser *parse.Parser, st *store.Store,
	log *logging.CrawlLog, clock fetch.Clock) *Runner {
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		parser:    parser,
		store:     st,
		log:       log,
		clock:     clock,
		hasher:    sha256.New(),
		sessionID: uuid.NewGenerator().NewSessionID(),
	}
}

// SessionID returns this run's crawl session identifier.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Run executes the selected phases in order. It returns a *fetch.HaltError
// when the origin stops being scrapable; every other per-resource failure is
// logged and skipped.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary

	if err := r.fetcher.LoadRobots(ctx); err != nil {
		return sum, err
	}

	if opts.Regions {
		if err := r.discoverRegions(ctx, opts, &sum); err != nil {
			return sum, err
		}
	}
	if opts.Rivers {
		if err := r.discoverRivers(ctx, opts, &sum); err != nil {
			return sum, err
		}
	}
	if opts.Details {
		if err := r.extractDetails(ctx, opts, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (r *Runner) discoverRegions(ctx context.Context, opts Options, sum *Summary) error {
	indexURL := strings.TrimRight(r.cfg.BaseURL, "/") + r.cfg.Discovery.IndexPath

	body, err := r.fetchPage(ctx, indexURL, opts)
	if err != nil {
		return err
	}
	if body == nil {
		sum.Skipped++
		return nil
	}

	res, perr := r.parser.ParseIndex(body, indexURL)
	if perr != nil {
		r.log.ParseWarning(indexURL, perr.Error())
		sum.Skipped++
		return nil
	}
	r.logWarnings(indexURL, res.Warnings)

	now := store.Timestamp(r.clock.Now())
	for _, candidate := range res.Regions {
		action, err := r.storedAction(ctx, r.store.RegionIDByURL, candidate.CanonicalURL)
		if err != nil {
			return err
		}
		id, err := r.store.UpsertRegion(ctx, store.Region{
			Name:           candidate.Name,
			Slug:           candidate.Slug,
			CanonicalURL:   candidate.CanonicalURL,
			SourceURL:      store.NullString(indexURL),
			Description:    store.NullString(candidate.Description),
			CrawlTimestamp: store.NullString(now),
		})
		if err != nil {
			return err
		}
		if _, err := r.store.InsertMetadata(ctx, store.CrawlMetadata{
			SessionID:      r.sessionID,
			EntityType:     "region",
			EntityID:       id,
			RawContentHash: store.NullString(r.hasher.Hash(body)),
			CrawlTimestamp: now,
		}); err != nil {
			return err
		}
		r.log.Discovery("region", candidate.Name, action)
		sum.Regions++
	}
	return nil
}

func (r *Runner) discoverRivers(ctx context.Context, opts Options, sum *Summary) error {
	regions, err := r.regionsInScope(ctx, opts)
	if err != nil {
		return err
	}

	for _, region := range regions {
		body, err := r.fetchPage(ctx, region.CanonicalURL, opts)
		if err != nil {
			return err
		}
		if body == nil {
			sum.Skipped++
			continue
		}

		res, perr := r.parser.ParseRegion(body, region.CanonicalURL)
		if perr != nil {
			r.log.ParseWarning(region.CanonicalURL, perr.Error())
			sum.Skipped++
			continue
		}
		// Some regions list their waters inline in prose instead of a
		// dedicated waters block.
		if len(res.Rivers) == 0 {
			res, perr = r.parser.ParseRegionalPage(body, region.CanonicalURL, region.Name)
			if perr != nil {
				r.log.ParseWarning(region.CanonicalURL, perr.Error())
				sum.Skipped++
				continue
			}
		}
		r.logWarnings(region.CanonicalURL, res.Warnings)

		// The region page itself is the raw snapshot backing this
		// discovery.
		now := store.Timestamp(r.clock.Now())
		if _, err := r.store.UpsertRegion(ctx, store.Region{
			Name:           region.Name,
			Slug:           region.Slug,
			CanonicalURL:   region.CanonicalURL,
			SourceURL:      region.SourceURL,
			RawHTML:        store.NullString(string(body)),
			Description:    region.Description,
			CrawlTimestamp: store.NullString(now),
		}); err != nil {
			return err
		}

		for _, candidate := range res.Rivers {
			if err := r.storeRiver(ctx, region.ID, candidate, now, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) storeRiver(ctx context.Context, regionID int64, candidate parse.RiverCandidate,
	now string, sum *Summary) error {
	action, err := r.storedAction(ctx, r.store.RiverIDByURL, candidate.CanonicalURL)
	if err != nil {
		return err
	}
	riverID, err := r.store.UpsertRiver(ctx, store.River{
		RegionID:     regionID,
		Name:         candidate.Name,
		Slug:         candidate.Slug,
		CanonicalURL: candidate.CanonicalURL,
	})
	if err != nil {
		return err
	}
	for _, section := range candidate.Sections {
		if _, err := r.store.UpsertSection(ctx, store.Section{
			RiverID:        riverID,
			Name:           section.Name,
			Slug:           section.Slug,
			CrawlTimestamp: store.NullString(now),
		}); err != nil {
			return err
		}
	}
	r.log.Discovery("river", candidate.Name, action)
	sum.Rivers++
	return nil
}

func (r *Runner) extractDetails(ctx context.Context, opts Options, sum *Summary) error {
	rivers, err := r.riversInScope(ctx, opts)
	if err != nil {
		return err
	}

	for _, river := range rivers {
		body, err := r.fetchPage(ctx, river.CanonicalURL, opts)
		if err != nil {
			return err
		}
		if body == nil {
			sum.Skipped++
			continue
		}

		res, perr := r.parser.ParseDetail(body)
		if perr != nil {
			r.log.ParseWarning(river.CanonicalURL, perr.Error())
			sum.Skipped++
			continue
		}
		r.logWarnings(river.CanonicalURL, res.Warnings)

		now := store.Timestamp(r.clock.Now())

		for _, fly := range res.Flies {
			if _, err := r.store.UpsertFly(ctx, store.Fly{
				RiverID:        river.ID,
				Name:           fly.Name,
				RawText:        fly.RawText,
				Category:       store.NullStringPtr(fly.Category),
				Size:           store.NullStringPtr(fly.Size),
				Color:          store.NullStringPtr(fly.Color),
				CrawlTimestamp: now,
			}); err != nil {
				return err
			}
			sum.Flies++
		}
		for _, reg := range res.Regulations {
			if _, err := r.store.UpsertRegulation(ctx, store.Regulation{
				RiverID:        river.ID,
				Type:           reg.Type,
				Value:          reg.Value,
				RawText:        reg.RawText,
				CrawlTimestamp: now,
			}); err != nil {
				return err
			}
			sum.Regulations++
		}

		var description string
		if res.FishType != nil {
			description = *res.FishType
		}
		if _, err := r.store.UpsertRiver(ctx, store.River{
			RegionID:       river.RegionID,
			Name:           river.Name,
			Slug:           river.Slug,
			CanonicalURL:   river.CanonicalURL,
			RawHTML:        store.NullString(string(body)),
			Description:    store.NullString(description),
			CrawlTimestamp: store.NullString(now),
		}); err != nil {
			return err
		}

		if err := r.recordDetailMetadata(ctx, river.ID, body, res, now); err != nil {
			return err
		}
		r.log.Extraction(river.Name, len(res.Flies), len(res.Regulations), res.NullFieldCount())
	}
	return nil
}

func (r *Runner) recordDetailMetadata(ctx context.Context, riverID int64, body []byte,
	res parse.DetailResult, now string) error {
	parsed, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("hash parsed detail: %w", err)
	}
	_, err = r.store.InsertMetadata(ctx, store.CrawlMetadata{
		SessionID:      r.sessionID,
		EntityType:     "river",
		EntityID:       riverID,
		RawContentHash: store.NullString(r.hasher.Hash(body)),
		ParsedHash:     store.NullString(r.hasher.Hash(parsed)),
		CrawlTimestamp: now,
	})
	return err
}

// fetchPage fetches one URL, translating recoverable failures into a nil
// body. Halts and context cancellation propagate.
func (r *Runner) fetchPage(ctx context.Context, url string, opts Options) ([]byte, error) {
	body, err := r.fetcher.Fetch(ctx, url, fetch.Options{
		UseCache:     true,
		ForceRefresh: opts.ForceRefresh,
	})
	if err == nil {
		return body, nil
	}
	if recoverable(err) {
		r.log.Logger().Warn("skipping " + url + ": " + err.Error())
		return nil, nil
	}
	return nil, err
}

func (r *Runner) regionsInScope(ctx context.Context, opts Options) ([]store.Region, error) {
	if opts.RegionSlug != "" {
		region, err := r.store.RegionBySlug(ctx, opts.RegionSlug)
		if err != nil {
			return nil, err
		}
		return []store.Region{region}, nil
	}
	return r.store.Regions(ctx)
}

func (r *Runner) riversInScope(ctx context.Context, opts Options) ([]store.River, error) {
	if opts.RegionSlug != "" {
		region, err := r.store.RegionBySlug(ctx, opts.RegionSlug)
		if err != nil {
			return nil, err
		}
		return r.store.RiversByRegion(ctx, region.ID)
	}
	if opts.ForceRefresh {
		return r.store.Rivers(ctx)
	}
	cutoff := store.Timestamp(r.clock.Now().Add(-r.cfg.CacheTTL()))
	return r.store.RiversCrawledBefore(ctx, cutoff)
}

func (r *Runner) storedAction(ctx context.Context,
	lookup func(context.Context, string) (int64, bool, error), url string) (string, error) {
	_, exists, err := lookup(ctx, url)
	if err != nil {
		return "", err
	}
	if exists {
		return "UPDATE", nil
	}
	return "INSERT", nil
}

func (r *Runner) logWarnings(context string, warnings []string) {
	for _, w := range warnings {
		r.log.ParseWarning(context, w)
	}
}

func recoverable(err error) bool {
	var policyDenied *fetch.PolicyDeniedError
	var fetchFailed *fetch.FetchFailedError
	var parseErr *parse.ParseError
	return errors.As(err, &policyDenied) ||
		errors.As(err, &fetchFailed) ||
		errors.As(err, &parseErr)
}
