package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"

	"github.com/nzflyfish/riverscout/internal/logging"
)

// RobotsGate loads the origin's robots.txt once and answers per-URL
// allow/deny queries for the scraper's advertised user-agent. When the
// policy document itself cannot be fetched, the gate falls back to
// allow-all and the fallback is logged.
type RobotsGate struct {
	client    *http.Client
	baseURL   *url.URL
	userAgent string
	log       *logging.CrawlLog

	group    *robotstxt.Group
	fellBack bool
}

// NewRobotsGate builds an unloaded gate. Call Load before the first query.
func NewRobotsGate(client *http.Client, baseURL *url.URL, userAgent string, log *logging.CrawlLog) *RobotsGate {
	return &RobotsGate{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		log:       log,
	}
}

// Load fetches and parses robots.txt. It may be called again to re-fetch.
// An unreachable policy document is not an error: the gate falls back to
// allow-all and logs that the fallback occurred.
func (g *RobotsGate) Load(ctx context.Context) error {
	robotsURL := *g.baseURL
	robotsURL.Path = "/robots.txt"
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	data, err := g.fetchPolicy(ctx, robotsURL.String())
	if err != nil {
		g.group = nil
		g.fellBack = true
		g.log.RobotsFallback(robotsURL.String(), err)
		return nil
	}

	g.group = data.FindGroup(g.userAgent)
	g.fellBack = false
	g.log.Logger().Info("loaded robots.txt")
	return nil
}

func (g *RobotsGate) fetchPolicy(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

// IsAllowed is a pure query against the loaded policy. An unloaded or
// fallen-back gate allows everything.
func (g *RobotsGate) IsAllowed(rawURL string) bool {
	if g.group == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return g.group.Test(path)
}

// FellBack reports whether the last Load used the allow-all fallback.
func (g *RobotsGate) FellBack() bool {
	return g.fellBack
}
