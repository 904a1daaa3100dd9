package logging

import (
	"time"

	"go.uber.org/zap"
)

// CrawlLog emits the structured events the scraper records at well-defined
// points: every request attempt, robots denials, halts, parse warnings, and
// entity discovery. It owns the event vocabulary, not the output format.
type CrawlLog struct {
	logger *zap.Logger
}

// NewCrawlLog wraps a zap logger in the crawl event vocabulary.
func NewCrawlLog(logger *zap.Logger) *CrawlLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrawlLog{logger: logger}
}

// Logger exposes the underlying zap logger for free-form messages.
func (c *CrawlLog) Logger() *zap.Logger {
	return c.logger
}

// Request records one fetch attempt: cache hit, success, retry, or failure.
func (c *CrawlLog) Request(url string, status int, attempt int, delay time.Duration, cacheHit bool, err error) {
	fields := []zap.Field{
		zap.String("event", "http_request"),
		zap.String("url", url),
		zap.Int("status_code", status),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Bool("cache_hit", cacheHit),
	}
	if err != nil {
		c.logger.Warn("request failed", append(fields, zap.Error(err))...)
		return
	}
	if cacheHit {
		c.logger.Debug("cache hit", fields...)
		return
	}
	c.logger.Info("request", fields...)
}

// PolicyDenial records a URL blocked by robots.txt.
func (c *CrawlLog) PolicyDenial(url string) {
	c.logger.Warn("robots disallow",
		zap.String("event", "robots_disallow"),
		zap.String("url", url),
	)
}

// RobotsFallback records that robots.txt could not be loaded and the gate
// fell back to allow-all.
func (c *CrawlLog) RobotsFallback(robotsURL string, err error) {
	c.logger.Warn("robots fetch failed; allowing all",
		zap.String("event", "robots_fallback"),
		zap.String("url", robotsURL),
		zap.Error(err),
	)
}

// Halt records a fatal, run-terminating condition.
func (c *CrawlLog) Halt(reason string) {
	c.logger.Error("halt",
		zap.String("event", "halt"),
		zap.String("reason", reason),
	)
}

// ParseWarning records a structural mismatch that degraded a parse.
func (c *CrawlLog) ParseWarning(context, message string) {
	c.logger.Warn("parse warning",
		zap.String("event", "parse_warning"),
		zap.String("context", context),
		zap.String("message", message),
	)
}

// Discovery records an entity insert or update during a discovery phase.
func (c *CrawlLog) Discovery(entityType, name, action string) {
	c.logger.Info("discovery",
		zap.String("event", "discovery"),
		zap.String("entity_type", entityType),
		zap.String("name", name),
		zap.String("action", action),
	)
}

// Extraction records the result of one river detail extraction.
func (c *CrawlLog) Extraction(river string, flies, regulations, nullFields int) {
	c.logger.Info("extraction",
		zap.String("event", "extraction"),
		zap.String("river", river),
		zap.Int("flies", flies),
		zap.Int("regulations", regulations),
		zap.Int("null_fields", nullFields),
	)
}
