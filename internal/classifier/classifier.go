// Package classifier determines whether an event's outcome markets are
// mutually exclusive. Only mutually exclusive events are safe inputs for
// structural arbitrage; a misclassified independent event turns a "risk-free"
// basket into unbounded loss, so the default posture everywhere is exclusion.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// MetadataFetcher retrieves event metadata from the exchange.
type MetadataFetcher interface {
	GetEvent(ctx context.Context, eventTicker string) (domain.EventMetadata, error)
}

// Config holds the classifier's tunable policy.
type Config struct {
	CacheTTL time.Duration
	// MinConfidence is the floor applied by FilterMutuallyExclusive. Labels
	// below it are excluded even when they say mutually exclusive.
	MinConfidence float64
	// DisqualifyConfidence / QualifyConfidence are the keyword-heuristic
	// confidences. Hand-chosen policy, kept configurable.
	DisqualifyConfidence float64
	QualifyConfidence    float64
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:             time.Hour,
		MinConfidence:        0.8,
		DisqualifyConfidence: 0.6,
		QualifyConfidence:    0.5,
	}
}

// Qualifying terms suggest a pick-one event (nominee races, championships).
// Disqualifying terms suggest independent outcomes (counts, thresholds,
// economic prints) and are checked FIRST: rejecting a safe event costs an
// opportunity, accepting an unsafe one costs the book.
var (
	qualifyingKeywords = []string{
		"nominee", "winner", "next pope", "president elect",
		"first to", "who will win", "who will be",
		"champion", "governor", "senator", "mayor",
		"super bowl", "world series", "nba finals",
	}
	disqualifyingKeywords = []string{
		"pardon", "cabinet", "rate", "price", "by ", "by?",
		"approval", "poll", "gdp", "inflation", "unemployment",
		"temperature", "rain", "weather", "how many", "total",
		"combined", "cumulative", "schedule", "rescheduled",
	}
)

// Classifier resolves event mutual-exclusivity with a three-step ladder:
// authoritative metadata flag, collateral-type inference, keyword heuristic.
// Results are cached by event ticker through the injected cache.
type Classifier struct {
	meta   MetadataFetcher
	cache  domain.ClassificationCache
	cfg    Config
	logger *slog.Logger
}

// New creates a Classifier. The cache is required; use NewMemoryCache for
// deployments without Redis.
func New(meta MetadataFetcher, cache domain.ClassificationCache, cfg Config, logger *slog.Logger) *Classifier {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Classifier{
		meta:   meta,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "classifier")),
	}
}

// Classify returns the event's classification, consulting the cache first.
// A metadata fetch failure degrades to the keyword heuristic over the ticker
// alone rather than failing the caller: classification uncertainty is an
// exclusion signal downstream, not an abort.
func (c *Classifier) Classify(ctx context.Context, eventTicker string) (domain.EventClassification, error) {
	if cached, err := c.cache.Get(ctx, eventTicker); err == nil {
		return cached, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		c.logger.WarnContext(ctx, "classification cache read failed",
			slog.String("event", eventTicker),
			slog.String("error", err.Error()),
		)
	}

	var result domain.EventClassification
	meta, err := c.meta.GetEvent(ctx, eventTicker)
	if err != nil {
		c.logger.WarnContext(ctx, "event metadata fetch failed, falling back to keywords",
			slog.String("event", eventTicker),
			slog.String("error", err.Error()),
		)
		result = c.classifyByKeywords(eventTicker, "", "")
	} else if fromMeta, ok := classifyByMetadata(meta); ok {
		result = fromMeta
	} else {
		result = c.classifyByKeywords(eventTicker, meta.Title, meta.Category)
	}
	result.ClassifiedAt = time.Now().UTC()

	if err := c.cache.Set(ctx, result); err != nil {
		c.logger.WarnContext(ctx, "classification cache write failed",
			slog.String("event", eventTicker),
			slog.String("error", err.Error()),
		)
	}
	return result, nil
}

// classifyByMetadata applies the two metadata signals. The explicit flag is
// authoritative in BOTH directions: mutually_exclusive=false is a confident
// Independent, which must override any keyword match.
func classifyByMetadata(meta domain.EventMetadata) (domain.EventClassification, bool) {
	if meta.MutuallyExclusive != nil {
		eventType := domain.EventIndependent
		if *meta.MutuallyExclusive {
			eventType = domain.EventMutuallyExclusive
		}
		return domain.EventClassification{
			EventTicker: meta.EventTicker,
			Type:        eventType,
			Confidence:  1.0,
			Source:      domain.SourceMetadata,
			Title:       meta.Title,
			Category:    meta.Category,
		}, true
	}

	// MEC* collateral return types encode "mutually exclusive, collateral
	// netted" settlement.
	if strings.Contains(strings.ToUpper(meta.CollateralReturnType), "MEC") {
		return domain.EventClassification{
			EventTicker: meta.EventTicker,
			Type:        domain.EventMutuallyExclusive,
			Confidence:  0.9,
			Source:      domain.SourceCollateralType,
			Title:       meta.Title,
			Category:    meta.Category,
		}, true
	}

	return domain.EventClassification{}, false
}

func (c *Classifier) classifyByKeywords(eventTicker, title, category string) domain.EventClassification {
	text := strings.ToLower(fmt.Sprintf("%s %s %s", eventTicker, title, category))

	for _, kw := range disqualifyingKeywords {
		if strings.Contains(text, kw) {
			return domain.EventClassification{
				EventTicker: eventTicker,
				Type:        domain.EventIndependent,
				Confidence:  c.cfg.DisqualifyConfidence,
				Source:      domain.SourceKeyword,
				Keyword:     kw,
				Title:       title,
				Category:    category,
			}
		}
	}
	for _, kw := range qualifyingKeywords {
		if strings.Contains(text, kw) {
			return domain.EventClassification{
				EventTicker: eventTicker,
				Type:        domain.EventMutuallyExclusive,
				Confidence:  c.cfg.QualifyConfidence,
				Source:      domain.SourceKeyword,
				Keyword:     kw,
				Title:       title,
				Category:    category,
			}
		}
	}

	return domain.EventClassification{
		EventTicker: eventTicker,
		Type:        domain.EventUnknown,
		Confidence:  0,
		Source:      domain.SourceNoMatch,
		Title:       title,
		Category:    category,
	}
}

// FilterMutuallyExclusive partitions events into those safe for structural
// arbitrage and those excluded, with a reason per exclusion. Anything below
// the configured minimum confidence is excluded regardless of label.
func (c *Classifier) FilterMutuallyExclusive(ctx context.Context, eventTickers []string) (safe []string, excluded map[string]string, err error) {
	excluded = make(map[string]string)
	for _, ticker := range eventTickers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cls, err := c.Classify(ctx, ticker)
		if err != nil {
			return nil, nil, fmt.Errorf("classifier: classify %s: %w", ticker, err)
		}
		if cls.SafeForArb(c.cfg.MinConfidence) {
			safe = append(safe, ticker)
			c.logger.InfoContext(ctx, "event safe for structural arb",
				slog.String("event", ticker),
				slog.String("source", string(cls.Source)),
				slog.Float64("confidence", cls.Confidence),
			)
			continue
		}
		reason := fmt.Sprintf("%s (%s, conf=%.2f)", cls.Type, cls.Source, cls.Confidence)
		excluded[ticker] = reason
		c.logger.InfoContext(ctx, "event excluded",
			slog.String("event", ticker),
			slog.String("reason", reason),
		)
	}
	return safe, excluded, nil
}
