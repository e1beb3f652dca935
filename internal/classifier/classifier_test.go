package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

type fakeMeta struct {
	events map[string]domain.EventMetadata
	calls  int
}

func (f *fakeMeta) GetEvent(_ context.Context, ticker string) (domain.EventMetadata, error) {
	f.calls++
	meta, ok := f.events[ticker]
	if !ok {
		return domain.EventMetadata{}, errors.New("http 404")
	}
	return meta, nil
}

func boolPtr(b bool) *bool { return &b }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClassifier(meta *fakeMeta) *Classifier {
	return New(meta, NewMemoryCache(time.Hour), DefaultConfig(), discard())
}

func TestClassifyAuthoritativeFlag(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXNEWPOPE-70": {
			EventTicker:       "KXNEWPOPE-70",
			Title:             "Who will be the next Pope?",
			MutuallyExclusive: boolPtr(true),
		},
		// The flag is authoritative in both directions: false beats any
		// qualifying keyword in the title.
		"KXPARDONS-29": {
			EventTicker:       "KXPARDONS-29",
			Title:             "Which nominee wins the winner's pardon?",
			MutuallyExclusive: boolPtr(false),
		},
	}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXNEWPOPE-70")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventMutuallyExclusive || got.Confidence != 1.0 || got.Source != domain.SourceMetadata {
		t.Fatalf("got %+v, want mutually_exclusive conf=1.0 from metadata", got)
	}

	got, err = c.Classify(context.Background(), "KXPARDONS-29")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventIndependent || got.Confidence != 1.0 {
		t.Fatalf("got %+v, want independent conf=1.0 despite keyword match", got)
	}
}

func TestClassifyCollateralType(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXSB-26": {EventTicker: "KXSB-26", CollateralReturnType: "mecnet"},
	}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXSB-26")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventMutuallyExclusive || got.Confidence != 0.9 || got.Source != domain.SourceCollateralType {
		t.Fatalf("got %+v, want mutually_exclusive conf=0.9 from collateral type", got)
	}
}

func TestClassifyKeywordDisqualifyWins(t *testing.T) {
	// Title contains both "winner" (qualify) and "how many" (disqualify);
	// disqualification must be checked first.
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXGAMES-26": {EventTicker: "KXGAMES-26", Title: "How many games will the winner take?"},
	}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXGAMES-26")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventIndependent || got.Source != domain.SourceKeyword {
		t.Fatalf("got %+v, want independent via disqualifying keyword", got)
	}
	if got.Keyword != "how many" {
		t.Fatalf("matched keyword = %q, want %q", got.Keyword, "how many")
	}
}

func TestClassifyKeywordQualify(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXNBA-26": {EventTicker: "KXNBA-26", Title: "NBA Finals Champion"},
	}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXNBA-26")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventMutuallyExclusive || got.Confidence != 0.5 {
		t.Fatalf("got %+v, want mutually_exclusive conf=0.5", got)
	}
}

func TestClassifyNoMatchIsUnknown(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXZZZ-1": {EventTicker: "KXZZZ-1", Title: "An event with opaque wording"},
	}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXZZZ-1")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Type != domain.EventUnknown || got.Confidence != 0 || got.Source != domain.SourceNoMatch {
		t.Fatalf("got %+v, want unknown conf=0 no_match", got)
	}
}

func TestClassifyMetadataFetchFailureFallsBack(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{}}
	c := newTestClassifier(meta)

	got, err := c.Classify(context.Background(), "KXWEATHER-NYC")
	if err != nil {
		t.Fatalf("classify must not fail on a metadata fetch error: %v", err)
	}
	if got.Type != domain.EventIndependent || got.Keyword != "weather" {
		t.Fatalf("got %+v, want keyword fallback over ticker text", got)
	}
}

func TestClassifyUsesCache(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"KXNEWPOPE-70": {EventTicker: "KXNEWPOPE-70", MutuallyExclusive: boolPtr(true)},
	}}
	c := newTestClassifier(meta)

	for i := 0; i < 3; i++ {
		if _, err := c.Classify(context.Background(), "KXNEWPOPE-70"); err != nil {
			t.Fatalf("classify: %v", err)
		}
	}
	if meta.calls != 1 {
		t.Fatalf("metadata fetched %d times, want 1 (cache hit)", meta.calls)
	}
}

func TestFilterRejectsLowConfidence(t *testing.T) {
	meta := &fakeMeta{events: map[string]domain.EventMetadata{
		"SAFE-1": {EventTicker: "SAFE-1", MutuallyExclusive: boolPtr(true)},
		// Mutually exclusive label at keyword confidence 0.5 — below the 0.8
		// floor, so it must be excluded.
		"MAYBE-1": {EventTicker: "MAYBE-1", Title: "World Series"},
		"INDEP-1": {EventTicker: "INDEP-1", MutuallyExclusive: boolPtr(false)},
	}}
	c := newTestClassifier(meta)

	safe, excluded, err := c.FilterMutuallyExclusive(context.Background(), []string{"SAFE-1", "MAYBE-1", "INDEP-1"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(safe) != 1 || safe[0] != "SAFE-1" {
		t.Fatalf("safe = %v, want [SAFE-1]", safe)
	}
	if _, ok := excluded["MAYBE-1"]; !ok {
		t.Fatalf("low-confidence ME event must be excluded, got %v", excluded)
	}
	if _, ok := excluded["INDEP-1"]; !ok {
		t.Fatalf("independent event must be excluded, got %v", excluded)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	cls := domain.EventClassification{EventTicker: "E1", Type: domain.EventMutuallyExclusive}
	if err := cache.Set(context.Background(), cls); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := cache.Get(context.Background(), "E1"); err != nil {
		t.Fatalf("fresh entry should hit: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(context.Background(), "E1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired entry should miss with ErrNotFound, got %v", err)
	}
}
