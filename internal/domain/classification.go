package domain

import "time"

// EventType is the mutual-exclusivity classification of an event. Only
// mutually exclusive events (exactly one outcome settles YES) are safe for
// structural arbitrage; treating an independent event as exclusive produces
// unbounded loss.
type EventType string

const (
	EventMutuallyExclusive EventType = "mutually_exclusive"
	EventIndependent       EventType = "independent"
	EventUnknown           EventType = "unknown"
)

// ClassificationSource records how a classification was derived.
type ClassificationSource string

const (
	// SourceMetadata means the exchange metadata carried an explicit
	// mutually_exclusive flag. The only source that yields confidence 1.0.
	SourceMetadata ClassificationSource = "api_metadata"
	// SourceCollateralType means the settlement scheme encoded a
	// mutually-exclusive, collateral-netted event.
	SourceCollateralType ClassificationSource = "collateral_type"
	// SourceKeyword means a title/category/ticker keyword matched.
	SourceKeyword ClassificationSource = "keyword_heuristic"
	// SourceNoMatch means nothing matched; the event stays Unknown.
	SourceNoMatch ClassificationSource = "no_match"
)

// EventClassification is the result of classifying one event.
type EventClassification struct {
	EventTicker  string
	Type         EventType
	Confidence   float64 // [0,1]; 1.0 iff SourceMetadata
	Source       ClassificationSource
	Keyword      string // matched keyword when Source is SourceKeyword
	Title        string
	Category     string
	ClassifiedAt time.Time
}

// SafeForArb reports whether the event may be treated as mutually exclusive
// at the given minimum confidence. Insufficient confidence excludes the
// event even when the label says mutually exclusive.
func (c EventClassification) SafeForArb(minConfidence float64) bool {
	return c.Type == EventMutuallyExclusive && c.Confidence >= minConfidence
}

// EventMetadata is the exchange's event record, consumed by the classifier.
type EventMetadata struct {
	EventTicker          string
	Title                string
	Category             string
	MutuallyExclusive    *bool // nil when the exchange omits the flag
	CollateralReturnType string
}
