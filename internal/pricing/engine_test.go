package pricing

import (
	"testing"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func levels(pairs ...[2]int64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(pairs))
	for i, p := range pairs {
		out[i] = domain.PriceLevel{Price: p[0], Quantity: p[1]}
	}
	return out
}

func TestExtractImpliedAsks(t *testing.T) {
	book := domain.RawOrderbook{
		Ticker:  "KXFEDCHAIRNOM-29-ABC",
		YesBids: levels([2]int64{40, 100}, [2]int64{42, 50}, [2]int64{44, 75}, [2]int64{45, 200}),
		NoBids:  levels([2]int64{48, 100}, [2]int64{50, 75}, [2]int64{52, 150}),
	}

	p := Extract(book)
	if p == nil {
		t.Fatalf("expected pricing, got nil")
	}
	if *p.BestYesBid != 45 {
		t.Fatalf("best yes bid = %d, want 45", *p.BestYesBid)
	}
	if *p.BestNoBid != 52 {
		t.Fatalf("best no bid = %d, want 52", *p.BestNoBid)
	}
	if *p.BestYesAsk != 48 || !p.YesAskImplied {
		t.Fatalf("yes ask = %d (implied=%v), want implied 48", *p.BestYesAsk, p.YesAskImplied)
	}
	if *p.BestNoAsk != 55 || !p.NoAskImplied {
		t.Fatalf("no ask = %d (implied=%v), want implied 55", *p.BestNoAsk, p.NoAskImplied)
	}
	if *p.YesSpread != 3 {
		t.Fatalf("yes spread = %d, want 3", *p.YesSpread)
	}
	if p.YesBidDepth != 425 || p.NoBidDepth != 325 {
		t.Fatalf("depth = %d/%d, want 425/325", p.YesBidDepth, p.NoBidDepth)
	}
}

func TestExtractImpliedAskInvariant(t *testing.T) {
	books := []domain.RawOrderbook{
		{YesBids: levels([2]int64{10, 1}), NoBids: levels([2]int64{85, 1})},
		{YesBids: levels([2]int64{1, 5}, [2]int64{99, 5}), NoBids: levels([2]int64{1, 5})},
		{YesBids: levels([2]int64{50, 10}), NoBids: levels([2]int64{50, 10})},
	}
	for _, book := range books {
		p := Extract(book)
		if got := *p.BestYesAsk + *p.BestNoBid; got != 100 {
			t.Fatalf("yes_ask + no_bid = %d, want 100", got)
		}
		if got := *p.BestNoAsk + *p.BestYesBid; got != 100 {
			t.Fatalf("no_ask + yes_bid = %d, want 100", got)
		}
	}
}

func TestExtractRealAsksTakePrecedence(t *testing.T) {
	book := domain.RawOrderbook{
		YesBids: levels([2]int64{45, 10}),
		NoBids:  levels([2]int64{52, 10}),
		YesAsks: levels([2]int64{47, 5}, [2]int64{49, 5}),
	}
	p := Extract(book)
	if *p.BestYesAsk != 47 || p.YesAskImplied {
		t.Fatalf("yes ask = %d (implied=%v), want real 47", *p.BestYesAsk, p.YesAskImplied)
	}
	if *p.YesSpread != 2 {
		t.Fatalf("yes spread = %d, want 2", *p.YesSpread)
	}
	// NO side still falls back to the implied rule.
	if *p.BestNoAsk != 55 || !p.NoAskImplied {
		t.Fatalf("no ask = %d (implied=%v), want implied 55", *p.BestNoAsk, p.NoAskImplied)
	}
}

func TestExtractOneSidedBook(t *testing.T) {
	book := domain.RawOrderbook{
		YesBids: levels([2]int64{30, 20}, [2]int64{35, 10}),
	}
	p := Extract(book)
	if p == nil {
		t.Fatalf("one-sided book should still produce partial pricing")
	}
	if *p.BestYesBid != 35 {
		t.Fatalf("best yes bid = %d, want 35", *p.BestYesBid)
	}
	if p.BestNoBid != nil {
		t.Fatalf("no-side bid should be nil, got %d", *p.BestNoBid)
	}
	// No NO bid means no implied YES ask, hence no YES spread either.
	if p.BestYesAsk != nil || p.YesSpread != nil {
		t.Fatalf("yes ask/spread should be nil without an opposing bid")
	}
	if *p.BestNoAsk != 65 {
		t.Fatalf("implied no ask = %d, want 65", *p.BestNoAsk)
	}
	if p.TwoSided() {
		t.Fatalf("one-sided book must not report two-sided pricing")
	}
}

func TestExtractEmptyBook(t *testing.T) {
	if p := Extract(domain.RawOrderbook{}); p != nil {
		t.Fatalf("empty book should yield nil pricing, got %+v", p)
	}
}

func TestBestBidIsLastElement(t *testing.T) {
	book := domain.RawOrderbook{
		YesBids: levels([2]int64{1, 1}, [2]int64{2, 1}, [2]int64{3, 1}, [2]int64{97, 1}),
		NoBids:  levels([2]int64{2, 1}),
	}
	p := Extract(book)
	if *p.BestYesBid != 97 {
		t.Fatalf("best bid must be the last (highest) level, got %d", *p.BestYesBid)
	}
}

func TestDepthNearBest(t *testing.T) {
	bids := levels([2]int64{40, 100}, [2]int64{42, 50}, [2]int64{44, 75}, [2]int64{45, 200})
	if got := DepthNearBest(bids, 3); got != 325 {
		t.Fatalf("depth within 3c = %d, want 325", got)
	}
	if got := DepthNearBest(bids, 0); got != 200 {
		t.Fatalf("depth at best = %d, want 200", got)
	}
	if got := DepthNearBest(nil, 5); got != 0 {
		t.Fatalf("empty side depth = %d, want 0", got)
	}
}

func TestVWAP(t *testing.T) {
	bids := levels([2]int64{40, 100}, [2]int64{42, 50}, [2]int64{45, 200})
	got, ok := VWAP(bids, 2)
	if !ok {
		t.Fatalf("expected vwap")
	}
	want := float64(45*200+42*50) / 250
	if got != want {
		t.Fatalf("vwap = %v, want %v", got, want)
	}
	if _, ok := VWAP(nil, 5); ok {
		t.Fatalf("vwap of empty side should report false")
	}
}
