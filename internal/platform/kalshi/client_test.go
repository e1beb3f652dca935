package kalshi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func testSigner(t *testing.T) *RSASigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := NewRSASigner("key-id-1", pemBytes)
	if err != nil {
		t.Fatalf("NewRSASigner: %v", err)
	}
	return signer
}

func TestSignedRequestHeaders(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"markets":[],"cursor":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	if _, _, err := c.ListOpenMarkets(context.Background(), 10, ""); err != nil {
		t.Fatalf("ListOpenMarkets: %v", err)
	}

	if gotHeaders.Get("KALSHI-ACCESS-KEY") != "key-id-1" {
		t.Fatalf("KALSHI-ACCESS-KEY = %q", gotHeaders.Get("KALSHI-ACCESS-KEY"))
	}
	if gotHeaders.Get("KALSHI-ACCESS-SIGNATURE") == "" {
		t.Fatal("KALSHI-ACCESS-SIGNATURE missing")
	}
	if gotHeaders.Get("KALSHI-ACCESS-TIMESTAMP") == "" {
		t.Fatal("KALSHI-ACCESS-TIMESTAMP missing")
	}
}

func TestGetOrderbookWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderbook":{"yes":[[40,100],[45,50]],"no":[[50,200]]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	book, err := c.GetOrderbook(context.Background(), "KXTEST-A")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if book.Ticker != "KXTEST-A" {
		t.Fatalf("Ticker = %q", book.Ticker)
	}
	if len(book.YesBids) != 2 || book.YesBids[1].Price != 45 || book.YesBids[1].Quantity != 50 {
		t.Fatalf("YesBids = %+v", book.YesBids)
	}
	if len(book.NoBids) != 1 || book.NoBids[0].Price != 50 {
		t.Fatalf("NoBids = %+v", book.NoBids)
	}
}

func TestGetOrderbookBareResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"yes":[[30,10]],"no":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	book, err := c.GetOrderbook(context.Background(), "KXTEST-B")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if len(book.YesBids) != 1 || book.YesBids[0].Price != 30 {
		t.Fatalf("YesBids = %+v", book.YesBids)
	}
}

func TestGetEventMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/KXFED-26" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"event":{"event_ticker":"KXFED-26","title":"Fed chair","mutually_exclusive":true,"collateral_return_type":"MEC"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	meta, err := c.GetEvent(context.Background(), "KXFED-26")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if meta.MutuallyExclusive == nil || !*meta.MutuallyExclusive {
		t.Fatalf("MutuallyExclusive = %v", meta.MutuallyExclusive)
	}
	if meta.CollateralReturnType != "MEC" {
		t.Fatalf("CollateralReturnType = %q", meta.CollateralReturnType)
	}
}

// An omitted mutually_exclusive flag must decode to nil, never to false.
func TestGetEventOmittedFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"event":{"event_ticker":"OLD-EV","title":"Legacy event"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	meta, err := c.GetEvent(context.Background(), "OLD-EV")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if meta.MutuallyExclusive != nil {
		t.Fatalf("MutuallyExclusive = %v, want nil", *meta.MutuallyExclusive)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusBadRequest, domain.ErrInvalidOrder},
	}
	for _, tc := range cases {
		err := checkStatus(tc.code, []byte(`{"code":"x","message":"y"}`))
		if !errors.Is(err, tc.want) {
			t.Fatalf("checkStatus(%d) = %v, want %v", tc.code, err, tc.want)
		}
	}
	if err := checkStatus(http.StatusOK, nil); err != nil {
		t.Fatalf("checkStatus(200) = %v", err)
	}
}

func TestToOrderStateAverageFillPrice(t *testing.T) {
	// An executed limit order can fill better than its limit; the state must
	// carry the average fill price, not echo the submitted price.
	state := toOrderState(Order{
		OrderID:       "ord-1",
		Status:        orderStatusExecuted,
		YesPrice:      50,
		Count:         2,
		FillCount:     2,
		TakerFillCost: 96,
	})
	if state.FillPrice == nil || *state.FillPrice != 48 {
		t.Fatalf("FillPrice = %v, want 48", state.FillPrice)
	}
	if state.FillCount != 2 {
		t.Fatalf("FillCount = %d, want 2", state.FillCount)
	}

	// Older order records without fill cost fall back to the limit price.
	state = toOrderState(Order{OrderID: "ord-2", Status: orderStatusExecuted, YesPrice: 50, Count: 1})
	if state.FillPrice == nil || *state.FillPrice != 50 {
		t.Fatalf("fallback FillPrice = %v, want 50", state.FillPrice)
	}
	if state.FillCount != 1 {
		t.Fatalf("fallback FillCount = %d, want 1", state.FillCount)
	}
}

func TestToOrderStatus(t *testing.T) {
	cases := []struct {
		order Order
		want  domain.OrderStatus
	}{
		{Order{Status: orderStatusExecuted}, domain.OrderStatusFilled},
		{Order{Status: orderStatusCanceled}, domain.OrderStatusCancelled},
		{Order{Status: orderStatusResting}, domain.OrderStatusSubmitted},
		{Order{Status: orderStatusResting, FillCount: 3, RemainingCount: 7}, domain.OrderStatusPartial},
		{Order{Status: orderStatusPending}, domain.OrderStatusSubmitted},
	}
	for _, tc := range cases {
		if got := toOrderStatus(tc.order); got != tc.want {
			t.Fatalf("toOrderStatus(%s fill=%d) = %s, want %s",
				tc.order.Status, tc.order.FillCount, got, tc.want)
		}
	}
}

// fakeRateLimiter denies the first deny calls and admits the rest.
type fakeRateLimiter struct {
	calls int
	deny  int
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.calls > f.deny, nil
}

func TestRequestsWaitForRateLimiter(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"markets":[],"cursor":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	limiter := &fakeRateLimiter{deny: 2}
	c.SetRateLimiter(limiter)

	if _, _, err := c.ListOpenMarkets(context.Background(), 10, ""); err != nil {
		t.Fatalf("ListOpenMarkets: %v", err)
	}
	if limiter.calls != 3 {
		t.Fatalf("limiter calls = %d, want 3", limiter.calls)
	}
	if hits != 1 {
		t.Fatalf("server hits = %d, want 1", hits)
	}
}

func TestRateLimitWaitStopsOnContextCancel(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"markets":[],"cursor":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testSigner(t))
	c.SetRateLimiter(&fakeRateLimiter{deny: 1 << 30})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := c.ListOpenMarkets(ctx, 10, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
	if hits != 0 {
		t.Fatalf("server hits = %d, want 0", hits)
	}
}
