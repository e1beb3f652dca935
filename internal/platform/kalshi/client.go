// Package kalshi is the REST client for the Kalshi trade API. Every request
// is signed with RSA-PSS over timestamp + method + path.
package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// DefaultBaseURL is the production trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Sliding-window budget for signed REST calls. The exchange limits by API
// key, so every instance sharing a key also shares the Redis-backed window.
const (
	restRateKey    = "kalshi:rest"
	restRateLimit  = 10
	restRateWindow = time.Second
	restRateRetry  = 50 * time.Millisecond
)

// Client is the exchange REST client. It satisfies the scanner's market and
// orderbook interfaces and the classifier's metadata interface directly.
type Client struct {
	baseURL    string
	signer     RequestSigner
	httpClient *http.Client
	limiter    domain.RateLimiter
}

// NewClient creates a Client. baseURL falls back to DefaultBaseURL when
// empty.
func NewClient(baseURL string, signer RequestSigner) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListOpenMarkets pages through open markets. It returns the page and the
// next cursor; an empty cursor means the listing is exhausted.
func (c *Client) ListOpenMarkets(ctx context.Context, limit int, cursor string) ([]domain.MarketInfo, string, error) {
	params := url.Values{}
	params.Set("status", "open")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.doSignedRequest(ctx, http.MethodGet, "/markets?"+params.Encode())
	if err != nil {
		return nil, "", fmt.Errorf("kalshi: list markets: %w", err)
	}

	var resp struct {
		Markets []Market `json:"markets"`
		Cursor  string   `json:"cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("kalshi: decode markets: %w", err)
	}

	infos := make([]domain.MarketInfo, len(resp.Markets))
	for i, m := range resp.Markets {
		infos[i] = toMarketInfo(m)
	}
	return infos, resp.Cursor, nil
}

// ListMarketsByEvent returns every market belonging to one event, paging
// until the exchange reports no further cursor.
func (c *Client) ListMarketsByEvent(ctx context.Context, eventTicker string) ([]domain.MarketInfo, error) {
	var (
		infos  []domain.MarketInfo
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("event_ticker", eventTicker)
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.doSignedRequest(ctx, http.MethodGet, "/markets?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("kalshi: list event %s markets: %w", eventTicker, err)
		}

		var resp struct {
			Markets []Market `json:"markets"`
			Cursor  string   `json:"cursor"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("kalshi: decode event markets: %w", err)
		}

		for _, m := range resp.Markets {
			infos = append(infos, toMarketInfo(m))
		}
		if resp.Cursor == "" || len(resp.Markets) == 0 {
			return infos, nil
		}
		cursor = resp.Cursor
	}
}

// GetEvent returns one event's metadata for classification.
func (c *Client) GetEvent(ctx context.Context, eventTicker string) (domain.EventMetadata, error) {
	path := fmt.Sprintf("/events/%s", url.PathEscape(eventTicker))

	body, err := c.doSignedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return domain.EventMetadata{}, fmt.Errorf("kalshi: get event %s: %w", eventTicker, err)
	}

	var resp struct {
		Event Event `json:"event"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.EventMetadata{}, fmt.Errorf("kalshi: decode event: %w", err)
	}

	return domain.EventMetadata{
		EventTicker:          resp.Event.EventTicker,
		Title:                resp.Event.Title,
		Category:             resp.Event.Category,
		MutuallyExclusive:    resp.Event.MutuallyExclusive,
		CollateralReturnType: resp.Event.CollateralReturnType,
	}, nil
}

// GetOrderbook returns one market's raw orderbook. The response body comes in
// two shapes: wrapped under an "orderbook" key or bare; both are accepted.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (domain.RawOrderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	body, err := c.doSignedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return domain.RawOrderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}

	var wrapped struct {
		Orderbook *Orderbook `json:"orderbook"`
	}
	var book Orderbook
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Orderbook != nil {
		book = *wrapped.Orderbook
	} else if err := json.Unmarshal(body, &book); err != nil {
		return domain.RawOrderbook{}, fmt.Errorf("kalshi: decode orderbook %s: %w", ticker, err)
	}

	return domain.RawOrderbook{
		Ticker:    ticker,
		YesBids:   book.Yes,
		NoBids:    book.No,
		YesAsks:   book.YesAsks,
		NoAsks:    book.NoAsks,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// CreateOrder submits a limit order and returns the exchange's order record.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body, err := c.doSignedRequestBody(ctx, http.MethodPost, "/portfolio/orders", req)
	if err != nil {
		return Order{}, fmt.Errorf("kalshi: create order %s: %w", req.Ticker, err)
	}

	var resp struct {
		Order Order `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Order{}, fmt.Errorf("kalshi: decode order response: %w", err)
	}
	return resp.Order, nil
}

// GetOrderByID returns one order's current state.
func (c *Client) GetOrderByID(ctx context.Context, orderID string) (Order, error) {
	path := fmt.Sprintf("/portfolio/orders/%s", url.PathEscape(orderID))

	body, err := c.doSignedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return Order{}, fmt.Errorf("kalshi: get order %s: %w", orderID, err)
	}

	var resp struct {
		Order Order `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Order{}, fmt.Errorf("kalshi: decode order: %w", err)
	}
	return resp.Order, nil
}

// CancelOrderByID cancels a resting order.
func (c *Client) CancelOrderByID(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/portfolio/orders/%s", url.PathEscape(orderID))

	if _, err := c.doSignedRequest(ctx, http.MethodDelete, path); err != nil {
		return fmt.Errorf("kalshi: cancel order %s: %w", orderID, err)
	}
	return nil
}

func toMarketInfo(m Market) domain.MarketInfo {
	volume := m.Volume24h
	if volume == 0 {
		volume = m.Volume
	}
	return domain.MarketInfo{
		Ticker:       m.Ticker,
		EventTicker:  m.EventTicker,
		SeriesTicker: m.SeriesTicker,
		Status:       domain.MarketStatus(m.Status),
		Volume24h:    volume,
		Title:        m.Title,
	}
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

func (c *Client) doSignedRequest(ctx context.Context, method, path string) ([]byte, error) {
	return c.doSignedRequestBody(ctx, method, path, nil)
}

// SetRateLimiter installs a rate limiter that every signed request checks
// before hitting the wire. A nil limiter leaves requests unthrottled.
func (c *Client) SetRateLimiter(limiter domain.RateLimiter) {
	c.limiter = limiter
}

// throttle blocks until the limiter admits the request or ctx is done. A
// limiter error lets the request through; the exchange's 429 handling still
// backstops us.
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	for {
		allowed, err := c.limiter.Allow(ctx, restRateKey, restRateLimit, restRateWindow)
		if err != nil || allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restRateRetry):
		}
	}
}

// doSignedRequestBody builds, signs, sends, and reads one request. The
// signature covers the path without its query string, matching the
// exchange's verification.
func (c *Client) doSignedRequestBody(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if err := c.sign(req, method, path); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) sign(req *http.Request, method, path string) error {
	if c.signer == nil {
		return fmt.Errorf("%w: no request signer configured", domain.ErrSigningFailed)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signPath := req.URL.Path
	if signPath == "" {
		signPath = path
	}

	sig, err := c.signer.Sign(ts, method, signPath)
	if err != nil {
		return err
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.signer.KeyID())
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps non-2xx responses onto the domain's sentinel errors so
// callers can errors.Is instead of parsing strings.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (%s)", domain.ErrNotFound, apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, apiErr.Message, apiErr.Code)
	case http.StatusBadRequest, http.StatusConflict:
		return fmt.Errorf("%w: HTTP %d: %s (%s)", domain.ErrInvalidOrder, statusCode, apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("kalshi: HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
