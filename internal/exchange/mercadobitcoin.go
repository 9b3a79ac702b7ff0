// Mercado Bitcoin adapter for the public v4 data API.
//
// The trades endpoint requires no authentication. The adapter applies client
// side rate limiting and classifies transport and payload failures so the
// retry policy at the fetch boundary can distinguish transient errors from
// permanent ones.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
	"github.com/lucasvieira/go-trades-etl/internal/models"
)

const (
	// Mercado Bitcoin public data API base URL
	mercadoBitcoinBaseURL = "https://api.mercadobitcoin.net/api/v4"

	// API endpoints
	tradesEndpoint  = "/%s/trades"
	tickersEndpoint = "/tickers?symbols=%s"

	// Rate limiting configuration
	defaultRequestsPerSecond = 10
	rateLimitBurst           = 1

	// Request configuration
	defaultRequestTimeout = 30 * time.Second
	userAgent             = "go-trades-etl/1.0"

	// Health check configuration
	healthCheckTimeout = 5 * time.Second
)

const componentName = "fetcher"

// MercadoBitcoinAdapter implements the Adapter interface for the Mercado
// Bitcoin public data API.
type MercadoBitcoinAdapter struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	retrier     *pkgerrors.Retrier
	logger      *slog.Logger
}

// NewMercadoBitcoinAdapter creates an adapter from the API configuration. The
// retrier bounds retries at this boundary; pass a single-attempt policy to
// disable them.
func NewMercadoBitcoinAdapter(cfg config.APIConfig, retrier *pkgerrors.Retrier, logger *slog.Logger) *MercadoBitcoinAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mercadoBitcoinBaseURL
	}

	requestsPerSecond := cfg.RateLimit
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}

	return &MercadoBitcoinAdapter{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), rateLimitBurst),
		baseURL:     baseURL,
		retrier:     retrier,
		logger:      logger,
	}
}

// FetchTrades implements the TradeFetcher interface.
func (a *MercadoBitcoinAdapter) FetchTrades(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	a.logger.Debug("fetching trades", "symbol", req.Symbol)

	requestURL := a.baseURL + fmt.Sprintf(tradesEndpoint, req.Symbol)

	var body []byte
	fetch := func() error {
		if err := a.WaitForLimit(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}

		var err error
		body, err = a.makeRequest(ctx, requestURL)
		return err
	}

	if a.retrier != nil {
		if err := a.retrier.Do(ctx, componentName, "fetch_trades", fetch); err != nil {
			return nil, err
		}
	} else if err := fetch(); err != nil {
		return nil, pkgerrors.Classify(err, componentName, "fetch_trades")
	}

	var trades []models.Trade
	if err := json.Unmarshal(body, &trades); err != nil {
		return nil, pkgerrors.New(
			fmt.Errorf("failed to parse trades response: %w", err),
			pkgerrors.ErrorTypeParse, componentName, "fetch_trades")
	}

	a.logger.Debug("fetched trades", "symbol", req.Symbol, "count", len(trades))

	return &FetchResponse{
		Trades:    trades,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// GetLimits implements the RateLimitInfo interface.
func (a *MercadoBitcoinAdapter) GetLimits() RateLimit {
	return RateLimit{
		RequestsPerSecond: int(a.rateLimiter.Limit()),
		BurstSize:         a.rateLimiter.Burst(),
	}
}

// WaitForLimit implements the RateLimitInfo interface.
func (a *MercadoBitcoinAdapter) WaitForLimit(ctx context.Context) error {
	return a.rateLimiter.Wait(ctx)
}

// HealthCheck implements the HealthChecker interface using the tickers
// endpoint, which is the cheapest read the API offers.
func (a *MercadoBitcoinAdapter) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	requestURL := a.baseURL + fmt.Sprintf(tickersEndpoint, "BTC-BRL")

	req, err := http.NewRequestWithContext(healthCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	a.logger.Debug("health check passed")
	return nil
}

// makeRequest performs a single GET and classifies failures by status class.
// 5xx and 429 come back retryable; other 4xx are permanent.
func (a *MercadoBitcoinAdapter) makeRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.New(
			fmt.Errorf("failed to create request: %w", err),
			pkgerrors.ErrorTypeConfig, componentName, "fetch_trades")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Classify(fmt.Errorf("request failed: %w", err), componentName, "fetch_trades")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.New(
			fmt.Errorf("failed to read response body: %w", err),
			pkgerrors.ErrorTypeNetwork, componentName, "fetch_trades")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, pkgerrors.New(
			fmt.Errorf("rate limited by API: %s", string(body)),
			pkgerrors.ErrorTypeRateLimit, componentName, "fetch_trades")
	case resp.StatusCode >= 500:
		return nil, pkgerrors.New(
			fmt.Errorf("server error %d: %s", resp.StatusCode, string(body)),
			pkgerrors.ErrorTypeServerError, componentName, "fetch_trades")
	case resp.StatusCode >= 400:
		return nil, pkgerrors.New(
			fmt.Errorf("client error %d: %s", resp.StatusCode, string(body)),
			pkgerrors.ErrorTypeBadRequest, componentName, "fetch_trades")
	}

	return body, nil
}
