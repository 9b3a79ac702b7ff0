// Package exchange defines interfaces and adapters for fetching executed-trade
// data from cryptocurrency exchanges.
//
// The interfaces are small and composable so the pipeline can be tested with
// doubles. The only production implementation is the Mercado Bitcoin adapter.
package exchange

import (
	"context"
	"time"

	"github.com/lucasvieira/go-trades-etl/internal/models"
)

// TradeFetcher retrieves executed trades for a trading pair.
//
// Implementations should respect the context for cancellation, apply the
// exchange's rate limits, and return trades in the order the API reports
// them. A successful fetch of an empty array returns an empty slice, not an
// error.
type TradeFetcher interface {
	// FetchTrades retrieves the most recent trades for the requested symbol.
	FetchTrades(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// RateLimitInfo exposes the adapter's rate limiting configuration and allows
// callers to block until the limiter permits another request.
type RateLimitInfo interface {
	// GetLimits returns the current rate limiting configuration.
	GetLimits() RateLimit

	// WaitForLimit blocks until the rate limit allows another request or the
	// context is cancelled.
	WaitForLimit(ctx context.Context) error
}

// HealthChecker verifies that the exchange API is reachable. Checks should be
// cheap and must not consume meaningful rate limit quota.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Adapter combines all exchange capabilities into a single interface. This is
// what the pipeline consumes.
type Adapter interface {
	TradeFetcher
	RateLimitInfo
	HealthChecker
}

// FetchRequest specifies parameters for fetching trades.
type FetchRequest struct {
	// Symbol is the trading pair identifier (e.g., "BTC-BRL")
	Symbol string `json:"symbol"`
}

// Validate checks if the FetchRequest has valid parameters.
func (r *FetchRequest) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "trading pair symbol cannot be empty"}
	}
	return nil
}

// FetchResponse contains the results of a trade fetch operation.
type FetchResponse struct {
	// Trades contains the executed trades in the order reported by the API
	Trades []models.Trade `json:"trades"`

	// FetchedAt is when the response was received
	FetchedAt time.Time `json:"fetched_at"`
}

// RateLimit defines the rate limiting configuration for an exchange.
type RateLimit struct {
	// RequestsPerSecond is the maximum number of requests allowed per second
	RequestsPerSecond int `json:"requests_per_second"`

	// BurstSize is the maximum number of requests allowed in a burst
	BurstSize int `json:"burst_size"`
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation error for field " + e.Field + ": " + e.Message
}
