// Package models provides data structures and validation for executed-trade market data.
// This package contains the core data models for the trades ETL pipeline: the
// Trade record as returned by the exchange API and the ordered TradeTable that
// downstream steps serialize and upload.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade side values as reported by the Mercado Bitcoin API.
const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"
)

// Trade represents one executed trade for a trading pair as returned by the
// exchange trades endpoint. Price and Amount are decimal strings exactly as
// received from the API; they are never re-formatted so the CSV artifact is a
// faithful pass-through of the upstream payload.
type Trade struct {
	TID    int64  `json:"tid" csv:"tid"`
	Date   int64  `json:"date" csv:"date"`
	Type   string `json:"type" csv:"type"`
	Price  string `json:"price" csv:"price"`
	Amount string `json:"amount" csv:"amount"`
}

// TradeColumns is the column set of a TradeTable, in upstream field order.
// The CSV header must match this slice exactly.
var TradeColumns = []string{"tid", "date", "type", "price", "amount"}

// ValidationError represents a trade validation error with field context.
type ValidationError struct {
	Field   string // Field is the name of the field that failed validation
	Message string // Message describes the validation failure
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate checks that the trade has a positive identifier and timestamp, a
// known side, and that price and amount parse as positive decimals.
// Returns a ValidationError if any check fails.
func (t *Trade) Validate() error {
	if t.TID <= 0 {
		return &ValidationError{Field: "tid", Message: "trade id must be greater than 0"}
	}

	if t.Date <= 0 {
		return &ValidationError{Field: "date", Message: "trade timestamp must be greater than 0"}
	}

	if t.Type != TradeTypeBuy && t.Type != TradeTypeSell {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("trade type must be %q or %q, got %q", TradeTypeBuy, TradeTypeSell, t.Type)}
	}

	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("invalid price format: %v", err)}
	}

	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("invalid amount format: %v", err)}
	}

	if price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "price", Message: "price must be greater than 0"}
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "amount", Message: "amount must be greater than 0"}
	}

	return nil
}

// GetPriceDecimal returns the trade price as a decimal.Decimal for precise calculations.
// Returns an error if the price string cannot be parsed as a decimal.
func (t *Trade) GetPriceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Price)
}

// GetAmountDecimal returns the trade amount as a decimal.Decimal for precise calculations.
// Returns an error if the amount string cannot be parsed as a decimal.
func (t *Trade) GetAmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Amount)
}

// GetNotional calculates the trade notional value using the formula: Price * Amount.
// Returns an error if price or amount cannot be parsed as decimals.
func (t *Trade) GetNotional() (decimal.Decimal, error) {
	price, err := t.GetPriceDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price: %w", err)
	}

	amount, err := t.GetAmountDecimal()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount: %w", err)
	}

	return price.Mul(amount), nil
}

// Time returns the trade execution time as a UTC time.Time.
func (t *Trade) Time() time.Time {
	return time.Unix(t.Date, 0).UTC()
}

// IsBuy returns true if the trade was a taker buy.
func (t *Trade) IsBuy() bool {
	return t.Type == TradeTypeBuy
}

// String returns a human-readable representation of the trade.
// This method implements the fmt.Stringer interface.
func (t *Trade) String() string {
	return fmt.Sprintf("Trade{TID: %d, Date: %s, Type: %s, Price: %s, Amount: %s}",
		t.TID, t.Time().Format(time.RFC3339), t.Type, t.Price, t.Amount)
}
