// Package transform reshapes fetched trade records into the tabular structure
// the writer serializes. It performs no I/O and has no side effects.
package transform

import (
	"fmt"

	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
	"github.com/lucasvieira/go-trades-etl/internal/models"
)

const componentName = "transformer"

// ToTable maps a list of trades into a TradeTable. Row order and cardinality
// match the input exactly. A record missing required fields (JSON zero values
// after decoding) yields a schema-classified error naming the offending row.
func ToTable(trades []models.Trade) (*models.TradeTable, error) {
	for i := range trades {
		if err := trades[i].Validate(); err != nil {
			return nil, pkgerrors.New(
				fmt.Errorf("record %d: %w", i, err),
				pkgerrors.ErrorTypeSchema, componentName, "to_table")
		}
	}

	return models.NewTradeTable(trades), nil
}
