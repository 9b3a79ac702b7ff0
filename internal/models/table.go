package models

import "fmt"

// TradeTable is an ordered collection of trades sharing the uniform column
// set defined by TradeColumns. It preserves the order and cardinality of the
// records returned by the fetcher; downstream steps must not mutate or drop
// rows.
type TradeTable struct {
	trades []Trade
}

// NewTradeTable creates a table over the given trades. The slice is copied so
// later mutation of the caller's slice cannot change the table contents.
func NewTradeTable(trades []Trade) *TradeTable {
	rows := make([]Trade, len(trades))
	copy(rows, trades)
	return &TradeTable{trades: rows}
}

// Len returns the number of rows in the table.
func (tt *TradeTable) Len() int {
	return len(tt.trades)
}

// Columns returns the column names in serialization order.
func (tt *TradeTable) Columns() []string {
	cols := make([]string, len(TradeColumns))
	copy(cols, TradeColumns)
	return cols
}

// Row returns the trade at index i. It panics if i is out of range, matching
// slice indexing semantics.
func (tt *TradeTable) Row(i int) Trade {
	return tt.trades[i]
}

// Rows returns a copy of the table contents in row order.
func (tt *TradeTable) Rows() []Trade {
	rows := make([]Trade, len(tt.trades))
	copy(rows, tt.trades)
	return rows
}

// String returns a short human-readable summary of the table.
func (tt *TradeTable) String() string {
	return fmt.Sprintf("TradeTable{rows: %d, columns: %v}", len(tt.trades), TradeColumns)
}
