package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
	"github.com/lucasvieira/go-trades-etl/internal/models"
)

func sampleTrades() []models.Trade {
	return []models.Trade{
		{TID: 1, Date: 1700000000, Type: "buy", Price: "100.0", Amount: "0.5"},
		{TID: 2, Date: 1700000010, Type: "sell", Price: "101.0", Amount: "0.25"},
		{TID: 3, Date: 1700000020, Type: "buy", Price: "102.0", Amount: "1.0"},
	}
}

func TestToTable(t *testing.T) {
	t.Run("row count equals input length", func(t *testing.T) {
		trades := sampleTrades()

		table, err := ToTable(trades)
		require.NoError(t, err)
		assert.Equal(t, len(trades), table.Len())
	})

	t.Run("fields pass through unchanged in order", func(t *testing.T) {
		trades := sampleTrades()

		table, err := ToTable(trades)
		require.NoError(t, err)

		for i, trade := range trades {
			assert.Equal(t, trade, table.Row(i))
		}
	})

	t.Run("empty input yields empty table", func(t *testing.T) {
		table, err := ToTable(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("missing fields yield a schema error", func(t *testing.T) {
		// Decoding a record without a price leaves the zero value behind.
		var trades []models.Trade
		payload := `[{"tid": 1, "date": 1700000000, "type": "buy", "amount": "0.5"}]`
		require.NoError(t, json.Unmarshal([]byte(payload), &trades))

		_, err := ToTable(trades)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeSchema, pkgerrors.GetErrorType(err))
		assert.Contains(t, err.Error(), "record 0")
	})

	t.Run("reports the offending row index", func(t *testing.T) {
		trades := sampleTrades()
		trades[2].Type = "hold"

		_, err := ToTable(trades)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record 2")
	})
}

func TestToTableRoundTrip(t *testing.T) {
	// Structural round-trip: a decoded API payload survives the transform
	// field by field.
	payload := `[{"tid": 11709090, "date": 1700000000, "type": "buy", "price": "165000.00000000", "amount": "0.00150000"}]`

	var trades []models.Trade
	require.NoError(t, json.Unmarshal([]byte(payload), &trades))

	table, err := ToTable(trades)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	row := table.Row(0)
	assert.Equal(t, int64(11709090), row.TID)
	assert.Equal(t, int64(1700000000), row.Date)
	assert.Equal(t, "buy", row.Type)
	assert.Equal(t, "165000.00000000", row.Price)
	assert.Equal(t, "0.00150000", row.Amount)
}
