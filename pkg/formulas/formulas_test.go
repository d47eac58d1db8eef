package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantBars(n int) (highs, lows, closes []float64) {
	for i := 0; i < n; i++ {
		highs = append(highs, 110)
		lows = append(lows, 100)
		closes = append(closes, 105)
	}
	return
}

func TestCalculateATR(t *testing.T) {
	t.Run("constant range", func(t *testing.T) {
		highs, lows, closes := constantBars(30)

		atr := CalculateATR(highs, lows, closes, TurtleATRPeriod)
		require.NotNil(t, atr)
		assert.InDelta(t, 10.0, *atr, 1e-9)
	})

	t.Run("insufficient data", func(t *testing.T) {
		highs, lows, closes := constantBars(TurtleATRPeriod)
		assert.Nil(t, CalculateATR(highs, lows, closes, TurtleATRPeriod))
	})

	t.Run("mismatched series", func(t *testing.T) {
		highs, lows, closes := constantBars(30)
		assert.Nil(t, CalculateATR(highs[:29], lows, closes, TurtleATRPeriod))
	})

	t.Run("invalid period", func(t *testing.T) {
		highs, lows, closes := constantBars(30)
		assert.Nil(t, CalculateATR(highs, lows, closes, 0))
	})

	t.Run("gap widens true range", func(t *testing.T) {
		highs, lows, closes := constantBars(30)
		// Gap up: prior close 105, new bar 130-120. TR = 25.
		highs = append(highs, 130)
		lows = append(lows, 120)
		closes = append(closes, 125)

		atr := CalculateATR(highs, lows, closes, TurtleATRPeriod)
		require.NotNil(t, atr)
		// Wilder: (10*19 + 25) / 20
		assert.InDelta(t, 10.75, *atr, 1e-9)
	})
}

func TestStats(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(data), 1e-9)
	assert.InDelta(t, 2.138089935, StdDev(data), 1e-6)
	assert.InDelta(t, 4.0, Median(data), 1e-9)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	data := []float64{9, 1, 5}
	assert.InDelta(t, 5.0, Median(data), 1e-9)
	assert.Equal(t, []float64{9, 1, 5}, data)
}
