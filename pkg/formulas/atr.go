// Package formulas holds the numeric indicators used for position sizing and reporting.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// TurtleATRPeriod is the lookback the turtle rules use for N
const TurtleATRPeriod = 20

// CalculateATR returns the latest Average True Range (Wilder smoothing).
//
// True Range = max(high-low, |high-prevClose|, |low-prevClose|)
//
// Returns nil if the series are mismatched or shorter than period+1 bars.
func CalculateATR(highs, lows, closes []float64, period int) *float64 {
	if period <= 0 || len(highs) != len(lows) || len(lows) != len(closes) {
		return nil
	}
	if len(closes) < period+1 {
		return nil
	}

	atr := talib.Atr(highs, lows, closes, period)
	if len(atr) == 0 {
		return nil
	}

	last := atr[len(atr)-1]
	if math.IsNaN(last) || last <= 0 {
		return nil
	}
	return &last
}
