package performance

import (
	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/pkg/formulas"
)

// Summary describes the distribution of closed-trade outcomes
type Summary struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	MeanPL      float64 `json:"meanPL"`
	MedianPL    float64 `json:"medianPL"`
	StdDevPL    float64 `json:"stdDevPL"`
	AverageWin  float64 `json:"averageWin"`
	AverageLoss float64 `json:"averageLoss"` // non-positive
	PayoffRatio float64 `json:"payoffRatio"` // averageWin / |averageLoss|
	Expectancy  float64 `json:"expectancy"`  // expected P&L per trade

	BySignal     map[domain.EntrySignal]int `json:"bySignal"`
	ByExitReason map[domain.ExitReason]int  `json:"byExitReason"`
}

// Summarize computes distribution figures over a set of closed trades
func Summarize(trades []domain.ClosedTrade) Summary {
	s := Summary{
		Trades:       len(trades),
		BySignal:     make(map[domain.EntrySignal]int),
		ByExitReason: make(map[domain.ExitReason]int),
	}
	if len(trades) == 0 {
		return s
	}

	all := make([]float64, 0, len(trades))
	var wins, losses []float64
	for _, t := range trades {
		pl := t.ProfitLoss.InexactFloat64()
		all = append(all, pl)
		switch {
		case pl > 0:
			wins = append(wins, pl)
		case pl < 0:
			losses = append(losses, pl)
		}
		s.BySignal[t.EntrySignal]++
		s.ByExitReason[t.Reason]++
	}

	s.Wins = len(wins)
	s.Losses = len(losses)
	s.MeanPL = formulas.Mean(all)
	s.MedianPL = formulas.Median(all)
	s.StdDevPL = formulas.StdDev(all)
	s.AverageWin = formulas.Mean(wins)
	s.AverageLoss = formulas.Mean(losses)

	if s.AverageLoss != 0 {
		s.PayoffRatio = s.AverageWin / -s.AverageLoss
	}

	n := float64(len(trades))
	s.Expectancy = float64(s.Wins)/n*s.AverageWin + float64(s.Losses)/n*s.AverageLoss

	return s
}
