package pipeline

import (
	"sort"

	"github.com/theirongolddev/convstat/internal/model"
)

// CostEstimate is a rough spend figure derived from a single configured
// rate per million tokens. It is an order-of-magnitude aid, not billing:
// all token types and models share the one rate.
type CostEstimate struct {
	RatePerMTok float64     `json:"ratePerMillionTokens"`
	TotalCost   float64     `json:"totalCost"`
	ByModel     []ModelCost `json:"byModel"`
}

// ModelCost holds the estimated spend attributed to one model.
type ModelCost struct {
	Model  string  `json:"model"`
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// EstimateCost applies the flat per-million-token rate to a report.
// The model rows come out sorted by cost descending, names ascending on
// ties, so repeated runs print identically.
func EstimateCost(report model.Report, ratePerMTok float64) CostEstimate {
	est := CostEstimate{
		RatePerMTok: ratePerMTok,
		ByModel:     make([]ModelCost, 0, len(report.ModelBreakdown)),
	}

	est.TotalCost = float64(report.TokenTotals.Total()) * ratePerMTok / 1_000_000

	for name, stats := range report.ModelBreakdown {
		tokens := stats.Tokens.Total()
		est.ByModel = append(est.ByModel, ModelCost{
			Model:  name,
			Tokens: tokens,
			Cost:   float64(tokens) * ratePerMTok / 1_000_000,
		})
	}

	sort.Slice(est.ByModel, func(i, j int) bool {
		if est.ByModel[i].Cost != est.ByModel[j].Cost {
			return est.ByModel[i].Cost > est.ByModel[j].Cost
		}
		return est.ByModel[i].Model < est.ByModel[j].Model
	})

	return est
}
