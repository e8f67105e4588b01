package formatter

import (
	"encoding/json"

	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

// jsonResult is the machine-readable form of a surgeon.Result.
type jsonResult struct {
	ID               string    `json:"id"`
	Label            string    `json:"label,omitempty"`
	Original         string    `json:"original"`
	Transformed      string    `json:"transformed"`
	InitialCost      cost.Cost `json:"initial_cost"`
	FinalCost        cost.Cost `json:"final_cost"`
	InitialScore     float64   `json:"initial_score"`
	FinalScore       float64   `json:"final_score"`
	ImprovementRatio float64   `json:"improvement_ratio"`
	RulesApplied     []string  `json:"rules_applied"`
	Verified         bool      `json:"verified"`
	DurationMicros   int64     `json:"duration_us"`
	Soul             string    `json:"soul"`
	CacheHit         bool      `json:"cache_hit"`
	Iterations       int       `json:"iterations"`
	Error            string    `json:"error,omitempty"`
}

func toJSON(label string, res surgeon.Result) jsonResult {
	rulesApplied := res.RulesApplied
	if rulesApplied == nil {
		rulesApplied = []string{}
	}
	out := jsonResult{
		ID:               res.ID.String(),
		Label:            label,
		Original:         termString(res.Original),
		Transformed:      termString(res.Transformed),
		InitialCost:      res.InitialCost,
		FinalCost:        res.FinalCost,
		InitialScore:     res.InitialScore(),
		FinalScore:       res.FinalScore(),
		ImprovementRatio: res.ImprovementRatio(),
		RulesApplied:     rulesApplied,
		Verified:         res.Verified,
		DurationMicros:   res.Duration.Microseconds(),
		Soul:             res.Soul.String(),
		CacheHit:         res.CacheHit,
		Iterations:       res.Iterations,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// JSON encodes results, labeled in order, as an indented JSON array.
func JSON(labels []string, results []surgeon.Result) ([]byte, error) {
	out := make([]jsonResult, len(results))
	for i, res := range results {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		out[i] = toJSON(label, res)
	}
	return json.MarshalIndent(out, "", "  ")
}
