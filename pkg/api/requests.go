package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/core/services"
)

type weightsRequest struct {
	WA1        *float64 `json:"wA1"`
	WA2        *float64 `json:"wA2"`
	WF1        *float64 `json:"wF1"`
	LambdaFair *float64 `json:"lambdaFair"`
	LambdaPref *float64 `json:"lambdaPref"`
}

type quotasRequest struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type astreinteNeedRequest struct {
	Slot2 *int `json:"slot2"`
	Slot3 *int `json:"slot3"`
	Slot4 *int `json:"slot4"`
}

// optimizeRequest is the body of POST /api/optimize and POST /api/validate
type optimizeRequest struct {
	StartDate     string                `json:"startDate"`
	EndDate       string                `json:"endDate"`
	Mode          string                `json:"mode"`
	Weights       *weightsRequest       `json:"weights"`
	Quotas        *quotasRequest        `json:"quotas"`
	AstreinteNeed *astreinteNeedRequest `json:"astreinteNeed"`
	DryRun        bool                  `json:"dryRun"`
}

func (r optimizeRequest) params() (services.OptimizeParams, error) {
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return services.OptimizeParams{}, err
	}
	end, err := parseDate("endDate", r.EndDate)
	if err != nil {
		return services.OptimizeParams{}, err
	}

	params := services.OptimizeParams{
		Start:  start,
		End:    end,
		Mode:   r.Mode,
		DryRun: r.DryRun,
	}

	if w := r.Weights; w != nil {
		params.VehicleWeights = make(map[string]float64)
		for name, weight := range map[string]*float64{"A1": w.WA1, "A2": w.WA2, "F1": w.WF1} {
			if weight != nil {
				params.VehicleWeights[name] = *weight
			}
		}
		params.FairnessCoefficient = w.LambdaFair
		params.PreferenceCoefficient = w.LambdaPref
	}

	if q := r.Quotas; q != nil {
		params.QuotaMin = q.Min
		params.QuotaMax = q.Max
	}

	if n := r.AstreinteNeed; n != nil {
		params.OnCallNeeds = make(map[model.Slot]int)
		for slot, count := range map[model.Slot]*int{model.SlotSecondary: n.Slot2, model.SlotOnCall: n.Slot3, model.SlotEvening: n.Slot4} {
			if count != nil {
				params.OnCallNeeds[slot] = *count
			}
		}
	}

	return params, nil
}

// parseDate accepts "2006-01-02" dates and RFC 3339 timestamps, which are reduced to their UTC date
func parseDate(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(model.DateLayout, value); err == nil {
		return value, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", &optimizer.ConfigError{Field: field, Reason: fmt.Sprintf("must be a date, got %q", value)}
	}
	return t.UTC().Format(model.DateLayout), nil
}
