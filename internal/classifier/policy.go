package classifier

import (
	"strings"

	"github.com/alphabot-ai/confessional/internal/model"
)

// Policy decides from the top-ranked prediction whether an image is blocked.
// Lower-ranked labels are ignored.
type Policy struct {
	HighRisk            []string
	HighRiskThreshold   float64
	Borderline          []string
	BorderlineThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{
		HighRisk:            []string{"Porn", "Hentai"},
		HighRiskThreshold:   0.60,
		Borderline:          []string{"Sexy"},
		BorderlineThreshold: 0.80,
	}
}

// Blocks reports whether preds (sorted, highest first) should be rejected,
// along with the prediction that decided it.
func (p Policy) Blocks(preds []model.Prediction) (bool, model.Prediction) {
	if len(preds) == 0 {
		return false, model.Prediction{}
	}
	top := preds[0]
	if contains(p.HighRisk, top.Label) && top.Probability > p.HighRiskThreshold {
		return true, top
	}
	if contains(p.Borderline, top.Label) && top.Probability > p.BorderlineThreshold {
		return true, top
	}
	return false, top
}

func contains(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
