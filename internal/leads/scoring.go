package leads

import "math"

var headcountScores = map[string]float64{
	"1-10":    10,
	"11-50":   25,
	"51-200":  50,
	"201-500": 75,
	"500+":    100,
}

var industryWeights = map[string]float64{
	"Technology":    1.2,
	"Finance":       1.15,
	"Healthcare":    1.1,
	"Manufacturing": 1.0,
	"Logistics":     0.95,
	"Construction":  0.9,
}

// PriorityScore computes the dial-queue priority for a lead.
// Un-enriched leads score 0 so enrichment always precedes prioritization.
func PriorityScore(l Lead) int {
	if !l.Enriched || l.Enrichment == nil {
		return 0
	}

	decisionMakerScore := float64(l.Enrichment.DecisionMakerScore)
	headcountScore := headcountScores[l.Headcount]

	industryWeight, ok := industryWeights[l.Industry]
	if !ok {
		industryWeight = 1.0
	}

	return int(math.Round(decisionMakerScore*0.5 + headcountScore*0.3 + industryWeight*20))
}
