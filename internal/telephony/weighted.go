package telephony

import "math/rand"

// WeightedOutcome pairs an outcome with its selection weight.
// Weights are relative, not percentages.
type WeightedOutcome struct {
	Value  Outcome
	Weight int
}

// DefaultOutcomes is the mock distribution: CONNECTED 40, NO_ANSWER 25,
// BUSY 20, VOICEMAIL 15.
var DefaultOutcomes = []WeightedOutcome{
	{Value: OutcomeConnected, Weight: 40},
	{Value: OutcomeNoAnswer, Weight: 25},
	{Value: OutcomeBusy, Weight: 20},
	{Value: OutcomeVoicemail, Weight: 15},
}

// choose maps a draw in [0, totalWeight) onto an outcome by walking the
// weights. A zero-weight outcome can never absorb the draw and is therefore
// never selected.
func choose(outcomes []WeightedOutcome, draw int) (Outcome, bool) {
	for _, o := range outcomes {
		draw -= o.Weight
		if draw < 0 {
			return o.Value, true
		}
	}
	return "", false
}

func totalWeight(outcomes []WeightedOutcome) int {
	total := 0
	for _, o := range outcomes {
		total += o.Weight
	}
	return total
}

// Weighted draws a random outcome from the weighted set.
// Panics if the set has no positive weight; callers control the table.
func Weighted(outcomes []WeightedOutcome) Outcome {
	total := totalWeight(outcomes)
	if total <= 0 {
		panic("telephony: weighted outcome table has no positive weight")
	}
	out, _ := choose(outcomes, rand.Intn(total))
	return out
}

// randIntInclusive returns a uniformly distributed value in [min, max].
func randIntInclusive(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}
