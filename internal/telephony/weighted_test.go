package telephony

import "testing"

func TestChoose_WalksWeights(t *testing.T) {
	outcomes := []WeightedOutcome{
		{Value: OutcomeConnected, Weight: 40},
		{Value: OutcomeNoAnswer, Weight: 25},
		{Value: OutcomeBusy, Weight: 20},
		{Value: OutcomeVoicemail, Weight: 15},
	}

	cases := []struct {
		draw int
		want Outcome
	}{
		{0, OutcomeConnected},
		{39, OutcomeConnected},
		{40, OutcomeNoAnswer},
		{64, OutcomeNoAnswer},
		{65, OutcomeBusy},
		{84, OutcomeBusy},
		{85, OutcomeVoicemail},
		{99, OutcomeVoicemail},
	}
	for _, tc := range cases {
		got, ok := choose(outcomes, tc.draw)
		if !ok || got != tc.want {
			t.Fatalf("draw %d: expected %s, got %s (ok=%v)", tc.draw, tc.want, got, ok)
		}
	}
}

func TestWeighted_ZeroWeightNeverSelected(t *testing.T) {
	outcomes := []WeightedOutcome{
		{Value: "NEVER", Weight: 0},
		{Value: "ALWAYS", Weight: 100},
	}

	for i := 0; i < 100; i++ {
		if got := Weighted(outcomes); got != "ALWAYS" {
			t.Fatalf("draw %d: expected ALWAYS, got %s", i, got)
		}
	}
}

func TestWeighted_SinglePositiveWeightAlwaysSelected(t *testing.T) {
	outcomes := []WeightedOutcome{{Value: OutcomeBusy, Weight: 1}}
	for i := 0; i < 10; i++ {
		if got := Weighted(outcomes); got != OutcomeBusy {
			t.Fatalf("expected BUSY, got %s", got)
		}
	}
}

func TestRandIntInclusive_StaysInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := randIntInclusive(3, 7)
		if v < 3 || v > 7 {
			t.Fatalf("value %d out of [3,7]", v)
		}
	}
	if v := randIntInclusive(5, 5); v != 5 {
		t.Fatalf("degenerate range should return min, got %d", v)
	}
}
