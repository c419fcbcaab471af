// Package score folds rule penalties and the model verdict into the final
// bounded trust score.
package score

import (
	"math"

	"github.com/evidencecheck/attest/internal/models"
)

// Penalty deltas for the rule checks. Each fires independently; more than one
// can fire for the same submission.
const (
	penaltyNoGPS         = 30
	penaltyGeofenceFail  = 40
	penaltyNoExifTime    = 20
	penaltyNearDuplicate = 15
)

// Thresholds derive a verdict from the final score when no model analysis was
// obtained.
type Thresholds struct {
	AutoApprove int // score >= this -> AUTHENTIC
	HumanReview int // score >= this -> SUSPICIOUS
}

// DefaultThresholds returns the stock configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoApprove: 80, HumanReview: 60}
}

// penaltyRule maps a flag to its score delta. Rules are applied as an ordered
// fold over the starting score rather than mutating a shared accumulator.
type penaltyRule struct {
	flag    string
	penalty int
}

var rules = []penaltyRule{
	{models.FlagNoGPS, penaltyNoGPS},
	{models.FlagGeofenceFail, penaltyGeofenceFail},
	{models.FlagNoExifTime, penaltyNoExifTime},
	{models.FlagNearDuplicate, penaltyNearDuplicate},
}

// Compute produces the final score and verdict from the raised flags and the
// optional model analysis. Pure: no shared state, safe under concurrent
// submissions.
//
// Starting from 100, each matching rule penalty is subtracted. If an analysis
// is present its verdict caps or boosts the score (FAKE -> min 20, SUSPICIOUS
// -> min 60, AUTHENTIC -> +10 capped at 100) and the result is blended toward
// 50 by the model's own confidence:
//
//	score = round(score*confidence/100 + (100-confidence)*0.5)
//
// The blend is preserved verbatim from the system this replaces; it is a
// heuristic, not a derived formula. The final score is clamped to [0,100].
// The verdict is the analysis verdict when one exists, otherwise derived from
// the clamped score via the configured thresholds.
func Compute(flags *models.FlagSet, analysis *models.ModelAnalysis, t Thresholds) (int, models.Verdict) {
	score := 100
	for _, r := range rules {
		if flags.Has(r.flag) {
			score -= r.penalty
		}
	}

	if analysis != nil {
		switch analysis.Verdict {
		case models.VerdictFake:
			score = min(score, 20)
		case models.VerdictSuspicious:
			score = min(score, 60)
		case models.VerdictAuthentic:
			score = min(score+10, 100)
		}

		c := float64(analysis.Confidence)
		score = int(math.Round(float64(score)*c/100 + (100-c)*0.5))
	}

	score = clamp(score, 0, 100)

	if analysis != nil {
		return score, analysis.Verdict
	}
	return score, t.Derive(score)
}

// Derive maps a score onto the verdict scale using the configured thresholds.
func (t Thresholds) Derive(score int) models.Verdict {
	switch {
	case score >= t.AutoApprove:
		return models.VerdictAuthentic
	case score >= t.HumanReview:
		return models.VerdictSuspicious
	default:
		return models.VerdictFake
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
