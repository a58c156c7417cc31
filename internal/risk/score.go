package risk

import (
	"math"

	"github.com/collectiq-ai/collectiq/internal/analysis"
)

// Severity penalties per compliance flag. Additive per flag, uncapped.
const (
	highPenalty    = 15
	mediumPenalty  = 8
	defaultPenalty = 3

	noPTPPenalty      = 10
	weakPTPPenalty    = 5
	crossCallPenalty  = 5
	weakPTPConfidence = 30

	intentWeight = 0.4
	baseScore    = 50
)

// Score combines analyzer outputs into one composite risk score in [0,100].
// Pure and deterministic: base 50, shifted linearly by repayment intent
// around the neutral score of 50, plus severity-weighted compliance
// penalties, a promise-to-pay penalty, and a flat penalty per cross-call
// inconsistency. Rounded to the nearest integer and clamped.
func Score(intent analysis.RepaymentIntent, compliance []analysis.ComplianceFlag, ptp analysis.PromiseToPay, crossCallFlags []analysis.CrossCallFlag) int {
	score := float64(baseScore)

	score += float64(baseScore-intent.Score) * intentWeight

	for _, f := range compliance {
		switch f.Severity {
		case "high":
			score += highPenalty
		case "medium":
			score += mediumPenalty
		default:
			score += defaultPenalty
		}
	}

	if !ptp.Detected {
		score += noPTPPenalty
	} else if ptp.Confidence < weakPTPConfidence {
		score += weakPTPPenalty
	}

	score += float64(len(crossCallFlags)) * crossCallPenalty

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
