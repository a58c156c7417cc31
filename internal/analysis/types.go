package analysis

import (
	"context"
	"encoding/json"
)

// Gateway is the slice of the model gateway the analyzers consume. A nil
// return means "extraction unavailable", never "nothing found".
type Gateway interface {
	Invoke(ctx context.Context, model, systemPrompt, userPrompt string) any
}

// Intent levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
	LevelNone   = "none"
)

// Call outcomes.
const (
	OutcomePaymentCommitted   = "payment_committed"
	OutcomePartialCommitment  = "partial_commitment"
	OutcomeNoCommitment       = "no_commitment"
	OutcomeDisputeRaised      = "dispute_raised"
	OutcomeEscalationRequired = "escalation_required"
	OutcomeCallbackScheduled  = "callback_scheduled"
	OutcomeNotReachable       = "not_reachable"
)

// RepaymentIntent grades how likely the customer is to repay.
type RepaymentIntent struct {
	Score    int      `json:"score"` // 0-100
	Level    string   `json:"level"` // high | medium | low | none
	Evidence []string `json:"evidence"`
	Signals  []string `json:"signals"`
}

// PromiseToPay captures an explicit payment commitment, if any.
type PromiseToPay struct {
	Detected    bool     `json:"detected"`
	Amount      *float64 `json:"amount"`
	Date        *string  `json:"date"`
	Installment bool     `json:"installment"`
	Confidence  int      `json:"confidence"` // 0-100
	Details     string   `json:"details"`
}

// ComplianceFlag is one detected collections-conduct violation by the agent.
type ComplianceFlag struct {
	Type      string `json:"type"`     // threatening_language | intimidation | coercion
	Severity  string `json:"severity"` // low | medium | high
	Evidence  string `json:"evidence"`
	Timestamp string `json:"timestamp"`
}

// CrossCallFlag is an inconsistency between the current call and a prior one.
type CrossCallFlag struct {
	Field         string `json:"field"`
	PreviousClaim string `json:"previousClaim"`
	CurrentClaim  string `json:"currentClaim"`
	CallDate      string `json:"callDate"`
}

// SummaryResult is the summary analyzer's output.
type SummaryResult struct {
	Outcome     string   `json:"outcome"`
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	NextActions []string `json:"nextActions"`
	RiskFlags   []string `json:"riskFlags"`
}

// Result is the consolidated analysis record for one call, upserted keyed on
// CallID. RiskScore is always derived, never hand-set.
type Result struct {
	ID              string           `json:"id"`
	CallID          string           `json:"callId"`
	RepaymentIntent RepaymentIntent  `json:"repaymentIntent"`
	PromiseToPay    PromiseToPay     `json:"promiseToPay"`
	ComplianceFlags []ComplianceFlag `json:"complianceFlags"`
	CrossCallFlags  []CrossCallFlag  `json:"crossCallFlags"`
	Outcome         string           `json:"outcome"`
	Summary         string           `json:"summary"`
	KeyPoints       []string         `json:"keyPoints"`
	NextActions     []string         `json:"nextActions"`
	RiskFlags       []string         `json:"riskFlags"`
	RiskScore       int              `json:"riskScore"`
}

// HistoricalSummary is a read-only projection of one prior analyzed call,
// consumed by the cross-call analyzer. Derived, never stored.
type HistoricalSummary struct {
	CallID    string   `json:"callId"`
	Date      string   `json:"date"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	Outcome   string   `json:"outcome"`
}

// ValidOutcome reports whether o is one of the known outcome values.
func ValidOutcome(o string) bool {
	switch o {
	case OutcomePaymentCommitted, OutcomePartialCommitment, OutcomeNoCommitment,
		OutcomeDisputeRaised, OutcomeEscalationRequired, OutcomeCallbackScheduled,
		OutcomeNotReachable:
		return true
	}
	return false
}

// decodeInto maps a raw gateway value onto a typed struct via a JSON
// round-trip. The raw untyped value never travels further into the pipeline.
func decodeInto(raw any, target any) bool {
	b, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, target) == nil
}

func levelForScore(score int) string {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 15:
		return LevelLow
	default:
		return LevelNone
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
