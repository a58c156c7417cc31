package analysis

import (
	"context"
	"strings"
	"testing"
)

func TestFallbackSummary_OutcomePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{
			name:       "commitment beats hedging",
			transcript: "[CUSTOMER] Maybe... actually yes, I will pay on Friday.",
			want:       OutcomePaymentCommitted,
		},
		{
			name:       "hedging beats dispute",
			transcript: "[CUSTOMER] I'll try, but I think this is a wrong amount.",
			want:       OutcomePartialCommitment,
		},
		{
			name:       "dispute beats escalation",
			transcript: "[CUSTOMER] I dispute this, I am getting a lawyer.",
			want:       OutcomeDisputeRaised,
		},
		{
			name:       "escalation alone",
			transcript: "[CUSTOMER] Connect me to your supervisor.",
			want:       OutcomeEscalationRequired,
		},
		{
			name:       "default",
			transcript: "[AGENT] Hello.\n[CUSTOMER] Hello.",
			want:       OutcomeNoCommitment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackSummary(tt.transcript)
			if got.Outcome != tt.want {
				t.Errorf("outcome = %q, want %q", got.Outcome, tt.want)
			}
		})
	}
}

func TestFallbackSummary_RefusalRiskFlag(t *testing.T) {
	got := FallbackSummary("[CUSTOMER] I am not paying, stop calling.")
	if len(got.RiskFlags) != 1 || got.RiskFlags[0] != "Customer refused payment" {
		t.Errorf("risk flags = %v, want the fixed refusal flag", got.RiskFlags)
	}
	if got.Outcome != OutcomeNoCommitment {
		t.Errorf("outcome = %q, want no_commitment", got.Outcome)
	}
}

func TestFallbackSummary_KeyPointQuotesPhrase(t *testing.T) {
	got := FallbackSummary("[CUSTOMER] I will pay.")
	if len(got.KeyPoints) != 1 || !strings.Contains(got.KeyPoints[0], `"i will pay"`) {
		t.Errorf("key points = %v, want the matched phrase quoted", got.KeyPoints)
	}
	if len(got.NextActions) == 0 {
		t.Error("expected a next action")
	}
	if got.Summary == "" {
		t.Error("expected a non-empty summary")
	}
}

func TestSummaryAnalyzer_ModelResult(t *testing.T) {
	gw := &stubGateway{result: map[string]any{
		"outcome":     "callback_scheduled",
		"summary":     "Customer asked to be called next Tuesday.",
		"keyPoints":   []any{"callback tuesday"},
		"nextActions": []any{"call tuesday 10am"},
		"riskFlags":   []any{},
	}}
	a := NewSummaryAnalyzer(gw, testLogger())

	got := a.Analyze(context.Background(), "x", "m")
	if got.Outcome != "callback_scheduled" || len(got.KeyPoints) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestSummaryAnalyzer_InvalidOutcomeCoerced(t *testing.T) {
	gw := &stubGateway{result: map[string]any{
		"outcome": "customer_happy",
		"summary": "Pleasant call.",
	}}
	a := NewSummaryAnalyzer(gw, testLogger())

	got := a.Analyze(context.Background(), "x", "m")
	if got.Outcome != OutcomeNoCommitment {
		t.Errorf("outcome = %q, want coerced no_commitment", got.Outcome)
	}
	if got.KeyPoints == nil || got.NextActions == nil || got.RiskFlags == nil {
		t.Error("slices must be non-nil after normalization")
	}
}

func TestSummaryAnalyzer_FallsBack(t *testing.T) {
	gw := &stubGateway{result: map[string]any{"keyPoints": []any{"no outcome or summary key"}}}
	a := NewSummaryAnalyzer(gw, testLogger())

	got := a.Analyze(context.Background(), "[CUSTOMER] I will pay.", "m")
	if got.Outcome != OutcomePaymentCommitted {
		t.Errorf("outcome = %q, want fallback payment_committed", got.Outcome)
	}
}
