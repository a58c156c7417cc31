package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

// Outcome inference for the rule-based path checks these categories in
// priority order; the first category with a phrase hit wins.
var outcomeChecks = []struct {
	outcome string
	phrases []string
}{
	{OutcomePaymentCommitted, []string{
		"i will pay", "i'll pay", "will make the payment", "i promise to pay", "payment done",
	}},
	{OutcomePartialCommitment, []string{
		"i'll try", "will try", "maybe", "let me see", "try to arrange",
	}},
	{OutcomeDisputeRaised, []string{
		"dispute", "already paid", "wrong amount", "not my loan", "court",
	}},
	{OutcomeEscalationRequired, []string{
		"escalate", "legal action", "lawyer", "supervisor", "file a complaint",
	}},
}

var refusalPhrases = []string{
	"refuse to pay", "won't pay", "will not pay", "not paying", "stop calling",
}

const refusalRiskFlag = "Customer refused payment"

// SummaryAnalyzer produces the call summary, outcome, and follow-up hints.
type SummaryAnalyzer struct {
	gw     Gateway
	logger *slog.Logger
}

func NewSummaryAnalyzer(gw Gateway, logger *slog.Logger) *SummaryAnalyzer {
	return &SummaryAnalyzer{gw: gw, logger: logger}
}

func (a *SummaryAnalyzer) Analyze(ctx context.Context, transcript, model string) SummaryResult {
	if raw := a.gw.Invoke(ctx, model, summarySystemPrompt, transcript); raw != nil {
		if summary, ok := normalizeSummary(raw); ok {
			return summary
		}
		a.logger.Debug("summary result did not normalize, using fallback")
	} else {
		a.logger.Debug("summary model unavailable, using fallback")
	}
	metrics.AnalyzerFallbacks.WithLabelValues("summary").Inc()
	return FallbackSummary(transcript)
}

// FallbackSummary infers the outcome from fixed phrase categories checked in
// strict precedence (payment > trying > dispute > escalation), defaulting to
// no_commitment, and raises a single fixed risk flag on refusal language.
func FallbackSummary(transcript string) SummaryResult {
	lower := strings.ToLower(transcript)

	outcome := OutcomeNoCommitment
	keyPoints := []string{}
	for _, check := range outcomeChecks {
		if p := firstMatch(lower, check.phrases); p != "" {
			outcome = check.outcome
			keyPoints = append(keyPoints, fmt.Sprintf("Customer said %q", p))
			break
		}
	}

	riskFlags := []string{}
	if firstMatch(lower, refusalPhrases) != "" {
		riskFlags = append(riskFlags, refusalRiskFlag)
	}

	lines := strings.Count(strings.TrimSpace(transcript), "\n") + 1
	return SummaryResult{
		Outcome:     outcome,
		Summary:     fmt.Sprintf("Collection call with %d exchanges; outcome inferred by keyword rules: %s.", lines, outcome),
		KeyPoints:   keyPoints,
		NextActions: []string{"Schedule follow-up call"},
		RiskFlags:   riskFlags,
	}
}

func firstMatch(lower string, phrases []string) string {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func normalizeSummary(raw any) (SummaryResult, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return SummaryResult{}, false
	}
	if _, hasOutcome := m["outcome"]; !hasOutcome {
		if _, hasSummary := m["summary"]; !hasSummary {
			return SummaryResult{}, false
		}
	}

	var wire SummaryResult
	if !decodeInto(m, &wire) {
		return SummaryResult{}, false
	}

	if !ValidOutcome(wire.Outcome) {
		wire.Outcome = OutcomeNoCommitment
	}
	if wire.KeyPoints == nil {
		wire.KeyPoints = []string{}
	}
	if wire.NextActions == nil {
		wire.NextActions = []string{}
	}
	if wire.RiskFlags == nil {
		wire.RiskFlags = []string{}
	}
	return wire, true
}
