package analysis

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

// Signal phrase lists for the rule-based intent fallback. Matching is
// case-insensitive substring; each phrase counts at most once.
var (
	positivePhrases = []string{
		"i will pay",
		"i'll pay",
		"will make the payment",
		"i can pay",
		"i promise to pay",
		"definitely pay",
		"arrange the money",
		"transfer the amount",
		"settle the dues",
		"clear the dues",
	}
	negativePhrases = []string{
		"cannot pay",
		"can't pay",
		"won't pay",
		"will not pay",
		"refuse to pay",
		"no money",
		"don't have money",
		"not paying",
		"stop calling",
		"don't call me",
	}
	evasivePhrases = []string{
		"i'll try",
		"will try",
		"maybe",
		"let me see",
		"not sure",
		"call me later",
		"let me check",
		"busy right now",
	}
)

const (
	positiveWeight = 8
	negativeWeight = -10
	evasiveWeight  = -3
	maxEvidence    = 5
)

// IntentAnalyzer grades the customer's repayment intent, model-backed with a
// deterministic keyword fallback.
type IntentAnalyzer struct {
	gw     Gateway
	logger *slog.Logger
}

func NewIntentAnalyzer(gw Gateway, logger *slog.Logger) *IntentAnalyzer {
	return &IntentAnalyzer{gw: gw, logger: logger}
}

func (a *IntentAnalyzer) Analyze(ctx context.Context, transcript, model string) RepaymentIntent {
	if raw := a.gw.Invoke(ctx, model, intentSystemPrompt, transcript); raw != nil {
		if intent, ok := normalizeIntent(raw); ok {
			return intent
		}
		a.logger.Debug("intent result did not normalize, using fallback")
	} else {
		a.logger.Debug("intent model unavailable, using fallback")
	}
	metrics.AnalyzerFallbacks.WithLabelValues("intent").Inc()
	return FallbackIntent(transcript)
}

// FallbackIntent scores repayment intent from fixed signal phrases: base 50,
// +8 per positive phrase, -10 per negative, -3 per evasive, clamped to
// [0,100]. Evidence keeps the first 5 matches in signal-list order.
func FallbackIntent(transcript string) RepaymentIntent {
	lower := strings.ToLower(transcript)

	score := 50
	var evidence []string
	var signals []string

	scan := func(phrases []string, weight int, signal string) {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				score += weight
				evidence = append(evidence, p)
				signals = appendUnique(signals, signal)
			}
		}
	}

	scan(positivePhrases, positiveWeight, "commitment_language")
	scan(negativePhrases, negativeWeight, "refusal_language")
	scan(evasivePhrases, evasiveWeight, "evasive_language")

	score = clampScore(score)
	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}
	if evidence == nil {
		evidence = []string{}
	}
	if signals == nil {
		signals = []string{}
	}

	return RepaymentIntent{
		Score:    score,
		Level:    levelForScore(score),
		Evidence: evidence,
		Signals:  signals,
	}
}

func normalizeIntent(raw any) (RepaymentIntent, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return RepaymentIntent{}, false
	}
	if _, ok := m["score"]; !ok {
		return RepaymentIntent{}, false
	}

	var wire struct {
		Score    float64  `json:"score"`
		Level    string   `json:"level"`
		Evidence []string `json:"evidence"`
		Signals  []string `json:"signals"`
	}
	if !decodeInto(m, &wire) {
		return RepaymentIntent{}, false
	}

	score := clampScore(int(math.Round(wire.Score)))
	level := wire.Level
	switch level {
	case LevelHigh, LevelMedium, LevelLow, LevelNone:
	default:
		level = levelForScore(score)
	}

	intent := RepaymentIntent{
		Score:    score,
		Level:    level,
		Evidence: wire.Evidence,
		Signals:  wire.Signals,
	}
	if intent.Evidence == nil {
		intent.Evidence = []string{}
	}
	if intent.Signals == nil {
		intent.Signals = []string{}
	}
	return intent, true
}
