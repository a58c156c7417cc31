package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

// CrossCallAnalyzer diffs the current call's claims against the customer's
// prior calls. It has no rule-based substitute: inconsistency detection needs
// semantic comparison a keyword scan cannot approximate safely, so without a
// usable model result it degrades to "no flags found".
type CrossCallAnalyzer struct {
	gw     Gateway
	logger *slog.Logger
}

func NewCrossCallAnalyzer(gw Gateway, logger *slog.Logger) *CrossCallAnalyzer {
	return &CrossCallAnalyzer{gw: gw, logger: logger}
}

// Analyze returns cross-call inconsistency flags. With no history there is
// nothing to cross-reference, so it short-circuits without invoking the
// gateway at all.
func (a *CrossCallAnalyzer) Analyze(ctx context.Context, transcript string, history []HistoricalSummary, model string) []CrossCallFlag {
	if len(history) == 0 {
		return []CrossCallFlag{}
	}

	userPrompt := fmt.Sprintf("CURRENT CALL TRANSCRIPT:\n%s\n\nPREVIOUS CALL HISTORY:\n%s",
		transcript, buildHistoryBlock(history))

	raw := a.gw.Invoke(ctx, model, crossCallSystemPrompt, userPrompt)
	if raw == nil {
		a.logger.Debug("cross-call model unavailable, reporting no flags")
		metrics.AnalyzerFallbacks.WithLabelValues("crosscall").Inc()
		return []CrossCallFlag{}
	}

	flags, ok := normalizeCrossCallFlags(raw)
	if !ok {
		a.logger.Debug("cross-call result did not normalize, reporting no flags")
		metrics.AnalyzerFallbacks.WithLabelValues("crosscall").Inc()
		return []CrossCallFlag{}
	}
	return flags
}

// buildHistoryBlock renders one section per prior call, chronologically.
func buildHistoryBlock(history []HistoricalSummary) string {
	sections := make([]string, len(history))
	for i, h := range history {
		keyPoints := "N/A"
		if len(h.KeyPoints) > 0 {
			keyPoints = strings.Join(h.KeyPoints, ", ")
		}
		outcome := h.Outcome
		if outcome == "" {
			outcome = "N/A"
		}
		sections[i] = fmt.Sprintf("--- Call %d (%s) ---\nSummary: %s\nKey Points: %s\nOutcome: %s",
			i+1, h.Date, h.Summary, keyPoints, outcome)
	}
	return strings.Join(sections, "\n\n")
}

// normalizeCrossCallFlags accepts a bare array or a {"flags": [...]} wrapper.
func normalizeCrossCallFlags(raw any) ([]CrossCallFlag, bool) {
	arr, ok := raw.([]any)
	if !ok {
		m, isMap := raw.(map[string]any)
		if !isMap {
			return nil, false
		}
		arr, ok = m["flags"].([]any)
		if !ok {
			return nil, false
		}
	}

	flags := []CrossCallFlag{}
	for _, item := range arr {
		var f CrossCallFlag
		if !decodeInto(item, &f) || f.Field == "" {
			continue
		}
		flags = append(flags, f)
	}
	return flags, true
}
