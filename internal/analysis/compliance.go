package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

// Violation types with their fixed severities.
const (
	ViolationThreatening  = "threatening_language"
	ViolationIntimidation = "intimidation"
	ViolationCoercion     = "coercion"
)

// compliancePhrases maps fixed agent phrases to violation types. The check is
// existence-based per phrase: each distinct phrase hit contributes exactly one
// flag, repeated occurrences of the same phrase are not re-scanned.
var compliancePhrases = []struct {
	phrase   string
	vtype    string
	severity string
}{
	{"we will send people", ViolationThreatening, "high"},
	{"send someone to your house", ViolationThreatening, "high"},
	{"you will face consequences", ViolationThreatening, "high"},
	{"you will regret", ViolationThreatening, "high"},
	{"we know where you live", ViolationThreatening, "high"},

	{"tell your employer", ViolationIntimidation, "high"},
	{"inform your family", ViolationIntimidation, "high"},
	{"your neighbours will know", ViolationIntimidation, "high"},
	{"everyone will know about your loan", ViolationIntimidation, "high"},

	{"you have no choice", ViolationCoercion, "medium"},
	{"must pay immediately", ViolationCoercion, "medium"},
	{"pay right now or", ViolationCoercion, "medium"},
	{"we will not leave until", ViolationCoercion, "medium"},
}

// ComplianceAnalyzer flags collections-conduct violations in agent speech.
type ComplianceAnalyzer struct {
	gw     Gateway
	logger *slog.Logger
}

func NewComplianceAnalyzer(gw Gateway, logger *slog.Logger) *ComplianceAnalyzer {
	return &ComplianceAnalyzer{gw: gw, logger: logger}
}

func (a *ComplianceAnalyzer) Analyze(ctx context.Context, transcript, model string) []ComplianceFlag {
	if raw := a.gw.Invoke(ctx, model, complianceSystemPrompt, transcript); raw != nil {
		if flags, ok := normalizeComplianceFlags(raw); ok {
			return flags
		}
		a.logger.Debug("compliance result did not normalize, using fallback")
	} else {
		a.logger.Debug("compliance model unavailable, using fallback")
	}
	metrics.AnalyzerFallbacks.WithLabelValues("compliance").Inc()
	return FallbackCompliance(transcript)
}

// FallbackCompliance scans the lowercased transcript against the fixed phrase
// lists. No timing information is available on this path, so timestamps stay
// empty.
func FallbackCompliance(transcript string) []ComplianceFlag {
	lower := strings.ToLower(transcript)

	flags := []ComplianceFlag{}
	for _, entry := range compliancePhrases {
		if strings.Contains(lower, entry.phrase) {
			flags = append(flags, ComplianceFlag{
				Type:     entry.vtype,
				Severity: entry.severity,
				Evidence: entry.phrase,
			})
		}
	}
	return flags
}

// normalizeComplianceFlags accepts either a bare array or a {"violations": [...]}
// wrapper, the two shapes models actually produce.
func normalizeComplianceFlags(raw any) ([]ComplianceFlag, bool) {
	arr, ok := raw.([]any)
	if !ok {
		m, isMap := raw.(map[string]any)
		if !isMap {
			return nil, false
		}
		arr, ok = m["violations"].([]any)
		if !ok {
			return nil, false
		}
	}

	flags := []ComplianceFlag{}
	for _, item := range arr {
		var f ComplianceFlag
		if !decodeInto(item, &f) || f.Type == "" {
			continue
		}
		switch f.Severity {
		case "low", "medium", "high":
		default:
			f.Severity = "medium"
		}
		flags = append(flags, f)
	}
	return flags, true
}
