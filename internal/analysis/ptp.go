package analysis

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

var (
	// A number within 40 characters after a payment verb.
	ptpAmountRe = regexp.MustCompile(`(?:pay|paying|arrange|arranging|transfer|transferring|commit|committing)\b[^0-9]{0,40}?([0-9][0-9,]*(?:\.[0-9]+)?)`)
	// "by/before/on <month> <day>".
	ptpDateRe = regexp.MustCompile(`(?:by|before|on)\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+([0-9]{1,2})`)
	// Bare "20k" style amounts.
	ptpKSuffixRe = regexp.MustCompile(`[0-9]\s*k\b`)
)

var promisePhrases = []string{
	"i will pay",
	"i'll pay",
	"i promise to pay",
	"will make the payment",
	"i will arrange",
	"commit to pay",
}

var installmentWords = []string{"installment", "emi", "monthly"}

// PTPAnalyzer extracts promise-to-pay commitments, model-backed with a
// regex/keyword fallback.
type PTPAnalyzer struct {
	gw     Gateway
	logger *slog.Logger
}

func NewPTPAnalyzer(gw Gateway, logger *slog.Logger) *PTPAnalyzer {
	return &PTPAnalyzer{gw: gw, logger: logger}
}

func (a *PTPAnalyzer) Analyze(ctx context.Context, transcript, model string) PromiseToPay {
	if raw := a.gw.Invoke(ctx, model, ptpSystemPrompt, transcript); raw != nil {
		if ptp, ok := normalizePTP(raw); ok {
			return ptp
		}
		a.logger.Debug("ptp result did not normalize, using fallback")
	} else {
		a.logger.Debug("ptp model unavailable, using fallback")
	}
	metrics.AnalyzerFallbacks.WithLabelValues("ptp").Inc()
	return FallbackPTP(transcript)
}

// FallbackPTP extracts a commitment by pattern matching: an amount near a
// payment verb (with thousand/k and lakh multipliers applied once when the
// unit word appears anywhere in the transcript), a "by <month> <day>" date,
// and a fixed promise-phrase list. Confidence is 60 with an amount, 30 with
// a bare promise, 0 otherwise.
func FallbackPTP(transcript string) PromiseToPay {
	lower := strings.ToLower(transcript)

	var amount *float64
	if m := ptpAmountRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			switch {
			case strings.Contains(lower, "lakh"):
				n *= 100000
			case strings.Contains(lower, "thousand") || ptpKSuffixRe.MatchString(lower):
				n *= 1000
			}
			amount = &n
		}
	}

	var date *string
	if m := ptpDateRe.FindStringSubmatch(lower); m != nil {
		d := m[1] + " " + m[2]
		date = &d
	}

	detected := amount != nil
	for _, p := range promisePhrases {
		if strings.Contains(lower, p) {
			detected = true
			break
		}
	}

	installment := false
	for _, w := range installmentWords {
		if strings.Contains(lower, w) {
			installment = true
			break
		}
	}

	confidence := 0
	details := ""
	if detected {
		confidence = 30
		details = "Commitment inferred from transcript keywords"
		if amount != nil {
			confidence = 60
			details = "Commitment with explicit amount inferred from transcript keywords"
		}
	}

	return PromiseToPay{
		Detected:    detected,
		Amount:      amount,
		Date:        date,
		Installment: installment,
		Confidence:  confidence,
		Details:     details,
	}
}

func normalizePTP(raw any) (PromiseToPay, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return PromiseToPay{}, false
	}
	if _, ok := m["detected"]; !ok {
		return PromiseToPay{}, false
	}

	var wire struct {
		Detected    bool     `json:"detected"`
		Amount      *float64 `json:"amount"`
		Date        *string  `json:"date"`
		Installment bool     `json:"installment"`
		Confidence  float64  `json:"confidence"`
		Details     string   `json:"details"`
	}
	if !decodeInto(m, &wire) {
		return PromiseToPay{}, false
	}

	return PromiseToPay{
		Detected:    wire.Detected,
		Amount:      wire.Amount,
		Date:        wire.Date,
		Installment: wire.Installment,
		Confidence:  clampScore(int(math.Round(wire.Confidence))),
		Details:     wire.Details,
	}, true
}
