package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/collectiq-ai/collectiq/internal/analysis"
	"github.com/collectiq-ai/collectiq/internal/metrics"
	"github.com/collectiq-ai/collectiq/internal/risk"
	"github.com/collectiq-ai/collectiq/internal/store"
)

// ErrNoSegments aborts a run: a call without transcript segments has nothing
// to analyze. Every other failure mode degrades through analyzer fallbacks.
var ErrNoSegments = errors.New("no transcript segments to analyze")

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetCall(ctx context.Context, id string) (store.Call, error)
	GetSegments(ctx context.Context, callID string) ([]store.TranscriptSegment, error)
	CustomerHistory(ctx context.Context, customerID, excludeCallID string) ([]analysis.HistoricalSummary, error)
	SaveAnalysis(ctx context.Context, callID string, res *analysis.Result) error
	SetCallStatus(ctx context.Context, callID, status string) error
}

// Options selects per-run overrides.
type Options struct {
	// Model overrides the process-wide default model for this run. All five
	// analyzers in one run use the same model.
	Model string
}

// Pipeline orchestrates the multi-stage analysis of one call: four
// independent analyzers fan out concurrently, cross-call runs after the
// historical lookup, and the composite risk score is derived at the end.
type Pipeline struct {
	store        Store
	intent       *analysis.IntentAnalyzer
	compliance   *analysis.ComplianceAnalyzer
	ptp          *analysis.PTPAnalyzer
	summary      *analysis.SummaryAnalyzer
	crossCall    *analysis.CrossCallAnalyzer
	defaultModel string
	logger       *slog.Logger
}

func New(s Store, gw analysis.Gateway, defaultModel string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:        s,
		intent:       analysis.NewIntentAnalyzer(gw, logger),
		compliance:   analysis.NewComplianceAnalyzer(gw, logger),
		ptp:          analysis.NewPTPAnalyzer(gw, logger),
		summary:      analysis.NewSummaryAnalyzer(gw, logger),
		crossCall:    analysis.NewCrossCallAnalyzer(gw, logger),
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Analyze runs the full pipeline for a call and upserts the consolidated
// result. A failed run leaves any previously stored analysis untouched, so
// retrying is always safe.
func (p *Pipeline) Analyze(ctx context.Context, callID string, opts Options) (*analysis.Result, error) {
	call, err := p.store.GetCall(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("load call: %w", err)
	}

	segments, err := p.store.GetSegments(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	if len(segments) == 0 {
		if err := p.store.SetCallStatus(ctx, callID, store.StatusFailed); err != nil {
			p.logger.Error("failed to mark call failed", "call_id", callID, "error", err)
		}
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, ErrNoSegments
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	transcript := BuildTranscriptText(segments)
	p.logger.Info("analysis pipeline started", "call_id", callID, "model", model)

	var (
		intent     analysis.RepaymentIntent
		compliance []analysis.ComplianceFlag
		ptp        analysis.PromiseToPay
		summary    analysis.SummaryResult
	)

	// The four independent analyzers read the same immutable transcript and
	// write disjoint results; they never fail, they fall back.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		intent = p.intent.Analyze(gctx, transcript, model)
		return nil
	})
	g.Go(func() error {
		compliance = p.compliance.Analyze(gctx, transcript, model)
		return nil
	})
	g.Go(func() error {
		ptp = p.ptp.Analyze(gctx, transcript, model)
		return nil
	})
	g.Go(func() error {
		summary = p.summary.Analyze(gctx, transcript, model)
		return nil
	})
	_ = g.Wait()

	p.logger.Debug("independent analyzers complete", "call_id", callID)

	history, err := p.store.CustomerHistory(ctx, call.CustomerID, callID)
	if err != nil {
		p.logger.Warn("historical lookup failed, cross-call degraded", "call_id", callID, "error", err)
		history = nil
	}
	crossCallFlags := p.crossCall.Analyze(ctx, transcript, history, model)

	p.logger.Debug("cross-call analysis complete", "call_id", callID, "flag_count", len(crossCallFlags))

	result := &analysis.Result{
		ID:              "ANALYSIS-" + strings.ToUpper(uuid.New().String()[:8]),
		CallID:          callID,
		RepaymentIntent: intent,
		PromiseToPay:    ptp,
		ComplianceFlags: compliance,
		CrossCallFlags:  crossCallFlags,
		Outcome:         summary.Outcome,
		Summary:         summary.Summary,
		KeyPoints:       summary.KeyPoints,
		NextActions:     summary.NextActions,
		RiskFlags:       summary.RiskFlags,
		RiskScore:       risk.Score(intent, compliance, ptp, crossCallFlags),
	}
	if result.Outcome == "" {
		result.Outcome = analysis.OutcomeNoCommitment
	}

	if err := p.store.SaveAnalysis(ctx, callID, result); err != nil {
		if statusErr := p.store.SetCallStatus(ctx, callID, store.StatusFailed); statusErr != nil {
			p.logger.Error("failed to mark call failed", "call_id", callID, "error", statusErr)
		}
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	metrics.PipelineRuns.WithLabelValues("analyzed").Inc()
	p.logger.Info("analysis pipeline complete",
		"call_id", callID,
		"risk_score", result.RiskScore,
		"outcome", result.Outcome,
		"model", model,
	)
	return result, nil
}

// BuildTranscriptText flattens segments into the one transcript form every
// analyzer receives: sorted by start time, one "[SPEAKER] text" line each.
// Insertion order is not guaranteed upstream, so the sort is not optional.
func BuildTranscriptText(segments []store.TranscriptSegment) string {
	sorted := make([]store.TranscriptSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	lines := make([]string, len(sorted))
	for i, seg := range sorted {
		lines[i] = "[" + strings.ToUpper(seg.Speaker) + "] " + seg.Text
	}
	return strings.Join(lines, "\n")
}
