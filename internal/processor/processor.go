// Package processor consumes bus events and drives transcription intake and
// analysis runs.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/collectiq-ai/collectiq/internal/diarize"
	"github.com/collectiq-ai/collectiq/internal/events"
	"github.com/collectiq-ai/collectiq/internal/pipeline"
	"github.com/collectiq-ai/collectiq/internal/store"
)

// Publisher is the outbound side of the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// SegmentStore is the persistence the processor needs for intake.
type SegmentStore interface {
	InsertSegments(ctx context.Context, callID string, segments []store.TranscriptSegment) error
	SetCallStatus(ctx context.Context, callID, status string) error
}

// Processor wires the bus to diarization and the analysis pipeline.
type Processor struct {
	store    SegmentStore
	labeler  *diarize.Labeler
	pipeline *pipeline.Pipeline
	bus      Publisher
	logger   *slog.Logger
}

func New(s SegmentStore, labeler *diarize.Labeler, p *pipeline.Pipeline, bus Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		store:    s,
		labeler:  labeler,
		pipeline: p,
		bus:      bus,
		logger:   logger,
	}
}

// HandleSTTCompleted is the NATS handler for collectiq.stt.completed: group
// raw segments into turns, label speakers, persist, advance the call to
// transcribed, then trigger analysis via the bus.
func (p *Processor) HandleSTTCompleted(subject string, data []byte) {
	ctx := context.Background()

	var evt events.STTCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse stt event", "error", err)
		return
	}
	if evt.CallID == "" {
		p.logger.Error("stt event missing call_id")
		return
	}

	raw := make([]diarize.RawSegment, len(evt.Segments))
	for i, s := range evt.Segments {
		raw[i] = diarize.RawSegment{Start: s.Start, End: s.End, Text: s.Text}
	}

	turns := diarize.GroupTurns(raw)
	if len(turns) == 0 {
		p.logger.Warn("stt event carried no usable segments", "call_id", evt.CallID)
		if err := p.store.SetCallStatus(ctx, evt.CallID, store.StatusFailed); err != nil {
			p.logger.Error("failed to mark call failed", "call_id", evt.CallID, "error", err)
		}
		return
	}

	segments := p.labeler.Label(ctx, turns, evt.Model)

	if err := p.store.InsertSegments(ctx, evt.CallID, segments); err != nil {
		p.logger.Error("failed to store segments", "call_id", evt.CallID, "error", err)
		return
	}
	if err := p.store.SetCallStatus(ctx, evt.CallID, store.StatusTranscribed); err != nil {
		p.logger.Error("failed to mark call transcribed", "call_id", evt.CallID, "error", err)
		return
	}

	p.logger.Info("call transcribed", "call_id", evt.CallID, "turns", len(turns))

	if err := p.bus.Publish(events.SubjectCallTranscribed, events.CallTranscribed{
		CallID: evt.CallID,
		Model:  evt.Model,
	}); err != nil {
		p.logger.Error("failed to publish transcribed event", "call_id", evt.CallID, "error", err)
	}
}

// HandleCallTranscribed is the NATS handler for collectiq.call.transcribed:
// run the analysis pipeline and announce the result.
func (p *Processor) HandleCallTranscribed(subject string, data []byte) {
	ctx := context.Background()

	var evt events.CallTranscribed
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcribed event", "error", err)
		return
	}
	if evt.CallID == "" {
		p.logger.Error("transcribed event missing call_id")
		return
	}

	result, err := p.pipeline.Analyze(ctx, evt.CallID, pipeline.Options{Model: evt.Model})
	if err != nil {
		p.logger.Error("analysis failed", "call_id", evt.CallID, "error", err)
		return
	}

	if err := p.bus.Publish(events.SubjectCallAnalyzed, events.CallAnalyzed{
		CallID:    evt.CallID,
		RiskScore: result.RiskScore,
		Outcome:   result.Outcome,
		Model:     evt.Model,
	}); err != nil {
		p.logger.Error("failed to publish analyzed event", "call_id", evt.CallID, "error", err)
	}
}
