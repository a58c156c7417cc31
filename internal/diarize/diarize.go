// Package diarize post-processes raw speech-to-text output: it merges
// timestamped segments into speech turns and assigns agent/customer labels
// to each turn.
package diarize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/collectiq-ai/collectiq/internal/analysis"
	"github.com/collectiq-ai/collectiq/internal/store"
)

// RawSegment is one timestamped segment as produced by the transcription
// engine, before any speaker attribution.
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Turn is a contiguous stretch of speech by one (yet unknown) speaker.
type Turn struct {
	StartTime float64
	EndTime   float64
	Text      string
}

// turnGap is the pause length that signals a likely speaker change.
const turnGap = 0.8

// GroupTurns merges consecutive segments into turns. A gap longer than 0.8s
// between one segment's end and the next segment's start opens a new turn.
// Timestamps are rounded to 0.1s.
func GroupTurns(raw []RawSegment) []Turn {
	var turns []Turn
	for _, seg := range raw {
		text := strings.TrimSpace(seg.Text)
		if len(turns) == 0 || seg.Start-turns[len(turns)-1].EndTime > turnGap {
			turns = append(turns, Turn{
				StartTime: roundTenth(seg.Start),
				EndTime:   roundTenth(seg.End),
				Text:      text,
			})
			continue
		}
		last := &turns[len(turns)-1]
		last.EndTime = roundTenth(seg.End)
		last.Text += " " + text
	}
	return turns
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

const labelSystemPrompt = `You are a call transcript diarization expert for loan collection calls.
You will receive a numbered list of speech turns from a two-party phone call
between a bank/NBFC collection agent and a loan customer.

Assign each turn to either "agent" or "customer".

Agent characteristics: identifies themselves or the bank, states loan account
details and amounts, asks when the customer will pay, uses formal scripted
collection language.

Customer characteristics: asks about their loan or balance, makes objections
or excuses, confirms or denies payment intent, asks for more time.

Reply with ONLY a JSON array of objects, one per turn, in the same order:
[{"turn": 1, "speaker": "agent"}, {"turn": 2, "speaker": "customer"}]`

// Labeler assigns speakers to turns, model-backed with an alternating
// heuristic fallback.
type Labeler struct {
	gw     analysis.Gateway
	logger *slog.Logger
}

func NewLabeler(gw analysis.Gateway, logger *slog.Logger) *Labeler {
	return &Labeler{gw: gw, logger: logger}
}

// Label turns the grouped turns into transcript segments with speakers
// assigned. The model sees the full numbered turn list in one call; a nil or
// shape-mismatched reply (wrong length included) falls back to the
// alternating heuristic with the first turn as agent.
func (l *Labeler) Label(ctx context.Context, turns []Turn, model string) []store.TranscriptSegment {
	if len(turns) == 0 {
		return []store.TranscriptSegment{}
	}

	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("Turn %d [%gs-%gs]: %s", i+1, t.StartTime, t.EndTime, t.Text)
	}

	raw := l.gw.Invoke(ctx, model, labelSystemPrompt, strings.Join(lines, "\n"))
	speakers, ok := normalizeLabels(raw, len(turns))
	if !ok {
		l.logger.Warn("diarization labels unusable, using alternating heuristic", "turns", len(turns))
		speakers = alternatingSpeakers(len(turns))
	}

	segments := make([]store.TranscriptSegment, len(turns))
	for i, t := range turns {
		segments[i] = store.TranscriptSegment{
			Speaker:   speakers[i],
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Text:      t.Text,
		}
	}
	return segments
}

// normalizeLabels accepts only an array with exactly one entry per turn.
// Anything not explicitly "customer" labels as "agent".
func normalizeLabels(raw any, want int) ([]string, bool) {
	arr, ok := raw.([]any)
	if !ok || len(arr) != want {
		return nil, false
	}

	speakers := make([]string, want)
	for i, item := range arr {
		speakers[i] = "agent"
		if m, isMap := item.(map[string]any); isMap {
			if s, _ := m["speaker"].(string); s == "customer" {
				speakers[i] = "customer"
			}
		}
	}
	return speakers, true
}

func alternatingSpeakers(n int) []string {
	speakers := make([]string, n)
	for i := range speakers {
		if i%2 == 0 {
			speakers[i] = "agent"
		} else {
			speakers[i] = "customer"
		}
	}
	return speakers
}
