package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Call statuses. Transitions are monotonic: pending -> transcribed ->
// analyzed, or -> failed on error. Re-analysis updates the existing
// analysis record rather than resetting the status chain.
const (
	StatusPending     = "pending"
	StatusTranscribed = "transcribed"
	StatusAnalyzed    = "analyzed"
	StatusFailed      = "failed"
)

type Call struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	AgentName  string    `json:"agentName"`
	Duration   int       `json:"duration"`
	CallDate   time.Time `json:"callDate"`
	Status     string    `json:"status"`
}

type TranscriptSegment struct {
	ID        string  `json:"id"`
	CallID    string  `json:"callId"`
	Speaker   string  `json:"speaker"` // agent | customer
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// NewCallID mints a human-readable call identifier.
func NewCallID() string {
	return "CALL-" + shortID()
}

func shortID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}

func (s *Store) GetCall(ctx context.Context, id string) (Call, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, agent_name, duration, call_date, status
		FROM calls WHERE id = $1`, id)

	var c Call
	if err := row.Scan(&c.ID, &c.CustomerID, &c.AgentName, &c.Duration, &c.CallDate, &c.Status); err != nil {
		return Call{}, fmt.Errorf("get call %s: %w", id, err)
	}
	return c, nil
}

// ListCalls returns all calls, newest first.
func (s *Store) ListCalls(ctx context.Context) ([]Call, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, agent_name, duration, call_date, status
		FROM calls
		ORDER BY call_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.AgentName, &c.Duration, &c.CallDate, &c.Status); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func (s *Store) GetSegments(ctx context.Context, callID string) ([]TranscriptSegment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, call_id, speaker, start_time, end_time, text
		FROM transcript_segments
		WHERE call_id = $1
		ORDER BY start_time ASC`, callID)
	if err != nil {
		return nil, fmt.Errorf("query segments for %s: %w", callID, err)
	}
	defer rows.Close()

	var segments []TranscriptSegment
	for rows.Next() {
		var seg TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.CallID, &seg.Speaker, &seg.StartTime, &seg.EndTime, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// InsertSegments writes a call's transcript segments in one transaction.
func (s *Store) InsertSegments(ctx context.Context, callID string, segments []TranscriptSegment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, seg := range segments {
		id := seg.ID
		if id == "" {
			id = "SEG-" + shortID()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO transcript_segments (id, call_id, speaker, start_time, end_time, text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())`,
			id, callID, seg.Speaker, seg.StartTime, seg.EndTime, seg.Text,
		)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) SetCallStatus(ctx context.Context, callID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE calls SET status = $1, updated_at = now() WHERE id = $2`,
		status, callID,
	)
	if err != nil {
		return fmt.Errorf("set call %s status %s: %w", callID, status, err)
	}
	return nil
}
