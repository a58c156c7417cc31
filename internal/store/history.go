package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/collectiq-ai/collectiq/internal/analysis"
)

// CustomerHistory returns the customer's prior analyzed calls as historical
// summaries, ordered by call date ascending. The call under analysis is
// excluded, and calls without a completed analysis contribute nothing.
func (s *Store) CustomerHistory(ctx context.Context, customerID, excludeCallID string) ([]analysis.HistoricalSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.call_date, a.summary, a.key_points, a.outcome
		FROM calls c
		JOIN analysis_results a ON a.call_id = c.id
		WHERE c.customer_id = $1 AND c.id <> $2
		ORDER BY c.call_date ASC`,
		customerID, excludeCallID)
	if err != nil {
		return nil, fmt.Errorf("query customer history: %w", err)
	}
	defer rows.Close()

	var history []analysis.HistoricalSummary
	for rows.Next() {
		var h analysis.HistoricalSummary
		var callDate time.Time
		var keyPointsJSON []byte
		if err := rows.Scan(&h.CallID, &callDate, &h.Summary, &keyPointsJSON, &h.Outcome); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		h.Date = callDate.Format("2006-01-02")
		if err := json.Unmarshal(keyPointsJSON, &h.KeyPoints); err != nil {
			return nil, fmt.Errorf("decode key points: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
