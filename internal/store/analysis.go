package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/collectiq-ai/collectiq/internal/analysis"
)

// SaveAnalysis upserts the consolidated analysis record for a call and
// advances the call to analyzed, in one transaction. An advisory lock keyed
// on the call id serializes racing runs for the same call, so a record can
// never end up with fields from two different runs mixed together.
func (s *Store) SaveAnalysis(ctx context.Context, callID string, res *analysis.Result) error {
	intentJSON, err := json.Marshal(res.RepaymentIntent)
	if err != nil {
		return fmt.Errorf("marshal repayment intent: %w", err)
	}
	ptpJSON, err := json.Marshal(res.PromiseToPay)
	if err != nil {
		return fmt.Errorf("marshal promise to pay: %w", err)
	}
	complianceJSON, err := json.Marshal(res.ComplianceFlags)
	if err != nil {
		return fmt.Errorf("marshal compliance flags: %w", err)
	}
	crossCallJSON, err := json.Marshal(res.CrossCallFlags)
	if err != nil {
		return fmt.Errorf("marshal cross-call flags: %w", err)
	}
	keyPointsJSON, err := json.Marshal(res.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}
	nextActionsJSON, err := json.Marshal(res.NextActions)
	if err != nil {
		return fmt.Errorf("marshal next actions: %w", err)
	}
	riskFlagsJSON, err := json.Marshal(res.RiskFlags)
	if err != nil {
		return fmt.Errorf("marshal risk flags: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent runs for the same call for the duration of the tx.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, callID); err != nil {
		return fmt.Errorf("acquire call lock: %w", err)
	}

	var storedID string
	err = tx.QueryRow(ctx, `
		INSERT INTO analysis_results
			(id, call_id, repayment_intent, promise_to_pay, compliance_flags, cross_call_flags,
			 outcome, summary, key_points, next_actions, risk_flags, risk_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (call_id) DO UPDATE SET
			repayment_intent = $3,
			promise_to_pay = $4,
			compliance_flags = $5,
			cross_call_flags = $6,
			outcome = $7,
			summary = $8,
			key_points = $9,
			next_actions = $10,
			risk_flags = $11,
			risk_score = $12,
			updated_at = now()
		RETURNING id`,
		res.ID, callID, intentJSON, ptpJSON, complianceJSON, crossCallJSON,
		res.Outcome, res.Summary, keyPointsJSON, nextActionsJSON, riskFlagsJSON, res.RiskScore,
	).Scan(&storedID)
	if err != nil {
		return fmt.Errorf("upsert analysis for %s: %w", callID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE calls SET status = $1, updated_at = now() WHERE id = $2`,
		StatusAnalyzed, callID,
	); err != nil {
		return fmt.Errorf("mark call analyzed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// On update the row keeps its original id.
	res.ID = storedID
	return nil
}

// GetAnalysis loads the stored analysis record for a call.
func (s *Store) GetAnalysis(ctx context.Context, callID string) (*analysis.Result, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, call_id, repayment_intent, promise_to_pay, compliance_flags, cross_call_flags,
		       outcome, summary, key_points, next_actions, risk_flags, risk_score
		FROM analysis_results WHERE call_id = $1`, callID)

	var res analysis.Result
	var intentJSON, ptpJSON, complianceJSON, crossCallJSON, keyPointsJSON, nextActionsJSON, riskFlagsJSON []byte
	err := row.Scan(&res.ID, &res.CallID, &intentJSON, &ptpJSON, &complianceJSON, &crossCallJSON,
		&res.Outcome, &res.Summary, &keyPointsJSON, &nextActionsJSON, &riskFlagsJSON, &res.RiskScore)
	if err != nil {
		return nil, fmt.Errorf("get analysis for %s: %w", callID, err)
	}

	for _, unmarshal := range []struct {
		data   []byte
		target any
	}{
		{intentJSON, &res.RepaymentIntent},
		{ptpJSON, &res.PromiseToPay},
		{complianceJSON, &res.ComplianceFlags},
		{crossCallJSON, &res.CrossCallFlags},
		{keyPointsJSON, &res.KeyPoints},
		{nextActionsJSON, &res.NextActions},
		{riskFlagsJSON, &res.RiskFlags},
	} {
		if err := json.Unmarshal(unmarshal.data, unmarshal.target); err != nil {
			return nil, fmt.Errorf("decode analysis field: %w", err)
		}
	}
	return &res, nil
}
