package analysis

import (
	"context"
	"testing"
)

func TestFallbackPTP(t *testing.T) {
	tests := []struct {
		name           string
		transcript     string
		wantDetected   bool
		wantAmount     *float64
		wantDate       *string
		wantConfidence int
	}{
		{
			name:           "amount with thousand multiplier and date",
			transcript:     "[CUSTOMER] I will pay 20 thousand by January 15.",
			wantDetected:   true,
			wantAmount:     f64(20000),
			wantDate:       str("january 15"),
			wantConfidence: 60,
		},
		{
			name:           "lakh multiplier",
			transcript:     "[CUSTOMER] I can transfer 2 lakh before March 1.",
			wantDetected:   true,
			wantAmount:     f64(200000),
			wantDate:       str("march 1"),
			wantConfidence: 60,
		},
		{
			name:           "k suffix",
			transcript:     "[CUSTOMER] Fine, I will pay 20k on June 3.",
			wantDetected:   true,
			wantAmount:     f64(20000),
			wantDate:       str("june 3"),
			wantConfidence: 60,
		},
		{
			name:           "comma grouped amount",
			transcript:     "[CUSTOMER] I am paying 1,500 today.",
			wantDetected:   true,
			wantAmount:     f64(1500),
			wantConfidence: 60,
		},
		{
			name:           "bare promise without amount",
			transcript:     "[CUSTOMER] I promise to pay as soon as I can.",
			wantDetected:   true,
			wantConfidence: 30,
		},
		{
			name:           "no commitment",
			transcript:     "[AGENT] Your account is overdue.\n[CUSTOMER] I am aware.",
			wantDetected:   false,
			wantConfidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackPTP(tt.transcript)
			if got.Detected != tt.wantDetected {
				t.Errorf("detected = %v, want %v", got.Detected, tt.wantDetected)
			}
			if !f64Eq(got.Amount, tt.wantAmount) {
				t.Errorf("amount = %v, want %v", deref(got.Amount), deref(tt.wantAmount))
			}
			if !strEq(got.Date, tt.wantDate) {
				t.Errorf("date = %v, want %v", derefStr(got.Date), derefStr(tt.wantDate))
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %d, want %d", got.Confidence, tt.wantConfidence)
			}
			if tt.wantDetected && got.Details == "" {
				t.Error("expected non-empty details for a detected commitment")
			}
		})
	}
}

func TestFallbackPTP_Installment(t *testing.T) {
	got := FallbackPTP("[CUSTOMER] I will pay 5000 as monthly EMI.")
	if !got.Installment {
		t.Error("expected installment true")
	}
}

func TestPTPAnalyzer_ModelResult(t *testing.T) {
	gw := &stubGateway{result: map[string]any{
		"detected":    true,
		"amount":      float64(7500),
		"date":        "april 10",
		"installment": false,
		"confidence":  float64(85),
		"details":     "Firm commitment for full amount",
	}}
	a := NewPTPAnalyzer(gw, testLogger())

	got := a.Analyze(context.Background(), "x", "m")
	if !got.Detected || got.Amount == nil || *got.Amount != 7500 || got.Confidence != 85 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestPTPAnalyzer_FallsBackOnMissingDetectedKey(t *testing.T) {
	gw := &stubGateway{result: map[string]any{"amount": float64(100)}}
	a := NewPTPAnalyzer(gw, testLogger())

	got := a.Analyze(context.Background(), "[CUSTOMER] I will pay 20 thousand by January 15.", "m")
	if got.Amount == nil || *got.Amount != 20000 || got.Confidence != 60 {
		t.Errorf("expected fallback extraction, got %+v", got)
	}
}

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func f64Eq(a, b *float64) bool { return (a == nil) == (b == nil) && (a == nil || *a == *b) }

func strEq(a, b *string) bool { return (a == nil) == (b == nil) && (a == nil || *a == *b) }

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
