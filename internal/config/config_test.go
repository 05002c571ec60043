package config

import "testing"

func TestScoreWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights ScoreWeights
		wantErr bool
	}{
		{
			name:    "default weights sum to one",
			weights: ScoreWeights{Similarity: 0.30, Authority: 0.25, Freshness: 0.20, CrossReference: 0.15, Diversity: 0.10},
			wantErr: false,
		},
		{
			name:    "uniform weights sum to one",
			weights: ScoreWeights{Similarity: 0.2, Authority: 0.2, Freshness: 0.2, CrossReference: 0.2, Diversity: 0.2},
			wantErr: false,
		},
		{
			name:    "sum above one rejected",
			weights: ScoreWeights{Similarity: 0.5, Authority: 0.25, Freshness: 0.20, CrossReference: 0.15, Diversity: 0.10},
			wantErr: true,
		},
		{
			name:    "sum below one rejected",
			weights: ScoreWeights{Similarity: 0.30, Authority: 0.25, Freshness: 0.20, CrossReference: 0.15},
			wantErr: true,
		},
		{
			name:    "negative weight rejected even when sum is one",
			weights: ScoreWeights{Similarity: 1.10, Authority: -0.10, Freshness: 0, CrossReference: 0, Diversity: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
		})
	}
}

func TestScoreWeightsSum(t *testing.T) {
	w := ScoreWeights{Similarity: 0.30, Authority: 0.25, Freshness: 0.20, CrossReference: 0.15, Diversity: 0.10}
	if got := w.Sum(); got < 0.999999 || got > 1.000001 {
		t.Fatalf("Sum() = %f, want 1.0", got)
	}
}
