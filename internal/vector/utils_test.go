package vector

import (
	"math"
	"testing"
)

func TestFloat32SliceRoundTrip(t *testing.T) {
	original := []float32{0.5, -1.25, 3.75, 0}

	encoded, err := Float32SliceToBytes(original)
	if err != nil {
		t.Fatalf("Float32SliceToBytes failed: %v", err)
	}

	decoded, err := BytesToFloat32Slice(encoded)
	if err != nil {
		t.Fatalf("BytesToFloat32Slice failed: %v", err)
	}

	if len(decoded) != len(original) {
		t.Fatalf("Expected %d values after round trip, got %d", len(original), len(decoded))
	}

	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("Value %d changed in round trip: %f != %f", i, decoded[i], original[i])
		}
	}
}

func TestBytesToFloat32SliceTruncated(t *testing.T) {
	encoded, err := Float32SliceToBytes([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Float32SliceToBytes failed: %v", err)
	}

	// Cut the payload short so the declared length cannot be satisfied.
	_, err = BytesToFloat32Slice(encoded[:6])
	if err == nil {
		t.Error("Expected error for truncated embedding bytes")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a       []float32
		b       []float32
		want    float64
		wantErr bool
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0, 0},
			b:    []float32{-1, 0, 0},
			want: -1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name:    "dimension mismatch",
			a:       []float32{1, 2},
			b:       []float32{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "zero magnitude",
			a:       []float32{0, 0},
			b:       []float32{1, 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Expected similarity %f, got %f", tt.want, got)
			}
		})
	}
}

func TestMockEmbedderDeterminism(t *testing.T) {
	embedder := NewMockEmbedder(64)
	if err := embedder.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	first, err := embedder.CreateEmbedding("What was Q1 2025 revenue?")
	if err != nil {
		t.Fatalf("CreateEmbedding failed: %v", err)
	}

	second, err := embedder.CreateEmbedding("What was Q1 2025 revenue?")
	if err != nil {
		t.Fatalf("CreateEmbedding failed: %v", err)
	}

	if len(first) != 64 {
		t.Fatalf("Expected 64 dimensions, got %d", len(first))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatal("Expected identical embeddings for identical text")
		}
	}

	// Embeddings should be unit length.
	sim, err := CosineSimilarity(first, second)
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("Expected self similarity 1.0, got %f", sim)
	}
}
