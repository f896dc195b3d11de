package vector

import (
	"context"
	"math"
)

// Neighbor is one k-nearest-neighbour hit. ID is the position the vector was
// inserted under; Distance is cosine distance, i.e. 1 - cosine similarity.
type Neighbor struct {
	ID       uint64
	Distance float32
}

// Similarity converts the cosine distance back into a similarity score.
func (n Neighbor) Similarity() float32 {
	s := 1 - n.Distance
	if s > 1 {
		return 1
	}
	return s
}

// Index stores fixed-dimension vectors under sequential IDs and answers
// approximate nearest-neighbour queries.
type Index interface {
	// Add inserts vec under id. Vectors with the wrong dimension are rejected.
	Add(ctx context.Context, id uint64, vec []float32) error

	// Search returns up to k neighbours ordered by ascending distance.
	// An empty index returns no neighbours and no error.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)

	// Len returns the number of stored vectors.
	Len(ctx context.Context) (int, error)

	// Load restores previously saved vectors. ok is false when nothing was saved.
	Load(ctx context.Context) (ok bool, err error)

	// Save persists the current vectors.
	Save(ctx context.Context) error

	// Reset drops all vectors, including saved ones.
	Reset(ctx context.Context) error

	Dimensions() int
	Close() error

	// GetProviderType returns the backend name ("hnsw" or "qdrant")
	GetProviderType() string
}

// normalize returns a unit-length copy of v. ok is false for zero vectors.
func normalize(v []float32) (out []float32, ok bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, false
	}
	norm := float32(math.Sqrt(sum))
	out = make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, true
}

// CosineDistance is 1 - cos(a, b). Zero vectors are treated as maximally distant.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
