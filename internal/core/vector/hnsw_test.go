package vector

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWIndexSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewHNSWIndex(t.TempDir(), 3)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, 0, []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, 1, []float32{0, 1, 0}))
	require.NoError(t, idx.Add(ctx, 2, []float32{0, 0, 1}))

	hits, err := idx.Search(ctx, []float32{0.1, 0.9, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].ID)
	assert.Greater(t, hits[0].Similarity(), float32(0.9))

	n, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHNSWIndexEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	idx, err := NewHNSWIndex(t.TempDir(), 2)
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Error(t, idx.Add(ctx, 0, []float32{1, 0, 0}))
	assert.Error(t, idx.Add(ctx, 0, []float32{0, 0}))

	_, err = idx.Search(ctx, []float32{1}, 1)
	assert.Error(t, err)

	_, err = NewHNSWIndex(t.TempDir(), 0)
	assert.Error(t, err)
}

func TestHNSWIndexSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewHNSWIndex(dir, 2)
	require.NoError(t, err)

	ok, err := idx.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	require.NoError(t, idx.Add(ctx, 0, []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, 1, []float32{0, 1}))
	require.NoError(t, idx.Save(ctx))

	restored, err := NewHNSWIndex(dir, 2)
	require.NoError(t, err)
	ok, err = restored.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	n, _ := restored.Len(ctx)
	assert.Equal(t, 2, n)

	hits, err := restored.Search(ctx, []float32{0, 2}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].ID)

	require.NoError(t, restored.Reset(ctx))
	ok, err = restored.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func randomVectors(n, dims int, seed uint64) [][]float32 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dims)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func TestHNSWIndexRecall(t *testing.T) {
	const dims = 1536
	for _, n := range []int{100, 300} {
		ctx := context.Background()
		dir := t.TempDir()
		vecs := randomVectors(n, dims, uint64(n))

		idx, err := NewHNSWIndex(dir, dims)
		require.NoError(t, err)
		for id, v := range vecs {
			require.NoError(t, idx.Add(ctx, uint64(id), v))
		}

		selfMatch := func(idx *HNSWIndex) {
			for id, v := range vecs {
				hits, err := idx.Search(ctx, v, 1)
				require.NoError(t, err)
				require.Len(t, hits, 1)
				require.Equal(t, uint64(id), hits[0].ID, "n=%d id=%d", n, id)
				assert.GreaterOrEqual(t, hits[0].Similarity(), float32(0.99))
			}
		}
		selfMatch(idx)

		require.NoError(t, idx.Save(ctx))
		restored, err := NewHNSWIndex(dir, dims)
		require.NoError(t, err)
		ok, err := restored.Load(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		selfMatch(restored)
	}
}

func TestHNSWIndexGraphSearchReranks(t *testing.T) {
	const dims, n, k = 1536, 300, 5
	ctx := context.Background()
	vecs := randomVectors(n, dims, 42)

	idx, err := NewHNSWIndex(t.TempDir(), dims)
	require.NoError(t, err)
	idx.ExactSearchLimit = 10
	for id, v := range vecs {
		require.NoError(t, idx.Add(ctx, uint64(id), v))
	}

	found := 0
	for id, v := range vecs {
		hits, err := idx.Search(ctx, v, k)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		require.LessOrEqual(t, len(hits), k)
		assert.True(t, sort.SliceIsSorted(hits, func(a, b int) bool {
			return hits[a].Distance < hits[b].Distance
		}))
		if hits[0].ID == uint64(id) {
			found++
		}
	}
	assert.GreaterOrEqual(t, found, n*9/10)
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2}, []float32{2, 4}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
		{"length mismatch", []float32{1}, []float32{1, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}
