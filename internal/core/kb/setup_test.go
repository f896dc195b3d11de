package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/vector"
)

func TestOpen(t *testing.T) {
	t.Run("hnsw with built-in seed", func(t *testing.T) {
		r, err := Open(Setup{
			DataDir:   t.TempDir(),
			Embedding: vector.EmbeddingConfig{APIKey: "sk-test", Dimensions: 8},
		})
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, "hnsw", r.Backend())
		assert.Zero(t, r.Count(), "documents are only loaded by Initialize")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(Setup{Backend: "faiss", DataDir: t.TempDir(), Embedding: vector.EmbeddingConfig{APIKey: "sk-test"}})
		assert.ErrorContains(t, err, "unknown vector backend")
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := Open(Setup{DataDir: t.TempDir()})
		assert.Error(t, err)
	})

	t.Run("missing seed file", func(t *testing.T) {
		_, err := Open(Setup{DataDir: t.TempDir(), SeedFile: "does-not-exist.yaml", Embedding: vector.EmbeddingConfig{APIKey: "sk-test"}})
		assert.Error(t, err)
	})
}
