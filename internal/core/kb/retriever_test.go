package kb

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/vector"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
)

// topicEmbedder maps text onto one dimension per keyword plus a constant bias,
// so texts that share keywords land close together.
type topicEmbedder struct {
	topics []string
	calls  int32
	fail   bool
}

func newTopicEmbedder() *topicEmbedder {
	return &topicEmbedder{topics: []string{
		"horario", "fierro", "cemento", "pintura", "herramienta",
		"led", "pedido", "entrega", "pago", "domingo",
	}}
}

func (e *topicEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.fail {
		return nil, vector.ErrEmbeddingUnavailable
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.topics)+1)
	for i, topic := range e.topics {
		if strings.Contains(lower, topic) {
			vec[i] = 1
		}
	}
	vec[len(e.topics)] = 0.1
	return vec, nil
}

func (e *topicEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *topicEmbedder) GetDimensions() int      { return len(e.topics) + 1 }
func (e *topicEmbedder) GetProviderName() string { return "topic" }

// hashEmbedder spreads each text over dims pseudo-random components seeded by
// its FNV hash.
type hashEmbedder struct{ dims int }

func (e *hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	r := rand.New(rand.NewPCG(h.Sum64(), 7))
	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = float32(r.NormFloat64())
	}
	return vec, nil
}

func (e *hashEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.GenerateEmbedding(ctx, text)
	}
	return out, nil
}

func (e *hashEmbedder) GetDimensions() int      { return e.dims }
func (e *hashEmbedder) GetProviderName() string { return "hash" }

func newTestRetriever(t *testing.T, dir string, emb *topicEmbedder, seed []Document) *Retriever {
	t.Helper()
	idx, err := vector.NewHNSWIndex(dir, emb.GetDimensions())
	require.NoError(t, err)
	return NewRetriever(idx, emb, dir, seed, 0)
}

func seedDocs(t *testing.T) []Document {
	t.Helper()
	docs, err := DefaultDocuments()
	require.NoError(t, err)
	return docs
}

func TestInitializeBuildsAndPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := newTopicEmbedder()

	r := newTestRetriever(t, dir, emb, seedDocs(t))
	require.NoError(t, r.Initialize(ctx))
	assert.Equal(t, 11, r.Count())
	assert.FileExists(t, filepath.Join(dir, DocumentsFileName))
	assert.FileExists(t, filepath.Join(dir, vector.IndexFileName))

	// a second start loads from disk without embedding anything
	emb2 := newTopicEmbedder()
	r2 := newTestRetriever(t, dir, emb2, seedDocs(t))
	require.NoError(t, r2.Initialize(ctx))
	assert.Equal(t, 11, r2.Count())
	assert.Equal(t, int32(0), atomic.LoadInt32(&emb2.calls))
}

func TestInitializeRejectsHalfPersistedState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	r := newTestRetriever(t, dir, newTopicEmbedder(), seedDocs(t))
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, os.Remove(filepath.Join(dir, vector.IndexFileName)))

	r2 := newTestRetriever(t, dir, newTopicEmbedder(), seedDocs(t))
	err := r2.Initialize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDataInconsistency))
}

func TestGetBestAnswerSchedule(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(t, t.TempDir(), newTopicEmbedder(), seedDocs(t))
	require.NoError(t, r.Initialize(ctx))

	ans := r.GetBestAnswer(ctx, "¿Cuál es el horario?", 0.65)
	require.True(t, ans.Found)
	assert.Equal(t, "faq_009", ans.Source)
	assert.Contains(t, ans.Answer, "lunes a sábado")
	assert.GreaterOrEqual(t, ans.Confidence, float32(0.65))
}

func TestGetBestAnswerThreshold(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(t, t.TempDir(), newTopicEmbedder(), seedDocs(t))
	require.NoError(t, r.Initialize(ctx))

	tests := []struct {
		name      string
		question  string
		threshold float32
		wantFound bool
	}{
		{"exact topic", "horario", 0.7, true},
		{"no known topic", "¿venden bicicletas?", 0.7, false},
		{"threshold above one", "horario", 1.01, false},
		{"empty question", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans := r.GetBestAnswer(ctx, tt.question, tt.threshold)
			assert.Equal(t, tt.wantFound, ans.Found)
			if ans.Found {
				assert.GreaterOrEqual(t, ans.Confidence, tt.threshold)
				assert.NotEmpty(t, ans.Source)
			} else {
				assert.Empty(t, ans.Answer)
			}
		})
	}
}

func TestGetBestAnswerDegrades(t *testing.T) {
	ctx := context.Background()

	t.Run("empty knowledge base", func(t *testing.T) {
		r := newTestRetriever(t, t.TempDir(), newTopicEmbedder(), nil)
		require.NoError(t, r.Initialize(ctx))
		assert.False(t, r.GetBestAnswer(ctx, "horario", 0).Found)
	})

	t.Run("embedder down", func(t *testing.T) {
		emb := newTopicEmbedder()
		r := newTestRetriever(t, t.TempDir(), emb, seedDocs(t))
		require.NoError(t, r.Initialize(ctx))
		emb.fail = true
		assert.Equal(t, Answer{}, r.GetBestAnswer(ctx, "horario", 0.5))
	})

	t.Run("not initialized", func(t *testing.T) {
		r := newTestRetriever(t, t.TempDir(), newTopicEmbedder(), seedDocs(t))
		assert.False(t, r.GetBestAnswer(ctx, "horario", 0).Found)
	})
}

func TestAddDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newTestRetriever(t, dir, newTopicEmbedder(), seedDocs(t)[:3])
	require.NoError(t, r.Initialize(ctx))

	doc := Document{ID: "faq_100", Text: "¿Hacen entrega los domingo?", Answer: "Entregamos de lunes a sábado."}
	require.NoError(t, r.AddDocument(ctx, doc))
	assert.Equal(t, 4, r.Count())

	ans := r.GetBestAnswer(ctx, doc.Text, 0.99)
	require.True(t, ans.Found)
	assert.Equal(t, "faq_100", ans.Source)

	assert.Error(t, r.AddDocument(ctx, doc), "duplicate id")
	assert.Error(t, r.AddDocument(ctx, Document{ID: "x"}), "missing text")

	// the addition survives a restart
	r2 := newTestRetriever(t, dir, newTopicEmbedder(), nil)
	require.NoError(t, r2.Initialize(ctx))
	assert.True(t, r2.HasDocument("faq_100"))
}

func TestAddDocumentBeforeInitialize(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seed := seedDocs(t)
	extra := Document{ID: "faq_200", Text: "¿Aceptan pago con tarjeta?", Answer: "Sí, todas las tarjetas."}

	emb := newTopicEmbedder()
	emb.fail = true
	r := newTestRetriever(t, dir, emb, seed)
	require.Error(t, r.Initialize(ctx))

	err := r.AddDocument(ctx, extra)
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, r.Ready())
	assert.Zero(t, r.Count())
	_, statErr := os.Stat(filepath.Join(dir, DocumentsFileName))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing persisted while the embedder is down")

	// once the embedder is back the addition builds the seed first
	emb.fail = false
	require.NoError(t, r.AddDocument(ctx, extra))
	assert.True(t, r.Ready())
	assert.Equal(t, len(seed)+1, r.Count())

	restarted := newTestRetriever(t, dir, newTopicEmbedder(), nil)
	require.NoError(t, restarted.Initialize(ctx))
	assert.Equal(t, len(seed)+1, restarted.Count())
	assert.True(t, restarted.HasDocument(seed[0].ID))
	assert.True(t, restarted.HasDocument("faq_200"))
}

func TestAddDocumentRefusesHalfPersisted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocumentsFileName), []byte(`[{"id":"a","text":"a","answer":"a"}]`), 0o644))

	r := newTestRetriever(t, dir, newTopicEmbedder(), seedDocs(t))
	err := r.AddDocument(ctx, Document{ID: "b", Text: "pago", Answer: "Yape"})
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, err, errs.ErrDataInconsistency)
}

func TestRetrieverRoundTripAtEmbeddingScale(t *testing.T) {
	ctx := context.Background()
	const dims, n = 1536, 150

	emb := &hashEmbedder{dims: dims}
	idx, err := vector.NewHNSWIndex(t.TempDir(), dims)
	require.NoError(t, err)

	seed := make([]Document, n)
	for i := range seed {
		seed[i] = Document{ID: fmt.Sprintf("faq_%03d", i), Text: fmt.Sprintf("pregunta frecuente número %d", i), Answer: "ok"}
	}
	r := NewRetriever(idx, emb, t.TempDir(), seed, 0)
	require.NoError(t, r.Initialize(ctx))

	for _, d := range seed {
		ans := r.GetBestAnswer(ctx, d.Text, 0.99)
		require.True(t, ans.Found, d.ID)
		assert.Equal(t, d.ID, ans.Source)
	}
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	emb := newTopicEmbedder()
	r := newTestRetriever(t, t.TempDir(), emb, seedDocs(t))
	require.NoError(t, r.Initialize(ctx))
	require.NoError(t, r.AddDocument(ctx, Document{ID: "extra", Text: "pago", Answer: "Yape"}))

	require.NoError(t, r.Rebuild(ctx))
	assert.Equal(t, 11, r.Count())
	assert.False(t, r.HasDocument("extra"))
}
