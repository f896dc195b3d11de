// Package kb answers free-form questions from the FAQ knowledge base by
// nearest-neighbour search over document embeddings.
package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/vector"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
)

// DocumentsFileName holds the document list next to the vector index.
// Position i in the list is vector ID i in the index.
const DocumentsFileName = "documents.json"

// ErrDuplicateDocument is returned by AddDocument for an ID already indexed.
var ErrDuplicateDocument = errors.New("document already exists")

// ErrNotInitialized is returned by AddDocument while the seed knowledge base
// has not been loaded or built.
var ErrNotInitialized = errors.New("knowledge base not initialized")

// DefaultThreshold is the minimum similarity for a match when callers don't pick one.
const DefaultThreshold float32 = 0.7

// Answer is the outcome of GetBestAnswer. Answer and Source are only set when Found.
type Answer struct {
	Found      bool    `json:"found"`
	Answer     string  `json:"answer,omitempty"`
	Confidence float32 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// Retriever owns the knowledge-base documents and the vector index built from them.
type Retriever struct {
	index    vector.Index
	embedder vector.EmbeddingProvider
	seed     []Document
	docsPath string
	timeout  time.Duration

	mu        sync.RWMutex
	documents []Document
	ready     bool
}

func NewRetriever(index vector.Index, embedder vector.EmbeddingProvider, dataDir string, seed []Document, timeout time.Duration) *Retriever {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		seed:     seed,
		docsPath: filepath.Join(dataDir, DocumentsFileName),
		timeout:  timeout,
	}
}

// Initialize loads the persisted documents and index, or builds both from the
// seed when neither exists. Exactly one of the pair present is a data inconsistency.
func (r *Retriever) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.docsPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	docs, docsFound, err := r.readDocuments()
	if err != nil {
		return err
	}
	indexFound, err := r.index.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case docsFound && indexFound:
		n, err := r.index.Len(ctx)
		if err != nil {
			return err
		}
		if n != len(docs) {
			return fmt.Errorf("%w: index has %d vectors but %d documents are stored", errs.ErrDataInconsistency, n, len(docs))
		}
		r.mu.Lock()
		r.documents = docs
		r.ready = true
		r.mu.Unlock()
		log.Info().Int("documents", n).Str("backend", r.index.GetProviderType()).Msg("📚 Knowledge base loaded")
		return nil

	case docsFound && len(docs) == 0:
		// an empty knowledge base leaves nothing in the index to find
		r.mu.Lock()
		r.documents = []Document{}
		r.ready = true
		r.mu.Unlock()
		return nil

	case docsFound != indexFound:
		return fmt.Errorf("%w: documents file present=%t, vector index present=%t", errs.ErrDataInconsistency, docsFound, indexFound)
	}

	return r.build(ctx)
}

// Rebuild discards the persisted pair and re-embeds the seed.
func (r *Retriever) Rebuild(ctx context.Context) error {
	if err := r.index.Reset(ctx); err != nil {
		return err
	}
	if err := os.Remove(r.docsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove documents file: %w", err)
	}
	r.mu.Lock()
	r.documents = nil
	r.ready = false
	r.mu.Unlock()
	return r.build(ctx)
}

func (r *Retriever) build(ctx context.Context) error {
	log.Info().Int("documents", len(r.seed)).Msg("🔨 Building knowledge base index")

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.seed) > 0 {
		texts := make([]string, len(r.seed))
		for i, doc := range r.seed {
			texts[i] = doc.Text
		}

		embedCtx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(1+len(texts)/16))
		vectors, err := r.embedder.GenerateBatchEmbeddings(embedCtx, texts)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to embed knowledge base: %w", err)
		}

		for i, vec := range vectors {
			if err := r.index.Add(ctx, uint64(i), vec); err != nil {
				return fmt.Errorf("failed to index %s: %w", r.seed[i].ID, err)
			}
		}
	}

	r.documents = append([]Document{}, r.seed...)
	if err := r.persistLocked(ctx); err != nil {
		return err
	}
	r.ready = true

	log.Info().Int("documents", len(r.documents)).Msg("✅ Knowledge base index built")
	return nil
}

// AddDocument embeds doc and appends it under the next position, then persists.
// A retriever that failed to initialize retries Initialize first, so a lone
// addition is never persisted in place of the seed.
func (r *Retriever) AddDocument(ctx context.Context, doc Document) error {
	if err := ValidateDocument(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if !r.Ready() {
		if err := r.Initialize(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotInitialized, err)
		}
	}
	if r.HasDocument(doc.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateDocument, doc.ID)
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	vec, err := r.embedder.GenerateEmbedding(embedCtx, doc.Text)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.documents {
		if d.ID == doc.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateDocument, doc.ID)
		}
	}

	id := uint64(len(r.documents))
	if err := r.index.Add(ctx, id, vec); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	r.documents = append(r.documents, doc)

	if err := r.persistLocked(ctx); err != nil {
		return err
	}

	log.Info().Str("doc_id", doc.ID).Uint64("position", id).Msg("➕ Knowledge base document added")
	return nil
}

// GetBestAnswer embeds question and returns the closest document. Any failure
// along the way degrades to a not-found answer.
func (r *Retriever) GetBestAnswer(ctx context.Context, question string, threshold float32) Answer {
	r.mu.RLock()
	empty := !r.ready || len(r.documents) == 0
	r.mu.RUnlock()
	if empty || question == "" {
		return Answer{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Could not embed question, answering not found")
		return Answer{}
	}

	hits, err := r.index.Search(ctx, vec, 1)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Vector search failed")
		return Answer{}
	}
	if len(hits) == 0 {
		return Answer{}
	}

	hit := hits[0]
	r.mu.RLock()
	defer r.mu.RUnlock()
	if hit.ID >= uint64(len(r.documents)) {
		log.Error().Err(errs.ErrDataInconsistency).Uint64("position", hit.ID).Int("documents", len(r.documents)).
			Msg("❌ Vector hit has no document")
		return Answer{}
	}

	similarity := hit.Similarity()
	if similarity < threshold {
		return Answer{Confidence: similarity}
	}

	doc := r.documents[hit.ID]
	return Answer{
		Found:      true,
		Answer:     doc.Answer,
		Confidence: similarity,
		Source:     doc.ID,
	}
}

// Ready reports whether the persisted pair has been loaded or built.
func (r *Retriever) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *Retriever) HasDocument(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.documents {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Documents returns a copy of the indexed documents in position order.
func (r *Retriever) Documents() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Document(nil), r.documents...)
}

func (r *Retriever) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents)
}

func (r *Retriever) readDocuments() ([]Document, bool, error) {
	data, err := os.ReadFile(r.docsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read documents file: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, false, fmt.Errorf("%w: documents file is corrupt: %v", errs.ErrDataInconsistency, err)
	}
	return docs, true, nil
}

// persistLocked saves the index first, then the documents, each atomically.
func (r *Retriever) persistLocked(ctx context.Context) error {
	if err := r.index.Save(ctx); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}

	data, err := json.MarshalIndent(r.documents, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.docsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write documents file: %w", err)
	}
	if err := os.Rename(tmp, r.docsPath); err != nil {
		return fmt.Errorf("failed to replace documents file: %w", err)
	}
	return nil
}

// Backend names the vector index implementation.
func (r *Retriever) Backend() string {
	return r.index.GetProviderType()
}

func (r *Retriever) Close() error {
	return r.index.Close()
}
