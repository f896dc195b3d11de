package kb

import (
	"fmt"
	"time"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/vector"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/config"
)

// Setup describes where the index lives, how documents get embedded and
// which seed builds a fresh index.
type Setup struct {
	// Backend is "hnsw" (file index under DataDir) or "qdrant".
	Backend          string
	DataDir          string
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
	Embedding        vector.EmbeddingConfig
	// SeedFile overrides the built-in FAQ seed.
	SeedFile string
	Timeout  time.Duration
}

// SetupFromConfig reads the knowledge base settings from cfg.
func SetupFromConfig(cfg *config.Config) Setup {
	return Setup{
		Backend:          cfg.VectorBackend,
		DataDir:          cfg.VectorDataDir,
		QdrantHost:       cfg.QdrantHost,
		QdrantPort:       cfg.QdrantPort,
		QdrantCollection: cfg.QdrantCollection,
		Embedding: vector.EmbeddingConfig{
			APIKey:     cfg.OpenAIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.ExternalTimeout,
			MaxRetries: 3,
		},
		SeedFile: cfg.KnowledgeBaseFile,
		Timeout:  cfg.ExternalTimeout,
	}
}

// Open wires the embedder, index and seed into an uninitialised Retriever.
func Open(s Setup) (*Retriever, error) {
	embedder, err := vector.NewOpenAIEmbeddingProvider(s.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	var index vector.Index
	switch s.Backend {
	case "qdrant":
		index, err = vector.NewQdrantIndex(vector.QdrantConfig{
			Host:       s.QdrantHost,
			Port:       s.QdrantPort,
			Collection: s.QdrantCollection,
			Dimensions: embedder.GetDimensions(),
		})
	case "hnsw", "":
		index, err = vector.NewHNSWIndex(s.DataDir, embedder.GetDimensions())
	default:
		return nil, fmt.Errorf("unknown vector backend %q", s.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}

	seed, err := DefaultDocuments()
	if s.SeedFile != "" {
		seed, err = LoadDocuments(s.SeedFile)
	}
	if err != nil {
		index.Close()
		return nil, err
	}

	return NewRetriever(index, embedder, s.DataDir, seed, s.Timeout), nil
}
