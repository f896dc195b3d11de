package vector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
)

// IndexFileName is the graph snapshot written inside the data directory.
const IndexFileName = "index.bin"

const (
	graphM        = 32
	graphEfSearch = 100

	// DefaultExactSearchLimit is the size up to which Search scores every
	// stored vector instead of walking the graph.
	DefaultExactSearchLimit = 4096
)

// HNSWIndex is an in-process HNSW graph persisted as a single file. Vectors
// are also kept by id so small indexes are searched exactly and graph
// candidates are re-ranked by true cosine distance.
type HNSWIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	vectors map[uint64][]float32
	dims    int
	path    string

	// ExactSearchLimit overrides DefaultExactSearchLimit when positive.
	ExactSearchLimit int
}

// NewHNSWIndex creates an empty graph that saves to dir/index.bin.
func NewHNSWIndex(dir string, dims int) (*HNSWIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dims)
	}
	return &HNSWIndex{
		graph:   newGraph(),
		vectors: make(map[uint64][]float32),
		dims:    dims,
		path:    filepath.Join(dir, IndexFileName),
	}, nil
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = graphM
	g.EfSearch = graphEfSearch
	return g
}

func (i *HNSWIndex) Add(ctx context.Context, id uint64, vec []float32) error {
	if len(vec) != i.dims {
		return fmt.Errorf("vector dimension %d, index expects %d", len(vec), i.dims)
	}
	unit, ok := normalize(vec)
	if !ok {
		return errors.New("cannot index a zero vector")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.graph.Add(hnsw.MakeNode(id, unit))
	i.vectors[id] = unit
	return nil
}

func (i *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != i.dims {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(query), i.dims)
	}
	if k <= 0 {
		return nil, nil
	}
	unit, ok := normalize(query)
	if !ok {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.vectors) == 0 {
		return nil, nil
	}

	var out []Neighbor
	if len(i.vectors) <= i.exactLimit() {
		out = make([]Neighbor, 0, len(i.vectors))
		for id, v := range i.vectors {
			out = append(out, Neighbor{ID: id, Distance: CosineDistance(unit, v)})
		}
	} else {
		ef := max(k, i.graph.EfSearch)
		nodes := i.graph.Search(unit, ef)
		out = make([]Neighbor, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, Neighbor{ID: n.Key, Distance: CosineDistance(unit, n.Value)})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (i *HNSWIndex) exactLimit() int {
	if i.ExactSearchLimit > 0 {
		return i.ExactSearchLimit
	}
	return DefaultExactSearchLimit
}

func (i *HNSWIndex) Len(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.graph.Len(), nil
}

// Save writes the graph to a temp file and renames it over the snapshot.
func (i *HNSWIndex) Save(ctx context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	if i.graph.Len() == 0 {
		if err := os.Remove(i.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove index file: %w", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(i.path), IndexFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := i.graph.Export(w); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to export index: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	log.Debug().Str("path", i.path).Int("vectors", i.graph.Len()).Msg("💾 Vector index saved")
	return nil
}

func (i *HNSWIndex) Load(ctx context.Context) (bool, error) {
	f, err := os.Open(i.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	g := newGraph()
	if err := g.Import(bufio.NewReader(f)); err != nil {
		return false, fmt.Errorf("failed to import index: %w", err)
	}
	g.EfSearch = max(g.EfSearch, graphEfSearch)

	// Ids are sequential, so every stored vector is reachable by lookup.
	vectors := make(map[uint64][]float32, g.Len())
	for id := uint64(0); id < uint64(g.Len()); id++ {
		v, ok := g.Lookup(id)
		if !ok {
			return false, fmt.Errorf("%w: index file is missing vector %d", errs.ErrDataInconsistency, id)
		}
		vectors[id] = v
	}

	i.mu.Lock()
	i.graph = g
	i.vectors = vectors
	i.mu.Unlock()
	return true, nil
}

func (i *HNSWIndex) Reset(ctx context.Context) error {
	i.mu.Lock()
	i.graph = newGraph()
	i.vectors = make(map[uint64][]float32)
	i.mu.Unlock()

	if err := os.Remove(i.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove index file: %w", err)
	}
	return nil
}

func (i *HNSWIndex) Dimensions() int { return i.dims }

func (i *HNSWIndex) Close() error { return nil }

func (i *HNSWIndex) GetProviderType() string { return "hnsw" }
