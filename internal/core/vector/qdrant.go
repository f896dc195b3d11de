package vector

import (
	"context"
	"crypto/tls"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// QdrantConfig addresses a Qdrant instance over gRPC. Setting APIKey switches to TLS (Qdrant Cloud).
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	Dimensions int
}

// QdrantIndex keeps vectors in a Qdrant collection. Qdrant persists on its own,
// so Save is a no-op and Load only reports whether the collection has points.
type QdrantIndex struct {
	cfg         QdrantConfig
	grpcConn    *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
}

func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334 // Default gRPC port
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", cfg.Dimensions)
	}
	return &QdrantIndex{cfg: cfg}, nil
}

// Connect dials Qdrant and makes sure the collection exists.
func (q *QdrantIndex) Connect(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", q.cfg.Host, q.cfg.Port)
	log.Info().Str("address", address).Msg("🔗 Connecting to Qdrant...")

	creds := insecure.NewCredentials()
	if q.cfg.APIKey != "" {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.DialContext(
		ctx,
		address,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	q.grpcConn = conn
	q.points = qdrant.NewPointsClient(conn)
	q.collections = qdrant.NewCollectionsClient(conn)

	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	log.Info().Str("collection", q.cfg.Collection).Msg("✅ Connected to Qdrant successfully")
	return nil
}

func (q *QdrantIndex) withAuth(ctx context.Context) context.Context {
	if q.cfg.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", q.cfg.APIKey)
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = q.collections.Create(q.withAuth(ctx), &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.cfg.Dimensions),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", q.cfg.Collection).Msg("✅ Collection created")
	return nil
}

func (q *QdrantIndex) collectionExists(ctx context.Context) (bool, error) {
	response, err := q.collections.List(q.withAuth(ctx), &qdrant.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range response.Collections {
		if c.Name == q.cfg.Collection {
			return true, nil
		}
	}
	return false, nil
}

func (q *QdrantIndex) Add(ctx context.Context, id uint64, vec []float32) error {
	if len(vec) != q.cfg.Dimensions {
		return fmt.Errorf("vector dimension %d, index expects %d", len(vec), q.cfg.Dimensions)
	}

	wait := true
	_, err := q.points.Upsert(q.withAuth(ctx), &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Num{Num: id},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vec},
				},
			},
			Payload: map[string]*qdrant.Value{
				"position": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(id)}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != q.cfg.Dimensions {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(query), q.cfg.Dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	response, err := q.points.Search(q.withAuth(ctx), &qdrant.SearchPoints{
		CollectionName: q.cfg.Collection,
		Vector:         query,
		Limit:          uint64(k),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Neighbor, 0, len(response.Result))
	for _, hit := range response.Result {
		// cosine collections score by similarity
		out = append(out, Neighbor{ID: hit.Id.GetNum(), Distance: 1 - hit.Score})
	}
	return out, nil
}

func (q *QdrantIndex) Len(ctx context.Context) (int, error) {
	response, err := q.collections.Get(q.withAuth(ctx), &qdrant.GetCollectionInfoRequest{
		CollectionName: q.cfg.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	if response.Result.PointsCount == nil {
		return 0, nil
	}
	return int(*response.Result.PointsCount), nil
}

func (q *QdrantIndex) Load(ctx context.Context) (bool, error) {
	n, err := q.Len(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *QdrantIndex) Save(ctx context.Context) error { return nil }

// Reset drops and recreates the collection.
func (q *QdrantIndex) Reset(ctx context.Context) error {
	_, err := q.collections.Delete(q.withAuth(ctx), &qdrant.DeleteCollection{
		CollectionName: q.cfg.Collection,
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return q.ensureCollection(ctx)
}

func (q *QdrantIndex) Dimensions() int { return q.cfg.Dimensions }

// Close closes the gRPC connection
func (q *QdrantIndex) Close() error {
	if q.grpcConn != nil {
		return q.grpcConn.Close()
	}
	return nil
}

func (q *QdrantIndex) GetProviderType() string { return "qdrant" }
