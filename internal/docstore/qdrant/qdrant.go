// Package qdrant backs the document store with a Qdrant collection reached
// over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"helperbot/internal/domain"
)

// sectionNamespace derives stable point ids from section keys.
var sectionNamespace = uuid.MustParse("6f1d3c9e-2b7a-4f0e-9a51-8c3e7d2b4a10")

const (
	payloadKey  = "key"
	payloadText = "text"
)

// Config configures the Qdrant index.
type Config struct {
	// URL is the server address, e.g. "http://localhost:6334".
	URL        string
	APIKey     string
	Collection string
}

// Index stores section vectors as Qdrant points.
type Index struct {
	client     *qdrant.Client
	collection string
}

// New connects to Qdrant.
func New(cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	qc, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Index{client: client, collection: cfg.Collection}, nil
}

func clientConfig(cfg Config) (*qdrant.Config, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url is required")
	}
	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	port := 6334
	if u.Port() != "" {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
	}
	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

// PointID returns the point id used for a section key.
func PointID(key string) string {
	return uuid.NewSHA1(sectionNamespace, []byte(key)).String()
}

// Reset drops and recreates the collection with cosine distance.
func (x *Index) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if err := x.client.DeleteCollection(ctx, x.collection); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
	}
	return x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (x *Index) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	points, err := toPoints(docs, vectors)
	if err != nil {
		return err
	}
	wait := true
	_, err = x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func toPoints(docs []domain.Document, vectors [][]float32) ([]*qdrant.PointStruct, error) {
	if len(docs) != len(vectors) {
		return nil, errors.New("documents and vectors length mismatch")
	}
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(d.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadKey:  d.ID,
				payloadText: d.Text,
			}),
		}
	}
	return points, nil
}

func (x *Index) Search(ctx context.Context, vector []float32, topK int) (domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	limit := uint64(topK)
	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	out := make(domain.RetrievalResult, 0, len(points))
	for _, p := range points {
		out = append(out, toMatch(p.Payload, p.Score))
	}
	return out, nil
}

func toMatch(payload map[string]*qdrant.Value, score float32) domain.Match {
	m := domain.Match{Score: score}
	if v, ok := payload[payloadKey]; ok {
		m.ID = v.GetStringValue()
	}
	if v, ok := payload[payloadText]; ok {
		m.Text = v.GetStringValue()
	}
	return m
}

func (x *Index) Close() error {
	return x.client.Close()
}
