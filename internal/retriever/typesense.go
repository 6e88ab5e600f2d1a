package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

const (
	defaultLimit      = 5
	connectionTimeout = 5 * time.Second
)

// TypesenseConfig locates the documents collection the ingestion pipeline
// writes into. The retriever only reads; indexing happens elsewhere.
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type typesenseRetriever struct {
	client     *typesense.Client
	collection string
}

// NewTypesense creates a retriever backed by a Typesense collection of
// ingested documents. Documents carry a "name" and a "text" field.
func NewTypesense(cfg TypesenseConfig) (Retriever, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("typesense url and api key are required")
	}

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(connectionTimeout),
	)

	return &typesenseRetriever{
		client:     client,
		collection: cfg.Collection,
	}, nil
}

func (r *typesenseRetriever) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	res, err := r.client.Collection(r.collection).Documents().Search(ctx, &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("text,name"),
		PerPage: pointer.Int(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	if res.Hits == nil {
		return nil, nil
	}

	snippets := make([]Snippet, 0, len(*res.Hits))
	for _, hit := range *res.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		text, _ := doc["text"].(string)
		if text == "" {
			continue
		}
		s := Snippet{Text: text}
		if name, ok := doc["name"].(string); ok {
			s.DocumentName = name
		}
		if hit.TextMatch != nil {
			s.RelevanceScore = float64(*hit.TextMatch)
		}
		snippets = append(snippets, s)
	}

	slog.DebugContext(ctx, "document snippets retrieved",
		"collection", r.collection,
		"snippets", len(snippets))
	return snippets, nil
}
