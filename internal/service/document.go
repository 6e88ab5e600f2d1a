package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"storysmith.app/refinery/common"
	"storysmith.app/refinery/internal/queue"
)

var (
	// ErrIntakeDisabled reports that no queue is configured for this
	// deployment, so reference documents cannot be ingested.
	ErrIntakeDisabled = errors.New("document intake is not configured")
	// ErrEmptyDocument rejects intake of a document without text.
	ErrEmptyDocument = errors.New("document text is empty")
)

// DocumentService accepts reference documents and hands them to the
// embedding pipeline for later retrieval.
type DocumentService interface {
	Ingest(ctx context.Context, name, text string) error
}

type documentService struct {
	producer queue.Producer
}

func NewDocumentService(producer queue.Producer) DocumentService {
	return &documentService{producer: producer}
}

func (s *documentService) Ingest(ctx context.Context, name, text string) error {
	if s.producer == nil {
		return ErrIntakeDisabled
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDocument
	}

	trimmed := strings.TrimSpace(name)
	key, err := common.Slugify(trimmed, "document")
	if err != nil {
		return fmt.Errorf("deriving document key: %w", err)
	}

	msg := queue.DocumentMessage{
		Key:  key,
		Name: trimmed,
		Text: text,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.TraceID = sc.TraceID().String()
	}

	if err := s.producer.EnqueueDocument(ctx, msg); err != nil {
		return fmt.Errorf("handing document to ingestion: %w", err)
	}

	slog.InfoContext(ctx, "document accepted for ingestion", "key", key, "name", msg.Name)
	return nil
}
