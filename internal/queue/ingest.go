package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"podgraph/internal/util"
	"podgraph/pkg/common"
	"podgraph/pkg/graph"
	"podgraph/pkg/logger"
	"podgraph/pkg/nlp"
)

const extractionTries = 3

var (
	validate = validator.New()

	// swapped in tests to avoid loading the token encoder
	splitForAnalysis = nlp.SplitForAnalysis
)

// IngestMsg is the payload on the ingest queue. Content holds the raw text
// segments of one document, in order.
type IngestMsg struct {
	JobID      string            `json:"jobId"`
	DocumentID string            `json:"documentId" validate:"required"`
	Metadata   map[string]string `json:"metadata"`
	Content    []string          `json:"content" validate:"required,min=1"`
}

// NewIngestMsg builds an ingest message with a fresh job id. Producers live
// outside this service (the trigger surface publishing to the broker); this
// constructor keeps the payload shape in one place for them and for tests.
func NewIngestMsg(documentID string, metadata map[string]string, content []string) (IngestMsg, error) {
	jobID, err := gonanoid.New()
	if err != nil {
		return IngestMsg{}, err
	}

	return IngestMsg{
		JobID:      jobID,
		DocumentID: documentID,
		Metadata:   metadata,
		Content:    content,
	}, nil
}

// PermanentFailure reports whether a processing error can never succeed on
// redelivery. A malformed or invalid payload stays malformed no matter how
// often it is requeued, so the consumer dead-letters it instead of cycling
// it through the retry queue.
func PermanentFailure(err error) bool {
	return errors.Is(err, common.ErrValidation)
}

// ProcessIngestMessage handles one ingest job: chunk the document text,
// run entity extraction over the chunks, and record the document with its
// surviving entities in the graph. Chunks the extraction service rejected
// are logged and skipped; the job fails only when no chunk succeeded or the
// graph write failed.
func ProcessIngestMessage(
	ctx context.Context,
	extractor nlp.EntityExtractor,
	graphClient *graph.GraphClient,
	msg string,
) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if err := validate.Struct(data); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	chunks := make([]string, 0, len(data.Content))
	for _, text := range data.Content {
		parts, err := splitForAnalysis(text, nlp.DefaultEncoder, nlp.DefaultMaxTokens)
		if err != nil {
			return fmt.Errorf("chunking document %s: %w", data.DocumentID, err)
		}
		chunks = append(chunks, parts...)
	}

	logger.Info("[Queue] Extracting entities",
		"job_id", data.JobID, "document_id", data.DocumentID, "chunks", len(chunks))

	results, err := util.RetryWithContext(ctx, extractionTries, func(ctx context.Context) ([]nlp.ExtractionResult, error) {
		return extractor.ExtractEntities(ctx, chunks)
	})
	if err != nil {
		return err
	}

	doc := common.Document{
		ID:       data.DocumentID,
		Metadata: data.Metadata,
	}
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			logger.Warn("[Queue] Skipping failed chunk",
				"job_id", data.JobID, "document_id", data.DocumentID, "chunk", result.ID, "err", result.Err)
			failed++
			continue
		}
		doc.Entities = append(doc.Entities, result.Entities...)
	}
	if len(chunks) > 0 && failed == len(chunks) {
		return fmt.Errorf("%w: all %d chunks of document %s failed", nlp.ErrExtraction, failed, data.DocumentID)
	}

	persisted, err := util.RetryWithContext(ctx, extractionTries, func(ctx context.Context) ([]common.Entity, error) {
		return graphClient.RecordDocument(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Document recorded",
		"job_id", data.JobID, "document_id", data.DocumentID,
		"extracted", len(doc.Entities), "persisted", len(persisted))

	return nil
}
