// Package nlp defines the boundary to the external language service: named
// entity recognition over raw text and document summarization. The graph
// layers consume these interfaces only; the concrete REST client lives in
// the azure subpackage.
package nlp

import (
	"context"
	"errors"

	"podgraph/pkg/common"
)

// ErrExtraction marks an upstream language-service failure for a document.
// Callers log it and treat the document as having zero entities; the batch
// continues.
var ErrExtraction = errors.New("entity extraction failed")

// ExtractionResult is the per-document outcome of an extraction batch. Err
// is set when the service rejected this one document; Entities is empty in
// that case.
type ExtractionResult struct {
	ID       string
	Entities []common.Entity
	Err      error
}

// EntityExtractor recognizes named entities in each of the given texts.
// One failed document does not fail the batch: its result carries Err. The
// returned error is reserved for transport or whole-batch failures.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, texts []string) ([]ExtractionResult, error)
}

// SummaryKind selects the summarization strategy.
type SummaryKind string

const (
	SummaryExtractive  SummaryKind = "Extractive"
	SummaryAbstractive SummaryKind = "Abstractive"
)

// Summarizer condenses a set of documents into a single summary string.
// Documents the service cannot summarize are skipped, not fatal.
type Summarizer interface {
	Summarize(ctx context.Context, documents []string, kind SummaryKind) (string, error)
}
