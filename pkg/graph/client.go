package graph

import (
	"context"
	"errors"

	"podgraph/pkg/store"
)

// DefaultMinConfidence is the recognition-confidence threshold below which
// extracted entities are never persisted to the graph.
const DefaultMinConfidence = 0.7

// GraphClient writes canonical entities, documents, and inferred
// relationships to a remote graph engine. A store failure surfaces
// immediately; the client never retries a traversal itself. Retry policy
// belongs to whoever calls the orchestrator, and re-running a whole
// document is always safe because every write is a conditional create.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	store                store.GraphStore
	minConfidence        float64
	persistCoOccurrences bool
	parallelWrites       int
}

// NewGraphClientParams defines the configuration for creating a GraphClient.
//
// Store is the injected graph engine client and is required.
// MinConfidence overrides the persistence threshold (default 0.7).
// PersistCoOccurrences controls whether generic co_occurs relationships are
// written; the default is false to bound graph density.
// ParallelWrites limits concurrent vertex/edge writes per document.
type NewGraphClientParams struct {
	Store                store.GraphStore
	MinConfidence        float64
	PersistCoOccurrences bool
	ParallelWrites       int
}

// NewGraphClient creates a GraphClient configured with the provided
// parameters.
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Store == nil {
		return nil, errors.New("graph: store is required")
	}

	minConfidence := params.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	parallelWrites := params.ParallelWrites
	if parallelWrites <= 0 {
		parallelWrites = 8
	}

	g := &GraphClient{
		store:                params.Store,
		minConfidence:        minConfidence,
		persistCoOccurrences: params.PersistCoOccurrences,
		parallelWrites:       parallelWrites,
	}

	return g, nil
}

// execute runs one traversal. Exactly one attempt: a failure is the
// caller's to retry as part of the whole document unit.
func (g *GraphClient) execute(ctx context.Context, query string) error {
	_, err := g.store.Execute(ctx, query, nil)
	return err
}
