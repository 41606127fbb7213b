package graph

import (
	"context"
	"fmt"

	"podgraph/pkg/common"
	"podgraph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// RecordDocument writes one document and its extracted entities to the
// graph: the document vertex, a canonical vertex and appearance edge per
// entity above the confidence threshold, and a semantic relationship per
// surviving entity pair. It returns the entities actually persisted.
//
// A mid-way failure can leave some vertices and edges committed; that is
// tolerated because every write is a conditional create, so callers retry
// the whole document.
func (g *GraphClient) RecordDocument(ctx context.Context, doc common.Document) ([]common.Entity, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document id is required", common.ErrValidation)
	}

	persisted := make([]common.Entity, 0, len(doc.Entities))
	for _, entity := range doc.Entities {
		if entity.ConfidenceScore >= g.minConfidence {
			persisted = append(persisted, entity)
		}
	}

	logger.Info("[Graph] Recording document",
		"document_id", doc.ID,
		"entities", len(doc.Entities),
		"persisted", len(persisted),
	)

	if err := g.UpsertDocumentVertex(ctx, doc.ID, doc.Metadata); err != nil {
		return nil, err
	}

	// Entity vertices fan out; the appearance edge for an entity follows its
	// vertex upsert within the same goroutine (the edge needs the vertex id).
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelWrites)
	for _, entity := range persisted {
		e := entity
		eg.Go(func() error {
			canonicalID, err := g.UpsertCanonicalEntity(gCtx, e)
			if err != nil {
				return err
			}
			return g.CreateAppearanceEdge(gCtx, e, canonicalID, doc.ID)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("record document %q: %w", doc.ID, err)
	}

	// Pairwise relationships only after every endpoint vertex exists.
	eg, gCtx = errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelWrites)
	for i := 0; i < len(persisted); i++ {
		for j := i + 1; j < len(persisted); j++ {
			a, b := persisted[i], persisted[j]
			eg.Go(func() error {
				return g.CreateSemanticRelationship(gCtx, a, b, doc.ID)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("record document %q: %w", doc.ID, err)
	}

	return persisted, nil
}
