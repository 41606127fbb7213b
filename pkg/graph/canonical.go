package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"podgraph/pkg/common"
	"podgraph/pkg/store"
)

// EntityVertexID derives the canonical vertex id for an entity text: the
// hex SHA-256 of the lower-cased text. The same text in any casing maps to
// the same vertex across the whole graph.
func EntityVertexID(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	return hex.EncodeToString(sum[:])
}

// UpsertCanonicalEntity creates the canonical vertex for an entity if it
// does not exist yet and returns its vertex id. Properties are written at
// creation time only; re-observing the same text is a no-op on the vertex
// (first-writer-wins for category, subCategory, and display text).
func (g *GraphClient) UpsertCanonicalEntity(ctx context.Context, entity common.Entity) (string, error) {
	if entity.Text == "" || entity.Category == "" {
		return "", fmt.Errorf("%w: entity text and category are required", common.ErrValidation)
	}

	vertexID := EntityVertexID(entity.Text)
	partitionKey := strings.ToLower(entity.Category)

	query := fmt.Sprintf(
		"g.V('%s').fold().coalesce(unfold(),"+
			"addV('entity')"+
			".property(id,'%s')"+
			".property('text','%s')"+
			".property('category','%s')"+
			".property('subCategory','%s')"+
			".property('partitionKey','%s'))",
		vertexID,
		vertexID,
		store.EscapeString(entity.Text),
		store.EscapeString(entity.Category),
		store.EscapeString(entity.SubCategory),
		store.EscapeString(partitionKey),
	)

	if err := g.execute(ctx, query); err != nil {
		return "", fmt.Errorf("upsert canonical entity %q: %w", entity.Text, err)
	}

	return vertexID, nil
}

// UpsertDocumentVertex creates the vertex for a document if it does not
// exist yet, attaching all metadata pairs and the processed timestamp at
// creation time only. Re-processing the same document id never duplicates
// the vertex or rewrites its properties.
func (g *GraphClient) UpsertDocumentVertex(ctx context.Context, documentID string, metadata map[string]string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", common.ErrValidation)
	}

	var props strings.Builder

	// Deterministic property order keeps the traversal stable across runs.
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&props, ".property('%s','%s')",
			store.EscapeString(key), store.EscapeString(metadata[key]))
	}

	escapedID := store.EscapeString(documentID)
	query := fmt.Sprintf(
		"g.V('%s').fold().coalesce(unfold(),"+
			"addV('document')"+
			".property(id,'%s')"+
			".property('category','document')"+
			".property('partitionKey','document')"+
			".property('processedAt','%s')%s)",
		escapedID,
		escapedID,
		time.Now().UTC().Format(time.RFC3339),
		props.String(),
	)

	if err := g.execute(ctx, query); err != nil {
		return fmt.Errorf("upsert document vertex %q: %w", documentID, err)
	}

	return nil
}

// CreateAppearanceEdge links a canonical entity to a document it was
// observed in. At most one appears_in edge exists per (entity, document)
// pair; the confidence score and occurrence span are recorded when the edge
// is first created and never modified afterwards.
func (g *GraphClient) CreateAppearanceEdge(ctx context.Context, entity common.Entity, canonicalEntityID string, documentID string) error {
	escapedDoc := store.EscapeString(documentID)

	query := fmt.Sprintf(
		"g.V('%s').outE('appears_in').where(inV().hasId('%s')).fold().coalesce(unfold(),"+
			"addE('appears_in').to(g.V('%s'))"+
			".property('confidenceScore',%g)"+
			".property('offset',%d)"+
			".property('length',%d)"+
			".property('createdAt','%s'))",
		canonicalEntityID,
		escapedDoc,
		escapedDoc,
		entity.ConfidenceScore,
		entity.Offset,
		entity.Length,
		time.Now().UTC().Format(time.RFC3339),
	)

	if err := g.execute(ctx, query); err != nil {
		return fmt.Errorf("create appearance edge %q -> %q: %w", entity.Text, documentID, err)
	}

	return nil
}
