package query

import (
	"context"
	"fmt"

	"podgraph/pkg/common"
	"podgraph/pkg/store"
)

// Traversal bounds. Hop counts and result limits are clamped so a caller
// cannot request a runaway traversal.
const (
	MaxHops        = 5
	MaxSearchLimit = 200
)

// SearchService runs structured (non-free-text) searches against the
// entity graph. All caller-supplied values travel as named bindings, never
// by string interpolation.
type SearchService struct {
	store store.GraphStore
}

// NewSearchService creates a SearchService over the given graph store.
func NewSearchService(graphStore store.GraphStore) *SearchService {
	return &SearchService{store: graphStore}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// FindEntitiesByCategory lists canonical entities of a category, optionally
// narrowed to a subcategory.
func (s *SearchService) FindEntitiesByCategory(ctx context.Context, category, subCategory string, limit int) ([]store.Row, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", common.ErrValidation)
	}

	query := "g.V().hasLabel('entity').has('category', c)"
	bindings := map[string]any{
		"c": category,
		"l": clampLimit(limit, 100),
	}
	if subCategory != "" {
		query += ".has('subCategory', sc)"
		bindings["sc"] = subCategory
	}
	query += ".limit(l).valueMap(true)"

	return s.store.Execute(ctx, query, bindings)
}

// SearchEntitiesByTextPattern finds canonical entities by partial text
// match, optionally scoped to a category.
func (s *SearchService) SearchEntitiesByTextPattern(ctx context.Context, pattern, category string, limit int) ([]store.Row, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", common.ErrValidation)
	}

	query := "g.V().hasLabel('entity')"
	bindings := map[string]any{
		"p": pattern,
		"l": clampLimit(limit, 100),
	}
	if category != "" {
		query += ".has('category', c)"
		bindings["c"] = category
	}
	query += ".has('text', containing(p)).limit(l).valueMap(true)"

	return s.store.Execute(ctx, query, bindings)
}

// FindRelatedEntities walks outward from a seed entity up to maxHops edges
// and returns the structurally related entities it reaches.
func (s *SearchService) FindRelatedEntities(ctx context.Context, entityText string, maxHops, limit int) ([]store.Row, error) {
	if entityText == "" {
		return nil, fmt.Errorf("%w: entity text is required", common.ErrValidation)
	}

	if maxHops <= 0 {
		maxHops = 2
	}
	if maxHops > MaxHops {
		maxHops = MaxHops
	}

	// The hop count is interpolated rather than bound: it is a clamped
	// integer, and times() takes no binding.
	query := fmt.Sprintf(
		"g.V().has('entity','text',entityTxt)"+
			".repeat(both().simplePath()).times(%d)"+
			".hasLabel('entity').dedup().limit(l).valueMap(true)",
		maxHops,
	)
	bindings := map[string]any{
		"entityTxt": entityText,
		"l":         clampLimit(limit, 50),
	}

	return s.store.Execute(ctx, query, bindings)
}

// FindDocumentsForEntity lists the documents a canonical entity appears in.
func (s *SearchService) FindDocumentsForEntity(ctx context.Context, entityText string, limit int) ([]store.Row, error) {
	if entityText == "" {
		return nil, fmt.Errorf("%w: entity text is required", common.ErrValidation)
	}

	query := "g.V().has('entity','text',entityTxt)" +
		".out('appears_in').limit(l).valueMap(true)"
	bindings := map[string]any{
		"entityTxt": entityText,
		"l":         clampLimit(limit, 50),
	}

	return s.store.Execute(ctx, query, bindings)
}

// FindEntitiesInDocument reconstructs the entities observed in one
// document, each paired with its appearance-edge context (confidence,
// occurrence span).
func (s *SearchService) FindEntitiesInDocument(ctx context.Context, documentID string) ([]store.Row, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", common.ErrValidation)
	}

	query := "g.V(docId).hasLabel('document')" +
		".inE('appears_in')" +
		".project('context','entity')" +
		".by(valueMap(true))" +
		".by(outV().valueMap(true))"
	bindings := map[string]any{"docId": documentID}

	return s.store.Execute(ctx, query, bindings)
}

// FindFrequentCoOccurringEntities aggregates entity pairs that share at
// least minOccurrences documents, ranked by co-occurrence count descending.
func (s *SearchService) FindFrequentCoOccurringEntities(ctx context.Context, minOccurrences, limit int) ([]store.Row, error) {
	if minOccurrences <= 0 {
		minOccurrences = 2
	}

	query := "g.V().hasLabel('entity').as('a')" +
		".out('appears_in').in('appears_in')" +
		".where(lt('a')).as('b')" +
		".select('a','b').by('text')" +
		".groupCount()" +
		".unfold()" +
		".where(select(values).is(gte(min)))" +
		".order().by(values, decr)" +
		".limit(l)" +
		".project('pair','coOccurrences')" +
		".by(select(keys))" +
		".by(select(values))"
	bindings := map[string]any{
		"min": minOccurrences,
		"l":   clampLimit(limit, 20),
	}

	return s.store.Execute(ctx, query, bindings)
}

// FindCommonConnections returns entities directly connected to every seed
// entity. At least two seeds are required; fewer is a caller error, not a
// silent empty result.
func (s *SearchService) FindCommonConnections(ctx context.Context, entityTexts []string, limit int) ([]store.Row, error) {
	if len(entityTexts) < 2 {
		return nil, fmt.Errorf("%w: at least two seed entities are required, got %d",
			common.ErrValidation, len(entityTexts))
	}

	query := "g.V().has('entity','text',within(sourceEntities)).as('source')" +
		".both().where(without('source'))" +
		".groupCount()" +
		".unfold()" +
		".where(select(values).is(eq(numSources)))" +
		".select(keys)" +
		".limit(l)" +
		".valueMap(true)"
	bindings := map[string]any{
		"sourceEntities": entityTexts,
		"numSources":     len(entityTexts),
		"l":              clampLimit(limit, 10),
	}

	return s.store.Execute(ctx, query, bindings)
}

// SearchDocuments compiles a boolean keyword query and executes it. A
// malformed query compiles to the empty traversal and returns zero rows.
func (s *SearchService) SearchDocuments(ctx context.Context, input string, limit int) ([]store.Row, error) {
	return s.store.Execute(ctx, Compile(input, limit), nil)
}
