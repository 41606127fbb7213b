package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"podgraph/pkg/common"
	"podgraph/pkg/store"
)

type recordingStore struct {
	query    string
	bindings map[string]any
	rows     []store.Row
	err      error
}

func (r *recordingStore) Execute(ctx context.Context, query string, bindings map[string]any) ([]store.Row, error) {
	r.query = query
	r.bindings = bindings
	return r.rows, r.err
}

func (r *recordingStore) Close(ctx context.Context) error { return nil }

func TestFindEntitiesByCategory(t *testing.T) {
	rs := &recordingStore{rows: []store.Row{{"text": []any{"Tesla"}}}}
	svc := NewSearchService(rs)

	rows, err := svc.FindEntitiesByCategory(context.Background(), "Organization", "", 25)
	if err != nil {
		t.Fatalf("FindEntitiesByCategory: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rs.bindings["c"] != "Organization" || rs.bindings["l"] != 25 {
		t.Fatalf("unexpected bindings: %v", rs.bindings)
	}
	if strings.Contains(rs.query, "subCategory") {
		t.Fatalf("subCategory filter present without a subcategory: %s", rs.query)
	}

	_, err = svc.FindEntitiesByCategory(context.Background(), "Organization", "automotive", 25)
	if err != nil {
		t.Fatalf("FindEntitiesByCategory with subcategory: %v", err)
	}
	if !strings.Contains(rs.query, ".has('subCategory', sc)") || rs.bindings["sc"] != "automotive" {
		t.Fatalf("missing subCategory filter: %s %v", rs.query, rs.bindings)
	}

	if _, err := svc.FindEntitiesByCategory(context.Background(), "", "", 0); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSearchEntitiesByTextPattern(t *testing.T) {
	rs := &recordingStore{}
	svc := NewSearchService(rs)

	if _, err := svc.SearchEntitiesByTextPattern(context.Background(), "micro", "Organization", 0); err != nil {
		t.Fatalf("SearchEntitiesByTextPattern: %v", err)
	}
	if !strings.Contains(rs.query, ".has('text', containing(p))") {
		t.Fatalf("missing containing step: %s", rs.query)
	}
	if rs.bindings["p"] != "micro" || rs.bindings["c"] != "Organization" {
		t.Fatalf("unexpected bindings: %v", rs.bindings)
	}
	if rs.bindings["l"] != 100 {
		t.Fatalf("default limit = %v, want 100", rs.bindings["l"])
	}
}

func TestFindRelatedEntitiesClamping(t *testing.T) {
	tests := []struct {
		name      string
		hops      int
		limit     int
		wantTimes string
		wantLimit int
	}{
		{"Defaults", 0, 0, ".times(2)", 50},
		{"WithinBounds", 3, 40, ".times(3)", 40},
		{"HopsClamped", 12, 40, ".times(5)", 40},
		{"LimitClamped", 2, 10000, ".times(2)", MaxSearchLimit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := &recordingStore{}
			svc := NewSearchService(rs)

			if _, err := svc.FindRelatedEntities(context.Background(), "Tesla", tc.hops, tc.limit); err != nil {
				t.Fatalf("FindRelatedEntities: %v", err)
			}
			if !strings.Contains(rs.query, tc.wantTimes) {
				t.Fatalf("query = %s, want hop step %s", rs.query, tc.wantTimes)
			}
			if rs.bindings["l"] != tc.wantLimit {
				t.Fatalf("limit binding = %v, want %d", rs.bindings["l"], tc.wantLimit)
			}
			if rs.bindings["entityTxt"] != "Tesla" {
				t.Fatalf("unexpected bindings: %v", rs.bindings)
			}
		})
	}
}

func TestFindCommonConnectionsSeedValidation(t *testing.T) {
	rs := &recordingStore{}
	svc := NewSearchService(rs)

	for _, seeds := range [][]string{nil, {}, {"Tesla"}} {
		if _, err := svc.FindCommonConnections(context.Background(), seeds, 10); !errors.Is(err, common.ErrValidation) {
			t.Fatalf("seeds %v: err = %v, want ErrValidation", seeds, err)
		}
	}
	if rs.query != "" {
		t.Fatalf("invalid seed sets must not reach the store: %s", rs.query)
	}

	seeds := []string{"Tesla", "SpaceX", "Neuralink"}
	if _, err := svc.FindCommonConnections(context.Background(), seeds, 10); err != nil {
		t.Fatalf("FindCommonConnections: %v", err)
	}
	if rs.bindings["numSources"] != 3 {
		t.Fatalf("numSources = %v, want 3", rs.bindings["numSources"])
	}
	if !strings.Contains(rs.query, ".where(select(values).is(eq(numSources)))") {
		t.Fatalf("query must require a connection to every seed: %s", rs.query)
	}
}

func TestFindFrequentCoOccurringEntities(t *testing.T) {
	rs := &recordingStore{}
	svc := NewSearchService(rs)

	if _, err := svc.FindFrequentCoOccurringEntities(context.Background(), 3, 20); err != nil {
		t.Fatalf("FindFrequentCoOccurringEntities: %v", err)
	}
	if rs.bindings["min"] != 3 {
		t.Fatalf("min binding = %v, want 3", rs.bindings["min"])
	}
	for _, want := range []string{
		".where(select(values).is(gte(min)))",
		".order().by(values, decr)",
		".project('pair','coOccurrences')",
	} {
		if !strings.Contains(rs.query, want) {
			t.Fatalf("query missing %q: %s", want, rs.query)
		}
	}
}

func TestFindEntitiesInDocument(t *testing.T) {
	rs := &recordingStore{}
	svc := NewSearchService(rs)

	if _, err := svc.FindEntitiesInDocument(context.Background(), "episode-42"); err != nil {
		t.Fatalf("FindEntitiesInDocument: %v", err)
	}
	if rs.bindings["docId"] != "episode-42" {
		t.Fatalf("unexpected bindings: %v", rs.bindings)
	}
	if !strings.Contains(rs.query, ".project('context','entity')") {
		t.Fatalf("query must project edge context and entity: %s", rs.query)
	}

	if _, err := svc.FindEntitiesInDocument(context.Background(), ""); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSearchDocumentsDegradesMalformedQuery(t *testing.T) {
	rs := &recordingStore{}
	svc := NewSearchService(rs)

	if _, err := svc.SearchDocuments(context.Background(), `"unterminated`, 0); err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if rs.query != EmptyTraversal {
		t.Fatalf("query = %s, want %s", rs.query, EmptyTraversal)
	}
}
