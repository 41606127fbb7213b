package graph

import (
	"context"
	"strings"
	"sync"

	"podgraph/pkg/store"
)

// fakeStore records every traversal issued against it. RecordDocument fans
// writes out across goroutines, so access is mutex-protected.
type fakeStore struct {
	mu      sync.Mutex
	queries []string
	rows    []store.Row
	err     error
}

func (f *fakeStore) Execute(ctx context.Context, query string, bindings map[string]any) ([]store.Row, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) Close(ctx context.Context) error {
	return nil
}

func (f *fakeStore) queriesContaining(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, q := range f.queries {
		if strings.Contains(q, substr) {
			out = append(out, q)
		}
	}
	return out
}

func (f *fakeStore) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func newTestClient(t interface{ Fatalf(string, ...any) }, params NewGraphClientParams) (*GraphClient, *fakeStore) {
	fs := &fakeStore{}
	params.Store = fs
	client, err := NewGraphClient(params)
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return client, fs
}
