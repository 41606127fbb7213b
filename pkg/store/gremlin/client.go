package gremlin

import (
	"context"
	"fmt"

	"podgraph/pkg/logger"
	"podgraph/pkg/store"

	gremlingo "github.com/apache/tinkerpop/gremlin-go/v3/driver"
)

// Client is a store.GraphStore backed by a remote Gremlin endpoint. It is
// created explicitly with NewClient and injected into the components that
// need it, and must be closed by the owner when the process shuts down.
type Client struct {
	conn *gremlingo.Client
}

// ClientParams configures the connection to the graph engine. Database and
// Container follow the Cosmos DB Gremlin convention where the SASL username
// is the collection path "/dbs/<db>/colls/<container>".
type ClientParams struct {
	Endpoint  string
	Database  string
	Container string
	Key       string
}

// NewClient connects to the Gremlin endpoint described by params.
func NewClient(params ClientParams) (*Client, error) {
	username := fmt.Sprintf("/dbs/%s/colls/%s", params.Database, params.Container)

	conn, err := gremlingo.NewClient(
		params.Endpoint,
		func(settings *gremlingo.ClientSettings) {
			settings.TraversalSource = "g"
			settings.AuthInfo = gremlingo.BasicAuthInfo(username, params.Key)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", store.ErrStore, params.Endpoint, err)
	}

	return &Client{conn: conn}, nil
}

// Execute submits a traversal string with optional named bindings and
// decodes the result rows. Any driver failure is wrapped with
// store.ErrStore.
func (c *Client) Execute(ctx context.Context, query string, bindings map[string]any) ([]store.Row, error) {
	var resultSet gremlingo.ResultSet
	var err error

	if len(bindings) > 0 {
		resultSet, err = c.conn.Submit(query, bindings)
	} else {
		resultSet, err = c.conn.Submit(query)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: submit traversal: %w", store.ErrStore, err)
	}

	results, err := resultSet.All()
	if err != nil {
		return nil, fmt.Errorf("%w: read traversal results: %w", store.ErrStore, err)
	}

	rows := make([]store.Row, 0, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		rows = append(rows, decodeRow(result.GetInterface()))
	}

	logger.Debug("[Store] Traversal executed", "rows", len(rows))

	return rows, nil
}

// Close shuts the underlying driver connection down.
func (c *Client) Close(ctx context.Context) error {
	c.conn.Close()
	return nil
}

// decodeRow normalizes a driver result value into a string-keyed Row. The
// driver hands back map[interface{}]interface{} for valueMap/project steps;
// scalar results are wrapped under the "value" key so callers always see a
// Row.
func decodeRow(value any) store.Row {
	switch v := value.(type) {
	case map[any]any:
		row := make(store.Row, len(v))
		for key, val := range v {
			row[fmt.Sprintf("%v", key)] = normalizeValue(val)
		}
		return row
	case map[string]any:
		row := make(store.Row, len(v))
		for key, val := range v {
			row[key] = normalizeValue(val)
		}
		return row
	default:
		return store.Row{"value": normalizeValue(value)}
	}
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		m := make(map[string]any, len(v))
		for key, val := range v {
			m[fmt.Sprintf("%v", key)] = normalizeValue(val)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return value
	}
}
