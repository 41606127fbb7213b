package azure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"podgraph/pkg/nlp"
)

func TestExtractEntities(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/:analyze-text" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != apiVersion {
			t.Errorf("unexpected api-version: %s", r.URL.Query().Get("api-version"))
		}
		if key := r.Header.Get("Ocp-Apim-Subscription-Key"); key != "test-key" {
			t.Errorf("unexpected subscription key: %s", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": {
				"documents": [
					{
						"id": "0",
						"entities": [
							{"text": "Jane Doe", "category": "Person", "confidenceScore": 0.98, "offset": 0, "length": 8},
							{"text": "Acme", "category": "Organization", "subcategory": "Company", "confidenceScore": 0.91, "offset": 18, "length": 4}
						]
					},
					{"id": "2", "entities": []}
				],
				"errors": [
					{"id": "1", "error": {"code": "InvalidDocument", "message": "document is empty"}}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(NewClientParams{Endpoint: server.URL, Key: "test-key"})
	results, err := client.ExtractEntities(context.Background(),
		[]string{"Jane Doe works at Acme", "", "nothing notable here"})
	if err != nil {
		t.Fatalf("ExtractEntities: %v", err)
	}

	if gotPayload["kind"] != "EntityRecognition" {
		t.Errorf("payload kind = %v, want EntityRecognition", gotPayload["kind"])
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	first := results[0]
	if first.Err != nil {
		t.Fatalf("unexpected document error: %v", first.Err)
	}
	if len(first.Entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(first.Entities))
	}
	if first.Entities[0].Text != "Jane Doe" || first.Entities[0].Category != "Person" {
		t.Errorf("unexpected first entity: %+v", first.Entities[0])
	}
	if first.Entities[1].SubCategory != "Company" {
		t.Errorf("subcategory not decoded: %+v", first.Entities[1])
	}
	if first.Entities[1].Offset != 18 || first.Entities[1].Length != 4 {
		t.Errorf("offsets not decoded: %+v", first.Entities[1])
	}

	second := results[1]
	if second.Err == nil {
		t.Fatal("expected per-document error for rejected document")
	}
	if !errors.Is(second.Err, nlp.ErrExtraction) {
		t.Errorf("document error should wrap nlp.ErrExtraction, got %v", second.Err)
	}
	if len(second.Entities) != 0 {
		t.Errorf("rejected document should carry no entities, got %d", len(second.Entities))
	}

	if results[2].Err != nil || len(results[2].Entities) != 0 {
		t.Errorf("unexpected third result: %+v", results[2])
	}
}

func TestExtractEntitiesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(NewClientParams{Endpoint: server.URL, Key: "test-key"})
	_, err := client.ExtractEntities(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !errors.Is(err, nlp.ErrExtraction) {
		t.Errorf("batch error should wrap nlp.ErrExtraction, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/language/analyze-text/jobs", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		tasks, _ := payload["tasks"].([]any)
		if len(tasks) != 1 {
			t.Errorf("got %d tasks, want 1", len(tasks))
		} else if task, _ := tasks[0].(map[string]any); task["kind"] != "AbstractiveSummarization" {
			t.Errorf("task kind = %v, want AbstractiveSummarization", task["kind"])
		}

		w.Header().Set("Operation-Location", server.URL+"/language/analyze-text/jobs/job-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/language/analyze-text/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.Header().Set("Content-Type", "application/json")
		if polls == 1 {
			w.Write([]byte(`{"status": "running"}`))
			return
		}
		w.Write([]byte(`{
			"status": "succeeded",
			"tasks": {
				"items": [
					{
						"results": {
							"documents": [
								{"id": "0", "summaries": [{"text": "A podcast about graphs"}]}
							],
							"errors": []
						}
					}
				]
			}
		}`))
	})

	client := NewClient(NewClientParams{
		Endpoint:     server.URL,
		Key:          "test-key",
		PollInterval: time.Millisecond,
	})
	summary, err := client.Summarize(context.Background(), []string{"episode transcript"}, nlp.SummaryAbstractive)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "A podcast about graphs" {
		t.Errorf("summary = %q", summary)
	}
	if polls != 2 {
		t.Errorf("got %d polls, want 2", polls)
	}
}

func TestSummarizeJobFailed(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/language/analyze-text/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", server.URL+"/language/analyze-text/jobs/job-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/language/analyze-text/jobs/job-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "failed"}`))
	})

	client := NewClient(NewClientParams{Endpoint: server.URL, Key: "test-key", PollInterval: time.Millisecond})
	_, err := client.Summarize(context.Background(), []string{"text"}, nlp.SummaryExtractive)
	if err == nil {
		t.Fatal("expected error for failed job")
	}
}
