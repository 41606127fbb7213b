// Package azure implements the nlp interfaces against an Azure
// Language-style REST API: synchronous analyze-text for entity recognition
// and the asynchronous jobs endpoint for summarization.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podgraph/pkg/common"
	"podgraph/pkg/logger"
	"podgraph/pkg/nlp"
)

const apiVersion = "2023-04-01"

// Client calls the language service. Create it with NewClient and inject it
// where an nlp.EntityExtractor or nlp.Summarizer is needed.
type Client struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClientParams configures the language service client.
//
// Endpoint is the service base URL, Key the subscription key. Timeout
// bounds each HTTP request (default 30s). PollInterval is the wait between
// summarization job polls (default 2s).
type NewClientParams struct {
	Endpoint     string
	Key          string
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewClient creates a language service client.
func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pollInterval := params.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Client{
		endpoint:     strings.TrimRight(params.Endpoint, "/"),
		apiKey:       params.Key,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
	}
}

type analysisDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type documentError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type entityRecognitionResponse struct {
	Results struct {
		Documents []struct {
			ID       string `json:"id"`
			Entities []struct {
				Text            string  `json:"text"`
				Category        string  `json:"category"`
				SubCategory     string  `json:"subcategory"`
				ConfidenceScore float64 `json:"confidenceScore"`
				Offset          int     `json:"offset"`
				Length          int     `json:"length"`
			} `json:"entities"`
		} `json:"documents"`
		Errors []documentError `json:"errors"`
	} `json:"results"`
}

// ExtractEntities runs entity recognition over the given texts. Results
// come back in input order; a document the service rejected carries Err and
// no entities.
func (c *Client) ExtractEntities(ctx context.Context, texts []string) ([]nlp.ExtractionResult, error) {
	documents := make([]analysisDocument, len(texts))
	for i, text := range texts {
		documents[i] = analysisDocument{ID: strconv.Itoa(i), Language: "en", Text: text}
	}

	payload := map[string]any{
		"kind": "EntityRecognition",
		"analysisInput": map[string]any{
			"documents": documents,
		},
	}

	url := fmt.Sprintf("%s/language/:analyze-text?api-version=%s", c.endpoint, apiVersion)
	body, err := c.post(ctx, url, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nlp.ErrExtraction, err)
	}

	var decoded entityRecognitionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", nlp.ErrExtraction, err)
	}

	results := make([]nlp.ExtractionResult, len(texts))
	for i := range results {
		results[i] = nlp.ExtractionResult{ID: strconv.Itoa(i)}
	}

	byID := func(id string) *nlp.ExtractionResult {
		idx, err := strconv.Atoi(id)
		if err != nil || idx < 0 || idx >= len(results) {
			return nil
		}
		return &results[idx]
	}

	for _, doc := range decoded.Results.Documents {
		result := byID(doc.ID)
		if result == nil {
			continue
		}
		entities := make([]common.Entity, len(doc.Entities))
		for i, e := range doc.Entities {
			entities[i] = common.Entity{
				Text:            e.Text,
				Category:        e.Category,
				SubCategory:     e.SubCategory,
				ConfidenceScore: e.ConfidenceScore,
				Offset:          e.Offset,
				Length:          e.Length,
			}
		}
		result.Entities = entities
	}

	for _, docErr := range decoded.Results.Errors {
		result := byID(docErr.ID)
		if result == nil {
			continue
		}
		result.Err = fmt.Errorf("%w: document %s (%s): %s",
			nlp.ErrExtraction, docErr.ID, docErr.Error.Code, docErr.Error.Message)
	}

	return results, nil
}

type summarizationJobResponse struct {
	Status string `json:"status"`
	Tasks  struct {
		Items []struct {
			Results struct {
				Documents []struct {
					ID        string `json:"id"`
					Sentences []struct {
						Text string `json:"text"`
					} `json:"sentences"`
					Summaries []struct {
						Text string `json:"text"`
					} `json:"summaries"`
				} `json:"documents"`
				Errors []documentError `json:"errors"`
			} `json:"results"`
		} `json:"items"`
	} `json:"tasks"`
}

// Summarize condenses documents into one summary string via the
// asynchronous jobs endpoint. Per-document failures are logged and skipped;
// a batch-level failure is an error.
func (c *Client) Summarize(ctx context.Context, documents []string, kind nlp.SummaryKind) (string, error) {
	docs := make([]analysisDocument, len(documents))
	for i, text := range documents {
		docs[i] = analysisDocument{ID: strconv.Itoa(i), Language: "en", Text: text}
	}

	parameters := map[string]any{"sentenceCount": 1}
	if kind == nlp.SummaryExtractive {
		parameters = map[string]any{"maxSentenceCount": 1}
	}

	payload := map[string]any{
		"displayName":   "summarization",
		"analysisInput": map[string]any{"documents": docs},
		"tasks": []map[string]any{{
			"kind":       string(kind) + "Summarization",
			"taskName":   "summary",
			"parameters": parameters,
		}},
	}

	url := fmt.Sprintf("%s/language/analyze-text/jobs?api-version=%s", c.endpoint, apiVersion)
	operationURL, err := c.submitJob(ctx, url, payload)
	if err != nil {
		return "", err
	}

	job, err := c.awaitJob(ctx, operationURL)
	if err != nil {
		return "", err
	}

	var summary strings.Builder
	for _, item := range job.Tasks.Items {
		for _, docErr := range item.Results.Errors {
			logger.Warn("[NLP] Skipping unsummarizable document",
				"document", docErr.ID, "code", docErr.Error.Code, "message", docErr.Error.Message)
		}
		for _, doc := range item.Results.Documents {
			parts := make([]string, 0, len(doc.Sentences)+len(doc.Summaries))
			for _, s := range doc.Sentences {
				parts = append(parts, s.Text)
			}
			for _, s := range doc.Summaries {
				parts = append(parts, s.Text)
			}
			if len(parts) == 0 {
				continue
			}
			summary.WriteString("\n")
			summary.WriteString(strings.Join(parts, ".\n"))
		}
	}

	return strings.TrimSpace(summary.String()), nil
}

func (c *Client) submitJob(ctx context.Context, url string, payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit summarization job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("submit summarization job: status %d: %s", resp.StatusCode, body)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("submit summarization job: missing Operation-Location header")
	}
	return operationURL, nil
}

func (c *Client) awaitJob(ctx context.Context, operationURL string) (*summarizationJobResponse, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll summarization job: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("poll summarization job: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("poll summarization job: status %d: %s", resp.StatusCode, body)
		}

		var job summarizationJobResponse
		if err := json.Unmarshal(body, &job); err != nil {
			return nil, fmt.Errorf("poll summarization job: decode: %w", err)
		}

		switch strings.ToLower(job.Status) {
		case "succeeded":
			return &job, nil
		case "failed", "cancelled":
			return nil, fmt.Errorf("summarization job ended with status %q", job.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("language api status %d: %s", resp.StatusCode, body)
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
}
