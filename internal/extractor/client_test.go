package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"grnflow/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.ExtractAPIKey = "test"
	cfg.ExtractAgent = "grn agent"
	cfg.ExtractBaseURL = "https://example.test/api/v1"
	return cfg
}

func TestExtractDecodesEnvelope(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/agents/grn agent/extract" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("auth header %q", got)
			}
			body := `{"success":true,"data":{"supplier":"Acme","line_items":[{"qty":5}]}}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	payload, err := client.Extract(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatal(err)
	}
	doc, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", payload)
	}
	if doc["supplier"] != "Acme" {
		t.Fatalf("supplier=%v", doc["supplier"])
	}

	items, ok := doc["line_items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("line_items=%v", doc["line_items"])
	}
	qty := items[0].(map[string]any)["qty"]
	if n, ok := qty.(json.Number); !ok || n.String() != "5" {
		t.Fatalf("qty=%v (%T)", qty, qty)
	}
}

func TestExtractSurfacesServiceFailure(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"success":false,"errors":["agent busy"]}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := client.Extract(context.Background(), []byte("%PDF")); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractSurfacesHTTPError(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(strings.NewReader("upstream down")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := client.Extract(context.Background(), []byte("%PDF")); err == nil {
		t.Fatal("expected error")
	}
}
