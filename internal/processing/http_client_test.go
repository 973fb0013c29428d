package processing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/process" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.JobID != "job-1" || req.DocumentID != "doc-1" {
			t.Errorf("unexpected request payload %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"pages": 3},
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	result, err := client.Process(context.Background(), Request{JobID: "job-1", DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result["pages"] != float64(3) {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestHTTPClientProcessServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "corrupt document"})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	if _, err := client.Process(context.Background(), Request{JobID: "j", DocumentID: "d"}); err == nil || !strings.Contains(err.Error(), "corrupt document") {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHTTPClientProcessNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	if _, err := client.Process(context.Background(), Request{JobID: "j", DocumentID: "d"}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	if _, err := client.Process(context.Background(), Request{JobID: "j", DocumentID: "d"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient("  ", time.Second); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestStubClientHonorsContext(t *testing.T) {
	stub := &StubClient{Delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stub.Process(ctx, Request{JobID: "j", DocumentID: "d"}); err == nil {
		t.Fatal("expected context error")
	}

	result, err := (&StubClient{}).Process(context.Background(), Request{JobID: "j", DocumentID: "d"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result["simulated"] != true {
		t.Fatalf("unexpected stub result %v", result)
	}
}
