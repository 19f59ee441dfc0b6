package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaEmbedder_Success(t *testing.T) {
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("expected path /api/embeddings, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("expected model nomic-embed-text, got %s", req.Model)
		}
		if req.Prompt != "hello world" {
			t.Errorf("expected prompt 'hello world', got %q", req.Prompt)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: want})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	got, err := embedder.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i] != float32(v) {
			t.Errorf("dimension %d: expected %f, got %f", i, v, got[i])
		}
	}
}

func TestOllamaEmbedder_BatchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		// Derive the vector from the prompt so order is observable.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{float64(len(req.Prompt))}})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	texts := []string{"a", "bb", "ccc"}
	got, err := embedder.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if len(got) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(got), len(texts))
	}
	for i, text := range texts {
		if got[i][0] != float32(len(text)) {
			t.Errorf("vector %d = %v, want [%d]", i, got[i], len(text))
		}
	}
}

func TestOllamaEmbedder_EmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch must not reach the server")
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	got, err := embedder.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d vectors for empty batch", len(got))
	}
}

func TestOllamaEmbedder_HTTPError500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	_, err := embedder.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrRateLimit) {
		t.Error("should not be rate limit error")
	}
}

func TestOllamaEmbedder_RateLimit429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	_, err := embedder.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("expected ErrRateLimit, got: %v", err)
	}
}

func TestOllamaEmbedder_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := embedder.Embed(ctx, "test text"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestOllamaEmbedder_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"embedding": not valid json`))
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	_, err := embedder.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestOllamaEmbedder_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{}})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	_, err := embedder.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error for empty embedding")
	}
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestOllamaEmbedder_BatchStopsOnError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{1}})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "test-model")
	if _, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Fatal("expected batch to fail when one text fails")
	}
	if calls != 2 {
		t.Errorf("made %d calls, want 2 (stop at first failure)", calls)
	}
}
