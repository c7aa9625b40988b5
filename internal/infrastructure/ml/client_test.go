package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientScore(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sentiment" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"score": 1.7}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret")
	score, err := client.Score(context.Background(), "great news")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 1 {
		t.Fatalf("expected clamped score 1, got %f", score)
	}
}

func TestClientScoreErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, "").Score(context.Background(), "text"); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
	if _, err := NewClient("", "").Score(context.Background(), "text"); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}
