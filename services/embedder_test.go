package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/guidedpath/models"
)

func TestOllamaEmbedder(t *testing.T) {
	t.Run("Embed returns the vector", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embeddings", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req models.OllamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-embed", req.Model)
			assert.Equal(t, "her2 positive", req.Prompt)

			json.NewEncoder(w).Encode(models.OllamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
		}))
		defer server.Close()

		embedder := NewOllamaEmbedder(server.Client(), server.URL+"/", "test-embed")
		vec, err := embedder.Embed(context.Background(), "her2 positive")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	})

	t.Run("Non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		embedder := NewOllamaEmbedder(server.Client(), server.URL, "missing")
		_, err := embedder.Embed(context.Background(), "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("Empty embedding is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(models.OllamaEmbedResponse{})
		}))
		defer server.Close()

		embedder := NewOllamaEmbedder(server.Client(), server.URL, "m")
		_, err := embedder.Embed(context.Background(), "text")
		assert.Error(t, err)
	})

	t.Run("EmbedBatch preserves order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req models.OllamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(models.OllamaEmbedResponse{Embedding: []float32{float32(len(req.Prompt))}})
		}))
		defer server.Close()

		embedder := NewOllamaEmbedder(server.Client(), server.URL, "m")
		vecs, err := embedder.EmbedBatch(context.Background(), []string{"a", "abc", "ab"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1}, {3}, {2}}, vecs)
	})
}
