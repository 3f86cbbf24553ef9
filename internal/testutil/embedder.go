package testutil

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// StaticEmbedder is a deterministic ai.Embedder for integration tests that
// need real vectors in the database without calling a model API. Each input
// text maps to a fixed unit-length vector derived from its hash, so equal
// texts embed identically and similarity search stays meaningful.
type StaticEmbedder struct {
	// Dimension of the produced vectors. Zero means 768.
	Dimension int
}

// Name implements ai.Embedder.
func (e *StaticEmbedder) Name() string { return "static-embedder" }

// Register implements ai.Embedder. Nothing to register.
func (e *StaticEmbedder) Register(api.Registry) {}

// Embed produces one vector per input document.
func (e *StaticEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	dim := e.Dimension
	if dim <= 0 {
		dim = 768
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: staticVector(text, dim),
		})
	}
	return resp, nil
}

// staticVector derives a unit-length vector from text. A seeded linear
// congruential sequence spreads hash entropy across all dimensions.
func staticVector(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>11))/float64(1<<52) - 1 // roughly [-1, 1)
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
