// Package embedding provides the text-embedding seam for memflow.
//
// The engine treats embeddings as pluggable: any [Embedder] can back the
// thought store. When no embedder is configured the engine degrades
// gracefully (substring search, relation inference disabled) instead of
// failing.
//
//   - [HTTPEmbedder]: OpenAI-compatible /v1/embeddings endpoint
//   - [CachedEmbedder]: Redis cache in front of any Embedder
package embedding
