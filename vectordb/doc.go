// Package vectordb provides the vector-search backend seam for memflow.
//
// # Overview
//
// The engine delegates all vector search to a remote backend; this package
// defines the [Client] interface the rest of the engine talks through and
// ships two implementations:
//
//   - [QdrantClient]: Qdrant's REST API over net/http, with optional
//     client-side rate limiting and OpenTelemetry spans per round-trip.
//   - [InMemoryClient]: a mutex-guarded in-process implementation for
//     tests and small deployments, with exact cosine scoring.
//
// # Semantics
//
// Point IDs are caller-assigned UUID strings used directly as backend
// identifiers; Upsert is therefore replace-by-id. Filters match payload
// fields by exact value. No retries happen at this layer: transient backend
// failures surface immediately and retry policy belongs to the caller's
// wrapper, not the engine.
package vectordb
