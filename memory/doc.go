// Package memory implements the thought store, relation graph, result
// store, relation inference, and causal-chain reasoning of the memflow
// engine.
//
// # Overview
//
// A session-scoped [ThoughtStore] persists immutable thoughts into the
// vector backend; a [RelationStore] keeps typed directed edges between
// them and a [ResultStore] attaches outcome records. On top of those,
// [RelationInference] links new thoughts to recent ones by embedding
// similarity and a fixed type-pair heuristic, and [CausalChainFinder]
// reconstructs reasoning traces by walking the relation graph.
//
// # Failure policy
//
// Reads favor liveness: a missing backing collection yields an empty
// result, and a point whose payload cannot be decoded is skipped, logged,
// and counted in the [Collector] rather than failing the query. Callers
// must therefore not treat "empty" as proof of "no data". Writes surface
// backend failures immediately; nothing is retried at this layer.
//
// # Concurrency
//
// Each store instance owns a keyed mutex registry so writes to the same
// session serialize while different sessions proceed concurrently. Batch
// saves are chunked and applied sequentially to preserve backend ordering
// for duplicate ids within one logical save.
package memory
