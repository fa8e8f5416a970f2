// Package types provides unified type definitions for the memflow engine.
//
// # Overview
//
// The engine persists atomic units of agent reasoning ("thoughts") together
// with typed relations between them and outcome records attached to them.
// This package holds the shared domain records, the collection-level
// metadata types used by the administration layer, and the structured
// error model used across all packages.
//
// # Core types
//
//   - [Thought]: immutable persisted reasoning unit
//   - [Relation]: typed directed edge between two thoughts
//   - [Result]: outcome record attached to a thought
//   - [CollectionInfo] / [CollectionLink]: backend collection metadata
//   - [MemoryLayer] / [LayerMapping]: cognitive layer to collection mapping
//   - [Error] / [ErrorCode]: structured error with code and cause
//
// Type and origin vocabularies are string-typed constants. Values outside
// the closed set are carried through untouched so callers can introduce
// their own tags without a schema change; Known() reports membership.
package types
