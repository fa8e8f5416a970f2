// Package admin provides the collection-administration layer of memflow.
//
// # Overview
//
// [CollectionAdmin] owns collection lifecycle: enumeration, creation with a
// declared vector shape, deletion, a static purpose registry, a declared
// link graph over collections, dimension health checks, and the
// destructive auto-heal repair. [LayerManager] maps the five cognitive
// memory layers (working, episodic, semantic, procedural,
// autobiographical) onto collection sets and aggregates per-layer and
// system-wide statistics.
//
// # Destructive operations
//
// AutoHeal and ClearMemoryLayer delete data. Both require an explicit
// confirmation flag and fail with CONFIRMATION_REQUIRED without it; data
// loss is observable afterwards (point counts drop to zero), never hidden.
package admin
