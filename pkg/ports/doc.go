/*
Package ports defines the driven ports (interfaces) for the curator engine.

These interfaces decouple the recommendation core from external implementations, allowing
the engine to work with various data sources, language-model backends and result stores.

# Key Interfaces

  - Catalog: looks up user purchase histories and store inventories (flat files, SQLite, Loam, memory).
  - Capability: a text-in, text-out language-model call.
  - ResultStore: optionally persists completed recommendations (memory, file, Redis).
*/
package ports
